// Package engine is the workflow orchestrator.
//
// The engine keeps no execution state of its own. Start allocates an
// execution in the shared store and dispatches the start node; every later
// step is driven by OnNodeComplete, which applies one attempt's outcome in a
// single conditional update and then dispatches whatever became ready.
// Job nodes are handed to analysis services together with a signed callback
// token naming the attempt; their results come back through Complete.
// Controller nodes run inline.
//
// Each attempt carries a deadline. Run periodically sweeps active executions
// so expired attempts fail with TIMEOUT and retries whose timer was lost
// still happen.
package engine
