// Package analysis connects job nodes to the services that do the work.
//
// A Service accepts a dispatched attempt and reports its outcome later
// through the request's callback. Two kinds exist:
//
//   - AsyncService runs a synchronous Backend (face detection, transcription,
//     sentiment detection) in the background under a bulkhead, circuit
//     breaker and rate limit, and completes the attempt in process.
//   - RemoteService hands the attempt to an external service over HTTP; that
//     service posts its completion to the callback URL.
package analysis
