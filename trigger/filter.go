package trigger

import (
	"fmt"
	"strings"

	"github.com/kbukum/mediaflow/execution"
)

// Filter accepts objects in one bucket below one prefix.
type Filter struct {
	Bucket string
	Prefix string
}

// MatchEvent reports whether ev should start an execution. When it should
// not, the reason says why.
func (f Filter) MatchEvent(ev *ObjectCreated) (bool, string) {
	if ev.Source != SourceS3 {
		return false, fmt.Sprintf("source %q is not %s", ev.Source, SourceS3)
	}
	if ev.DetailType != DetailTypeCreated {
		return false, fmt.Sprintf("detail-type %q is not %s", ev.DetailType, DetailTypeCreated)
	}
	return f.Match(ev.Trigger().ObjectRef)
}

// Match applies the bucket and prefix rules to an object.
func (f Filter) Match(obj execution.ObjectRef) (bool, string) {
	if f.Bucket != "" && obj.Bucket != f.Bucket {
		return false, fmt.Sprintf("bucket %q is not %q", obj.Bucket, f.Bucket)
	}
	if !strings.HasPrefix(obj.Key, f.Prefix) || obj.Key == f.Prefix {
		return false, fmt.Sprintf("key %q is outside %q", obj.Key, f.Prefix)
	}
	return true, ""
}
