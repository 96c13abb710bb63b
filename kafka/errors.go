package kafka

import (
	stderrors "errors"
	"io"
	"net"
	"strings"

	"github.com/segmentio/kafka-go"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no route to host",
	"network is unreachable",
	"dial tcp",
}

// IsRetryable reports whether a broker error may succeed on another try:
// network failures and errors the protocol marks as temporary.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var kerr kafka.Error
	if stderrors.As(err, &kerr) {
		return kerr.Temporary()
	}
	var werr kafka.WriteErrors
	if stderrors.As(err, &werr) {
		for _, e := range werr {
			if e != nil && !IsRetryable(e) {
				return false
			}
		}
		return true
	}
	var nerr net.Error
	if stderrors.As(err, &nerr) || stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.Is(err, io.EOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range connectionPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
