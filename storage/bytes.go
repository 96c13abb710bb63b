package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/kbukum/mediaflow/errors"
)

// ReadObject downloads a whole object. Objects larger than limit bytes are
// rejected with INVALID_INPUT; a non-positive limit reads everything.
func ReadObject(ctx context.Context, s Storage, path string, limit int64) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.StorageError("read", path, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errors.InvalidInput(path, fmt.Sprintf("object exceeds %d bytes", limit))
	}
	return data, nil
}

// WriteObject uploads data to path.
func WriteObject(ctx context.Context, s Storage, path string, data []byte) error {
	return s.Upload(ctx, path, bytes.NewReader(data))
}
