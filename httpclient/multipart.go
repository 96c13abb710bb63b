package httpclient

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/textproto"
	"slices"
	"strings"
)

// MultipartBody is sent as multipart/form-data when used as a Request body.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is one uploaded part. Reader takes precedence over Data.
type FileField struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
	Reader      io.Reader
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (m *MultipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range slices.Sorted(maps.Keys(m.Fields)) {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	for _, f := range m.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.FieldName), quoteEscaper.Replace(f.FileName)))
		h.Set("Content-Type", cmp.Or(f.ContentType, "application/octet-stream"))
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", f.FieldName, err)
		}
		src := f.Reader
		if src == nil {
			src = bytes.NewReader(f.Data)
		}
		if _, err := io.Copy(part, src); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", f.FieldName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
