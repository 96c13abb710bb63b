package httpclient

import "net/http"

// Request is one outbound call. Path is joined to the client's BaseURL
// unless it is absolute.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	// Body accepts io.Reader, []byte, string, *MultipartBody, or any value
	// to be sent as JSON.
	Body any
}

// Response holds a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
