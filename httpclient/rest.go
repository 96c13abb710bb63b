package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// TypedResponse wraps a response with a decoded body of type T.
type TypedResponse[T any] struct {
	StatusCode int
	Header     http.Header
	Data       T
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](c *Client, ctx context.Context, path string) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, Request{Method: http.MethodGet, Path: path})
}

// Post sends body and decodes the JSON response into type T.
func Post[T any](c *Client, ctx context.Context, path string, body any) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// doTyped executes req and decodes the JSON response.
func doTyped[T any](c *Client, ctx context.Context, req Request) (*TypedResponse[T], error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var data T
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return nil, &Error{
				StatusCode: resp.StatusCode,
				Code:       ErrCodeDecode,
				Message:    "decode response: " + err.Error(),
				Body:       resp.Body,
				Err:        err,
			}
		}
	}
	return &TypedResponse[T]{StatusCode: resp.StatusCode, Header: resp.Header, Data: data}, nil
}
