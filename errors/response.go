package errors

// ErrorResponse is the JSON structure returned to clients following RFC 7807.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// Info is the persisted form of an error recorded against a node or execution.
type Info struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// ToInfo returns the persisted form of the error.
func (e *AppError) ToInfo() *Info {
	return &Info{Code: e.Code, Message: e.Message, Retryable: e.Retryable}
}

// InfoOf converts any error into its persisted form.
func InfoOf(err error) *Info {
	if err == nil {
		return nil
	}
	return From(err).ToInfo()
}

// AppError rebuilds an AppError from its persisted form.
func (i *Info) AppError() *AppError {
	return &AppError{
		Code: i.Code, Message: i.Message, Retryable: i.Retryable,
		HTTPStatus: HTTPStatusOf(i.Code),
	}
}
