package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Warning    string      `json:"warning,omitempty"` // non-fatal secondary failure (audit/upload/print)
	ErrorKind  string      `json:"error_kind,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithWarning wraps data together with a non-fatal warning message.
// The primary operation succeeded; the warning reports a swallowed secondary
// failure the caller may surface but cannot act on.
func SuccessWithWarning(statusCode int, data interface{}, warning string) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
		Warning:    warning,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithKind includes the machine-readable error kind alongside the message
func ErrorWithKind(statusCode int, kind, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		ErrorKind:  kind,
		Error:      err,
	}
}
