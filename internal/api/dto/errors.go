package dto

// APIError is the body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"` // Offending query parameter
}

// Error codes
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInvalidParam  = "invalid_param"
	ErrCodeUnavailable   = "unavailable"
	ErrCodeInternalError = "internal_error"
)

// NotFoundError reports a missing resource, e.g. NotFoundError("run").
func NotFoundError(resource string) APIError {
	return APIError{Code: ErrCodeNotFound, Message: resource + " not found"}
}

// BadRequestError reports a request that could not be bound.
func BadRequestError(message string) APIError {
	return APIError{Code: ErrCodeBadRequest, Message: message}
}

// InvalidParamError reports a filter value outside its allowed set.
func InvalidParamError(param, message string) APIError {
	return APIError{Code: ErrCodeInvalidParam, Message: message, Param: param}
}

// InternalError hides the cause from the client; it is logged instead.
func InternalError() APIError {
	return APIError{Code: ErrCodeInternalError, Message: "an internal error occurred"}
}
