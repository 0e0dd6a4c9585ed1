package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Pipeline constructors ---

// UnknownTask reports a task name that is not part of the pipeline's graph.
func UnknownTask(pipeline, task string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownTask, Message: fmt.Sprintf("Unable to run task %s: not found in workflow for pipeline %s", task, pipeline),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"pipeline": pipeline, "task": task},
	}
}

// UnboundTask reports a graph task that has no op registered under its name.
func UnboundTask(pipeline, task string) *AppError {
	return &AppError{
		Code: ErrCodeUnboundTask, Message: fmt.Sprintf("Unable to run task %s: not found in ops for pipeline %s", task, pipeline),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"pipeline": pipeline, "task": task},
	}
}

// UnboundOp reports an op invoked before it was attached to a pipeline.
func UnboundOp(op string) *AppError {
	return &AppError{
		Code: ErrCodeUnboundOp, Message: fmt.Sprintf("Op %s is not attached to a pipeline", op),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"op": op},
	}
}

// DanglingDependency reports a dependency on a task the pipeline does not define.
func DanglingDependency(pipeline, task, dependency string) *AppError {
	return &AppError{
		Code: ErrCodeDanglingDependency, Message: fmt.Sprintf("Task %s depends on %s, which is not part of pipeline %s", task, dependency, pipeline),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"pipeline": pipeline, "task": task, "dependency": dependency},
	}
}

// CyclicDependency reports a dependency cycle. The path lists the chain of
// tasks with the first task repeated at the end.
func CyclicDependency(pipeline string, path []string) *AppError {
	return &AppError{
		Code: ErrCodeCyclicDependency, Message: fmt.Sprintf("Pipeline %s has a dependency cycle: %s", pipeline, strings.Join(path, " -> ")),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"pipeline": pipeline, "path": path},
	}
}

// InvalidInvocation reports an op call that was not made with named arguments.
func InvalidInvocation(op, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInvocation, Message: fmt.Sprintf("Op %s may only be invoked with named arguments: %s", op, reason),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"op": op},
	}
}

// DuplicateOp reports a second op with an already registered name.
func DuplicateOp(pipeline, op string) *AppError {
	return &AppError{
		Code: ErrCodeDuplicateOp, Message: fmt.Sprintf("Op %s is already registered in pipeline %s", op, pipeline),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"pipeline": pipeline, "op": op},
	}
}

// PipelineFrozen reports a modification attempted after the definition finished.
func PipelineFrozen(pipeline string) *AppError {
	return &AppError{
		Code: ErrCodePipelineFrozen, Message: fmt.Sprintf("Pipeline %s can no longer be modified", pipeline),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"pipeline": pipeline},
	}
}

// --- Common Error Constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("A %s with these details already exists.", resource),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"resource": resource},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// ConnectionFailed creates a new AppError for a failed connection to a service.
func ConnectionFailed(service string) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s. Please verify the service is running.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// ExternalServiceError creates a new AppError for an error from an external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}
