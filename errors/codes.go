package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline registration and lookup errors. None of these are retryable:
// retrying a request against the same graph yields the same failure.
const (
	// ErrCodeUnknownTask indicates a task name absent from the pipeline's task map.
	ErrCodeUnknownTask ErrorCode = "UNKNOWN_TASK"
	// ErrCodeUnboundTask indicates a task present in the graph but with no op behind it.
	ErrCodeUnboundTask ErrorCode = "UNBOUND_TASK"
	// ErrCodeUnboundOp indicates an op invoked before it joined a pipeline.
	ErrCodeUnboundOp ErrorCode = "UNBOUND_OP"
	// ErrCodeDanglingDependency indicates a dependency naming a task the pipeline does not have.
	ErrCodeDanglingDependency ErrorCode = "DANGLING_DEPENDENCY"
	// ErrCodeCyclicDependency indicates the dependency graph is not acyclic.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	// ErrCodeInvalidInvocation indicates an op was called with positional arguments.
	ErrCodeInvalidInvocation ErrorCode = "INVALID_INVOCATION"
	// ErrCodeDuplicateOp indicates two ops share a name within one pipeline.
	ErrCodeDuplicateOp ErrorCode = "DUPLICATE_OP"
	// ErrCodePipelineFrozen indicates a change to a pipeline after its definition finished.
	ErrCodePipelineFrozen ErrorCode = "PIPELINE_FROZEN"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Resource errors
const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Validation errors
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
