// Package errors provides structured error handling for indexlift.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Validation errors (bad names, missing inputs)
//   - 2XX: Resolution errors (alias lookup outcomes)
//   - 3XX: Connectivity errors (cluster, record source)
//   - 4XX: Bulk-write errors (partial batches, stalled cursors)
//   - 5XX: Conflict errors (concurrent rebuilds)
//   - 9XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryResolution indicates alias resolution errors.
	CategoryResolution Category = "RESOLUTION"
	// CategoryConnectivity indicates cluster or record-source transport errors.
	CategoryConnectivity Category = "CONNECTIVITY"
	// CategoryBulk indicates bulk-write errors.
	CategoryBulk Category = "BULK"
	// CategoryConflict indicates concurrent-operation conflicts.
	CategoryConflict Category = "CONFLICT"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Validation errors (100-199)
	ErrCodeBlankName      = "ERR_101_BLANK_NAME"
	ErrCodeNameWhitespace = "ERR_102_NAME_WHITESPACE"
	ErrCodeNilSource      = "ERR_103_NIL_SOURCE"
	ErrCodeConfigInvalid  = "ERR_104_CONFIG_INVALID"

	// Resolution errors (200-299)
	ErrCodeAliasNotFound  = "ERR_201_ALIAS_NOT_FOUND"
	ErrCodeAliasAmbiguous = "ERR_202_ALIAS_AMBIGUOUS"
	ErrCodeIndexExists    = "ERR_203_INDEX_EXISTS"

	// Connectivity errors (300-399)
	ErrCodeClusterUnavailable = "ERR_301_CLUSTER_UNAVAILABLE"
	ErrCodeSourceRead         = "ERR_302_SOURCE_READ"
	ErrCodeClusterTimeout     = "ERR_303_CLUSTER_TIMEOUT"
	ErrCodeOperationCancelled = "ERR_304_OPERATION_CANCELLED"

	// Bulk-write errors (400-499)
	ErrCodePartialBatch  = "ERR_401_PARTIAL_BATCH"
	ErrCodeCursorStalled = "ERR_402_CURSOR_STALLED"

	// Conflict errors (500-599)
	ErrCodeRebuildInProgress = "ERR_501_REBUILD_IN_PROGRESS"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract leading digit of the numeric portion (e.g., "2" from "ERR_201_ALIAS_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryValidation
	case '2':
		return CategoryResolution
	case '3':
		return CategoryConnectivity
	case '4':
		return CategoryBulk
	case '5':
		return CategoryConflict
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Retryable connectivity errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeClusterUnavailable, ErrCodeClusterTimeout, ErrCodeSourceRead:
		return true
	default:
		return false
	}
}
