// Package errors provides structured error handling for hlsbench.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO and input-format errors (files, archives, locks)
//   - 3XX: Environment errors (required external tools)
//   - 4XX: Per-kernel structural and validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, archive and disk errors.
	CategoryIO Category = "IO"
	// CategoryEnvironment indicates a missing tool in the execution environment.
	CategoryEnvironment Category = "ENVIRONMENT"
	// CategoryValidation indicates malformed kernel inputs.
	CategoryValidation Category = "VALIDATION"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound       = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission     = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull           = "ERR_203_DISK_FULL"
	ErrCodeArchiveCorrupt     = "ERR_205_ARCHIVE_CORRUPT"
	ErrCodeUnsupportedArchive = "ERR_206_UNSUPPORTED_ARCHIVE"
	ErrCodeOutputLocked       = "ERR_207_OUTPUT_LOCKED"

	// Environment errors (300-399)
	ErrCodeToolNotFound = "ERR_301_TOOL_NOT_FOUND"

	// Validation errors (400-499)
	ErrCodeInvalidInput         = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPath          = "ERR_406_INVALID_PATH"
	ErrCodeMissingBuildVar      = "ERR_407_MISSING_BUILD_VAR"
	ErrCodeNoTopFunction        = "ERR_408_NO_TOP_FUNCTION"
	ErrCodeDuplicateDescription = "ERR_409_DUPLICATE_DESCRIPTION"
	ErrCodeDescriptionNotFound  = "ERR_410_DESCRIPTION_NOT_FOUND"
	ErrCodeDuplicateKernel      = "ERR_411_DUPLICATE_KERNEL"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeNotImplemented = "ERR_507_NOT_IMPLEMENTED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryEnvironment
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Environment and input-format errors abort before any kernel is touched.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDiskFull,
		ErrCodeToolNotFound,
		ErrCodeUnsupportedArchive,
		ErrCodeArchiveCorrupt,
		ErrCodeOutputLocked,
		ErrCodeConfigInvalid:
		return SeverityFatal
	}
	return SeverityError
}
