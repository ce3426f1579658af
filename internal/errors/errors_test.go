package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with BenchError
	benchErr := New(ErrCodeFileNotFound, "Makefile not found", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, benchErr)
	assert.Equal(t, originalErr, errors.Unwrap(benchErr))
	assert.True(t, errors.Is(benchErr, originalErr))
}

func TestBenchError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "missing build variable",
			code:     ErrCodeMissingBuildVar,
			message:  "ALG not found",
			expected: "[ERR_407_MISSING_BUILD_VAR] ALG not found",
		},
		{
			name:     "tool not found",
			code:     ErrCodeToolNotFound,
			message:  "vitis_hls not found in PATH",
			expected: "[ERR_301_TOOL_NOT_FOUND] vitis_hls not found in PATH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestBenchError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeDescriptionNotFound, "aes_aes", nil)
	err2 := New(ErrCodeDescriptionNotFound, "sort_merge", nil)

	// Then: they match by code
	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, New(ErrCodeNoTopFunction, "", nil)))
}

func TestHasCode_FindsCodeThroughWrapping(t *testing.T) {
	// Given: a BenchError wrapped by fmt.Errorf
	inner := New(ErrCodeMissingBuildVar, "ALG missing", nil)
	wrapped := fmt.Errorf("kernel sort/merge: %w", inner)

	// Then: the code is still visible
	assert.True(t, HasCode(wrapped, ErrCodeMissingBuildVar))
	assert.False(t, HasCode(wrapped, ErrCodeFileNotFound))
	assert.Equal(t, ErrCodeMissingBuildVar, GetCode(wrapped))
	assert.Equal(t, CategoryValidation, GetCategory(wrapped))
}

func TestBenchError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeFileNotFound, "file not found", nil).
		WithDetail("kernel", "aes/aes").
		WithDetail("artifact", "aes.h")

	assert.Equal(t, "aes/aes", err.Details["kernel"])
	assert.Equal(t, "aes.h", err.Details["artifact"])
}

func TestBenchError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeFileNotFound, CategoryIO},
		{ErrCodeUnsupportedArchive, CategoryIO},
		{ErrCodeToolNotFound, CategoryEnvironment},
		{ErrCodeMissingBuildVar, CategoryValidation},
		{ErrCodeDuplicateKernel, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeNotImplemented, CategoryInternal},
		{"BOGUS", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestIsFatal_EnvironmentAndFormatErrorsAbort(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"tool missing", New(ErrCodeToolNotFound, "vitis_hls", nil), true},
		{"unsupported archive", New(ErrCodeUnsupportedArchive, "rar", nil), true},
		{"output locked", New(ErrCodeOutputLocked, "busy", nil), true},
		{"per-kernel error", New(ErrCodeNoTopFunction, "none", nil), false},
		{"wrapped fatal", fmt.Errorf("stage: %w", New(ErrCodeArchiveCorrupt, "bad", nil)), true},
		{"standard error", errors.New("standard error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))

	wrapped := Wrap(ErrCodeInternal, errors.New("boom"))
	require.NotNil(t, wrapped)
	assert.Equal(t, "boom", wrapped.Message)
}

func TestConstructors_SetExpectedCategories(t *testing.T) {
	assert.Equal(t, CategoryConfig, ConfigError("bad yaml", nil).Category)
	assert.Equal(t, CategoryIO, IOError("cannot read", nil).Category)
	assert.Equal(t, CategoryEnvironment, EnvironmentError("no tool", nil).Category)
	assert.Equal(t, CategoryValidation, ValidationError("bad input", nil).Category)
	assert.Equal(t, CategoryInternal, InternalError("oops", nil).Category)
	assert.Equal(t, "[ERR_408_NO_TOP_FUNCTION] no prototypes in aes.h",
		Newf(ErrCodeNoTopFunction, "no prototypes in %s", "aes.h").Error())
}
