package assemble

import (
	"fmt"
	"strings"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// KernelError is a failure confined to one kernel.
type KernelError struct {
	// Path is the kernel path inside the archive, e.g. "sort/merge".
	Path string
	Err  error
}

func (e *KernelError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *KernelError) Unwrap() error {
	return e.Err
}

// Code returns the structured error code, if any.
func (e *KernelError) Code() string {
	return hberrors.GetCode(e.Err)
}

// BatchError aggregates every kernel failure of a build.
type BatchError struct {
	Failures []*KernelError
	// Total is the number of kernels attempted.
	Total int
}

func (e *BatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d kernels failed", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		sb.WriteString("\n  ")
		sb.WriteString(f.Error())
	}
	return sb.String()
}

// Unwrap exposes each kernel failure to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
