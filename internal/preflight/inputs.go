package preflight

import (
	"fmt"

	"github.com/Aman-CERP/hlsbench/internal/archive"
	"github.com/Aman-CERP/hlsbench/internal/describe"
)

// CheckArchive checks that the input archive exists and sniffs as a
// supported format.
func (c *Checker) CheckArchive(path string) CheckResult {
	result := CheckResult{
		Name:     "input_archive",
		Required: true,
	}

	format, err := archive.Detect(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%s)", path, format)
	return result
}

// CheckDescriptions checks that the description document exists and has
// no duplicate headings.
func (c *Checker) CheckDescriptions(path string) CheckResult {
	result := CheckResult{
		Name:     "descriptions",
		Required: true,
	}

	corpus, err := describe.NewCache(1).Load(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d sections)", path, corpus.Len())
	return result
}
