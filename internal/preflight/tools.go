package preflight

import (
	"fmt"
	"strings"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// CheckTools reports every required and advisory tool. Missing required
// tools fail; missing advisory tools warn.
func (c *Checker) CheckTools() []CheckResult {
	results := make([]CheckResult, 0, len(c.required)+len(c.advisory))
	seen := make(map[string]bool)
	for _, tool := range c.required {
		seen[tool] = true
		results = append(results, c.checkTool(tool, true))
	}
	for _, tool := range c.advisory {
		if !seen[tool] {
			results = append(results, c.checkTool(tool, false))
		}
	}
	return results
}

func (c *Checker) checkTool(tool string, required bool) CheckResult {
	result := CheckResult{
		Name:     "tool:" + tool,
		Required: required,
	}

	path, err := c.lookPath(tool)
	if err != nil {
		result.Message = tool + " not found on PATH"
		if required {
			result.Status = StatusFail
		} else {
			result.Status = StatusWarn
			result.Details = "only needed by downstream synthesis"
		}
		return result
	}

	result.Status = StatusPass
	result.Message = path
	return result
}

// RequireTools returns ERR_301_TOOL_NOT_FOUND naming every required tool
// missing from PATH.
func (c *Checker) RequireTools() error {
	var missing []string
	for _, tool := range c.required {
		if _, err := c.lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return hberrors.New(hberrors.ErrCodeToolNotFound,
		fmt.Sprintf("required tool(s) not found on PATH: %s", strings.Join(missing, ", ")), nil).
		WithDetail("tools", strings.Join(missing, ",")).
		WithSuggestion("Install the tools or remove them from tools.required")
}
