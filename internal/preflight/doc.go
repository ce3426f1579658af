// Package preflight validates the environment and inputs before a corpus
// build starts.
//
// The package checks:
//   - Required external tools are on PATH (fatal when configured)
//   - Advisory tools used by downstream synthesis (warnings only)
//   - The input archive exists and has a supported format
//   - The description document exists and parses
//   - The output location is writable and has free disk space
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithRequiredTools(cfg.Tools.Required))
//	results := checker.RunAll(ctx, preflight.Targets{...})
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
