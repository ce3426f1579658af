// Package configs provides the embedded configuration templates written by
// `hlsbench config init`.
//
// Configuration hierarchy (see internal/config Load):
//  1. Built-in defaults (config.NewConfig)
//  2. User config (~/.config/hlsbench/config.yaml)
//  3. Project config (.hlsbench.yaml)
//  4. Environment variables (HLSBENCH_*)
//
// Each template parses to the built-in defaults; the commented lines show
// the settings worth changing.
package configs

import _ "embed"

// UserConfigTemplate holds machine-level settings: worker count, required
// tools, ledger location and log level.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate holds the inputs, outputs and kernel list of one
// corpus build.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
