// Package logging provides opt-in file-based logging with rotation for hlsbench.
// When the --debug flag is set, JSON logs are written to ~/.hlsbench/logs/
// in addition to stderr.
//
// Without --debug, a text handler on stderr reports warnings and errors only,
// so a batch run stays readable next to the progress renderer.
package logging
