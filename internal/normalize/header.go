// Package normalize rewrites a kernel's header and implementation into the
// canonical corpus layout.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// SlashPolicy decides what happens at a divider line of 8+ slashes.
type SlashPolicy string

const (
	// SlashTruncate drops the first divider line and everything after it.
	SlashTruncate SlashPolicy = "truncate"
	// SlashStripLines drops only the divider lines.
	SlashStripLines SlashPolicy = "strip-lines"
)

// ParseSlashPolicy validates a configured policy name.
func ParseSlashPolicy(s string) (SlashPolicy, error) {
	switch p := SlashPolicy(s); p {
	case SlashTruncate, SlashStripLines:
		return p, nil
	case "":
		return SlashTruncate, nil
	default:
		return "", fmt.Errorf("unknown slash policy %q (want %s or %s)", s, SlashTruncate, SlashStripLines)
	}
}

// Options configures header cleanup.
type Options struct {
	SlashPolicy SlashPolicy
}

const (
	// StdintInclude is prepended to every cleaned header.
	StdintInclude = "#include <stdint.h>"
	// HarnessMarker introduces the test-harness section of a header.
	HarnessMarker = "// Test harness interface code."
	// InputSizeLine sizes the harness struct and is meaningless without it.
	InputSizeLine = "int INPUT_SIZE = sizeof(struct bench_args_t);"

	dividerPrefix = "////////"
)

var (
	harnessStructPattern = regexp.MustCompile(`struct\s+bench_args_t\s*\{`)
	supportIncludeLine   = regexp.MustCompile(`^\s*#\s*include\s+"support\.h"`)
	stdintIncludeLine    = regexp.MustCompile(`^\s*#\s*include\s+<stdint\.h>\s*$`)
)

// CleanHeader strips test-harness declarations from a kernel header and
// prepends the stdint include. CleanHeader(CleanHeader(x)) == CleanHeader(x).
func CleanHeader(text string, opts Options) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	lines = applySlashPolicy(lines, opts.SlashPolicy)
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == HarnessMarker,
			trimmed == InputSizeLine,
			supportIncludeLine.MatchString(line),
			stdintIncludeLine.MatchString(line):
			continue
		}
		kept = append(kept, line)
	}

	body := removeHarnessStructs(strings.Join(kept, "\n"))
	body = strings.TrimRight(body, " \t\n")
	body = strings.TrimLeft(body, "\n")
	if body == "" {
		return StdintInclude + "\n"
	}
	return StdintInclude + "\n" + body + "\n"
}

func applySlashPolicy(lines []string, policy SlashPolicy) []string {
	if policy == SlashStripLines {
		kept := make([]string, 0, len(lines))
		for _, line := range lines {
			if !strings.HasPrefix(line, dividerPrefix) {
				kept = append(kept, line)
			}
		}
		return kept
	}
	for i, line := range lines {
		if strings.HasPrefix(line, dividerPrefix) {
			return lines[:i]
		}
	}
	return lines
}

// removeHarnessStructs deletes every `struct bench_args_t { ... };`
// definition, from the start of its line through the closing semicolon.
// Each removal restarts the search at the top since joining the remaining
// text can form a new definition. An unbalanced definition is left in place.
func removeHarnessStructs(text string) string {
	for {
		loc := harnessStructPattern.FindStringIndex(text)
		if loc == nil {
			return text
		}
		start, open := loc[0], loc[1]-1

		end, ok := matchBrace(text, open)
		if !ok {
			return text
		}
		end = skipTerminator(text, end+1)

		lineStart := strings.LastIndexByte(text[:start], '\n') + 1
		if strings.TrimSpace(text[lineStart:start]) != "" {
			lineStart = start
		}
		text = text[:lineStart] + text[end:]
	}
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(text string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// skipTerminator advances past `;` and the rest of its line, if the next
// non-space character is a semicolon.
func skipTerminator(text string, i int) int {
	j := i
	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	if j < len(text) && text[j] == ';' {
		j++
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}
	}
	if j < len(text) && text[j] == '\n' {
		j++
	}
	return j
}

// RewriteInclude repoints `#include "<kern>.h"` to `#include "<canonical>.h"`.
func RewriteInclude(source, kern, canonical string) string {
	pattern := regexp.MustCompile(`(?m)^(\s*#\s*include\s+)"` + regexp.QuoteMeta(kern+".h") + `"`)
	return pattern.ReplaceAllString(source, `${1}"`+canonical+`.h"`)
}
