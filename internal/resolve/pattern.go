package resolve

import (
	"context"
	"regexp"
)

// prototypePattern matches `return_type name(params);` starting at a line.
// The return type stays on one line; parameters may span lines.
var prototypePattern = regexp.MustCompile(
	`(?m)^[ \t]*([A-Za-z_][\w \t*]*?[ \t*])([A-Za-z_]\w*)[ \t]*\(([^;{}]*)\)[ \t]*;`)

// Leading words that make a match a statement rather than a declaration.
var notATypeWord = map[string]bool{
	"typedef": true,
	"return":  true,
	"sizeof":  true,
	"if":      true,
	"else":    true,
	"while":   true,
	"for":     true,
	"switch":  true,
	"case":    true,
	"do":      true,
	"goto":    true,
}

var leadingWord = regexp.MustCompile(`^[ \t]*([A-Za-z_]\w*)`)

// PatternStrategy finds prototypes with a regular expression over the
// header with comments blanked out.
type PatternStrategy struct{}

// NewPatternStrategy creates a PatternStrategy.
func NewPatternStrategy() *PatternStrategy {
	return &PatternStrategy{}
}

// Name implements Strategy.
func (s *PatternStrategy) Name() string { return "pattern" }

// Prototypes implements Strategy.
func (s *PatternStrategy) Prototypes(ctx context.Context, header []byte) ([]Prototype, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := BlankComments(header)
	var protos []Prototype
	for _, m := range prototypePattern.FindAllSubmatchIndex(text, -1) {
		returnType := text[m[2]:m[3]]
		if w := leadingWord.FindSubmatch(returnType); w != nil && notATypeWord[string(w[1])] {
			continue
		}
		protos = append(protos, Prototype{
			Name: string(text[m[4]:m[5]]),
			Line: lineAt(text, m[4]),
		})
	}
	return protos, nil
}

// BlankComments replaces C comments with spaces, keeping newlines, so
// offsets and line numbers are unchanged. String and character literals
// are left alone.
func BlankComments(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	const (
		code = iota
		lineComment
		blockComment
		stringLit
		charLit
	)
	state := code
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case code:
			switch {
			case c == '/' && i+1 < len(out) && out[i+1] == '/':
				state = lineComment
				out[i], out[i+1] = ' ', ' '
				i++
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				state = blockComment
				out[i], out[i+1] = ' ', ' '
				i++
			case c == '"':
				state = stringLit
			case c == '\'':
				state = charLit
			}
		case lineComment:
			if c == '\n' {
				state = code
			} else {
				out[i] = ' '
			}
		case blockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				state = code
			} else if c != '\n' {
				out[i] = ' '
			}
		case stringLit, charLit:
			quote := byte('"')
			if state == charLit {
				quote = '\''
			}
			switch c {
			case '\\':
				i++
			case quote, '\n':
				state = code
			}
		}
	}
	return out
}
