// Package describe matches kernels to their natural-language descriptions.
//
// The description document is Markdown with one level-two heading per
// canonical kernel name:
//
//	## aes_aes
//
//	AES-256 encryption of a single block...
//
// A section's body runs to the next level-two heading or the end of the
// document. Headings inside fenced code blocks are ignored.
package describe

import (
	"fmt"
	"strings"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

const headingPrefix = "## "

// Corpus maps section headings to their trimmed bodies.
type Corpus struct {
	sections map[string]string
	order    []string
}

// Parse splits doc into level-two sections. A heading that appears twice
// is an error.
func Parse(doc string) (*Corpus, error) {
	c := &Corpus{sections: make(map[string]string)}

	var (
		current string
		open    bool
		body    []string
		fence   string
	)
	flush := func() {
		if open {
			c.sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
	}

	for _, line := range strings.Split(doc, "\n") {
		bare := strings.TrimRight(line, "\r")

		if marker := fenceMarker(bare); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(strings.TrimSpace(bare), fence):
				fence = ""
			}
		} else if fence == "" {
			if name, ok := heading(bare); ok {
				flush()
				if _, dup := c.sections[name]; dup {
					return nil, hberrors.Newf(hberrors.ErrCodeDuplicateDescription,
						"description heading %q appears more than once", name).
						WithDetail("kernel", name)
				}
				current, open, body = name, true, nil
				c.order = append(c.order, name)
				continue
			}
		}

		if open {
			body = append(body, line)
		}
	}
	flush()

	return c, nil
}

// heading reports whether line is a level-two heading and returns its text.
func heading(line string) (string, bool) {
	if !strings.HasPrefix(line, headingPrefix) {
		return "", false
	}
	name := strings.TrimSpace(strings.TrimPrefix(line, headingPrefix))
	if name == "" {
		return "", false
	}
	return name, true
}

func fenceMarker(line string) string {
	trimmed := strings.TrimSpace(line)
	for _, m := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, m) {
			return m
		}
	}
	return ""
}

// Lookup returns the body of the section headed by name.
func (c *Corpus) Lookup(name string) (string, error) {
	body, ok := c.sections[name]
	if !ok {
		return "", hberrors.New(hberrors.ErrCodeDescriptionNotFound,
			fmt.Sprintf("no description found for kernel %s", name), nil).
			WithDetail("kernel", name).
			WithSuggestion(fmt.Sprintf("Add a \"## %s\" section to the description document", name))
	}
	return body, nil
}

// Names returns the section headings in document order.
func (c *Corpus) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of sections.
func (c *Corpus) Len() int {
	return len(c.sections)
}
