// Package resolve identifies a kernel's synthesis entry point from its
// cleaned header.
//
// MachSuite headers declare helper prototypes before the computational
// entry point, so the last prototype in the header is taken as the top
// function. This is a convention of the corpus, not something the header
// proves.
package resolve

import (
	"context"
	"fmt"
	"sort"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// Prototype is a function declaration found in a header.
type Prototype struct {
	Name string
	// Line is the 1-based line of the declaration's name.
	Line int
}

// Strategy finds function prototypes in header text, in source order.
type Strategy interface {
	Name() string
	Prototypes(ctx context.Context, header []byte) ([]Prototype, error)
}

// Resolve returns the name of the last prototype strategy finds.
func Resolve(ctx context.Context, strategy Strategy, header []byte) (string, error) {
	protos, err := strategy.Prototypes(ctx, header)
	if err != nil {
		return "", err
	}
	if len(protos) == 0 {
		return "", hberrors.Newf(hberrors.ErrCodeNoTopFunction,
			"no function prototype found in header (%s strategy)", strategy.Name()).
			WithDetail("strategy", strategy.Name()).
			WithSuggestion("Declare the kernel entry point as a prototype in the header")
	}
	return protos[len(protos)-1].Name, nil
}

var registry = map[string]func() Strategy{
	"pattern": func() Strategy { return NewPatternStrategy() },
	"syntax":  func() Strategy { return NewSyntaxStrategy() },
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, hberrors.Newf(hberrors.ErrCodeConfigInvalid,
			"unknown resolver strategy %q (available: %v)", name, Names())
	}
	return factory(), nil
}

// Names lists the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lineAt(text []byte, offset int) int {
	line := 1
	for _, b := range text[:offset] {
		if b == '\n' {
			line++
		}
	}
	return line
}

func (p Prototype) String() string {
	return fmt.Sprintf("%s (line %d)", p.Name, p.Line)
}
