package resolve

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// SyntaxStrategy finds prototypes with the tree-sitter C grammar: file-scope
// declarations (including those inside preprocessor conditionals) whose
// declarator is a function declarator named by a plain identifier.
type SyntaxStrategy struct {
	lang *sitter.Language
}

// NewSyntaxStrategy creates a SyntaxStrategy.
func NewSyntaxStrategy() *SyntaxStrategy {
	return &SyntaxStrategy{lang: c.GetLanguage()}
}

// Name implements Strategy.
func (s *SyntaxStrategy) Name() string { return "syntax" }

// Prototypes implements Strategy. A parser is created per call, so the
// strategy is safe for concurrent use.
func (s *SyntaxStrategy) Prototypes(ctx context.Context, header []byte) ([]Prototype, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(s.lang)

	tree, err := parser.ParseCtx(ctx, nil, header)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("failed to parse header: nil tree")
	}
	defer tree.Close()

	var protos []Prototype
	collectDeclarations(tree.RootNode(), header, &protos)
	return protos, nil
}

// collectDeclarations walks file-scope nodes in source order.
func collectDeclarations(node *sitter.Node, src []byte, out *[]Prototype) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch t := child.Type(); {
		case t == "declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if name := functionName(child.NamedChild(j), src); name != nil {
					*out = append(*out, Prototype{
						Name: name.Content(src),
						Line: int(name.StartPoint().Row) + 1,
					})
				}
			}
		case strings.HasPrefix(t, "preproc_if"), t == "preproc_else", t == "preproc_elif":
			collectDeclarations(child, src, out)
		}
	}
}

// functionName unwraps pointer and attribute declarators down to a function
// declarator and returns its identifier. Function pointers and anything
// else return nil.
func functionName(decl *sitter.Node, src []byte) *sitter.Node {
	for decl != nil {
		switch decl.Type() {
		case "pointer_declarator", "attributed_declarator":
			decl = decl.ChildByFieldName("declarator")
		case "function_declarator":
			name := decl.ChildByFieldName("declarator")
			if name != nil && name.Type() == "identifier" {
				return name
			}
			return nil
		default:
			return nil
		}
	}
	return nil
}
