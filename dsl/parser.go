// Package dsl parses catalog template files into an AST. Compilation into
// layout templates happens in package catalog.
package dsl

import (
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var documentParser = participle.MustBuild[Document](
	participle.Lexer(catalogLexer),
	participle.Elide("Space", "Comment"),
	participle.UseLookahead(2),
)

// Parse reads a catalog document.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString parses catalog source held in memory.
func ParseString(src string) (*Document, error) {
	return documentParser.ParseString("", src)
}

// Arg is one positional token of a directive. Value holds unquoted string
// contents; Kind is one of the Kind* constants.
type Arg struct {
	Kind  string         `json:"kind"`
	Value string         `json:"value"`
	Pos   lexer.Position `json:"-"`
}

// Parse consumes any single token up to the end of the directive.
func (a *Arg) Parse(lex *lexer.PeekingLexer) error {
	if endsArgs(lex.Peek()) {
		return participle.NextMatch
	}
	tok := lex.Next()
	val := tok.Value
	kind := kindNames[tok.Type]
	if kind == KindString {
		unq, err := strconv.Unquote(val)
		if err != nil {
			return participle.Errorf(tok.Pos, "invalid string %s: %v", val, err)
		}
		val = unq
	}
	*a = Arg{Kind: kind, Value: val, Pos: tok.Pos}
	return nil
}
