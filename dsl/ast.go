package dsl

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"
)

// Document is a parsed catalog file:
//
//	catalog <Name> <Version> { meta {...} resources {...} template S D F {...} ... }
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"EOL* 'catalog' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' EOL* ( @@ EOL* )* '}' EOL*"`
}

// Section is one top-level block. Exactly one field is set.
type Section struct {
	Meta      *Block           `parser:"  'meta' @@"`
	Resources *Block           `parser:"| 'resources' @@"`
	Template  *TemplateSection `parser:"| @@"`
}

// TemplateSection is `template <store> <design> <format> { ... }`.
// Key parts containing spaces are written as strings.
type TemplateSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Store  Name           `parser:"'template' @(Ident | String)"`
	Design Name           `parser:"@(Ident | String)"`
	Format Name           `parser:"@(Ident | String)"`
	Body   *Block         `parser:"@@"`
}

// Block is a braced list of statements separated by newlines or semicolons.
type Block struct {
	Statements []*Statement `parser:"'{' EOL* ( @@ ( ';' | EOL )* )* '}'"`
}

// Statement is a property, a directive or a bare text line.
type Statement struct {
	Property *Property `parser:"  @@"`
	Command  *Command  `parser:"| @@"`
	Text     *Name     `parser:"| @String"`
}

// Property is `key: value`.
type Property struct {
	Key   string `parser:"@Ident ':' EOL*"`
	Value *Value `parser:"@@"`
}

// Command is a directive such as `text brand Body size 30 x 90 y 900 { "${brand}" }`.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Arg         `parser:"@@*"`
	Block *Block         `parser:"( EOL* @@ )?"`
}

// Value is the right-hand side of a property.
type Value struct {
	String *Name    `parser:"  @String"`
	Number *string  `parser:"| @Number"`
	Color  *string  `parser:"| @Color"`
	Ident  *string  `parser:"| @Ident"`
	List   []*Value `parser:"| '[' EOL* ( @@ ( ( ',' | EOL ) EOL* @@ )* )? ( ',' | EOL )* ']'"`
}

// Text returns the scalar form of v; lists yield "".
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Ident != nil:
		return *v.Ident
	}
	return ""
}

// Strings flattens v into a list; a scalar becomes a single element.
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	if v.List == nil {
		if s := v.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.List))
	for _, item := range v.List {
		if s := item.Text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Name is an identifier or string literal; quotes are removed on capture.
type Name string

// Capture implements participle.Capture.
func (n *Name) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("empty capture")
	}
	v := values[0]
	if len(v) >= 2 && v[0] == '"' {
		unq, err := strconv.Unquote(v)
		if err != nil {
			return err
		}
		v = unq
	}
	*n = Name(v)
	return nil
}
