package dsl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Arg kinds, named after the lexer rules that produce them.
const (
	KindIdent  = "Ident"
	KindNumber = "Number"
	KindString = "String"
	KindColor  = "Color"
	KindPunct  = "Punct"
)

// catalogLexer tokenizes catalog files. Color precedes Comment so `#FFA002`
// is not swallowed as a hash comment; numbers may carry a unit suffix.
var catalogLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: KindColor, Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
	{Name: "Comment", Pattern: `(?://|#)[^\n]*|/\*(?:[^*]|\*+[^*/])*\*+/`},
	{Name: "Space", Pattern: `[ \t\r]+`},
	{Name: "EOL", Pattern: `\n+`},
	{Name: KindString, Pattern: `"(?:\\.|[^"])*"`},
	{Name: KindNumber, Pattern: `-?\d+(?:\.\d+)?(?:px|pt|mm|%|x)?`},
	{Name: KindIdent, Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: KindPunct, Pattern: `[][(){},.=+\-*/%<>!?;:$]`},
})

var (
	symbols   = catalogLexer.Symbols()
	eolToken  = symbols["EOL"]
	kindNames = func() map[lexer.TokenType]string {
		out := make(map[lexer.TokenType]string, len(symbols))
		for name, tt := range symbols {
			out[tt] = name
		}
		return out
	}()
)

// endsArgs reports whether tok terminates a directive's argument list.
func endsArgs(tok *lexer.Token) bool {
	if tok.EOF() || tok.Type == eolToken {
		return true
	}
	switch tok.Value {
	case "{", "}", ";":
		return tok.Type == symbols[KindPunct]
	}
	return false
}
