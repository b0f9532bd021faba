package parser

import (
	"fmt"

	"github.com/roach88/drolta/internal/ast"
)

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenKeyword
	TokenVariable
	TokenString
	TokenNumber
	TokenLeftParen
	TokenRightParen
	TokenComma
	TokenSemicolon
	TokenEquals
	TokenOperator // != <> < <= > >=
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "end of input",
	TokenIdent:      "identifier",
	TokenKeyword:    "keyword",
	TokenVariable:   "variable",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenLeftParen:  "'('",
	TokenRightParen: "')'",
	TokenComma:      "','",
	TokenSemicolon:  "';'",
	TokenEquals:     "'='",
	TokenOperator:   "operator",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords are matched case-insensitively and stored upper-case in Value.
var keywords = map[string]bool{
	"DEFINE": true,
	"FIND":   true,
	"WHERE":  true,
	"ORDER":  true,
	"GROUP":  true,
	"BY":     true,
	"LIMIT":  true,
	"OFFSET": true,
	"AS":     true,
	"ASC":    true,
	"DESC":   true,
	"TRUE":   true,
	"FALSE":  true,
	"NULL":   true,
	"ALIAS":  true,
}

// Token is a lexical token.
//
// Value holds the normalized payload: upper-case keyword, variable name
// without '?', unescaped string contents, or the operator spelling.
// Text holds the source spelling.
type Token struct {
	Type  TokenType
	Value string
	Text  string
	Pos   ast.Pos
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return fmt.Sprintf("string %q", t.Value)
	default:
		return fmt.Sprintf("%s %q", t.Type, t.Text)
	}
}

// isKeyword reports whether the token is the given upper-case keyword.
func (t Token) isKeyword(kw string) bool {
	return t.Type == TokenKeyword && t.Value == kw
}
