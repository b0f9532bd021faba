package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/drolta/internal/ast"
)

// Lexer tokenizes drolta source text.
type Lexer struct {
	input  []rune
	pos    int
	line   int
	col    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: []rune(input),
		line:  1,
		col:   1,
	}
}

// Tokenize lexes input completely. The returned slice always ends with a
// TokenEOF token.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	if err := l.Lex(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

// Lex tokenizes the entire input.
func (l *Lexer) Lex() error {
	for {
		l.skipWhitespaceAndComments()
		if l.pos >= len(l.input) {
			break
		}

		start := ast.Pos{Line: l.line, Col: l.col}
		ch := l.peek()

		switch {
		case ch == '"' || ch == '\'':
			str, err := l.readString(ch, start)
			if err != nil {
				return err
			}
			l.emit(TokenString, norm.NFC.String(str), string(ch)+str+string(ch), start)
		case ch == '?':
			l.advance()
			name := l.readIdent()
			if name == "" {
				return ast.Errorf(ast.ErrCodeSyntax, start, "expected variable name after '?'")
			}
			name = norm.NFC.String(name)
			l.emit(TokenVariable, name, "?"+name, start)
		case isIdentStart(ch):
			name := norm.NFC.String(l.readIdent())
			upper := strings.ToUpper(name)
			if keywords[upper] {
				l.emit(TokenKeyword, upper, name, start)
			} else {
				l.emit(TokenIdent, name, name, start)
			}
		case unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(l.peekAt(1))):
			num := l.readNumber()
			l.emit(TokenNumber, num, num, start)
		case ch == '(':
			l.advance()
			l.emit(TokenLeftParen, "(", "(", start)
		case ch == ')':
			l.advance()
			l.emit(TokenRightParen, ")", ")", start)
		case ch == ',':
			l.advance()
			l.emit(TokenComma, ",", ",", start)
		case ch == ';':
			l.advance()
			l.emit(TokenSemicolon, ";", ";", start)
		case ch == '=':
			l.advance()
			if l.peek() == '=' {
				l.advance()
			}
			l.emit(TokenEquals, "=", "=", start)
		case ch == '!' && l.peekAt(1) == '=':
			l.advance()
			l.advance()
			l.emit(TokenOperator, "!=", "!=", start)
		case ch == '<':
			l.advance()
			switch l.peek() {
			case '=':
				l.advance()
				l.emit(TokenOperator, "<=", "<=", start)
			case '>':
				l.advance()
				l.emit(TokenOperator, "!=", "<>", start)
			default:
				l.emit(TokenOperator, "<", "<", start)
			}
		case ch == '>':
			l.advance()
			if l.peek() == '=' {
				l.advance()
				l.emit(TokenOperator, ">=", ">=", start)
			} else {
				l.emit(TokenOperator, ">", ">", start)
			}
		default:
			return ast.Errorf(ast.ErrCodeSyntax, start, "unexpected character %q", ch)
		}
	}

	l.emit(TokenEOF, "", "", ast.Pos{Line: l.line, Col: l.col})
	return nil
}

func (l *Lexer) emit(typ TokenType, value, text string, pos ast.Pos) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: value, Text: text, Pos: pos})
}

// peek returns the current character without advancing.
func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

// advance moves to the next character.
func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// skipWhitespaceAndComments skips whitespace and "--" line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.peek()
		if unicode.IsSpace(ch) {
			l.advance()
		} else if ch == '-' && l.peekAt(1) == '-' {
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		} else {
			break
		}
	}
}

// readString reads a quoted string literal delimited by quote.
func (l *Lexer) readString(quote rune, start ast.Pos) (string, error) {
	var result strings.Builder
	l.advance() // skip opening quote

	for l.pos < len(l.input) {
		ch := l.peek()
		switch ch {
		case quote:
			l.advance()
			return result.String(), nil
		case '\\':
			l.advance()
			if l.pos >= len(l.input) {
				return "", ast.Errorf(ast.ErrCodeSyntax, start, "unterminated string")
			}
			escaped := l.peek()
			switch escaped {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case 'r':
				result.WriteRune('\r')
			default:
				result.WriteRune(escaped)
			}
			l.advance()
		default:
			result.WriteRune(ch)
			l.advance()
		}
	}

	return "", ast.Errorf(ast.ErrCodeSyntax, start, "unterminated string")
}

func (l *Lexer) readIdent() string {
	begin := l.pos
	if l.pos < len(l.input) && isIdentStart(l.peek()) {
		l.advance()
		for l.pos < len(l.input) && isIdentPart(l.peek()) {
			l.advance()
		}
	}
	return string(l.input[begin:l.pos])
}

// readNumber reads an optionally signed decimal number with optional
// fraction and exponent. Validation of the text happens in the parser.
func (l *Lexer) readNumber() string {
	begin := l.pos
	if l.peek() == '-' {
		l.advance()
	}
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	if e := l.peek(); e == 'e' || e == 'E' {
		next := l.peekAt(1)
		if unicode.IsDigit(next) || ((next == '+' || next == '-') && unicode.IsDigit(l.peekAt(2))) {
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			for unicode.IsDigit(l.peek()) {
				l.advance()
			}
		}
	}
	return string(l.input[begin:l.pos])
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
