package parser

import (
	"github.com/roach88/drolta/internal/ast"
	"github.com/roach88/drolta/internal/ir"
)

// Parser is a recursive-descent parser over a token stream.
type Parser struct {
	tokens  []Token
	current int
}

// Parse parses a script of DEFINE, FIND and ALIAS statements.
//
// Statements are separated by ';'. The terminator of the last statement may
// be omitted at end of input; anything else following a complete statement
// is a missing-terminator syntax error.
func Parse(input string) ([]ast.Statement, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	return p.parseScript()
}

// ParseFind parses input that must contain exactly one FIND statement.
func ParseFind(input string) (*ast.FindStatement, error) {
	stmts, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, ast.Errorf(ast.ErrCodeSyntax, ast.Pos{}, "expected exactly one FIND statement, got %d statements", len(stmts))
	}
	find, ok := stmts[0].(*ast.FindStatement)
	if !ok {
		return nil, ast.Errorf(ast.ErrCodeSyntax, stmts[0].Position(), "expected a FIND statement")
	}
	return find, nil
}

func (p *Parser) parseScript() ([]ast.Statement, error) {
	var stmts []ast.Statement

	for {
		// Empty statements are harmless
		for p.peek().Type == TokenSemicolon {
			p.next()
		}
		if p.peek().Type == TokenEOF {
			return stmts, nil
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		switch tok := p.peek(); tok.Type {
		case TokenSemicolon:
			p.next()
		case TokenEOF:
			return stmts, nil
		default:
			return nil, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "missing statement terminator ';' before %s", tok)
		}
	}
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	tok := p.peek()
	switch {
	case tok.isKeyword("DEFINE"):
		return p.parseDefine()
	case tok.isKeyword("FIND"):
		return p.parseFind()
	case tok.isKeyword("ALIAS"):
		return p.parseAlias()
	default:
		return nil, p.unexpected(tok, "DEFINE, FIND or ALIAS")
	}
}

// parseDefine parses: DEFINE Name(param, ...) WHERE body tail
func (p *Parser) parseDefine() (*ast.DefineStatement, error) {
	start := p.next() // DEFINE

	name, err := p.expect(TokenIdent, "rule name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLeftParen, "'('"); err != nil {
		return nil, err
	}

	var params []ast.ResultVariable
	if p.peek().Type != TokenRightParen {
		params, err = p.parseResultList()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenRightParen, "')'"); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, param := range params {
		if seen[param.ExportName()] {
			return nil, ast.Errorf(ast.ErrCodeSyntax, param.Pos, "duplicate parameter %q in rule %s", param.ExportName(), name.Value)
		}
		seen[param.ExportName()] = true
	}

	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	tail, err := p.parseTail()
	if err != nil {
		return nil, err
	}

	return &ast.DefineStatement{
		Name:   name.Value,
		Params: params,
		Where:  where,
		Tail:   tail,
		Pos:    start.Pos,
	}, nil
}

// parseFind parses: FIND resultvar, ... WHERE body tail
func (p *Parser) parseFind() (*ast.FindStatement, error) {
	start := p.next() // FIND

	results, err := p.parseResultList()
	if err != nil {
		return nil, err
	}
	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	tail, err := p.parseTail()
	if err != nil {
		return nil, err
	}

	return &ast.FindStatement{
		Results: results,
		Where:   where,
		Tail:    tail,
		Pos:     start.Pos,
	}, nil
}

// parseAlias parses: ALIAS target AS name
func (p *Parser) parseAlias() (*ast.AliasStatement, error) {
	start := p.next() // ALIAS

	target, err := p.expect(TokenIdent, "relation name")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent, "alias name")
	if err != nil {
		return nil, err
	}

	return &ast.AliasStatement{Target: target.Value, Name: name.Value, Pos: start.Pos}, nil
}

func (p *Parser) parseResultList() ([]ast.ResultVariable, error) {
	var results []ast.ResultVariable
	for {
		rv, err := p.parseResultVar()
		if err != nil {
			return nil, err
		}
		results = append(results, rv)

		if p.peek().Type != TokenComma {
			return results, nil
		}
		p.next()
	}
}

// parseResultVar parses: (?var | Agg(?var)) [AS "alias"]
func (p *Parser) parseResultVar() (ast.ResultVariable, error) {
	tok := p.peek()
	var rv ast.ResultVariable

	switch tok.Type {
	case TokenVariable:
		p.next()
		rv = ast.ResultVariable{VarName: tok.Value, Pos: tok.Pos}
	case TokenIdent:
		p.next()
		agg, ok := ast.LookupAggregate(tok.Value)
		if !ok {
			return rv, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "unknown aggregate function %q", tok.Text)
		}
		if _, err := p.expect(TokenLeftParen, "'('"); err != nil {
			return rv, err
		}
		v, err := p.expect(TokenVariable, "variable")
		if err != nil {
			return rv, err
		}
		if _, err := p.expect(TokenRightParen, "')'"); err != nil {
			return rv, err
		}
		rv = ast.ResultVariable{VarName: v.Value, AggregateName: agg, Pos: tok.Pos}
	default:
		return rv, p.unexpected(tok, "variable or aggregate")
	}

	if p.peek().isKeyword("AS") {
		p.next()
		alias := p.next()
		if alias.Type != TokenString && alias.Type != TokenIdent {
			return rv, p.unexpected(alias, "alias string")
		}
		if alias.Value == "" {
			return rv, ast.Errorf(ast.ErrCodeSyntax, alias.Pos, "alias must not be empty")
		}
		rv.Alias = alias.Value
	}

	return rv, nil
}

// parseWhere parses: WHERE expr {[','] expr}
func (p *Parser) parseWhere() ([]ast.Expression, error) {
	whereTok := p.peek()
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}

	var body []ast.Expression
	predicates := 0
	for {
		tok := p.peek()
		var (
			expr ast.Expression
			err  error
		)
		switch tok.Type {
		case TokenIdent:
			expr, err = p.parsePredicate()
			predicates++
		case TokenLeftParen:
			expr, err = p.parseComparison()
		default:
			if len(body) == 0 {
				return nil, p.unexpected(tok, "predicate")
			}
			if predicates == 0 {
				return nil, ast.Errorf(ast.ErrCodeSyntax, whereTok.Pos, "WHERE requires at least one predicate")
			}
			return body, nil
		}
		if err != nil {
			return nil, err
		}
		body = append(body, expr)

		if p.peek().Type == TokenComma {
			p.next()
			if next := p.peek(); next.Type != TokenIdent && next.Type != TokenLeftParen {
				return nil, p.unexpected(next, "predicate")
			}
		}
	}
}

// parsePredicate parses: Name(arg=value, ...)
func (p *Parser) parsePredicate() (*ast.PredicateCall, error) {
	name := p.next()
	if _, err := p.expect(TokenLeftParen, "'('"); err != nil {
		return nil, err
	}

	call := &ast.PredicateCall{Name: name.Value, Pos: name.Pos}
	seen := make(map[string]bool)

	for p.peek().Type != TokenRightParen {
		if len(call.Args) > 0 {
			if _, err := p.expect(TokenComma, "',' or ')'"); err != nil {
				return nil, err
			}
		}

		argTok := p.next()
		if argTok.Type != TokenIdent && argTok.Type != TokenKeyword {
			return nil, p.unexpected(argTok, "argument name")
		}
		// Keywords are allowed as column names; use the source spelling.
		argName := argTok.Value
		if argTok.Type == TokenKeyword {
			argName = argTok.Text
		}
		if seen[argName] {
			return nil, ast.Errorf(ast.ErrCodeArgument, argTok.Pos, "duplicate argument %q in call to %s", argName, name.Value)
		}
		seen[argName] = true

		if _, err := p.expect(TokenEquals, "'='"); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, ast.Argument{Name: argName, Value: value, Pos: argTok.Pos})
	}
	p.next() // ')'

	return call, nil
}

// parseComparison parses: (?var op value)
func (p *Parser) parseComparison() (*ast.Comparison, error) {
	open := p.next() // '('

	left, err := p.expect(TokenVariable, "variable")
	if err != nil {
		return nil, err
	}

	opTok := p.next()
	var op ast.CompareOp
	switch opTok.Type {
	case TokenEquals:
		op = ast.OpEq
	case TokenOperator:
		op = ast.CompareOp(opTok.Value)
	default:
		return nil, p.unexpected(opTok, "comparison operator")
	}

	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRightParen, "')'"); err != nil {
		return nil, err
	}

	return &ast.Comparison{
		Left:  ast.Variable{Name: left.Value, Pos: left.Pos},
		Op:    op,
		Right: right,
		Pos:   open.Pos,
	}, nil
}

// parseValue parses: ?var | string | number | TRUE | FALSE | NULL
func (p *Parser) parseValue() (ast.Value, error) {
	tok := p.next()
	switch {
	case tok.Type == TokenVariable:
		return ast.Variable{Name: tok.Value, Pos: tok.Pos}, nil
	case tok.Type == TokenString:
		return ast.Literal{Value: ir.IRString(tok.Value), Pos: tok.Pos}, nil
	case tok.Type == TokenNumber:
		v, err := ir.ParseNumber(tok.Value)
		if err != nil {
			return nil, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "%v", err)
		}
		return ast.Literal{Value: v, Pos: tok.Pos}, nil
	case tok.isKeyword("TRUE"):
		return ast.Literal{Value: ir.IRBool(true), Pos: tok.Pos}, nil
	case tok.isKeyword("FALSE"):
		return ast.Literal{Value: ir.IRBool(false), Pos: tok.Pos}, nil
	case tok.isKeyword("NULL"):
		return ast.Literal{Value: ir.IRNull{}, Pos: tok.Pos}, nil
	default:
		return nil, p.unexpected(tok, "value")
	}
}

// parseTail parses the optional ORDER BY / GROUP BY / LIMIT clauses.
// ORDER BY and GROUP BY may come in either order; LIMIT comes last.
func (p *Parser) parseTail() (ast.Tail, error) {
	var tail ast.Tail

	for {
		tok := p.peek()
		switch {
		case tok.isKeyword("ORDER"):
			if tail.OrderBy != nil {
				return tail, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "duplicate ORDER BY clause")
			}
			order, err := p.parseOrderBy()
			if err != nil {
				return tail, err
			}
			tail.OrderBy = order
		case tok.isKeyword("GROUP"):
			if tail.GroupBy != nil {
				return tail, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "duplicate GROUP BY clause")
			}
			group, err := p.parseGroupBy()
			if err != nil {
				return tail, err
			}
			tail.GroupBy = group
		case tok.isKeyword("LIMIT"):
			limit, err := p.parseLimit()
			if err != nil {
				return tail, err
			}
			tail.Limit = limit
			return tail, nil
		default:
			return tail, nil
		}
	}
}

func (p *Parser) parseOrderBy() (*ast.OrderByExpression, error) {
	start := p.next() // ORDER
	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}

	order := &ast.OrderByExpression{Pos: start.Pos}
	for {
		v, err := p.expect(TokenVariable, "variable")
		if err != nil {
			return nil, err
		}
		term := ast.OrderTerm{Var: ast.Variable{Name: v.Value, Pos: v.Pos}}
		switch {
		case p.peek().isKeyword("ASC"):
			p.next()
		case p.peek().isKeyword("DESC"):
			p.next()
			term.Descending = true
		}
		order.Terms = append(order.Terms, term)

		if p.peek().Type != TokenComma {
			return order, nil
		}
		p.next()
	}
}

func (p *Parser) parseGroupBy() (*ast.GroupByExpression, error) {
	start := p.next() // GROUP
	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}

	group := &ast.GroupByExpression{Pos: start.Pos}
	for {
		v, err := p.expect(TokenVariable, "variable")
		if err != nil {
			return nil, err
		}
		group.Vars = append(group.Vars, ast.Variable{Name: v.Value, Pos: v.Pos})

		if p.peek().Type != TokenComma {
			return group, nil
		}
		p.next()
	}
}

// parseLimit parses: LIMIT n [OFFSET m]
func (p *Parser) parseLimit() (*ast.LimitExpression, error) {
	start := p.next() // LIMIT

	count, err := p.parseCount("LIMIT")
	if err != nil {
		return nil, err
	}
	limit := &ast.LimitExpression{Count: count, Pos: start.Pos}

	if p.peek().isKeyword("OFFSET") {
		p.next()
		offset, err := p.parseCount("OFFSET")
		if err != nil {
			return nil, err
		}
		limit.Offset = offset
		limit.HasOffset = true
	}
	return limit, nil
}

func (p *Parser) parseCount(clause string) (int64, error) {
	tok := p.next()
	if tok.Type != TokenNumber {
		return 0, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "%s requires a non-negative integer, got %s", clause, tok)
	}
	v, err := ir.ParseNumber(tok.Value)
	if err != nil {
		return 0, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "%s requires a non-negative integer: %v", clause, err)
	}
	n, ok := v.(ir.IRInt)
	if !ok {
		return 0, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "%s requires an integer, got %s", clause, tok.Text)
	}
	if n < 0 {
		return 0, ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "%s must be non-negative, got %d", clause, n)
	}
	return int64(n), nil
}

func (p *Parser) peek() Token {
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.current]
}

func (p *Parser) next() Token {
	tok := p.peek()
	if p.current < len(p.tokens) {
		p.current++
	}
	return tok
}

func (p *Parser) expect(typ TokenType, what string) (Token, error) {
	tok := p.next()
	if tok.Type != typ {
		return tok, p.unexpected(tok, what)
	}
	return tok, nil
}

func (p *Parser) expectKeyword(kw string) error {
	tok := p.next()
	if !tok.isKeyword(kw) {
		return p.unexpected(tok, kw)
	}
	return nil
}

func (p *Parser) unexpected(tok Token, want string) error {
	return ast.Errorf(ast.ErrCodeSyntax, tok.Pos, "unexpected %s, expected %s", tok, want)
}
