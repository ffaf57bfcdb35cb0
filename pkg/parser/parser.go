// Package parser implements a recursive-descent, Pratt-style parser for
// the Cypher subset (§4.3), grounded on the classic
// prefixParseFn/infixParseFn + precedence-table shape of a hand-written
// expression parser.
package parser

import (
	"strconv"
	"strings"

	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/lexer"
	"github.com/orneryd/graphforge/pkg/token"
)

// Operator precedence levels, lowest to highest.
const (
	_ int = iota
	LOWEST
	OR_PREC
	XOR_PREC
	AND_PREC
	NOT_PREC
	COMPARE
	SUM
	PRODUCT
	PREFIX
	POWER
	POSTFIX
)

var precedences = map[token.Type]int{
	token.OR:       OR_PREC,
	token.XOR:      XOR_PREC,
	token.AND:      AND_PREC,
	token.EQ:       COMPARE,
	token.NEQ:      COMPARE,
	token.LT:       COMPARE,
	token.GT:       COMPARE,
	token.LTE:      COMPARE,
	token.GTE:      COMPARE,
	token.IN:       COMPARE,
	token.IS:       COMPARE,
	token.STARTS:   COMPARE,
	token.ENDS:     COMPARE,
	token.CONTAINS: COMPARE,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.CARET:    POWER,
	token.DOT:      POSTFIX,
	token.LBRACKET: POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser turns a token stream into an ast.Query.
type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []*ParseError

	prefixFns map[token.Type]prefixParseFn
	infixFns  map[token.Type]infixParseFn
}

// New creates a Parser over l and primes the two-token lookahead.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.prefixFns = map[token.Type]prefixParseFn{}
	p.infixFns = map[token.Type]infixParseFn{}

	p.registerPrefix(token.IDENT, p.parseIdentifierOrCall)
	p.registerPrefix(token.PARAM, p.parseParameter)
	p.registerPrefix(token.INT, p.parseIntLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolLiteral)
	p.registerPrefix(token.FALSE, p.parseBoolLiteral)
	p.registerPrefix(token.NULL, p.parseNullLiteral)
	p.registerPrefix(token.MINUS, p.parseUnaryExpression)
	p.registerPrefix(token.NOT, p.parseNotExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseListExprOrComprehension)
	p.registerPrefix(token.LBRACE, p.parseMapExpression)
	p.registerPrefix(token.CASE, p.parseCaseExpression)
	p.registerPrefix(token.EXISTS, p.parseExistsSubquery)
	p.registerPrefix(token.COUNT, p.parseCountSubquery)

	p.registerInfix(token.PLUS, p.parseBinaryExpression)
	p.registerInfix(token.MINUS, p.parseBinaryExpression)
	p.registerInfix(token.ASTERISK, p.parseBinaryExpression)
	p.registerInfix(token.SLASH, p.parseBinaryExpression)
	p.registerInfix(token.PERCENT, p.parseBinaryExpression)
	p.registerInfix(token.CARET, p.parsePowerExpression)
	p.registerInfix(token.EQ, p.parseBinaryExpression)
	p.registerInfix(token.NEQ, p.parseBinaryExpression)
	p.registerInfix(token.LT, p.parseBinaryExpression)
	p.registerInfix(token.GT, p.parseBinaryExpression)
	p.registerInfix(token.LTE, p.parseBinaryExpression)
	p.registerInfix(token.GTE, p.parseBinaryExpression)
	p.registerInfix(token.AND, p.parseBinaryExpression)
	p.registerInfix(token.OR, p.parseBinaryExpression)
	p.registerInfix(token.XOR, p.parseBinaryExpression)
	p.registerInfix(token.IN, p.parseBinaryExpression)
	p.registerInfix(token.IS, p.parseIsExpression)
	p.registerInfix(token.STARTS, p.parseStartsWithExpression)
	p.registerInfix(token.ENDS, p.parseEndsWithExpression)
	p.registerInfix(token.CONTAINS, p.parseBinaryExpression)
	p.registerInfix(token.DOT, p.parsePropertyAccess)
	p.registerInfix(token.LBRACKET, p.parseSubscriptOrSlice)

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixFns[t] = fn }

// Errors returns every parse error accumulated so far.
func (p *Parser) Errors() []*ParseError { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) expectPeek(t token.Type, expected ...string) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(expected...)
	return false
}

func (p *Parser) peekError(expected ...string) {
	if len(expected) == 0 {
		expected = []string{}
	}
	p.errors = append(p.errors, &ParseError{
		Line: p.peekToken.Line, Column: p.peekToken.Column,
		Found: p.peekToken.Type.String(), Expected: expected,
	})
}

func (p *Parser) curError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Line: p.curToken.Line, Column: p.curToken.Column,
		Found: p.curToken.Type.String(), Expected: []string{msg},
	})
}

// Parse lexes and parses text into a Query. On syntax error it returns
// the first ParseError rather than a partial tree (§4.3: "no partial AST
// escapes the parser").
func Parse(text string) (*ast.Query, error) {
	p := New(lexer.New(text))
	q := p.ParseQuery()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return q, nil
}

// ParseQuery parses one query, possibly a UNION chain.
func (p *Parser) ParseQuery() *ast.Query {
	first := p.parseClauseSequence()
	q := &ast.Query{Clauses: first}
	for p.curTokenIs(token.UNION) {
		p.nextToken()
		all := false
		if p.curTokenIs(token.ALL) {
			all = true
			p.nextToken()
		}
		branch := p.parseClauseSequence()
		q.Unions = append(q.Unions, ast.UnionBranch{All: all, Clauses: branch})
	}
	return q
}

func (p *Parser) parseClauseSequence() []ast.Clause {
	var clauses []ast.Clause
	for !p.curTokenIs(token.EOF) && !p.curTokenIs(token.UNION) && !p.curTokenIs(token.SEMICOLON) && !p.curTokenIs(token.RBRACE) {
		c := p.parseClause()
		if c == nil {
			return clauses
		}
		clauses = append(clauses, c)
		if p.curTokenIs(token.SEMICOLON) {
			break
		}
	}
	return clauses
}

func (p *Parser) parseClause() ast.Clause {
	switch p.curToken.Type {
	case token.MATCH:
		return p.parseMatchClause(false)
	case token.OPTIONAL:
		p.nextToken()
		if !p.curTokenIs(token.MATCH) {
			p.curError("MATCH")
			return nil
		}
		return p.parseMatchClause(true)
	case token.WITH:
		return p.parseWithClause()
	case token.UNWIND:
		return p.parseUnwindClause()
	case token.RETURN:
		return p.parseReturnClause()
	case token.CREATE:
		return p.parseCreateClause()
	case token.MERGE:
		return p.parseMergeClause()
	case token.SET:
		return p.parseSetClause()
	case token.REMOVE:
		return p.parseRemoveClause()
	case token.DELETE:
		return p.parseDeleteClause(false)
	case token.DETACH:
		p.nextToken()
		if !p.curTokenIs(token.DELETE) {
			p.curError("DELETE")
			return nil
		}
		return p.parseDeleteClause(true)
	case token.CALL:
		return p.parseCallSubqueryClause()
	default:
		p.curError("clause")
		return nil
	}
}

// --- MATCH ---

func (p *Parser) parseMatchClause(optional bool) *ast.MatchClause {
	p.nextToken() // consume MATCH
	pattern := p.parsePattern()
	m := &ast.MatchClause{Optional: optional, Pattern: pattern}
	if p.curTokenIs(token.WHERE) {
		p.nextToken()
		m.Where = p.parseExpression(LOWEST)
	}
	return m
}

func (p *Parser) parsePattern() []ast.PathPart {
	var parts []ast.PathPart
	parts = append(parts, p.parsePathPart())
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		parts = append(parts, p.parsePathPart())
	}
	return parts
}

func (p *Parser) parsePathPart() ast.PathPart {
	var name string
	if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.EQ) {
		name = p.curToken.Literal
		p.nextToken() // ident
		p.nextToken() // =
	}
	part := ast.PathPart{Name: name, Start: p.parseNodePattern()}
	for p.curTokenIs(token.MINUS) || p.curTokenIs(token.LT) {
		rel := p.parseRelPattern()
		node := p.parseNodePattern()
		part.Steps = append(part.Steps, ast.PathStep{Rel: rel, Node: node})
	}
	return part
}

func (p *Parser) parseNodePattern() ast.NodePattern {
	np := ast.NodePattern{}
	if !p.curTokenIs(token.LPAREN) {
		p.curError("(")
		return np
	}
	p.nextToken() // consume (
	if p.curTokenIs(token.IDENT) {
		np.Name = p.curToken.Literal
		p.nextToken()
	}
	if p.curTokenIs(token.COLON) {
		np.Labels = p.parseLabelExpr()
	}
	if p.curTokenIs(token.LBRACE) {
		np.Props = p.parseMapExpression().(*ast.MapExpr)
	} else if p.curTokenIs(token.PARAM) {
		np.ParamMap = p.parseParameter()
	}
	if p.curTokenIs(token.WHERE) {
		p.nextToken()
		np.Where = p.parseExpression(LOWEST)
	}
	if !p.curTokenIs(token.RPAREN) {
		p.curError(")")
		return np
	}
	p.nextToken() // consume )
	return np
}

// parseLabelExpr parses a ':'-prefixed label/type expression, assuming
// curToken is COLON.
func (p *Parser) parseLabelExpr() *ast.LabelExpr {
	p.nextToken() // consume ':'
	return p.parseLabelOr()
}

func (p *Parser) parseLabelOr() *ast.LabelExpr {
	left := p.parseLabelAnd()
	for p.curTokenIs(token.PIPE) {
		p.nextToken()
		right := p.parseLabelAnd()
		left = &ast.LabelExpr{Kind: ast.LabelOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLabelAnd() *ast.LabelExpr {
	left := p.parseLabelUnary()
	// `&` is the explicit conjunction operator; a bare second `:Label`
	// (no `&`) is the legacy multi-label shorthand `:A:B`, also AND.
	for p.curTokenIs(token.AMP) || p.curTokenIs(token.COLON) {
		p.nextToken()
		right := p.parseLabelUnary()
		left = &ast.LabelExpr{Kind: ast.LabelAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLabelUnary() *ast.LabelExpr {
	if p.curTokenIs(token.BANG) {
		p.nextToken()
		operand := p.parseLabelUnary()
		return &ast.LabelExpr{Kind: ast.LabelNot, Left: operand}
	}
	if p.curTokenIs(token.LPAREN) {
		p.nextToken()
		inner := p.parseLabelOr()
		if p.curTokenIs(token.RPAREN) {
			p.nextToken()
		}
		return inner
	}
	if p.curTokenIs(token.PERCENT) {
		p.nextToken()
		return &ast.LabelExpr{Kind: ast.LabelWildcard}
	}
	name := p.curToken.Literal
	p.nextToken()
	return &ast.LabelExpr{Kind: ast.LabelName, Name: name}
}

func (p *Parser) parseRelPattern() ast.RelPattern {
	rp := ast.RelPattern{Direction: ast.DirEither}
	leftArrow := false
	if p.curTokenIs(token.LT) {
		leftArrow = true
		p.nextToken()
	}
	if !p.curTokenIs(token.MINUS) {
		p.curError("-")
		return rp
	}
	p.nextToken() // consume '-'

	if p.curTokenIs(token.LBRACKET) {
		p.nextToken() // consume '['
		if p.curTokenIs(token.IDENT) {
			rp.Name = p.curToken.Literal
			p.nextToken()
		}
		if p.curTokenIs(token.COLON) {
			rp.Types = p.parseLabelExpr()
		}
		if p.curTokenIs(token.ASTERISK) {
			rp.Variable = true
			p.nextToken()
			p.parseRangeQuantifier(&rp)
		} else if p.curTokenIs(token.LBRACE) && p.looksLikeRangeBrace() {
			rp.Variable = true
			p.parseBraceQuantifier(&rp)
		}
		if p.curTokenIs(token.LBRACE) {
			rp.Props = p.parseMapExpression().(*ast.MapExpr)
		}
		if p.curTokenIs(token.WHERE) {
			p.nextToken()
			rp.Where = p.parseExpression(LOWEST)
		}
		if !p.curTokenIs(token.RBRACKET) {
			p.curError("]")
			return rp
		}
		p.nextToken() // consume ']'
	}

	if !p.curTokenIs(token.MINUS) {
		p.curError("-")
		return rp
	}
	p.nextToken() // consume closing '-'

	rightArrow := false
	if p.curTokenIs(token.GT) {
		rightArrow = true
		p.nextToken()
	}

	switch {
	case leftArrow && !rightArrow:
		rp.Direction = ast.DirLeft
	case rightArrow && !leftArrow:
		rp.Direction = ast.DirRight
	default:
		rp.Direction = ast.DirEither
	}
	return rp
}

// looksLikeRangeBrace distinguishes `{2,5}` (a quantifier, only digits
// and commas before the matching '}') from `{prop: 1}` (a property map)
// when curToken is LBRACE; the grammar is LL(1)-ambiguous here so a
// property map is the default and a quantifier is the marked exception.
func (p *Parser) looksLikeRangeBrace() bool {
	return p.peekTokenIs(token.INT) || (p.peekTokenIs(token.COMMA))
}

func (p *Parser) parseRangeQuantifier(rp *ast.RelPattern) {
	if p.curTokenIs(token.INT) {
		n, _ := strconv.Atoi(p.curToken.Literal)
		rp.Min, rp.MinSet = n, true
		rp.Max, rp.MaxSet = n, true
		p.nextToken()
	}
	if p.curTokenIs(token.DOTDOT) {
		p.nextToken()
		rp.MaxSet = false
		if p.curTokenIs(token.INT) {
			n, _ := strconv.Atoi(p.curToken.Literal)
			rp.Max, rp.MaxSet = n, true
			p.nextToken()
		}
	}
}

func (p *Parser) parseBraceQuantifier(rp *ast.RelPattern) {
	p.nextToken() // consume '{'
	if p.curTokenIs(token.INT) {
		n, _ := strconv.Atoi(p.curToken.Literal)
		rp.Min, rp.MinSet = n, true
		p.nextToken()
	}
	if p.curTokenIs(token.COMMA) {
		p.nextToken()
		if p.curTokenIs(token.INT) {
			n, _ := strconv.Atoi(p.curToken.Literal)
			rp.Max, rp.MaxSet = n, true
			p.nextToken()
		}
	} else {
		rp.Max, rp.MaxSet = rp.Min, true
	}
	if p.curTokenIs(token.RBRACE) {
		p.nextToken()
	}
}

// --- WITH / RETURN ---

func (p *Parser) parseWithClause() *ast.WithClause {
	p.nextToken() // consume WITH
	w := &ast.WithClause{}
	if p.curTokenIs(token.DISTINCT) {
		w.Distinct = true
		p.nextToken()
	}
	w.Items = p.parseProjectionItems()
	if p.curTokenIs(token.WHERE) {
		p.nextToken()
		w.Where = p.parseExpression(LOWEST)
	}
	w.OrderBy = p.parseOptionalOrderBy()
	w.Skip = p.parseOptionalSkip()
	w.Limit = p.parseOptionalLimit()
	return w
}

func (p *Parser) parseReturnClause() *ast.ReturnClause {
	p.nextToken() // consume RETURN
	r := &ast.ReturnClause{}
	if p.curTokenIs(token.DISTINCT) {
		r.Distinct = true
		p.nextToken()
	}
	r.Items = p.parseProjectionItems()
	r.OrderBy = p.parseOptionalOrderBy()
	r.Skip = p.parseOptionalSkip()
	r.Limit = p.parseOptionalLimit()
	return r
}

func (p *Parser) parseProjectionItems() []ast.ProjectionItem {
	var items []ast.ProjectionItem
	items = append(items, p.parseProjectionItem())
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		items = append(items, p.parseProjectionItem())
	}
	return items
}

func (p *Parser) parseProjectionItem() ast.ProjectionItem {
	if p.curTokenIs(token.ASTERISK) {
		p.nextToken()
		return ast.ProjectionItem{Star: true}
	}
	expr := p.parseExpression(LOWEST)
	item := ast.ProjectionItem{Expr: expr}
	if p.curTokenIs(token.AS) {
		p.nextToken()
		item.Alias = p.curToken.Literal
		p.nextToken()
	} else if v, ok := expr.(*ast.Variable); ok {
		item.Alias = v.Name
	}
	return item
}

func (p *Parser) parseOptionalOrderBy() []ast.OrderItem {
	if !p.curTokenIs(token.ORDER) {
		return nil
	}
	p.nextToken() // ORDER
	if !p.curTokenIs(token.BY) {
		p.curError("BY")
		return nil
	}
	p.nextToken() // BY
	var items []ast.OrderItem
	items = append(items, p.parseOrderItem())
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		items = append(items, p.parseOrderItem())
	}
	return items
}

func (p *Parser) parseOrderItem() ast.OrderItem {
	expr := p.parseExpression(LOWEST)
	item := ast.OrderItem{Expr: expr}
	switch p.curToken.Type {
	case token.ASC, token.ASCENDING:
		p.nextToken()
	case token.DESC, token.DESCENDING:
		item.Descending = true
		p.nextToken()
	}
	return item
}

func (p *Parser) parseOptionalSkip() ast.Expression {
	if !p.curTokenIs(token.SKIP) {
		return nil
	}
	p.nextToken()
	return p.parseExpression(LOWEST)
}

func (p *Parser) parseOptionalLimit() ast.Expression {
	if !p.curTokenIs(token.LIMIT) {
		return nil
	}
	p.nextToken()
	return p.parseExpression(LOWEST)
}

// --- UNWIND ---

func (p *Parser) parseUnwindClause() *ast.UnwindClause {
	p.nextToken() // consume UNWIND
	expr := p.parseExpression(LOWEST)
	u := &ast.UnwindClause{Expr: expr}
	if !p.curTokenIs(token.AS) {
		p.curError("AS")
		return u
	}
	p.nextToken()
	u.As = p.curToken.Literal
	p.nextToken()
	return u
}

// --- CREATE / MERGE ---

func (p *Parser) parseCreateClause() *ast.CreateClause {
	p.nextToken() // consume CREATE
	return &ast.CreateClause{Pattern: p.parsePattern()}
}

func (p *Parser) parseMergeClause() *ast.MergeClause {
	p.nextToken() // consume MERGE
	m := &ast.MergeClause{Pattern: p.parsePathPart()}
	for p.curTokenIs(token.ON) {
		p.nextToken() // ON
		switch p.curToken.Type {
		case token.CREATE:
			p.nextToken()
			m.OnCreate = p.parseSetItems()
		case token.MATCH:
			p.nextToken()
			m.OnMatch = p.parseSetItems()
		default:
			p.curError("CREATE or MATCH")
			return m
		}
	}
	return m
}

// --- SET / REMOVE / DELETE ---

func (p *Parser) parseSetClause() *ast.SetClause {
	p.nextToken() // consume SET
	return &ast.SetClause{Items: p.parseSetItems()}
}

func (p *Parser) parseSetItems() []ast.SetItem {
	var items []ast.SetItem
	items = append(items, p.parseSetItem())
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		items = append(items, p.parseSetItem())
	}
	return items
}

func (p *Parser) parseSetItem() ast.SetItem {
	name := p.curToken.Literal
	p.nextToken() // consume identifier
	if p.curTokenIs(token.COLON) {
		var labels []string
		for p.curTokenIs(token.COLON) {
			p.nextToken()
			labels = append(labels, p.curToken.Literal)
			p.nextToken()
		}
		return ast.SetItem{Target: &ast.Variable{Name: name}, Labels: labels}
	}
	if p.curTokenIs(token.DOT) {
		p.nextToken()
		prop := p.curToken.Literal
		p.nextToken()
		if !p.curTokenIs(token.EQ) {
			p.curError("=")
		}
		p.nextToken()
		value := p.parseExpression(LOWEST)
		return ast.SetItem{Target: &ast.PropertyAccess{Target: &ast.Variable{Name: name}, Name: prop}, Value: value}
	}
	additive := false
	if p.curTokenIs(token.PLUS) && p.peekTokenIs(token.EQ) {
		additive = true
		p.nextToken()
	}
	if !p.curTokenIs(token.EQ) {
		p.curError("=")
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	return ast.SetItem{Target: &ast.Variable{Name: name}, Value: value, Additive: additive}
}

func (p *Parser) parseRemoveClause() *ast.RemoveClause {
	p.nextToken() // consume REMOVE
	r := &ast.RemoveClause{}
	r.Items = append(r.Items, p.parseRemoveItem())
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		r.Items = append(r.Items, p.parseRemoveItem())
	}
	return r
}

func (p *Parser) parseRemoveItem() ast.RemoveItem {
	name := p.curToken.Literal
	p.nextToken()
	if p.curTokenIs(token.DOT) {
		p.nextToken()
		prop := p.curToken.Literal
		p.nextToken()
		return ast.RemoveItem{Property: &ast.PropertyAccess{Target: &ast.Variable{Name: name}, Name: prop}}
	}
	item := ast.RemoveItem{Variable: name}
	for p.curTokenIs(token.COLON) {
		p.nextToken()
		item.Labels = append(item.Labels, p.curToken.Literal)
		p.nextToken()
	}
	return item
}

func (p *Parser) parseDeleteClause(detach bool) *ast.DeleteClause {
	p.nextToken() // consume DELETE
	d := &ast.DeleteClause{Detach: detach}
	d.Exprs = append(d.Exprs, p.parseExpression(LOWEST))
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		d.Exprs = append(d.Exprs, p.parseExpression(LOWEST))
	}
	return d
}

// --- CALL subquery ---

func (p *Parser) parseCallSubqueryClause() *ast.CallSubqueryClause {
	p.nextToken() // consume CALL
	c := &ast.CallSubqueryClause{}
	if p.curTokenIs(token.LPAREN) {
		p.nextToken()
		for !p.curTokenIs(token.RPAREN) {
			c.Importing = append(c.Importing, p.curToken.Literal)
			p.nextToken()
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
			}
		}
		p.nextToken() // consume ')'
	}
	if !p.curTokenIs(token.LBRACE) {
		p.curError("{")
		return c
	}
	p.nextToken() // consume '{'
	c.Query = p.ParseQuery()
	if !p.curTokenIs(token.RBRACE) {
		p.curError("}")
		return c
	}
	p.nextToken() // consume '}'
	return c
}

// --- Expressions ---

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix, ok := p.prefixFns[p.curToken.Type]
	if !ok {
		p.curError("expression")
		return nil
	}
	left := prefix()

	for !p.curTokenIs(token.EOF) && precedence < p.curPrecedence() {
		infix, ok := p.infixFns[p.curToken.Type]
		if !ok {
			return left
		}
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifierOrCall() ast.Expression {
	name := p.curToken.Literal
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken() // move to '('
		return p.parseFunctionCall(name)
	}
	p.nextToken()
	return &ast.Variable{Name: name}
}

func (p *Parser) parseFunctionCall(name string) ast.Expression {
	p.nextToken() // consume '('
	fc := &ast.FunctionCall{Name: name}
	if p.curTokenIs(token.DISTINCT) {
		fc.Distinct = true
		p.nextToken()
	}
	if p.curTokenIs(token.ASTERISK) && strings.EqualFold(name, "count") {
		p.nextToken()
		fc.Args = []ast.Expression{&ast.Variable{Name: "*"}}
	} else if !p.curTokenIs(token.RPAREN) {
		fc.Args = append(fc.Args, p.parseExpression(LOWEST))
		for p.curTokenIs(token.COMMA) {
			p.nextToken()
			fc.Args = append(fc.Args, p.parseExpression(LOWEST))
		}
	}
	if !p.curTokenIs(token.RPAREN) {
		p.curError(")")
		return fc
	}
	p.nextToken() // consume ')'
	return fc
}

func (p *Parser) parseParameter() ast.Expression {
	name := p.curToken.Literal
	p.nextToken()
	return &ast.Parameter{Name: name}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	n, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		p.curError("integer literal")
	}
	p.nextToken()
	return &ast.IntLiteral{Value: n}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	f, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.curError("float literal")
	}
	p.nextToken()
	return &ast.FloatLiteral{Value: f}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	s := p.curToken.Literal
	p.nextToken()
	return &ast.StringLiteral{Value: s}
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	v := p.curTokenIs(token.TRUE)
	p.nextToken()
	return &ast.BoolLiteral{Value: v}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	p.nextToken()
	return &ast.NullLiteral{}
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	op := p.curToken.Type
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.UnaryExpr{Op: op, Operand: operand}
}

func (p *Parser) parseNotExpression() ast.Expression {
	p.nextToken() // consume NOT
	operand := p.parseExpression(NOT_PREC)
	return &ast.UnaryExpr{Op: token.NOT, Operand: operand}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken() // consume '('
	expr := p.parseExpression(LOWEST)
	if !p.curTokenIs(token.RPAREN) {
		p.curError(")")
		return expr
	}
	p.nextToken() // consume ')'
	return expr
}

func (p *Parser) parseListExprOrComprehension() ast.Expression {
	p.nextToken() // consume '['
	if p.curTokenIs(token.RBRACKET) {
		p.nextToken()
		return &ast.ListExpr{}
	}
	// Disambiguate `[x IN list ...]` comprehensions from plain list
	// literals by checking for the `IDENT IN` shape.
	if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.IN) {
		variable := p.curToken.Literal
		p.nextToken() // ident
		p.nextToken() // IN
		list := p.parseExpression(LOWEST)
		lc := &ast.ListComprehension{Variable: variable, List: list}
		if p.curTokenIs(token.WHERE) {
			p.nextToken()
			lc.Where = p.parseExpression(LOWEST)
		}
		if p.curTokenIs(token.PIPE) {
			p.nextToken()
			lc.Project = p.parseExpression(LOWEST)
		}
		if !p.curTokenIs(token.RBRACKET) {
			p.curError("]")
			return lc
		}
		p.nextToken()
		return lc
	}
	list := &ast.ListExpr{}
	list.Elements = append(list.Elements, p.parseExpression(LOWEST))
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		list.Elements = append(list.Elements, p.parseExpression(LOWEST))
	}
	if !p.curTokenIs(token.RBRACKET) {
		p.curError("]")
		return list
	}
	p.nextToken()
	return list
}

func (p *Parser) parseMapExpression() ast.Expression {
	p.nextToken() // consume '{'
	m := &ast.MapExpr{}
	for !p.curTokenIs(token.RBRACE) {
		key := p.curToken.Literal
		p.nextToken()
		if !p.curTokenIs(token.COLON) {
			p.curError(":")
			return m
		}
		p.nextToken()
		value := p.parseExpression(LOWEST)
		m.Entries = append(m.Entries, ast.MapEntry{Key: key, Value: value})
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.nextToken() // consume '}'
	return m
}

func (p *Parser) parseCaseExpression() ast.Expression {
	p.nextToken() // consume CASE
	ce := &ast.CaseExpr{}
	if !p.curTokenIs(token.WHEN) {
		ce.Operand = p.parseExpression(LOWEST)
	}
	for p.curTokenIs(token.WHEN) {
		p.nextToken()
		cond := p.parseExpression(LOWEST)
		if !p.curTokenIs(token.THEN) {
			p.curError("THEN")
			return ce
		}
		p.nextToken()
		result := p.parseExpression(LOWEST)
		ce.Whens = append(ce.Whens, ast.WhenClause{Condition: cond, Result: result})
	}
	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		ce.Else = p.parseExpression(LOWEST)
	}
	if !p.curTokenIs(token.END) {
		p.curError("END")
		return ce
	}
	p.nextToken() // consume END
	return ce
}

func (p *Parser) parseExistsSubquery() ast.Expression {
	p.nextToken() // consume EXISTS
	if !p.curTokenIs(token.LBRACE) {
		p.curError("{")
		return &ast.ExistsSubquery{}
	}
	p.nextToken() // consume '{'
	q := p.ParseQuery()
	if !p.curTokenIs(token.RBRACE) {
		p.curError("}")
		return &ast.ExistsSubquery{Query: q}
	}
	p.nextToken() // consume '}'
	return &ast.ExistsSubquery{Query: q}
}

func (p *Parser) parseCountSubquery() ast.Expression {
	if p.peekTokenIs(token.LPAREN) {
		// count(expr) / count(*) is the aggregate function, not a subquery.
		name := p.curToken.Literal
		p.nextToken() // move to '('
		return p.parseFunctionCall(name)
	}
	p.nextToken() // consume COUNT
	if !p.curTokenIs(token.LBRACE) {
		p.curError("{")
		return &ast.CountSubquery{}
	}
	p.nextToken() // consume '{'
	q := p.ParseQuery()
	if !p.curTokenIs(token.RBRACE) {
		p.curError("}")
		return &ast.CountSubquery{Query: q}
	}
	p.nextToken() // consume '}'
	return &ast.CountSubquery{Query: q}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	op := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.BinaryExpr{Op: op, Left: left, Right: right}
}

func (p *Parser) parsePowerExpression(left ast.Expression) ast.Expression {
	p.nextToken() // consume '^'
	right := p.parseExpression(POWER - 1) // right-associative
	return &ast.BinaryExpr{Op: token.CARET, Left: left, Right: right}
}

func (p *Parser) parseIsExpression(left ast.Expression) ast.Expression {
	p.nextToken() // consume IS
	not := false
	if p.curTokenIs(token.NOT) {
		not = true
		p.nextToken()
	}
	if !p.curTokenIs(token.NULL) {
		p.curError("NULL")
		return &ast.IsNullExpr{Operand: left, Not: not}
	}
	p.nextToken() // consume NULL
	return &ast.IsNullExpr{Operand: left, Not: not}
}

func (p *Parser) parseStartsWithExpression(left ast.Expression) ast.Expression {
	p.nextToken() // consume STARTS
	if !p.curTokenIs(token.WITH) {
		p.curError("WITH")
	}
	p.nextToken() // consume WITH
	right := p.parseExpression(COMPARE)
	return &ast.BinaryExpr{Op: token.STARTS, Left: left, Right: right}
}

func (p *Parser) parseEndsWithExpression(left ast.Expression) ast.Expression {
	p.nextToken() // consume ENDS
	if !p.curTokenIs(token.WITH) {
		p.curError("WITH")
	}
	p.nextToken() // consume WITH
	right := p.parseExpression(COMPARE)
	return &ast.BinaryExpr{Op: token.ENDS, Left: left, Right: right}
}

func (p *Parser) parsePropertyAccess(left ast.Expression) ast.Expression {
	p.nextToken() // consume '.'
	name := p.curToken.Literal
	p.nextToken()
	return &ast.PropertyAccess{Target: left, Name: name}
}

func (p *Parser) parseSubscriptOrSlice(left ast.Expression) ast.Expression {
	p.nextToken() // consume '['
	if p.curTokenIs(token.DOTDOT) {
		p.nextToken()
		var to ast.Expression
		if !p.curTokenIs(token.RBRACKET) {
			to = p.parseExpression(LOWEST)
		}
		p.expectRBracket()
		return &ast.Slice{Target: left, To: to}
	}
	first := p.parseExpression(LOWEST)
	if p.curTokenIs(token.DOTDOT) {
		p.nextToken()
		var to ast.Expression
		if !p.curTokenIs(token.RBRACKET) {
			to = p.parseExpression(LOWEST)
		}
		p.expectRBracket()
		return &ast.Slice{Target: left, From: first, To: to}
	}
	p.expectRBracket()
	return &ast.Subscript{Target: left, Index: first}
}

func (p *Parser) expectRBracket() {
	if !p.curTokenIs(token.RBRACKET) {
		p.curError("]")
		return
	}
	p.nextToken()
}
