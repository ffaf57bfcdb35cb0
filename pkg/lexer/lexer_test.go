package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/lexer"
	"github.com/orneryd/graphforge/pkg/token"
)

func TestNextTokenCoversCoreSymbols(t *testing.T) {
	input := `MATCH (n:Person)-[r:KNOWS*1..3]->(m) WHERE n.age >= 30 AND n.name <> 'Bob' RETURN n.name AS name`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.MATCH, "MATCH"},
		{token.LPAREN, "("},
		{token.IDENT, "n"},
		{token.COLON, ":"},
		{token.IDENT, "Person"},
		{token.RPAREN, ")"},
		{token.MINUS, "-"},
		{token.LBRACKET, "["},
		{token.IDENT, "r"},
		{token.COLON, ":"},
		{token.IDENT, "KNOWS"},
		{token.ASTERISK, "*"},
		{token.INT, "1"},
		{token.DOTDOT, ".."},
		{token.INT, "3"},
		{token.RBRACKET, "]"},
		{token.MINUS, "-"},
		{token.GT, ">"},
		{token.LPAREN, "("},
		{token.IDENT, "m"},
		{token.RPAREN, ")"},
		{token.WHERE, "WHERE"},
		{token.IDENT, "n"},
		{token.DOT, "."},
		{token.IDENT, "age"},
		{token.GTE, ">="},
		{token.INT, "30"},
		{token.AND, "AND"},
		{token.IDENT, "n"},
		{token.DOT, "."},
		{token.IDENT, "name"},
		{token.NEQ, "<>"},
		{token.STRING, "Bob"},
		{token.RETURN, "RETURN"},
		{token.IDENT, "n"},
		{token.DOT, "."},
		{token.IDENT, "name"},
		{token.AS, "AS"},
		{token.IDENT, "name"},
		{token.EOF, ""},
	}

	l := lexer.New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		require.Equalf(t, tt.expectedType, tok.Type, "token %d: wrong type for literal %q", i, tok.Literal)
		assert.Equalf(t, tt.expectedLiteral, tok.Literal, "token %d: wrong literal", i)
	}
}

func TestLexerTracksLineAndColumn(t *testing.T) {
	l := lexer.New("MATCH (n)\nRETURN n")
	var tok token.Token
	for {
		tok = l.NextToken()
		if tok.Type == token.RETURN {
			break
		}
	}
	assert.Equal(t, 2, tok.Line)
}

func TestLexerParsesFloatAndExponent(t *testing.T) {
	l := lexer.New("1.5 2e10 3")
	tok1 := l.NextToken()
	assert.Equal(t, token.FLOAT, tok1.Type)
	tok2 := l.NextToken()
	assert.Equal(t, token.FLOAT, tok2.Type)
	tok3 := l.NextToken()
	assert.Equal(t, token.INT, tok3.Type)
}

func TestLexerHandlesStringEscapesAndParam(t *testing.T) {
	l := lexer.New(`'a\nb' $name`)
	tok1 := l.NextToken()
	assert.Equal(t, token.STRING, tok1.Type)
	assert.Equal(t, "a\nb", tok1.Literal)
	tok2 := l.NextToken()
	assert.Equal(t, token.PARAM, tok2.Type)
	assert.Equal(t, "name", tok2.Literal)
}

func TestLexerSkipsLineAndBlockComments(t *testing.T) {
	l := lexer.New("RETURN 1 // trailing comment\n/* block\ncomment */ RETURN 2")
	var kinds []token.Type
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		kinds = append(kinds, tok.Type)
	}
	assert.Equal(t, []token.Type{token.RETURN, token.INT, token.RETURN, token.INT}, kinds)
}
