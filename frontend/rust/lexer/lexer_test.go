package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenize(t *testing.T, src string) []Token {
	t.Helper()
	l := New("test.rs", src)
	var toks []Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestLexerKeywordsAndIdents(t *testing.T) {
	toks := tokenize(t, "fn main() { return 0; }")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		KW_FN, IDENT, LPAREN, RPAREN, LBRACE,
		KW_RETURN, INT_LIT, SEMICOLON, RBRACE, EOF,
	}, types)
}

func TestLexerRangeAndFatArrow(t *testing.T) {
	toks := tokenize(t, "for i in 0..10 { match i { 0 => (), _ => () } }")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Contains(t, types, DOT_DOT)
	assert.Contains(t, types, FAT_ARROW)
}

func TestLexerOperators(t *testing.T) {
	cases := []struct {
		src  string
		want TokenType
	}{
		{"+=", PLUS_ASSIGN}, {"-=", MINUS_ASSIGN}, {"*=", STAR_ASSIGN}, {"/=", SLASH_ASSIGN},
		{"==", EQ}, {"!=", NEQ}, {"<=", LE}, {">=", GE},
		{"&&", AMP_AMP}, {"||", PIPE_PIPE}, {"->", ARROW}, {"=>", FAT_ARROW},
		{"::", COLON_COLON}, {"..", DOT_DOT},
	}
	for _, c := range cases {
		toks := tokenize(t, c.src)
		require.Len(t, toks, 2)
		assert.Equal(t, c.want, toks[0].Type)
	}
}

func TestLexerMutRefKeywords(t *testing.T) {
	toks := tokenize(t, "let mut x = &mut y;")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		KW_LET, KW_MUT, IDENT, ASSIGN, AMP, KW_MUT, IDENT, SEMICOLON, EOF,
	}, types)
}

func TestLexerStringLiteral(t *testing.T) {
	toks := tokenize(t, `"hi\n"`)
	require.Len(t, toks, 2)
	assert.Equal(t, STRING_LIT, toks[0].Type)
	assert.Equal(t, "hi\n", toks[0].Literal)
}
