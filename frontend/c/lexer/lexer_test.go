package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenize(t *testing.T, src string) []Token {
	t.Helper()
	l := New("test.c", src)
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
	toks := tokenize(t, "int main(void) { return 0; }")
	types := []TokenType{}
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		KW_INT, IDENT, LPAREN, KW_VOID, RPAREN, LBRACE,
		KW_RETURN, INT_LIT, SEMICOLON, RBRACE, EOF,
	}, types)
}

func TestLexerOperators(t *testing.T) {
	cases := []struct {
		src  string
		want TokenType
	}{
		{"==", EQ}, {"!=", NEQ}, {"<=", LE}, {">=", GE},
		{"&&", AND_AND}, {"||", OR_OR}, {"<<", SHL}, {">>", SHR},
		{"++", PLUS_PLUS}, {"--", MINUS_MINUS}, {"->", ARROW},
		{"+=", PLUS_ASSIGN}, {"-=", MINUS_ASSIGN}, {"*=", STAR_ASSIGN}, {"/=", SLASH_ASSIGN},
		{"<", LT}, {">", GT}, {"=", ASSIGN}, {"!", BANG},
	}
	for _, c := range cases {
		toks := tokenize(t, c.src)
		require.Len(t, toks, 2)
		assert.Equal(t, c.want, toks[0].Type, "source %q", c.src)
	}
}

func TestLexerStringAndCharLiterals(t *testing.T) {
	toks := tokenize(t, `"hello\n" 'a' '\0'`)
	require.Len(t, toks, 4)
	assert.Equal(t, STRING_LIT, toks[0].Type)
	assert.Equal(t, "hello\n", toks[0].Literal)
	assert.Equal(t, CHAR_LIT, toks[1].Type)
	assert.Equal(t, "a", toks[1].Literal)
	assert.Equal(t, CHAR_LIT, toks[2].Type)
	assert.Equal(t, string(byte(0)), toks[2].Literal)
}

func TestLexerNumbers(t *testing.T) {
	toks := tokenize(t, "42 0x1F 0")
	require.Len(t, toks, 4)
	assert.Equal(t, "42", toks[0].Literal)
	assert.Equal(t, "0x1F", toks[1].Literal)
	assert.Equal(t, "0", toks[2].Literal)
}

func TestLexerSkipsComments(t *testing.T) {
	toks := tokenize(t, "// comment\nint x; /* block\ncomment */ int y;")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		KW_INT, IDENT, SEMICOLON, KW_INT, IDENT, SEMICOLON, EOF,
	}, types)
}

func TestLexerTracksLineAndColumn(t *testing.T) {
	toks := tokenize(t, "int\nx;")
	require.True(t, len(toks) >= 3)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
}

func TestLexerUnterminatedString(t *testing.T) {
	l := New("test.c", `"unterminated`)
	_, err := l.Next()
	require.Error(t, err)
}

func TestLexerUnexpectedChar(t *testing.T) {
	l := New("test.c", "@")
	_, err := l.Next()
	require.Error(t, err)
}
