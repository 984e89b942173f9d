// Package lexer tokenizes preprocessed C89-subset source text. Grounded on
// rush/lexer's Token/TokenType shape (dense int enum, a name table, and a
// keyword-lookup map), generalized to the C keyword and operator set this
// toolchain's front-end needs.
package lexer

// TokenType identifies one lexical category.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	IDENT
	INT_LIT
	CHAR_LIT
	STRING_LIT

	// Keywords
	KW_INT
	KW_CHAR
	KW_VOID
	KW_SHORT
	KW_LONG
	KW_UNSIGNED
	KW_SIGNED
	KW_STRUCT
	KW_TYPEDEF
	KW_CONST
	KW_VOLATILE
	KW_STATIC
	KW_EXTERN
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_FOR
	KW_DO
	KW_RETURN
	KW_BREAK
	KW_CONTINUE
	KW_SWITCH
	KW_CASE
	KW_DEFAULT
	KW_SIZEOF
	KW_GOTO

	// Operators and punctuation
	ASSIGN
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	AMP
	PIPE
	CARET
	TILDE
	BANG
	LT
	GT
	LE
	GE
	EQ
	NEQ
	AND_AND
	OR_OR
	SHL
	SHR
	PLUS_PLUS
	MINUS_MINUS
	ARROW
	DOT
	QUESTION
	COLON
	COMMA
	SEMICOLON
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET

	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN
)

var names = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	IDENT: "IDENT", INT_LIT: "INT_LIT", CHAR_LIT: "CHAR_LIT", STRING_LIT: "STRING_LIT",
	KW_INT: "int", KW_CHAR: "char", KW_VOID: "void", KW_SHORT: "short", KW_LONG: "long",
	KW_UNSIGNED: "unsigned", KW_SIGNED: "signed", KW_STRUCT: "struct", KW_TYPEDEF: "typedef",
	KW_CONST: "const", KW_VOLATILE: "volatile", KW_STATIC: "static", KW_EXTERN: "extern",
	KW_IF: "if", KW_ELSE: "else", KW_WHILE: "while", KW_FOR: "for", KW_DO: "do",
	KW_RETURN: "return", KW_BREAK: "break", KW_CONTINUE: "continue",
	KW_SWITCH: "switch", KW_CASE: "case", KW_DEFAULT: "default", KW_SIZEOF: "sizeof", KW_GOTO: "goto",
	ASSIGN: "=", PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	AMP: "&", PIPE: "|", CARET: "^", TILDE: "~", BANG: "!",
	LT: "<", GT: ">", LE: "<=", GE: ">=", EQ: "==", NEQ: "!=",
	AND_AND: "&&", OR_OR: "||", SHL: "<<", SHR: ">>",
	PLUS_PLUS: "++", MINUS_MINUS: "--", ARROW: "->", DOT: ".",
	QUESTION: "?", COLON: ":", COMMA: ",", SEMICOLON: ";",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[", RBRACKET: "]",
	PLUS_ASSIGN: "+=", MINUS_ASSIGN: "-=", STAR_ASSIGN: "*=", SLASH_ASSIGN: "/=",
}

func (t TokenType) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UNKNOWN"
}

var keywords = map[string]TokenType{
	"int": KW_INT, "char": KW_CHAR, "void": KW_VOID, "short": KW_SHORT, "long": KW_LONG,
	"unsigned": KW_UNSIGNED, "signed": KW_SIGNED, "struct": KW_STRUCT, "typedef": KW_TYPEDEF,
	"const": KW_CONST, "volatile": KW_VOLATILE, "static": KW_STATIC, "extern": KW_EXTERN,
	"if": KW_IF, "else": KW_ELSE, "while": KW_WHILE, "for": KW_FOR, "do": KW_DO,
	"return": KW_RETURN, "break": KW_BREAK, "continue": KW_CONTINUE,
	"switch": KW_SWITCH, "case": KW_CASE, "default": KW_DEFAULT, "sizeof": KW_SIZEOF, "goto": KW_GOTO,
}

// LookupIdent classifies ident as a keyword token or a plain identifier.
func LookupIdent(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

// Token is one lexical unit, with its source position for diagnostics.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}
