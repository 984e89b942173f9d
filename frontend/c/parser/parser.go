// Package parser parses a token stream from frontend/c/lexer into the
// AST defined in frontend/c/ast.
//
// Grounded on rush/parser's Pratt-parser shape: precedence constants, a
// token-type-to-precedence table, and prefix/infix parse-function
// registries (registerPrefix/registerInfix). C's grammar additionally
// needs a declaration-vs-statement dispatch at block scope (a type
// keyword starts a declaration, anything else starts a statement or
// expression-statement) that rush's expression-oriented grammar never
// needed, since rush has no C-style declaration syntax.
package parser

import (
	"strconv"
	"strings"

	"smdc/diag"
	"smdc/frontend/c/ast"
	"smdc/frontend/c/lexer"
)

const (
	_ int = iota
	LOWEST
	COMMA
	ASSIGN
	TERNARY
	LOGOR
	LOGAND
	BITOR
	BITXOR
	BITAND
	EQUALS
	RELATIONAL
	SHIFT
	SUM
	PRODUCT
	UNARY
	POSTFIX
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:       ASSIGN,
	lexer.PLUS_ASSIGN:  ASSIGN,
	lexer.MINUS_ASSIGN: ASSIGN,
	lexer.STAR_ASSIGN:  ASSIGN,
	lexer.SLASH_ASSIGN: ASSIGN,
	lexer.QUESTION:     TERNARY,
	lexer.OR_OR:        LOGOR,
	lexer.AND_AND:      LOGAND,
	lexer.PIPE:         BITOR,
	lexer.CARET:        BITXOR,
	lexer.AMP:          BITAND,
	lexer.EQ:           EQUALS,
	lexer.NEQ:          EQUALS,
	lexer.LT:           RELATIONAL,
	lexer.GT:           RELATIONAL,
	lexer.LE:           RELATIONAL,
	lexer.GE:           RELATIONAL,
	lexer.SHL:          SHIFT,
	lexer.SHR:          SHIFT,
	lexer.PLUS:         SUM,
	lexer.MINUS:        SUM,
	lexer.STAR:         PRODUCT,
	lexer.SLASH:        PRODUCT,
	lexer.PERCENT:      PRODUCT,
	lexer.LPAREN:       POSTFIX,
	lexer.LBRACKET:     POSTFIX,
	lexer.DOT:          POSTFIX,
	lexer.ARROW:        POSTFIX,
	lexer.PLUS_PLUS:    POSTFIX,
	lexer.MINUS_MINUS:  POSTFIX,
}

var typeKeywords = map[lexer.TokenType]bool{
	lexer.KW_INT: true, lexer.KW_CHAR: true, lexer.KW_VOID: true,
	lexer.KW_SHORT: true, lexer.KW_LONG: true, lexer.KW_UNSIGNED: true,
	lexer.KW_SIGNED: true, lexer.KW_STRUCT: true,
}

type (
	prefixParseFn func() (ast.Expression, error)
	infixParseFn  func(ast.Expression) (ast.Expression, error)
)

// Parser is a single-pass, fail-fast recursive-descent parser: the first
// syntax error it meets is returned immediately, matching the
// toolchain's "one error at a time" diagnostic policy.
type Parser struct {
	l    *lexer.Lexer
	file string

	curToken  lexer.Token
	peekToken lexer.Token

	typedefNames map[string]bool

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// New constructs a Parser over l. It primes curToken/peekToken, so any
// lexical error in the first two tokens surfaces from New itself.
func New(file string, l *lexer.Lexer) (*Parser, error) {
	p := &Parser{l: l, file: file, typedefNames: make(map[string]bool)}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.IDENT:       p.parseIdentifier,
		lexer.INT_LIT:     p.parseIntLiteral,
		lexer.CHAR_LIT:    p.parseCharLiteral,
		lexer.STRING_LIT:  p.parseStringLiteral,
		lexer.BANG:        p.parseUnary,
		lexer.MINUS:       p.parseUnary,
		lexer.TILDE:       p.parseUnary,
		lexer.AMP:         p.parseUnary,
		lexer.STAR:        p.parseUnary,
		lexer.PLUS_PLUS:   p.parseUnary,
		lexer.MINUS_MINUS: p.parseUnary,
		lexer.KW_SIZEOF:   p.parseSizeof,
		lexer.LPAREN:      p.parseParenOrCast,
	}
	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.PLUS: p.parseBinary, lexer.MINUS: p.parseBinary,
		lexer.STAR: p.parseBinary, lexer.SLASH: p.parseBinary, lexer.PERCENT: p.parseBinary,
		lexer.EQ: p.parseBinary, lexer.NEQ: p.parseBinary,
		lexer.LT: p.parseBinary, lexer.GT: p.parseBinary, lexer.LE: p.parseBinary, lexer.GE: p.parseBinary,
		lexer.AND_AND: p.parseBinary, lexer.OR_OR: p.parseBinary,
		lexer.AMP: p.parseBinary, lexer.PIPE: p.parseBinary, lexer.CARET: p.parseBinary,
		lexer.SHL: p.parseBinary, lexer.SHR: p.parseBinary,
		lexer.ASSIGN: p.parseAssign, lexer.PLUS_ASSIGN: p.parseAssign,
		lexer.MINUS_ASSIGN: p.parseAssign, lexer.STAR_ASSIGN: p.parseAssign, lexer.SLASH_ASSIGN: p.parseAssign,
		lexer.QUESTION:     p.parseTernary,
		lexer.LPAREN:       p.parseCall,
		lexer.LBRACKET:     p.parseIndex,
		lexer.DOT:          p.parseMember,
		lexer.ARROW:        p.parseMember,
		lexer.PLUS_PLUS:    p.parsePostfix,
		lexer.MINUS_MINUS:  p.parsePostfix,
	}

	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) nextToken() error {
	p.curToken = p.peekToken
	tok, err := p.l.Next()
	if err != nil {
		return err
	}
	p.peekToken = tok
	return nil
}

func (p *Parser) span() diag.Span {
	return diag.Span{File: p.file, Line: p.curToken.Line, Column: p.curToken.Column}
}

func (p *Parser) errf(kind diag.Kind, format string, args ...interface{}) error {
	return diag.New(kind, p.span(), format, args...)
}

func (p *Parser) expect(t lexer.TokenType) error {
	if p.curToken.Type != t {
		return p.errf(diag.KindExpectedToken, "expected %s, got %s %q", t, p.curToken.Type, p.curToken.Literal)
	}
	return p.nextToken()
}

// ParseTranslationUnit parses an entire preprocessed C source file.
func (p *Parser) ParseTranslationUnit() (*ast.TranslationUnit, error) {
	tu := &ast.TranslationUnit{}
	for p.curToken.Type != lexer.EOF {
		decl, err := p.parseTopLevelDecl()
		if err != nil {
			return nil, err
		}
		tu.Decls = append(tu.Decls, decl)
	}
	return tu, nil
}

func (p *Parser) parseTopLevelDecl() (ast.Decl, error) {
	if p.curToken.Type == lexer.KW_TYPEDEF {
		return p.parseTypedef()
	}

	tok := p.curToken
	ts, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if ts.StructTag != "" && p.curToken.Type == lexer.LBRACE {
		return p.parseStructBody(tok, ts.StructTag)
	}
	if ts.StructTag != "" && p.curToken.Type == lexer.SEMICOLON {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return &ast.StructDecl{Token: tok, Tag: ts.StructTag}, nil
	}

	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindInvalidDeclarator, "expected declarator name, got %s", p.curToken.Type)
	}
	name := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	if p.curToken.Type == lexer.LPAREN {
		return p.parseFunctionDecl(tok, ts, name)
	}

	if err := p.parseArraySuffix(ts); err != nil {
		return nil, err
	}

	vd := &ast.VarDecl{Token: tok, Type: ts, Name: name}
	if p.curToken.Type == lexer.ASSIGN {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		init, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		vd.Init = init
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return vd, nil
}

func (p *Parser) parseStructBody(tok lexer.Token, tag string) (ast.Decl, error) {
	if err := p.nextToken(); err != nil { // consume '{'
		return nil, err
	}
	sd := &ast.StructDecl{Token: tok, Tag: tag}
	for p.curToken.Type != lexer.RBRACE {
		fts, err := p.parseTypeSpec()
		if err != nil {
			return nil, err
		}
		if p.curToken.Type != lexer.IDENT {
			return nil, p.errf(diag.KindInvalidDeclarator, "expected field name")
		}
		fieldName := p.curToken.Literal
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.parseArraySuffix(fts); err != nil {
			return nil, err
		}
		sd.Fields = append(sd.Fields, &ast.StructField{Type: fts, Name: fieldName})
		if err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
	}
	if err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return sd, nil
}

func (p *Parser) parseTypedef() (ast.Decl, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	ts, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindInvalidDeclarator, "expected typedef name")
	}
	name := p.curToken.Literal
	p.typedefNames[name] = true
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.TypedefDecl{Token: tok, Type: ts, Name: name}, nil
}

// parseTypeSpec consumes a type-specifier sequence (storage-class and
// qualifier keywords, base type keywords, struct tags) followed by any
// number of '*' pointer derivations, leaving curToken on whatever
// follows (the declarator name, or ';' for an anonymous struct decl).
func (p *Parser) parseTypeSpec() (*ast.TypeSpec, error) {
	ts := &ast.TypeSpec{}
	var base []string

loop:
	for {
		switch p.curToken.Type {
		case lexer.KW_CONST:
			ts.IsConst = true
		case lexer.KW_VOLATILE:
			ts.IsVolatile = true
		case lexer.KW_STATIC, lexer.KW_EXTERN:
			// Not recorded here: parseLocalVarDecl consumes and records
			// static itself before calling this, and at file scope the
			// storage class is dropped.
		case lexer.KW_INT, lexer.KW_CHAR, lexer.KW_VOID, lexer.KW_SHORT,
			lexer.KW_LONG, lexer.KW_UNSIGNED, lexer.KW_SIGNED:
			base = append(base, p.curToken.Literal)
		case lexer.KW_STRUCT:
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if p.curToken.Type != lexer.IDENT {
				return nil, p.errf(diag.KindInvalidDeclarator, "expected struct tag")
			}
			ts.StructTag = p.curToken.Literal
			base = append(base, "struct "+ts.StructTag)
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			break loop
		default:
			break loop
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}

	if len(base) == 0 {
		if tn, ok := p.lookupTypedefBase(); ok {
			base = append(base, tn)
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		} else {
			return nil, p.errf(diag.KindInvalidDeclarator, "expected type specifier, got %s", p.curToken.Type)
		}
	}
	ts.Base = strings.Join(base, " ")

	for p.curToken.Type == lexer.STAR {
		ts.PointerDepth++
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// parseArraySuffix consumes a single "[N]" array-length suffix on a
// declarator, if present, recording it on ts. The C89 subset this
// front-end accepts supports one dimension.
func (p *Parser) parseArraySuffix(ts *ast.TypeSpec) error {
	if p.curToken.Type != lexer.LBRACKET {
		return nil
	}
	if err := p.nextToken(); err != nil {
		return err
	}
	if p.curToken.Type != lexer.INT_LIT {
		return p.errf(diag.KindInvalidDeclarator, "expected constant array length")
	}
	n, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		return p.errf(diag.KindInvalidDeclarator, "invalid array length %q", p.curToken.Literal)
	}
	ts.ArrayLen = &n
	if err := p.nextToken(); err != nil {
		return err
	}
	return p.expect(lexer.RBRACKET)
}

func (p *Parser) lookupTypedefBase() (string, bool) {
	if p.curToken.Type == lexer.IDENT && p.typedefNames[p.curToken.Literal] {
		return p.curToken.Literal, true
	}
	return "", false
}

func (p *Parser) parseFunctionDecl(tok lexer.Token, ret *ast.TypeSpec, name string) (ast.Decl, error) {
	if err := p.nextToken(); err != nil { // consume '('
		return nil, err
	}
	fd := &ast.FunctionDecl{Token: tok, ReturnType: ret, Name: name}

	if p.curToken.Type == lexer.KW_VOID && p.peekToken.Type == lexer.RPAREN {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	} else {
		for p.curToken.Type != lexer.RPAREN {
			pts, err := p.parseTypeSpec()
			if err != nil {
				return nil, err
			}
			if p.curToken.Type != lexer.IDENT {
				return nil, p.errf(diag.KindInvalidDeclarator, "expected parameter name")
			}
			fd.Params = append(fd.Params, &ast.Param{Type: pts, Name: p.curToken.Literal})
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if p.curToken.Type == lexer.COMMA {
				if err := p.nextToken(); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	if p.curToken.Type == lexer.SEMICOLON {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return fd, nil
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fd.Body = body
	return fd, nil
}

func (p *Parser) parseInitializer() (ast.Expression, error) {
	if p.curToken.Type == lexer.LBRACE {
		return p.parseCompoundInit()
	}
	return p.parseExpression(ASSIGN)
}

func (p *Parser) parseCompoundInit() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	ci := &ast.CompoundInit{Token: tok}
	for p.curToken.Type != lexer.RBRACE {
		el, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		ci.Elements = append(ci.Elements, el)
		if p.curToken.Type == lexer.COMMA {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.nextToken(); err != nil { // consume '}'
		return nil, err
	}
	return ci, nil
}

func isTypeStart(t lexer.TokenType) bool {
	return typeKeywords[t] || t == lexer.KW_CONST || t == lexer.KW_VOLATILE ||
		t == lexer.KW_STATIC || t == lexer.KW_EXTERN
}

func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	tok := p.curToken
	if err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	block := &ast.BlockStatement{Token: tok}
	for p.curToken.Type != lexer.RBRACE && p.curToken.Type != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	if err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curToken.Type {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.KW_IF:
		return p.parseIf()
	case lexer.KW_WHILE:
		return p.parseWhile()
	case lexer.KW_DO:
		return p.parseDoWhile()
	case lexer.KW_FOR:
		return p.parseFor()
	case lexer.KW_RETURN:
		return p.parseReturn()
	case lexer.KW_BREAK:
		tok := p.curToken
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.BreakStatement{Token: tok}, nil
	case lexer.KW_CONTINUE:
		tok := p.curToken
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.ContinueStatement{Token: tok}, nil
	case lexer.KW_GOTO:
		tok := p.curToken
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.curToken.Type != lexer.IDENT {
			return nil, p.errf(diag.KindInvalidDeclarator, "expected label after goto")
		}
		label := p.curToken.Literal
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.GotoStatement{Token: tok, Label: label}, nil
	case lexer.KW_SWITCH:
		return p.parseSwitch()
	case lexer.SEMICOLON:
		tok := p.curToken
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return &ast.ExpressionStatement{Token: tok}, nil
	case lexer.IDENT:
		if p.peekToken.Type == lexer.COLON {
			return p.parseLabeled()
		}
	}

	if isTypeStart(p.curToken.Type) || (p.curToken.Type == lexer.IDENT && p.typedefNames[p.curToken.Literal]) {
		return p.parseLocalVarDecl()
	}

	tok := p.curToken
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Token: tok, Expr: expr}, nil
}

func (p *Parser) parseLocalVarDecl() (ast.Statement, error) {
	tok := p.curToken
	isStatic := false
	for p.curToken.Type == lexer.KW_STATIC || p.curToken.Type == lexer.KW_EXTERN {
		isStatic = isStatic || p.curToken.Type == lexer.KW_STATIC
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	ts, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindInvalidDeclarator, "expected declarator name")
	}
	name := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.parseArraySuffix(ts); err != nil {
		return nil, err
	}
	vd := &ast.VarDecl{Token: tok, Type: ts, Name: name, IsStatic: isStatic}
	if p.curToken.Type == lexer.ASSIGN {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		init, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		vd.Init = init
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return vd, nil
}

func (p *Parser) parseLabeled() (ast.Statement, error) {
	tok := p.curToken
	label := p.curToken.Literal
	if err := p.nextToken(); err != nil { // consume ident
		return nil, err
	}
	if err := p.nextToken(); err != nil { // consume ':'
		return nil, err
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.LabeledStatement{Token: tok, Label: label, Stmt: stmt}, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseBlockOrSingle()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Token: tok, Condition: cond, Then: then}
	if p.curToken.Type == lexer.KW_ELSE {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.curToken.Type == lexer.KW_IF {
			elseStmt, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseStmt
		} else {
			elseBlock, err := p.parseBlockOrSingle()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseBlock
		}
	}
	return stmt, nil
}

// parseBlockOrSingle wraps a single statement body in a BlockStatement
// so every control-construct arm has a uniform shape for IR lowering.
func (p *Parser) parseBlockOrSingle() (*ast.BlockStatement, error) {
	if p.curToken.Type == lexer.LBRACE {
		return p.parseBlock()
	}
	tok := p.curToken
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.BlockStatement{Token: tok, Statements: []ast.Statement{stmt}}, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlockOrSingle()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Token: tok, Condition: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (ast.Statement, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	body, err := p.parseBlockOrSingle()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.KW_WHILE); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.DoWhileStatement{Token: tok, Body: body, Condition: cond}, nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	fs := &ast.ForStatement{Token: tok}

	if p.curToken.Type != lexer.SEMICOLON {
		init, err := p.parseStatement() // consumes trailing ';'
		if err != nil {
			return nil, err
		}
		fs.Init = init
	} else if err := p.nextToken(); err != nil {
		return nil, err
	}

	if p.curToken.Type != lexer.SEMICOLON {
		cond, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		fs.Condition = cond
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}

	if p.curToken.Type != lexer.RPAREN {
		post, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		fs.Post = post
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlockOrSingle()
	if err != nil {
		return nil, err
	}
	fs.Body = body
	return fs, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	rs := &ast.ReturnStatement{Token: tok}
	if p.curToken.Type != lexer.SEMICOLON {
		val, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		rs.Value = val
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return rs, nil
}

func (p *Parser) parseSwitch() (ast.Statement, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	tag, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}

	ss := &ast.SwitchStatement{Token: tok, Tag: tag}
	for p.curToken.Type != lexer.RBRACE {
		caseTok := p.curToken
		cc := &ast.CaseClause{Token: caseTok}
		switch p.curToken.Type {
		case lexer.KW_CASE:
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			val, err := p.parseExpression(LOWEST)
			if err != nil {
				return nil, err
			}
			cc.Value = val
		case lexer.KW_DEFAULT:
			cc.IsDefault = true
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		default:
			return nil, p.errf(diag.KindCaseOutsideSwitch, "expected case or default, got %s", p.curToken.Type)
		}
		if err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		for p.curToken.Type != lexer.KW_CASE && p.curToken.Type != lexer.KW_DEFAULT && p.curToken.Type != lexer.RBRACE {
			stmt, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			cc.Statements = append(cc.Statements, stmt)
		}
		ss.Cases = append(ss.Cases, cc)
	}
	if err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return ss, nil
}

// ---- expressions ----

func (p *Parser) parseExpression(prec int) (ast.Expression, error) {
	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		return nil, p.errf(diag.KindExpectedToken, "unexpected token %s %q in expression", p.curToken.Type, p.curToken.Literal)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}

	for p.curToken.Type != lexer.SEMICOLON && prec < p.peekPrecedenceOfCur() {
		infix, ok := p.infixParseFns[p.curToken.Type]
		if !ok {
			return left, nil
		}
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// peekPrecedenceOfCur returns curToken's own precedence, since this
// parser's infix loop — unlike rush's — advances past the operator
// inside each infix function rather than before calling it.
func (p *Parser) peekPrecedenceOfCur() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) parseIdentifier() (ast.Expression, error) {
	id := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return id, p.nextToken()
}

func (p *Parser) parseIntLiteral() (ast.Expression, error) {
	tok := p.curToken
	lit := tok.Literal
	base := 10
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		base = 16
		lit = lit[2:]
	}
	val, err := strconv.ParseInt(lit, base, 64)
	if err != nil {
		return nil, p.errf(diag.KindInvalidDeclarator, "invalid integer literal %q", tok.Literal)
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.IntLiteral{Token: tok, Value: val}, nil
}

func (p *Parser) parseCharLiteral() (ast.Expression, error) {
	tok := p.curToken
	var v byte
	if len(tok.Literal) > 0 {
		v = tok.Literal[0]
	}
	return &ast.CharLiteral{Token: tok, Value: v}, p.nextToken()
}

func (p *Parser) parseStringLiteral() (ast.Expression, error) {
	tok := p.curToken
	return &ast.StringLiteral{Token: tok, Value: tok.Literal}, p.nextToken()
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	tok := p.curToken
	op := tok.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	operand, err := p.parseExpression(UNARY)
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpression{Token: tok, Operator: op, Operand: operand}, nil
}

func (p *Parser) parseSizeof() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curToken.Type == lexer.LPAREN && isTypeStart(p.peekToken.Type) {
		if err := p.nextToken(); err != nil { // consume '('
			return nil, err
		}
		ts, err := p.parseTypeSpec()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return &ast.SizeofExpression{Token: tok, Type: ts}, nil
	}
	val, err := p.parseExpression(UNARY)
	if err != nil {
		return nil, err
	}
	return &ast.SizeofExpression{Token: tok, Value: val}, nil
}

// parseParenOrCast disambiguates "(expr)" from "(type)expr" by checking
// whether a type keyword follows the '('.
func (p *Parser) parseParenOrCast() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if isTypeStart(p.curToken.Type) {
		ts, err := p.parseTypeSpec()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(UNARY)
		if err != nil {
			return nil, err
		}
		return &ast.CastExpression{Token: tok, Type: ts, Value: val}, nil
	}
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) parseBinary(left ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	prec := p.peekPrecedenceOfCur()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpression{Token: tok, Left: left, Operator: tok.Literal, Right: right}, nil
}

func (p *Parser) parseAssign(left ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	// Right-associative: re-enter one level below ASSIGN so a chain like
	// a = b = c nests correctly.
	val, err := p.parseExpression(ASSIGN - 1)
	if err != nil {
		return nil, err
	}
	return &ast.AssignExpression{Token: tok, Target: left, Operator: tok.Literal, Value: val}, nil
}

func (p *Parser) parseTernary(cond ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	then, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	els, err := p.parseExpression(TERNARY - 1)
	if err != nil {
		return nil, err
	}
	return &ast.TernaryExpression{Token: tok, Condition: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseCall(fn ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	ce := &ast.CallExpression{Token: tok, Function: fn}
	for p.curToken.Type != lexer.RPAREN {
		arg, err := p.parseExpression(ASSIGN)
		if err != nil {
			return nil, err
		}
		ce.Args = append(ce.Args, arg)
		if p.curToken.Type == lexer.COMMA {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.nextToken(); err != nil { // consume ')'
		return nil, err
	}
	return ce, nil
}

func (p *Parser) parseIndex(arr ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	idx, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.IndexExpression{Token: tok, Array: arr, Index: idx}, nil
}

func (p *Parser) parseMember(obj ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	arrow := tok.Type == lexer.ARROW
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindMemberNotFound, "expected field name after %s", tok.Literal)
	}
	field := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.MemberExpression{Token: tok, Object: obj, Field: field, Arrow: arrow}, nil
}

func (p *Parser) parsePostfix(operand ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.PostfixExpression{Token: tok, Operand: operand, Operator: tok.Literal}, nil
}
