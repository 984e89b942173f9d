// Package parser parses a token stream from frontend/rust/lexer into the
// AST defined in frontend/rust/ast.
//
// Grounded on frontend/c/parser's Pratt-parser shape (precedence table,
// prefix/infix parse-function registries, fail-fast single-error
// policy), generalized to an expression-oriented grammar where block,
// if, match, and loop are themselves expressions rather than statements,
// the way rush/parser's original language also treated control flow as
// expression-valued.
package parser

import (
	"strconv"
	"strings"

	"smdc/diag"
	"smdc/frontend/rust/ast"
	"smdc/frontend/rust/lexer"
)

const (
	_ int = iota
	LOWEST
	ASSIGN
	RANGE
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
	CAST
	UNARY
	POSTFIX
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:       ASSIGN,
	lexer.PLUS_ASSIGN:  ASSIGN,
	lexer.MINUS_ASSIGN: ASSIGN,
	lexer.STAR_ASSIGN:  ASSIGN,
	lexer.SLASH_ASSIGN: ASSIGN,
	lexer.DOT_DOT:      RANGE,
	lexer.PIPE_PIPE:    LOGOR,
	lexer.AMP_AMP:      LOGAND,
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
	lexer.KW_AS:        CAST,
	lexer.LPAREN:       POSTFIX,
	lexer.LBRACKET:     POSTFIX,
	lexer.DOT:          POSTFIX,
}

type (
	prefixParseFn func() (ast.Expression, error)
	infixParseFn  func(ast.Expression) (ast.Expression, error)
)

// Parser is a single-pass, fail-fast recursive-descent parser: the first
// syntax error it meets is returned immediately.
type Parser struct {
	l    *lexer.Lexer
	file string

	curToken  lexer.Token
	peekToken lexer.Token

	structNames map[string]bool

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

func New(file string, l *lexer.Lexer) (*Parser, error) {
	p := &Parser{l: l, file: file, structNames: make(map[string]bool)}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.IDENT:      p.parseIdentifierOrStructLit,
		lexer.INT_LIT:    p.parseIntLiteral,
		lexer.STRING_LIT: p.parseStringLiteral,
		lexer.KW_TRUE:    p.parseBoolLiteral,
		lexer.KW_FALSE:   p.parseBoolLiteral,
		lexer.BANG:       p.parseUnary,
		lexer.MINUS:      p.parseUnary,
		lexer.STAR:       p.parseUnary,
		lexer.AMP:        p.parseUnary,
		lexer.LPAREN:     p.parseGrouped,
		lexer.LBRACE:     p.parseBlockAsExpr,
		lexer.KW_IF:      p.parseIfAsExpr,
		lexer.KW_WHILE:   p.parseWhileAsExpr,
		lexer.KW_LOOP:    p.parseLoopAsExpr,
		lexer.KW_FOR:     p.parseForAsExpr,
		lexer.KW_MATCH:   p.parseMatchAsExpr,
		lexer.KW_RETURN:  p.parseReturn,
		lexer.KW_BREAK:   p.parseBreak,
		lexer.KW_CONTINUE: p.parseContinue,
	}
	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.PLUS: p.parseBinary, lexer.MINUS: p.parseBinary,
		lexer.STAR: p.parseBinary, lexer.SLASH: p.parseBinary, lexer.PERCENT: p.parseBinary,
		lexer.EQ: p.parseBinary, lexer.NEQ: p.parseBinary,
		lexer.LT: p.parseBinary, lexer.GT: p.parseBinary, lexer.LE: p.parseBinary, lexer.GE: p.parseBinary,
		lexer.AMP_AMP: p.parseBinary, lexer.PIPE_PIPE: p.parseBinary,
		lexer.AMP: p.parseBinary, lexer.PIPE: p.parseBinary, lexer.CARET: p.parseBinary,
		lexer.SHL: p.parseBinary, lexer.SHR: p.parseBinary,
		lexer.ASSIGN: p.parseAssign, lexer.PLUS_ASSIGN: p.parseAssign,
		lexer.MINUS_ASSIGN: p.parseAssign, lexer.STAR_ASSIGN: p.parseAssign, lexer.SLASH_ASSIGN: p.parseAssign,
		lexer.DOT_DOT:  p.parseRange,
		lexer.LPAREN:   p.parseCall,
		lexer.LBRACKET: p.parseIndex,
		lexer.DOT:      p.parseField,
		lexer.KW_AS:    p.parseCast,
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

// ParseProgram parses an entire Rust-like subset source file.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.curToken.Type != lexer.EOF {
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		prog.Items = append(prog.Items, item)
	}
	return prog, nil
}

func (p *Parser) parseItem() (ast.Item, error) {
	switch p.curToken.Type {
	case lexer.KW_FN:
		return p.parseFunctionItem()
	case lexer.KW_STRUCT:
		return p.parseStructItem()
	case lexer.KW_ENUM:
		return p.parseEnumItem()
	case lexer.KW_CONST:
		return p.parseConstItem()
	default:
		return nil, p.errf(diag.KindExpectedToken, "expected item (fn/struct/enum/const), got %s", p.curToken.Type)
	}
}

func (p *Parser) parseFunctionItem() (*ast.FunctionItem, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume 'fn'
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindExpectedToken, "expected function name")
	}
	name := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for p.curToken.Type != lexer.RPAREN {
		mut := false
		if p.curToken.Type == lexer.KW_MUT {
			mut = true
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
		if p.curToken.Type != lexer.IDENT {
			return nil, p.errf(diag.KindExpectedToken, "expected parameter name")
		}
		pname := p.curToken.Literal
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		pty, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: pname, Mut: mut, Type: pty})
		if p.curToken.Type == lexer.COMMA {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.nextToken(); err != nil { // consume ')'
		return nil, err
	}

	var ret *ast.TypeRef
	if p.curToken.Type == lexer.ARROW {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		rt, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		ret = rt
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionItem{Token: tok, Name: name, Params: params, Return: ret, Body: body}, nil
}

func (p *Parser) parseStructItem() (*ast.StructItem, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindExpectedToken, "expected struct name")
	}
	name := p.curToken.Literal
	p.structNames[name] = true
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var fields []ast.StructField
	for p.curToken.Type != lexer.RBRACE {
		if p.curToken.Type != lexer.IDENT {
			return nil, p.errf(diag.KindExpectedToken, "expected field name")
		}
		fname := p.curToken.Literal
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		fty, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructField{Name: fname, Type: fty})
		if p.curToken.Type == lexer.COMMA {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.nextToken(); err != nil { // consume '}'
		return nil, err
	}
	return &ast.StructItem{Token: tok, Name: name, Fields: fields}, nil
}

func (p *Parser) parseEnumItem() (*ast.EnumItem, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindExpectedToken, "expected enum name")
	}
	name := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var variants []ast.EnumVariant
	for p.curToken.Type != lexer.RBRACE {
		if p.curToken.Type != lexer.IDENT {
			return nil, p.errf(diag.KindExpectedToken, "expected variant name")
		}
		vname := p.curToken.Literal
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		var fields []*ast.TypeRef
		if p.curToken.Type == lexer.LPAREN {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			for p.curToken.Type != lexer.RPAREN {
				ft, err := p.parseTypeRef()
				if err != nil {
					return nil, err
				}
				fields = append(fields, ft)
				if p.curToken.Type == lexer.COMMA {
					if err := p.nextToken(); err != nil {
						return nil, err
					}
				}
			}
			if err := p.nextToken(); err != nil { // consume ')'
				return nil, err
			}
		}
		variants = append(variants, ast.EnumVariant{Name: vname, Fields: fields})
		if p.curToken.Type == lexer.COMMA {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.nextToken(); err != nil { // consume '}'
		return nil, err
	}
	return &ast.EnumItem{Token: tok, Name: name, Variants: variants}, nil
}

func (p *Parser) parseConstItem() (*ast.ConstItem, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindExpectedToken, "expected const name")
	}
	name := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	ty, err := p.parseTypeRef()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ConstItem{Token: tok, Name: name, Type: ty, Value: val}, nil
}

func (p *Parser) parseTypeRef() (*ast.TypeRef, error) {
	if p.curToken.Type == lexer.AMP {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		mut := false
		if p.curToken.Type == lexer.KW_MUT {
			mut = true
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
		elem, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		return &ast.TypeRef{Ref: true, RefMut: mut, Elem: elem}, nil
	}
	if p.curToken.Type == lexer.LBRACKET {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		elem, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		if p.curToken.Type != lexer.INT_LIT {
			return nil, p.errf(diag.KindExpectedToken, "expected array length")
		}
		n, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
		if err != nil {
			return nil, p.errf(diag.KindExpectedToken, "invalid array length %q", p.curToken.Literal)
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return &ast.TypeRef{Elem: elem, ArrayLen: &n}, nil
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindExpectedToken, "expected type name, got %s", p.curToken.Type)
	}
	name := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.TypeRef{Name: name}, nil
}

// parseBlock parses `{ stmt* expr? }`, classifying the final
// expression-without-semicolon (if any) as the block's tail value.
func (p *Parser) parseBlock() (*ast.BlockExpr, error) {
	tok := p.curToken
	if err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	block := &ast.BlockExpr{Token: tok}
	for p.curToken.Type != lexer.RBRACE {
		if p.curToken.Type == lexer.EOF {
			return nil, p.errf(diag.KindExpectedToken, "unterminated block")
		}
		stmt, tail, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		if tail != nil {
			block.Tail = tail
			break
		}
		block.Statements = append(block.Statements, stmt)
	}
	if err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// parseBlockItem parses one statement inside a block. When the statement
// is a bare expression immediately followed by '}' (no semicolon), it is
// returned as the block's tail expression instead of a Statement.
func (p *Parser) parseBlockItem() (ast.Statement, ast.Expression, error) {
	switch p.curToken.Type {
	case lexer.KW_LET:
		s, err := p.parseLetStatement()
		return s, nil, err
	case lexer.KW_STRUCT, lexer.KW_ENUM, lexer.KW_CONST:
		item, err := p.parseItem()
		if err != nil {
			return nil, nil, err
		}
		return &ast.ItemStatement{Item: item}, nil, nil
	default:
		tok := p.curToken
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, nil, err
		}
		if p.curToken.Type == lexer.SEMICOLON {
			if err := p.nextToken(); err != nil {
				return nil, nil, err
			}
			return &ast.ExprStatement{Token: tok, Expr: expr, HasSemi: true}, nil, nil
		}
		if p.curToken.Type == lexer.RBRACE {
			return nil, expr, nil
		}
		return &ast.ExprStatement{Token: tok, Expr: expr, HasSemi: false}, nil, nil
	}
}

func (p *Parser) parseLetStatement() (*ast.LetStatement, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume 'let'
		return nil, err
	}
	mut := false
	if p.curToken.Type == lexer.KW_MUT {
		mut = true
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindExpectedToken, "expected binding name")
	}
	name := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var ty *ast.TypeRef
	if p.curToken.Type == lexer.COLON {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		t, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		ty = t
	}
	var value ast.Expression
	if p.curToken.Type == lexer.ASSIGN {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		v, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		value = v
	}
	if err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.LetStatement{Token: tok, Name: name, Mut: mut, Type: ty, Value: value}, nil
}

// ---- Pratt expression parsing ----

func (p *Parser) parseExpression(precedence int) (ast.Expression, error) {
	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		return nil, p.errf(diag.KindExpectedToken, "unexpected token %s in expression", p.curToken.Type)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}
	for p.curToken.Type != lexer.SEMICOLON && precedence < p.curPrecedence() {
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

func (p *Parser) parseIdentifierOrStructLit() (ast.Expression, error) {
	tok := p.curToken
	name := tok.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.structNames[name] && p.curToken.Type == lexer.LBRACE {
		return p.parseStructLiteral(tok, name)
	}
	return &ast.Identifier{Token: tok, Value: name}, nil
}

func (p *Parser) parseStructLiteral(tok lexer.Token, name string) (ast.Expression, error) {
	if err := p.nextToken(); err != nil { // consume '{'
		return nil, err
	}
	lit := &ast.StructLiteral{Token: tok, Name: name}
	for p.curToken.Type != lexer.RBRACE {
		if p.curToken.Type != lexer.IDENT {
			return nil, p.errf(diag.KindExpectedToken, "expected field name")
		}
		fname := p.curToken.Literal
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		lit.Fields = append(lit.Fields, ast.StructLitField{Name: fname, Value: val})
		if p.curToken.Type == lexer.COMMA {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.nextToken(); err != nil { // consume '}'
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseIntLiteral() (ast.Expression, error) {
	tok := p.curToken
	numPart := tok.Literal
	if !strings.HasPrefix(numPart, "0x") && !strings.HasPrefix(numPart, "0X") {
		i := 0
		for i < len(numPart) && (numPart[i] == '_' || (numPart[i] >= '0' && numPart[i] <= '9')) {
			i++
		}
		numPart = numPart[:i]
	}
	numPart = strings.ReplaceAll(numPart, "_", "")
	v, err := strconv.ParseInt(numPart, 0, 64)
	if err != nil {
		return nil, p.errf(diag.KindExpectedToken, "invalid integer literal %q", tok.Literal)
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.IntLiteral{Token: tok, Value: v}, nil
}

func (p *Parser) parseStringLiteral() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.StringLiteral{Token: tok, Value: tok.Literal}, nil
}

func (p *Parser) parseBoolLiteral() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.BoolLiteral{Token: tok, Value: tok.Type == lexer.KW_TRUE}, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	tok := p.curToken
	op := tok.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if op == "&" && p.curToken.Type == lexer.KW_MUT {
		op = "&mut"
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	operand, err := p.parseExpression(UNARY)
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpression{Token: tok, Operator: op, Operand: operand}, nil
}

func (p *Parser) parseGrouped() (ast.Expression, error) {
	if err := p.nextToken(); err != nil { // consume '('
		return nil, err
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

func (p *Parser) parseBlockAsExpr() (ast.Expression, error) {
	return p.parseBlock()
}

func (p *Parser) parseBinary(left ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	op := tok.Literal
	prec := p.curPrecedence()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpression{Token: tok, Left: left, Operator: op, Right: right}, nil
}

func (p *Parser) parseRange(left ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(RANGE)
	if err != nil {
		return nil, err
	}
	return &ast.RangeExpression{Token: tok, Low: left, High: right}, nil
}

func (p *Parser) parseAssign(left ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	op := tok.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(ASSIGN - 1)
	if err != nil {
		return nil, err
	}
	return &ast.AssignExpression{Token: tok, Target: left, Operator: op, Value: right}, nil
}

func (p *Parser) parseCall(function ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume '('
		return nil, err
	}
	var args []ast.Expression
	for p.curToken.Type != lexer.RPAREN {
		arg, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.curToken.Type == lexer.COMMA {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.nextToken(); err != nil { // consume ')'
		return nil, err
	}
	return &ast.CallExpression{Token: tok, Function: function, Args: args}, nil
}

func (p *Parser) parseIndex(arr ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume '['
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

func (p *Parser) parseField(obj ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume '.'
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT && p.curToken.Type != lexer.INT_LIT {
		return nil, p.errf(diag.KindExpectedToken, "expected field name")
	}
	field := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.FieldExpression{Token: tok, Object: obj, Field: field}, nil
}

func (p *Parser) parseCast(value ast.Expression) (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume 'as'
		return nil, err
	}
	ty, err := p.parseTypeRef()
	if err != nil {
		return nil, err
	}
	return &ast.CastExpression{Token: tok, Value: value, Type: ty}, nil
}

func (p *Parser) parseIfAsExpr() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume 'if'
		return nil, err
	}
	cond, err := p.parseExpressionNoStructLit()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var elseExpr ast.Expression
	if p.curToken.Type == lexer.KW_ELSE {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.curToken.Type == lexer.KW_IF {
			e, err := p.parseIfAsExpr()
			if err != nil {
				return nil, err
			}
			elseExpr = e
		} else {
			e, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			elseExpr = e
		}
	}
	return &ast.IfExpr{Token: tok, Condition: cond, Then: then, Else: elseExpr}, nil
}

func (p *Parser) parseWhileAsExpr() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpressionNoStructLit()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileExpr{Token: tok, Condition: cond, Body: body}, nil
}

func (p *Parser) parseLoopAsExpr() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.LoopExpr{Token: tok, Body: body}, nil
}

func (p *Parser) parseForAsExpr() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume 'for'
		return nil, err
	}
	if p.curToken.Type != lexer.IDENT {
		return nil, p.errf(diag.KindExpectedToken, "expected loop variable name")
	}
	name := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.KW_IN); err != nil {
		return nil, err
	}
	rangeExpr, err := p.parseExpressionNoStructLit()
	if err != nil {
		return nil, err
	}
	rng, ok := rangeExpr.(*ast.RangeExpression)
	if !ok {
		return nil, p.errf(diag.KindExpectedToken, "for loops in this subset only iterate a range (lo..hi)")
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForExpr{Token: tok, Name: name, Range: rng, Body: body}, nil
}

func (p *Parser) parseMatchAsExpr() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil { // consume 'match'
		return nil, err
	}
	scrutinee, err := p.parseExpressionNoStructLit()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var arms []ast.MatchArm
	for p.curToken.Type != lexer.RBRACE {
		arm, err := p.parseMatchArm()
		if err != nil {
			return nil, err
		}
		arms = append(arms, arm)
		if p.curToken.Type == lexer.COMMA {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.nextToken(); err != nil { // consume '}'
		return nil, err
	}
	return &ast.MatchExpr{Token: tok, Scrutinee: scrutinee, Arms: arms}, nil
}

func (p *Parser) parseMatchArm() (ast.MatchArm, error) {
	var arm ast.MatchArm
	if p.curToken.Type == lexer.IDENT && p.curToken.Literal == "_" {
		arm.IsWildcard = true
		if err := p.nextToken(); err != nil {
			return arm, err
		}
	} else if p.curToken.Type == lexer.IDENT && p.peekToken.Type == lexer.FAT_ARROW {
		arm.IsBinding = true
		arm.BindingName = p.curToken.Literal
		if err := p.nextToken(); err != nil {
			return arm, err
		}
	} else {
		pat, err := p.parseExpression(LOWEST)
		if err != nil {
			return arm, err
		}
		arm.Pattern = pat
	}
	if err := p.expect(lexer.FAT_ARROW); err != nil {
		return arm, err
	}
	body, err := p.parseExpression(LOWEST)
	if err != nil {
		return arm, err
	}
	arm.Body = body
	return arm, nil
}

func (p *Parser) parseReturn() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curToken.Type == lexer.SEMICOLON || p.curToken.Type == lexer.RBRACE {
		return &ast.ReturnExpr{Token: tok}, nil
	}
	val, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	return &ast.ReturnExpr{Token: tok, Value: val}, nil
}

func (p *Parser) parseBreak() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.BreakExpr{Token: tok}, nil
}

func (p *Parser) parseContinue() (ast.Expression, error) {
	tok := p.curToken
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &ast.ContinueExpr{Token: tok}, nil
}

// parseExpressionNoStructLit parses a condition/scrutinee expression with
// bare-identifier struct literals suppressed, so `if x { ... }` parses x
// as a condition rather than attempting `x { ... }` as a struct literal —
// the same ambiguity Rust itself resolves this way.
func (p *Parser) parseExpressionNoStructLit() (ast.Expression, error) {
	saved := p.structNames
	p.structNames = map[string]bool{}
	expr, err := p.parseExpression(LOWEST)
	p.structNames = saved
	return expr, err
}
