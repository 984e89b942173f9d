// Package preprocessor expands #include, #define, and conditional
// directives over C source text before it reaches the lexer.
//
// Circular #include detection reuses the push/pop-by-resolved-path
// technique of rush/module's ModuleResolver.loadStack: each file being
// expanded is pushed onto a stack for the duration of its own expansion
// and popped via defer, so a cycle shows up as the same path already
// present on the stack rather than as unbounded recursion.
package preprocessor

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"smdc/diag"
)

// macro is one #define binding, object-like or function-like.
type macro struct {
	params   []string
	variadic bool
	funcLike bool
	body     string
}

// condFrame tracks one level of #if/#ifdef/#ifndef nesting.
type condFrame struct {
	// active is whether this frame's branch is currently emitting text,
	// which also requires every enclosing frame to be active.
	active     bool
	taken      bool // some branch in this chain has already been active
	sawElse    bool
	parentActive bool
}

// Preprocessor expands directives for one translation unit. __DATE__ and
// __TIME__ are captured once at construction and never refreshed, matching
// the "treated as immutable afterward" requirement for predefined macros.
type Preprocessor struct {
	includeDirs []string
	macros      map[string]*macro
	includeStack []string

	date string
	time string
}

// New constructs a Preprocessor. file is the path of the translation unit's
// top-level source, used to resolve "" includes relative to its directory
// and to seed the circular-include stack.
func New(file string, includeDirs []string) *Preprocessor {
	date, tm := captureBuildTimestamp()
	p := &Preprocessor{
		includeDirs: includeDirs,
		macros:      make(map[string]*macro),
		date:        date,
		time:        tm,
	}
	if file != "" {
		p.includeStack = []string{file}
	}
	return p
}

// Preprocess expands src, the top-level translation unit's text, using
// includeDirs for "" and <> lookups. This is the package's fixed entry
// point; New plus (*Preprocessor).Process gives callers that need a real
// filename (for __FILE__ and relative includes) more control.
func Preprocess(src string, includeDirs []string) (string, error) {
	return New("<input>", includeDirs).Process(src)
}

// Process expands the text of the file New was given, resolving ""
// includes relative to that file's directory.
func (p *Preprocessor) Process(src string) (string, error) {
	file := "<input>"
	if len(p.includeStack) > 0 {
		file = p.includeStack[len(p.includeStack)-1]
	}
	return p.expand(file, src)
}

func (p *Preprocessor) expand(file, src string) (string, error) {
	lines := strings.Split(src, "\n")
	var out strings.Builder
	var conds []condFrame

	active := func() bool {
		for _, c := range conds {
			if !c.active {
				return false
			}
		}
		return true
	}

	for lineNo, raw := range lines {
		line := raw
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			directive := strings.TrimSpace(trimmed[1:])
			span := diag.Span{File: file, Line: lineNo + 1}

			switch {
			case directive == "" :
				continue

			case hasWord(directive, "ifdef"):
				name := strings.TrimSpace(strings.TrimPrefix(directive, "ifdef"))
				_, defined := p.macros[name]
				conds = append(conds, condFrame{active: active() && defined, taken: defined, parentActive: active()})
				continue

			case hasWord(directive, "ifndef"):
				name := strings.TrimSpace(strings.TrimPrefix(directive, "ifndef"))
				_, defined := p.macros[name]
				conds = append(conds, condFrame{active: active() && !defined, taken: !defined, parentActive: active()})
				continue

			case hasWord(directive, "if"):
				expr := strings.TrimSpace(strings.TrimPrefix(directive, "if"))
				v, err := p.evalCondition(file, lineNo+1, expr)
				if err != nil {
					return "", err
				}
				conds = append(conds, condFrame{active: active() && v != 0, taken: v != 0, parentActive: active()})
				continue

			case hasWord(directive, "elif"):
				if len(conds) == 0 {
					return "", diag.New(diag.KindStrayEndif, span, "#elif without matching #if")
				}
				top := &conds[len(conds)-1]
				if top.sawElse {
					return "", diag.New(diag.KindElifAfterElse, span, "#elif after #else")
				}
				expr := strings.TrimSpace(strings.TrimPrefix(directive, "elif"))
				if top.taken {
					top.active = false
					continue
				}
				v, err := p.evalCondition(file, lineNo+1, expr)
				if err != nil {
					return "", err
				}
				top.active = top.parentActive && v != 0
				if top.active {
					top.taken = true
				}
				continue

			case directive == "else" || strings.HasPrefix(directive, "else"):
				if len(conds) == 0 {
					return "", diag.New(diag.KindStrayEndif, span, "#else without matching #if")
				}
				top := &conds[len(conds)-1]
				if top.sawElse {
					return "", diag.New(diag.KindDuplicateElse, span, "duplicate #else")
				}
				top.sawElse = true
				if top.taken {
					top.active = false
				} else {
					top.active = top.parentActive
					top.taken = top.active
				}
				continue

			case directive == "endif" || strings.HasPrefix(directive, "endif"):
				if len(conds) == 0 {
					return "", diag.New(diag.KindStrayEndif, span, "#endif without matching #if")
				}
				conds = conds[:len(conds)-1]
				continue
			}

			if !active() {
				continue
			}

			switch {
			case hasWord(directive, "include"):
				if err := p.handleInclude(file, lineNo+1, directive, &out); err != nil {
					return "", err
				}
				continue

			case hasWord(directive, "define"):
				p.handleDefine(strings.TrimSpace(strings.TrimPrefix(directive, "define")))
				continue

			case hasWord(directive, "undef"):
				name := strings.TrimSpace(strings.TrimPrefix(directive, "undef"))
				delete(p.macros, name)
				continue

			case hasWord(directive, "pragma"):
				continue

			case hasWord(directive, "error"):
				msg := strings.TrimSpace(strings.TrimPrefix(directive, "error"))
				return "", diag.New(diag.KindUnknown, span, "#error %s", msg)

			default:
				continue
			}
		}

		if !active() {
			out.WriteString("\n")
			continue
		}

		out.WriteString(p.expandLine(file, lineNo+1, line))
		out.WriteString("\n")
	}

	if len(conds) > 0 {
		return "", diag.New(diag.KindUnterminatedConditional, diag.Span{File: file, Line: len(lines)}, "unterminated #if")
	}
	return out.String(), nil
}

func hasWord(directive, word string) bool {
	if !strings.HasPrefix(directive, word) {
		return false
	}
	rest := directive[len(word):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '('
}

func (p *Preprocessor) handleInclude(file string, line int, directive string, out *strings.Builder) error {
	arg := strings.TrimSpace(strings.TrimPrefix(directive, "include"))
	span := diag.Span{File: file, Line: line}
	if len(arg) < 2 {
		return diag.New(diag.KindCannotReadSource, span, "malformed #include directive")
	}

	var name string
	var searchSelfDir bool
	switch {
	case arg[0] == '"' && strings.HasSuffix(arg, "\""):
		name = arg[1 : len(arg)-1]
		searchSelfDir = true
	case arg[0] == '<' && strings.HasSuffix(arg, ">"):
		name = arg[1 : len(arg)-1]
	default:
		return diag.New(diag.KindCannotReadSource, span, "malformed #include directive: %s", arg)
	}

	resolved, err := p.resolveInclude(file, name, searchSelfDir)
	if err != nil {
		return diag.New(diag.KindCannotReadSource, span, "%s", err.Error())
	}

	for _, onStack := range p.includeStack {
		if onStack == resolved {
			return diag.New(diag.KindCircularInclude, span, "circular include: %s -> %s", strings.Join(p.includeStack, " -> "), resolved)
		}
	}

	contents, err := os.ReadFile(resolved)
	if err != nil {
		return diag.New(diag.KindCannotReadSource, span, "cannot read %s: %v", resolved, err)
	}

	p.includeStack = append(p.includeStack, resolved)
	defer func() {
		p.includeStack = p.includeStack[:len(p.includeStack)-1]
	}()

	expanded, err := p.expand(resolved, string(contents))
	if err != nil {
		return err
	}
	out.WriteString(expanded)
	return nil
}

func (p *Preprocessor) resolveInclude(currentFile, name string, searchSelfDir bool) (string, error) {
	if searchSelfDir {
		candidate := filepath.Join(filepath.Dir(currentFile), name)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	for _, dir := range p.includeDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	return "", &os.PathError{Op: "include", Path: name, Err: os.ErrNotExist}
}

// handleDefine registers an object-like or function-like macro. Malformed
// definitions (no name, or a parameter list without ')') are silently
// ignored and register nothing; the C lexer and parser surface any
// resulting syntax error at its own, more specific span.
func (p *Preprocessor) handleDefine(rest string) {
	if rest == "" {
		return
	}
	i := 0
	for i < len(rest) && isIdentChar(rest[i]) {
		i++
	}
	name := rest[:i]
	if name == "" {
		return
	}

	if i < len(rest) && rest[i] == '(' {
		close := strings.IndexByte(rest[i:], ')')
		if close < 0 {
			return
		}
		paramList := rest[i+1 : i+close]
		body := strings.TrimSpace(rest[i+close+1:])
		var params []string
		variadic := false
		for _, part := range strings.Split(paramList, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if part == "..." {
				variadic = true
				continue
			}
			params = append(params, part)
		}
		p.macros[name] = &macro{params: params, variadic: variadic, funcLike: true, body: body}
		return
	}

	body := strings.TrimSpace(rest[i:])
	p.macros[name] = &macro{body: body}
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// expandLine substitutes predefined macros and user #define bindings in a
// single non-directive source line.
func (p *Preprocessor) expandLine(file string, line int, text string) string {
	return p.substituteMacros(file, line, text, nil)
}

// substituteMacros performs one left-to-right pass over text, replacing
// predefined and user macro invocations. active tracks macro names already
// being expanded on the current call stack, preventing infinite recursion
// on a macro that references itself.
func (p *Preprocessor) substituteMacros(file string, line int, text string, active map[string]bool) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		if !isIdentStart(c) {
			out.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(text) && isIdentChar(text[j]) {
			j++
		}
		word := text[i:j]

		switch word {
		case "__FILE__":
			out.WriteString(strconv.Quote(file))
			i = j
			continue
		case "__LINE__":
			out.WriteString(strconv.Itoa(line))
			i = j
			continue
		case "__DATE__":
			out.WriteString(strconv.Quote(p.date))
			i = j
			continue
		case "__TIME__":
			out.WriteString(strconv.Quote(p.time))
			i = j
			continue
		}

		if active[word] {
			out.WriteString(word)
			i = j
			continue
		}

		m, ok := p.macros[word]
		if !ok {
			out.WriteString(word)
			i = j
			continue
		}

		if !m.funcLike {
			nested := markActive(active, word)
			out.WriteString(p.substituteMacros(file, line, m.body, nested))
			i = j
			continue
		}

		k := j
		for k < len(text) && (text[k] == ' ' || text[k] == '\t') {
			k++
		}
		if k >= len(text) || text[k] != '(' {
			out.WriteString(word)
			i = j
			continue
		}
		args, after, ok := splitArgs(text, k)
		if !ok {
			out.WriteString(word)
			i = j
			continue
		}
		body := m.body
		for pi, pname := range m.params {
			val := ""
			if pi < len(args) {
				val = strings.TrimSpace(args[pi])
			}
			body = replaceIdent(body, pname, val)
		}
		if m.variadic && len(args) > len(m.params) {
			body = replaceIdent(body, "__VA_ARGS__", strings.Join(args[len(m.params):], ","))
		}
		nested := markActive(active, word)
		out.WriteString(p.substituteMacros(file, line, body, nested))
		i = after
	}
	return out.String()
}

func markActive(active map[string]bool, word string) map[string]bool {
	nested := make(map[string]bool, len(active)+1)
	for k := range active {
		nested[k] = true
	}
	nested[word] = true
	return nested
}

// splitArgs parses a parenthesized, comma-separated argument list starting
// at text[open] == '(', respecting nested parentheses.
func splitArgs(text string, open int) ([]string, int, bool) {
	depth := 0
	start := open + 1
	var args []string
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				args = append(args, text[start:i])
				return args, i + 1, true
			}
		case ',':
			if depth == 1 {
				args = append(args, text[start:i])
				start = i + 1
			}
		}
	}
	return nil, 0, false
}

func replaceIdent(text, name, val string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		if isIdentStart(text[i]) {
			j := i
			for j < len(text) && isIdentChar(text[j]) {
				j++
			}
			if text[i:j] == name {
				out.WriteString(val)
			} else {
				out.WriteString(text[i:j])
			}
			i = j
			continue
		}
		out.WriteByte(text[i])
		i++
	}
	return out.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// evalCondition folds a #if/#elif boolean expression. The subset supported
// covers what conditional compilation of target feature flags needs:
// integer literals, defined(NAME), !, &&, ||, ==, !=, and parentheses,
// after macro substitution.
func (p *Preprocessor) evalCondition(file string, line int, expr string) (int64, error) {
	expr = replaceDefined(expr, p.macros)
	expr = p.substituteMacros(file, line, expr, nil)
	toks := tokenizeCond(expr)
	v, rest, err := parseCondOr(toks, file, line)
	if err != nil {
		return 0, err
	}
	if len(rest) != 0 {
		return 0, diag.New(diag.KindUnterminatedConditional, diag.Span{File: file, Line: line}, "malformed #if expression")
	}
	return v, nil
}

func replaceDefined(expr string, macros map[string]*macro) string {
	var out strings.Builder
	i := 0
	for i < len(expr) {
		if strings.HasPrefix(expr[i:], "defined") && (i+7 >= len(expr) || !isIdentChar(expr[i+7])) {
			rest := strings.TrimLeft(expr[i+7:], " \t")
			name := ""
			consumed := 7
			if strings.HasPrefix(rest, "(") {
				close := strings.IndexByte(rest, ')')
				if close >= 0 {
					name = strings.TrimSpace(rest[1:close])
					consumed += (len(expr[i+7:]) - len(rest)) + close + 1
				}
			} else {
				j := 0
				for j < len(rest) && isIdentChar(rest[j]) {
					j++
				}
				name = rest[:j]
				consumed += (len(expr[i+7:]) - len(rest)) + j
			}
			if _, ok := macros[name]; ok {
				out.WriteString("1")
			} else {
				out.WriteString("0")
			}
			i += consumed
			continue
		}
		out.WriteByte(expr[i])
		i++
	}
	return out.String()
}

func tokenizeCond(expr string) []string {
	var toks []string
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')':
			toks = append(toks, string(c))
			i++
		case strings.HasPrefix(expr[i:], "&&"):
			toks = append(toks, "&&")
			i += 2
		case strings.HasPrefix(expr[i:], "||"):
			toks = append(toks, "||")
			i += 2
		case strings.HasPrefix(expr[i:], "=="):
			toks = append(toks, "==")
			i += 2
		case strings.HasPrefix(expr[i:], "!="):
			toks = append(toks, "!=")
			i += 2
		case c == '!':
			toks = append(toks, "!")
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(expr) && expr[j] >= '0' && expr[j] <= '9' {
				j++
			}
			toks = append(toks, expr[i:j])
			i = j
		case isIdentStart(c):
			j := i
			for j < len(expr) && isIdentChar(expr[j]) {
				j++
			}
			toks = append(toks, expr[i:j])
			i = j
		default:
			i++
		}
	}
	return toks
}

func parseCondOr(toks []string, file string, line int) (int64, []string, error) {
	l, rest, err := parseCondAnd(toks, file, line)
	if err != nil {
		return 0, nil, err
	}
	for len(rest) > 0 && rest[0] == "||" {
		r, rest2, err := parseCondAnd(rest[1:], file, line)
		if err != nil {
			return 0, nil, err
		}
		if l != 0 || r != 0 {
			l = 1
		} else {
			l = 0
		}
		rest = rest2
	}
	return l, rest, nil
}

func parseCondAnd(toks []string, file string, line int) (int64, []string, error) {
	l, rest, err := parseCondEq(toks, file, line)
	if err != nil {
		return 0, nil, err
	}
	for len(rest) > 0 && rest[0] == "&&" {
		r, rest2, err := parseCondEq(rest[1:], file, line)
		if err != nil {
			return 0, nil, err
		}
		if l != 0 && r != 0 {
			l = 1
		} else {
			l = 0
		}
		rest = rest2
	}
	return l, rest, nil
}

func parseCondEq(toks []string, file string, line int) (int64, []string, error) {
	l, rest, err := parseCondUnary(toks, file, line)
	if err != nil {
		return 0, nil, err
	}
	for len(rest) > 0 && (rest[0] == "==" || rest[0] == "!=") {
		op := rest[0]
		r, rest2, err := parseCondUnary(rest[1:], file, line)
		if err != nil {
			return 0, nil, err
		}
		eq := l == r
		if op == "==" {
			l = boolInt(eq)
		} else {
			l = boolInt(!eq)
		}
		rest = rest2
	}
	return l, rest, nil
}

func parseCondUnary(toks []string, file string, line int) (int64, []string, error) {
	if len(toks) > 0 && toks[0] == "!" {
		v, rest, err := parseCondUnary(toks[1:], file, line)
		if err != nil {
			return 0, nil, err
		}
		return boolInt(v == 0), rest, nil
	}
	return parseCondPrimary(toks, file, line)
}

func parseCondPrimary(toks []string, file string, line int) (int64, []string, error) {
	if len(toks) == 0 {
		return 0, nil, diag.New(diag.KindUnterminatedConditional, diag.Span{File: file, Line: line}, "unexpected end of #if expression")
	}
	if toks[0] == "(" {
		v, rest, err := parseCondOr(toks[1:], file, line)
		if err != nil {
			return 0, nil, err
		}
		if len(rest) == 0 || rest[0] != ")" {
			return 0, nil, diag.New(diag.KindUnterminatedConditional, diag.Span{File: file, Line: line}, "unbalanced parentheses in #if expression")
		}
		return v, rest[1:], nil
	}
	n, err := strconv.ParseInt(toks[0], 10, 64)
	if err != nil {
		// an undefined bare identifier evaluates to 0, matching the
		// usual C preprocessor convention
		return 0, toks[1:], nil
	}
	return n, toks[1:], nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// captureBuildTimestamp returns __DATE__ and __TIME__ in the C standard's
// "Mmm dd yyyy" / "hh:mm:ss" formats, sampled once so repeated macro
// expansions within a single Preprocessor always agree.
func captureBuildTimestamp() (string, string) {
	now := time.Now()
	return now.Format("Jan _2 2006"), now.Format("15:04:05")
}
