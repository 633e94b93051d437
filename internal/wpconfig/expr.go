package wpconfig

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// expr parses and evaluates one expression. Values are PHP scalars mapped to
// Go: string, int64, float64, bool and nil.
func (in *Interpreter) expr() (any, error) {
	return in.ternary()
}

func (in *Interpreter) ternary() (any, error) {
	cond, err := in.coalesce()
	if err != nil {
		return nil, err
	}
	for in.peek().is("?") {
		in.advance()
		truthy := toBool(cond)
		// short form: a ?: b
		if in.peek().is(":") {
			in.advance()
			alt, err := in.withExec(!truthy, in.coalesce)
			if err != nil {
				return nil, err
			}
			if !truthy {
				cond = alt
			}
			continue
		}
		yes, err := in.withExec(truthy, in.ternary)
		if err != nil {
			return nil, err
		}
		if err := in.expectOp(":"); err != nil {
			return nil, err
		}
		no, err := in.withExec(!truthy, in.coalesce)
		if err != nil {
			return nil, err
		}
		if truthy {
			cond = yes
		} else {
			cond = no
		}
	}
	return cond, nil
}

func (in *Interpreter) coalesce() (any, error) {
	left, err := in.logicalOr()
	if err != nil {
		return nil, err
	}
	if !in.peek().is("??") {
		return left, nil
	}
	in.advance()
	right, err := in.withExec(left == nil, in.coalesce)
	if err != nil {
		return nil, err
	}
	if left == nil {
		return right, nil
	}
	return left, nil
}

func (in *Interpreter) logicalOr() (any, error) {
	left, err := in.logicalAnd()
	if err != nil {
		return nil, err
	}
	for in.peek().is("||") || in.peek().isKeyword("or") {
		in.advance()
		l := toBool(left)
		right, err := in.withExec(!l, in.logicalAnd)
		if err != nil {
			return nil, err
		}
		left = l || toBool(right)
	}
	return left, nil
}

func (in *Interpreter) logicalAnd() (any, error) {
	left, err := in.equality()
	if err != nil {
		return nil, err
	}
	for in.peek().is("&&") || in.peek().isKeyword("and") {
		in.advance()
		l := toBool(left)
		right, err := in.withExec(l, in.equality)
		if err != nil {
			return nil, err
		}
		left = l && toBool(right)
	}
	return left, nil
}

func (in *Interpreter) equality() (any, error) {
	left, err := in.relational()
	if err != nil {
		return nil, err
	}
	for {
		t := in.peek()
		if t.kind != tokOp {
			return left, nil
		}
		switch t.text {
		case "==", "!=", "<>", "===", "!==":
		default:
			return left, nil
		}
		in.advance()
		right, err := in.relational()
		if err != nil {
			return nil, err
		}
		switch t.text {
		case "==":
			left = looseEqual(left, right)
		case "!=", "<>":
			left = !looseEqual(left, right)
		case "===":
			left = strictEqual(left, right)
		case "!==":
			left = !strictEqual(left, right)
		}
	}
}

func (in *Interpreter) relational() (any, error) {
	left, err := in.concat()
	if err != nil {
		return nil, err
	}
	for {
		t := in.peek()
		if t.kind != tokOp {
			return left, nil
		}
		switch t.text {
		case "<", ">", "<=", ">=":
		default:
			return left, nil
		}
		in.advance()
		right, err := in.concat()
		if err != nil {
			return nil, err
		}
		a, b := toFloat(left), toFloat(right)
		switch t.text {
		case "<":
			left = a < b
		case ">":
			left = a > b
		case "<=":
			left = a <= b
		case ">=":
			left = a >= b
		}
	}
}

func (in *Interpreter) concat() (any, error) {
	left, err := in.additive()
	if err != nil {
		return nil, err
	}
	for in.peek().is(".") {
		in.advance()
		right, err := in.additive()
		if err != nil {
			return nil, err
		}
		left = toString(left) + toString(right)
	}
	return left, nil
}

func (in *Interpreter) additive() (any, error) {
	left, err := in.multiplicative()
	if err != nil {
		return nil, err
	}
	for in.peek().is("+") || in.peek().is("-") {
		op := in.advance().text
		right, err := in.multiplicative()
		if err != nil {
			return nil, err
		}
		left = arith(op, left, right)
	}
	return left, nil
}

func (in *Interpreter) multiplicative() (any, error) {
	left, err := in.unary()
	if err != nil {
		return nil, err
	}
	for in.peek().is("*") || in.peek().is("/") || in.peek().is("%") {
		op := in.advance().text
		right, err := in.unary()
		if err != nil {
			return nil, err
		}
		left = arith(op, left, right)
	}
	return left, nil
}

func (in *Interpreter) unary() (any, error) {
	t := in.peek()
	switch {
	case t.is("!"):
		in.advance()
		v, err := in.unary()
		if err != nil {
			return nil, err
		}
		return !toBool(v), nil
	case t.is("-"):
		in.advance()
		v, err := in.unary()
		if err != nil {
			return nil, err
		}
		return arith("-", int64(0), v), nil
	case t.is("+"), t.is("@"):
		in.advance()
		return in.unary()
	case t.is("(") && in.peekAt(1).kind == tokIdent && in.peekAt(2).is(")") && isCast(in.peekAt(1).text):
		in.advance()
		cast := strings.ToLower(in.advance().text)
		in.advance()
		v, err := in.unary()
		if err != nil {
			return nil, err
		}
		return castTo(cast, v), nil
	}
	return in.postfix()
}

func (in *Interpreter) postfix() (any, error) {
	v, err := in.primary()
	if err != nil {
		return nil, err
	}
	for in.peek().is("[") {
		in.advance()
		if _, err := in.expr(); err != nil {
			return nil, err
		}
		if err := in.expectOp("]"); err != nil {
			return nil, err
		}
		// arrays are not modelled; any subscript yields null
		v = nil
	}
	return v, nil
}

func (in *Interpreter) primary() (any, error) {
	t := in.advance()
	switch t.kind {
	case tokString:
		return t.text, nil
	case tokTemplate:
		return in.interpolate(t.text), nil
	case tokNumber:
		return parseNumber(t.text), nil
	case tokVariable:
		if (t.text == "_ENV" || t.text == "_SERVER") && in.peek().is("[") {
			return in.superglobal()
		}
		if isAssignOp(in.peek()) {
			// assignment used as a value, as in if ($v = getenv('X'))
			op := in.advance().text
			val, err := in.expr()
			if err != nil {
				return nil, err
			}
			if !in.exec {
				return val, nil
			}
			return in.assign(t.text, op, val), nil
		}
		return in.vars[t.text], nil
	case tokIdent:
		return in.identifier(t)
	case tokOp:
		switch t.text {
		case "(":
			v, err := in.expr()
			if err != nil {
				return nil, err
			}
			return v, in.expectOp(")")
		case "[":
			return nil, in.skipBalanced("[", "]")
		}
	}
	return nil, fmt.Errorf("line %d: unexpected token %q", t.line, t.text)
}

// superglobal resolves $_ENV['X'] and $_SERVER['X'] against the process
// environment, which is what the PHP CLI populates them from.
func (in *Interpreter) superglobal() (any, error) {
	in.advance()
	key, err := in.expr()
	if err != nil {
		return nil, err
	}
	if err := in.expectOp("]"); err != nil {
		return nil, err
	}
	if v, ok := in.getenv(toString(key)); ok {
		return v, nil
	}
	return nil, nil
}

func (in *Interpreter) identifier(t token) (any, error) {
	lower := strings.ToLower(t.text)
	switch lower {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	case "array":
		if in.peek().is("(") {
			in.advance()
			return nil, in.skipBalanced("(", ")")
		}
	}
	if in.peek().is("(") {
		in.advance()
		args, err := in.argList()
		if err != nil {
			return nil, err
		}
		return in.call(lower, args, t.line), nil
	}
	if in.peek().is("::") {
		in.advance()
		in.advance()
		return nil, nil
	}
	if v, ok := in.consts[t.text]; ok {
		return v, nil
	}
	in.logger.Debug("undefined constant", "name", t.text, "line", t.line)
	return nil, nil
}

// argList parses arguments after an already consumed "(".
func (in *Interpreter) argList() ([]any, error) {
	var args []any
	if in.peek().is(")") {
		in.advance()
		return args, nil
	}
	for {
		v, err := in.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		switch t := in.advance(); {
		case t.is(","):
			if in.peek().is(")") {
				in.advance()
				return args, nil
			}
		case t.is(")"):
			return args, nil
		default:
			return nil, fmt.Errorf("line %d: expected \",\" or \")\", found %q", t.line, t.text)
		}
	}
}

func (in *Interpreter) skipBalanced(open, close string) error {
	depth := 1
	for depth > 0 {
		t := in.advance()
		switch {
		case t.kind == tokEOF:
			return fmt.Errorf("line %d: unbalanced %q", t.line, open)
		case t.is(open):
			depth++
		case t.is(close):
			depth--
		}
	}
	return nil
}

// withExec runs fn with side effects enabled only when run is true and the
// surrounding context is executing.
func (in *Interpreter) withExec(run bool, fn func() (any, error)) (any, error) {
	saved := in.exec
	in.exec = saved && run
	defer func() { in.exec = saved }()
	return fn()
}

// builtins lists the PHP functions call evaluates itself.
var builtins = map[string]bool{
	"define": true, "defined": true, "constant": true, "getenv": true,
	"dirname": true, "basename": true, "isset": true, "empty": true,
	"strtolower": true, "strtoupper": true, "trim": true, "rtrim": true,
	"filter_var": true, "realpath": true, "intval": true, "boolval": true,
	"strval": true, "strpos": true, "function_exists": true,
}

func (in *Interpreter) call(name string, args []any, line int) any {
	if fn, ok := in.funcs[name]; ok {
		return in.invoke(fn, args, line)
	}
	arg := func(i int) any {
		if i < len(args) {
			return args[i]
		}
		return nil
	}
	switch name {
	case "define":
		if len(args) < 2 {
			return false
		}
		return in.define(toString(args[0]), args[1], line)
	case "defined":
		_, ok := in.consts[toString(arg(0))]
		return ok
	case "constant":
		return in.consts[toString(arg(0))]
	case "getenv":
		if v, ok := in.getenv(toString(arg(0))); ok {
			return v
		}
		return false
	case "dirname":
		levels := int64(1)
		if len(args) > 1 {
			levels = toInt(args[1])
		}
		p := toString(arg(0))
		for i := int64(0); i < levels; i++ {
			p = phpDirname(p)
		}
		return p
	case "basename":
		p := strings.TrimRight(toString(arg(0)), "/")
		if p == "" {
			return ""
		}
		return path.Base(p)
	case "isset":
		for _, a := range args {
			if a == nil {
				return false
			}
		}
		return len(args) > 0
	case "empty":
		return !toBool(arg(0))
	case "strtolower":
		return strings.ToLower(toString(arg(0)))
	case "strtoupper":
		return strings.ToUpper(toString(arg(0)))
	case "trim":
		return strings.TrimSpace(toString(arg(0)))
	case "rtrim":
		if len(args) > 1 {
			return strings.TrimRight(toString(args[0]), toString(args[1]))
		}
		return strings.TrimRight(toString(arg(0)), " \t\n\r\x00\x0B")
	case "filter_var", "realpath":
		return arg(0)
	case "intval":
		return toInt(arg(0))
	case "boolval":
		return toBool(arg(0))
	case "strval":
		return toString(arg(0))
	case "strpos":
		if i := strings.Index(toString(arg(0)), toString(arg(1))); i >= 0 {
			return int64(i)
		}
		return false
	case "function_exists":
		fn := strings.ToLower(toString(arg(0)))
		_, user := in.funcs[fn]
		return user || builtins[fn]
	}
	in.logger.Debug("unsupported function call evaluates to null", "function", name, "line", line)
	return nil
}

// phpDirname mirrors PHP's dirname() for forward-slash paths.
func phpDirname(p string) string {
	if p == "" {
		return "."
	}
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return path.Dir(trimmed)
}

// interpolate expands escape sequences and simple variables in a
// double-quoted string body.
func (in *Interpreter) interpolate(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw):
			i++
			switch raw[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'v':
				b.WriteByte('\v')
			case 'f':
				b.WriteByte('\f')
			case 'e':
				b.WriteByte(0x1b)
			case '\\', '$', '"':
				b.WriteByte(raw[i])
			case 'x':
				j := i + 1
				for j < len(raw) && j < i+3 && isHexDigit(raw[j]) {
					j++
				}
				if j == i+1 {
					b.WriteString(`\x`)
					continue
				}
				n, _ := strconv.ParseUint(raw[i+1:j], 16, 8)
				b.WriteByte(byte(n))
				i = j - 1
			default:
				if raw[i] >= '0' && raw[i] <= '7' {
					j := i
					for j < len(raw) && j < i+3 && raw[j] >= '0' && raw[j] <= '7' {
						j++
					}
					n, _ := strconv.ParseUint(raw[i:j], 8, 16)
					b.WriteByte(byte(n))
					i = j - 1
					continue
				}
				b.WriteByte('\\')
				b.WriteByte(raw[i])
			}
		case c == '$' && i+1 < len(raw) && isIdentStart(raw[i+1]):
			j := i + 1
			for j < len(raw) && isIdentPart(raw[j]) {
				j++
			}
			b.WriteString(toString(in.vars[raw[i+1:j]]))
			i = j - 1
		case c == '{' && i+2 < len(raw) && raw[i+1] == '$':
			end := strings.IndexByte(raw[i:], '}')
			name := ""
			if end > 0 {
				name = raw[i+2 : i+end]
			}
			if end < 0 || !isSimpleName(name) {
				b.WriteByte(c)
				continue
			}
			b.WriteString(toString(in.vars[name]))
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isSimpleName(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func isCast(s string) bool {
	switch strings.ToLower(s) {
	case "string", "int", "integer", "bool", "boolean", "float", "double":
		return true
	}
	return false
}

func castTo(kind string, v any) any {
	switch kind {
	case "string":
		return toString(v)
	case "int", "integer":
		return toInt(v)
	case "bool", "boolean":
		return toBool(v)
	default:
		return toFloat(v)
	}
}

func parseNumber(s string) any {
	s = strings.ReplaceAll(s, "_", "")
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, _ := strconv.ParseInt(s[2:], 16, 64)
		return n
	}
	if strings.ContainsAny(s, ".eE") {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	return n
}
