package wpconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/danielbachhuber/host-check-command/internal/common"
)

// Interpreter evaluates the small subset of PHP found in wp-config.php and
// version.php files: constant definitions, scalar variable assignments and
// conditionals around them. It never executes includes, function
// definitions or anything with side effects outside its own scope.
// Unsupported statements are skipped and unsupported expressions yield null.
type Interpreter struct {
	consts  map[string]any
	vars    map[string]any
	funcs   map[string]*function
	defined []string
	getenv  func(string) (string, bool)
	logger  *common.Logger

	toks []token
	pos  int
	// exec is false while parsing code whose side effects must not apply:
	// untaken branches and short-circuited operands.
	exec bool

	// returned is set by a return statement; the rest of the enclosing
	// function body is parsed without executing.
	returned bool
	retVal   any
	depth    int
}

// maxCallDepth stops runaway recursion in user functions.
const maxCallDepth = 32

// function is a user function declared in the evaluated source. Its body is
// re-parsed from toks on every call.
type function struct {
	name   string
	params []param
	toks   []token
	body   int
}

type param struct {
	name string
	def  any
}

// NewInterpreter returns an interpreter with the given constants already
// defined. Predefined constants are not reported as new by Values.
func NewInterpreter(predefined map[string]any) *Interpreter {
	in := &Interpreter{
		consts: make(map[string]any, len(predefined)),
		vars:   map[string]any{},
		funcs:  map[string]*function{},
		getenv: os.LookupEnv,
		logger: common.GetLogger().WithComponent("wpconfig"),
	}
	for k, v := range predefined {
		in.consts[k] = v
	}
	return in
}

// SetEnvLookup replaces the environment used by getenv() and $_ENV.
func (in *Interpreter) SetEnvLookup(fn func(string) (string, bool)) {
	if fn != nil {
		in.getenv = fn
	}
}

// Eval runs src, which must not carry the opening <?php tag.
func (in *Interpreter) Eval(src string) error {
	toks, err := lex(src)
	if err != nil {
		return err
	}
	in.toks = toks
	in.pos = 0
	in.exec = true
	in.returned = false
	for in.peek().kind != tokEOF {
		if err := in.statement(true); err != nil {
			return err
		}
	}
	return nil
}

// Values returns every constant defined and every variable assigned by the
// evaluated source.
func (in *Interpreter) Values() Values {
	out := Values{
		Constants: make(map[string]any, len(in.defined)),
		Variables: make(map[string]any, len(in.vars)),
	}
	for _, name := range in.defined {
		out.Constants[name] = in.consts[name]
	}
	for k, v := range in.vars {
		out.Variables[k] = v
	}
	return out
}

func (in *Interpreter) peek() token { return in.toks[in.pos] }

func (in *Interpreter) peekAt(n int) token {
	if in.pos+n >= len(in.toks) {
		return in.toks[len(in.toks)-1]
	}
	return in.toks[in.pos+n]
}

func (in *Interpreter) advance() token {
	t := in.toks[in.pos]
	if t.kind != tokEOF {
		in.pos++
	}
	return t
}

func (in *Interpreter) expectOp(op string) error {
	t := in.advance()
	if !t.is(op) {
		return fmt.Errorf("line %d: expected %q, found %q", t.line, op, t.text)
	}
	return nil
}

// statement parses one statement; side effects only apply when exec is set,
// which lets untaken if-branches be parsed without running them.
func (in *Interpreter) statement(exec bool) error {
	exec = exec && !in.returned
	saved := in.exec
	in.exec = exec
	defer func() { in.exec = saved }()

	t := in.peek()
	switch {
	case t.is(";"), t.is("}"):
		in.advance()
		return nil
	case t.is("{"):
		in.advance()
		return in.block(exec)
	case t.isKeyword("if"):
		in.advance()
		return in.ifStatement(exec)
	case t.isKeyword("function") && in.peekAt(1).kind == tokIdent:
		in.advance()
		return in.functionDecl(exec)
	case t.isKeyword("return"):
		in.advance()
		return in.returnStatement(exec)
	case t.kind == tokVariable && isAssignOp(in.peekAt(1)):
		return in.assignStatement(exec)
	}
	if in.exprStatement() {
		return nil
	}
	in.skipStatement()
	return nil
}

// exprStatement evaluates a bare expression such as define(...) or
// "defined('X') || define('X', ...)". On a parse failure the position is
// restored and false is returned so the caller can skip the statement.
func (in *Interpreter) exprStatement() bool {
	start := in.pos
	startDefined := len(in.defined)
	if _, err := in.expr(); err != nil || in.endStatement() != nil {
		for _, name := range in.defined[startDefined:] {
			delete(in.consts, name)
		}
		in.defined = in.defined[:startDefined]
		in.pos = start
		return false
	}
	return true
}

func (in *Interpreter) block(exec bool) error {
	for {
		t := in.peek()
		if t.kind == tokEOF {
			return fmt.Errorf("line %d: unterminated block", t.line)
		}
		if t.is("}") {
			in.advance()
			return nil
		}
		if err := in.statement(exec); err != nil {
			return err
		}
	}
}

func (in *Interpreter) ifStatement(exec bool) error {
	taken := false
	for {
		if err := in.expectOp("("); err != nil {
			return err
		}
		in.exec = exec && !taken
		cond, err := in.expr()
		in.exec = exec
		if err != nil {
			return err
		}
		if err := in.expectOp(")"); err != nil {
			return err
		}
		run := exec && !taken && toBool(cond)
		if err := in.statement(run); err != nil {
			return err
		}
		taken = taken || run

		switch {
		case in.peek().isKeyword("elseif"):
			in.advance()
			continue
		case in.peek().isKeyword("else") && in.peekAt(1).isKeyword("if"):
			in.advance()
			in.advance()
			continue
		case in.peek().isKeyword("else"):
			in.advance()
			return in.statement(exec && !taken)
		}
		return nil
	}
}

// define records a constant. The first definition wins, as in PHP.
func (in *Interpreter) define(name string, val any, line int) bool {
	if !in.exec {
		return false
	}
	if _, exists := in.consts[name]; exists {
		in.logger.Debug("constant already defined, keeping first value", "name", name, "line", line)
		return false
	}
	in.consts[name] = val
	in.defined = append(in.defined, name)
	return true
}

func (in *Interpreter) assignStatement(exec bool) error {
	name := in.advance().text
	op := in.advance().text
	val, err := in.expr()
	if err != nil {
		return err
	}
	if err := in.endStatement(); err != nil {
		return err
	}
	if exec {
		in.assign(name, op, val)
	}
	return nil
}

// assign stores val, combined with the current value for compound
// operators, and returns what was stored.
func (in *Interpreter) assign(name, op string, val any) any {
	switch op {
	case ".=":
		val = toString(in.vars[name]) + toString(val)
	case "+=", "-=", "*=", "/=":
		val = arith(op[:1], in.vars[name], val)
	}
	in.vars[name] = val
	return val
}

// functionDecl records "function name($a, $b = 'x') { ... }". Type hints,
// by-reference markers and return types are accepted and ignored. A name
// that is already declared keeps its first body.
func (in *Interpreter) functionDecl(exec bool) error {
	nameTok := in.advance()
	fn := &function{name: strings.ToLower(nameTok.text), toks: in.toks}
	if err := in.expectOp("("); err != nil {
		return err
	}
	for !in.peek().is(")") {
		t := in.advance()
		switch {
		case t.kind == tokEOF:
			return fmt.Errorf("line %d: unterminated parameter list", t.line)
		case t.kind == tokVariable:
			p := param{name: t.text}
			if in.peek().is("=") {
				in.advance()
				def, err := in.withExec(false, in.expr)
				if err != nil {
					return err
				}
				p.def = def
			}
			fn.params = append(fn.params, p)
		}
		// type hints, "&", "..." and "," carry no value
	}
	in.advance()
	for !in.peek().is("{") {
		if t := in.advance(); t.kind == tokEOF {
			return fmt.Errorf("line %d: function %s has no body", t.line, nameTok.text)
		}
	}
	in.advance()
	fn.body = in.pos
	if err := in.skipBalanced("{", "}"); err != nil {
		return err
	}
	if !exec {
		return nil
	}
	if _, exists := in.funcs[fn.name]; exists {
		in.logger.Debug("function already declared, keeping first body", "name", nameTok.text, "line", nameTok.line)
		return nil
	}
	in.funcs[fn.name] = fn
	return nil
}

func (in *Interpreter) returnStatement(exec bool) error {
	var val any
	if !in.peek().is(";") && !in.peek().is("}") && in.peek().kind != tokEOF {
		v, err := in.expr()
		if err != nil {
			return err
		}
		val = v
	}
	if err := in.endStatement(); err != nil {
		return err
	}
	if exec {
		in.returned = true
		in.retVal = val
	}
	return nil
}

// invoke runs a user function with its own variable scope, as PHP functions
// do not see the caller's variables. Constants stay shared.
func (in *Interpreter) invoke(fn *function, args []any, line int) any {
	if !in.exec {
		return nil
	}
	if in.depth >= maxCallDepth {
		in.logger.Debug("call depth exceeded, evaluating to null", "function", fn.name, "line", line)
		return nil
	}

	vars := make(map[string]any, len(fn.params))
	for i, p := range fn.params {
		if i < len(args) {
			vars[p.name] = args[i]
		} else {
			vars[p.name] = p.def
		}
	}

	toks, pos, callerVars := in.toks, in.pos, in.vars
	returned, retVal := in.returned, in.retVal
	in.toks, in.pos, in.vars = fn.toks, fn.body, vars
	in.returned, in.retVal = false, nil
	in.depth++

	err := in.block(true)
	result := in.retVal

	in.depth--
	in.toks, in.pos, in.vars = toks, pos, callerVars
	in.returned, in.retVal = returned, retVal

	if err != nil {
		in.logger.Debug("function body could not be evaluated", "function", fn.name, "line", line, "error", err)
		return nil
	}
	return result
}

// endStatement accepts ";" or an implicit end before "}" / EOF / "?>".
func (in *Interpreter) endStatement() error {
	t := in.peek()
	switch {
	case t.is(";"):
		in.advance()
		return nil
	case t.is("}"), t.kind == tokEOF:
		return nil
	}
	return fmt.Errorf("line %d: expected \";\", found %q", t.line, t.text)
}

// skipStatement discards tokens up to the end of an unsupported statement,
// including any braced body it owns.
func (in *Interpreter) skipStatement() {
	first := in.peek()
	depth := 0
	for {
		t := in.peek()
		switch {
		case t.kind == tokEOF:
			return
		case t.is("(") || t.is("["):
			depth++
		case t.is(")") || t.is("]"):
			depth--
		case t.is("{"):
			depth++
		case t.is("}"):
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				in.advance()
				in.logger.Debug("skipped unsupported statement", "line", first.line, "starts_with", first.text)
				return
			}
		case t.is(";") && depth == 0:
			in.advance()
			in.logger.Debug("skipped unsupported statement", "line", first.line, "starts_with", first.text)
			return
		}
		in.advance()
	}
}

func isAssignOp(t token) bool {
	if t.kind != tokOp {
		return false
	}
	switch t.text {
	case "=", ".=", "+=", "-=", "*=", "/=":
		return true
	}
	return false
}

// stripOpenTag removes a leading "<?php" tag and the whitespace around it.
func stripOpenTag(src string) string {
	s := strings.TrimLeft(src, " \t\r\n\ufeff")
	if len(s) >= 5 && strings.EqualFold(s[:5], "<?php") {
		return strings.TrimLeft(s[5:], " \t\r\n")
	}
	return src
}
