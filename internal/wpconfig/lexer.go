package wpconfig

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokVariable
	tokString   // single-quoted or nowdoc, already unescaped
	tokTemplate // double-quoted or heredoc body, interpolated at evaluation time
	tokNumber
	tokOp
)

type token struct {
	kind tokenKind
	text string
	line int
}

func (t token) is(op string) bool {
	return t.kind == tokOp && t.text == op
}

func (t token) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

// operators ordered longest first so the scanner can match greedily
var operators = []string{
	"===", "!==", "<=>", "**=", "...", "<<<",
	"==", "!=", "<>", "<=", ">=", "&&", "||", "??", "::", "->", "=>",
	".=", "+=", "-=", "*=", "/=", "++", "--",
	"(", ")", "{", "}", "[", "]", ";", ",", ".", "=", "!", "?", ":",
	"<", ">", "+", "-", "*", "/", "@", "&", "|", "%", "^", "~", "\\",
}

type lexer struct {
	src  string
	pos  int
	line int
	toks []token
}

// lex splits PHP source (without the opening tag) into tokens. Scanning
// stops at a closing "?>" tag; anything after it is inline output.
func lex(src string) ([]token, error) {
	l := &lexer{src: src, line: 1}
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.src) {
			break
		}
		if strings.HasPrefix(l.src[l.pos:], "?>") {
			break
		}
		if err := l.next(); err != nil {
			return nil, err
		}
	}
	l.toks = append(l.toks, token{kind: tokEOF, line: l.line})
	return l.toks, nil
}

func (l *lexer) emit(kind tokenKind, text string) {
	l.toks = append(l.toks, token{kind: kind, text: text, line: l.line})
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '#' && !strings.HasPrefix(l.src[l.pos:], "#["):
			l.skipLineComment()
		case strings.HasPrefix(l.src[l.pos:], "//"):
			l.skipLineComment()
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				l.line += strings.Count(l.src[l.pos:], "\n")
				l.pos = len(l.src)
				return
			}
			l.line += strings.Count(l.src[l.pos:l.pos+2+end], "\n")
			l.pos += end + 4
		default:
			return
		}
	}
}

// skipLineComment consumes up to the newline or a closing tag, whichever comes first.
func (l *lexer) skipLineComment() {
	for l.pos < len(l.src) {
		if l.src[l.pos] == '\n' || strings.HasPrefix(l.src[l.pos:], "?>") {
			return
		}
		l.pos++
	}
}

func (l *lexer) next() error {
	c := l.src[l.pos]
	switch {
	case c == '\'':
		return l.singleQuoted()
	case c == '"':
		return l.doubleQuoted()
	case c == '$' && l.pos+1 < len(l.src) && isIdentStart(l.src[l.pos+1]):
		start := l.pos + 1
		l.pos = start
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		l.emit(tokVariable, l.src[start:l.pos])
		return nil
	case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		l.number()
		return nil
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		l.emit(tokIdent, l.src[start:l.pos])
		return nil
	}
	if strings.HasPrefix(l.src[l.pos:], "<<<") {
		return l.heredoc()
	}
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			l.emit(tokOp, op)
			return nil
		}
	}
	return fmt.Errorf("line %d: unexpected character %q", l.line, c)
}

func (l *lexer) singleQuoted() error {
	startLine := l.line
	var b strings.Builder
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src) && (l.src[l.pos+1] == '\'' || l.src[l.pos+1] == '\\'):
			b.WriteByte(l.src[l.pos+1])
			l.pos += 2
		case c == '\'':
			l.pos++
			l.toks = append(l.toks, token{kind: tokString, text: b.String(), line: startLine})
			return nil
		default:
			if c == '\n' {
				l.line++
			}
			b.WriteByte(c)
			l.pos++
		}
	}
	return fmt.Errorf("line %d: unterminated string", startLine)
}

func (l *lexer) doubleQuoted() error {
	startLine := l.line
	l.pos++
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '\\':
			l.pos += 2
			continue
		case '\n':
			l.line++
		case '"':
			raw := l.src[start:l.pos]
			l.pos++
			l.toks = append(l.toks, token{kind: tokTemplate, text: raw, line: startLine})
			return nil
		}
		l.pos++
	}
	return fmt.Errorf("line %d: unterminated string", startLine)
}

// heredoc handles both <<<ID (interpolated) and <<<'ID' (nowdoc) bodies.
func (l *lexer) heredoc() error {
	startLine := l.line
	l.pos += 3
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
	nowdoc := false
	quote := byte(0)
	if l.pos < len(l.src) && (l.src[l.pos] == '\'' || l.src[l.pos] == '"') {
		quote = l.src[l.pos]
		nowdoc = quote == '\''
		l.pos++
	}
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	label := l.src[start:l.pos]
	if label == "" {
		return fmt.Errorf("line %d: malformed heredoc", startLine)
	}
	if quote != 0 {
		l.pos++
	}
	nl := strings.IndexByte(l.src[l.pos:], '\n')
	if nl < 0 {
		return fmt.Errorf("line %d: malformed heredoc", startLine)
	}
	l.pos += nl + 1
	l.line++

	var lines []string
	for l.pos < len(l.src) {
		end := strings.IndexByte(l.src[l.pos:], '\n')
		var ln string
		if end < 0 {
			ln = l.src[l.pos:]
		} else {
			ln = l.src[l.pos : l.pos+end]
		}
		trimmed := strings.TrimLeft(ln, " \t")
		if strings.HasPrefix(trimmed, label) && (len(trimmed) == len(label) || !isIdentPart(trimmed[len(label)])) {
			indent := len(ln) - len(trimmed)
			l.pos += indent + len(label)
			body := make([]string, len(lines))
			for i, bl := range lines {
				if len(bl) >= indent {
					bl = bl[indent:]
				}
				body[i] = bl
			}
			kind := tokTemplate
			if nowdoc {
				kind = tokString
			}
			l.toks = append(l.toks, token{kind: kind, text: strings.Join(body, "\n"), line: startLine})
			return nil
		}
		lines = append(lines, ln)
		if end < 0 {
			break
		}
		l.pos += end + 1
		l.line++
	}
	return fmt.Errorf("line %d: unterminated heredoc %s", startLine, label)
}

func (l *lexer) number() {
	start := l.pos
	if strings.HasPrefix(l.src[l.pos:], "0x") || strings.HasPrefix(l.src[l.pos:], "0X") {
		l.pos += 2
		for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		l.emit(tokNumber, l.src[start:l.pos])
		return
	}
	seenDot, seenExp := false, false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isDigit(c) || c == '_':
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && !seenExp:
			seenExp = true
			if l.pos+1 < len(l.src) && (l.src[l.pos+1] == '+' || l.src[l.pos+1] == '-') {
				l.pos++
			}
		default:
			l.emit(tokNumber, l.src[start:l.pos])
			return
		}
		l.pos++
	}
	l.emit(tokNumber, l.src[start:l.pos])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
