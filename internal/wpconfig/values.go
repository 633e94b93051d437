package wpconfig

import (
	"math"
	"strconv"
	"strings"
)

// Values holds what a config file introduced: constants from define() and
// variables from top-level assignments.
type Values struct {
	Constants map[string]any
	Variables map[string]any
}

// Constant returns the string form of a defined constant.
func (v Values) Constant(name string) (string, bool) {
	val, ok := v.Constants[name]
	if !ok {
		return "", false
	}
	return toString(val), true
}

// Variable returns the string form of an assigned variable.
func (v Values) Variable(name string) (string, bool) {
	val, ok := v.Variables[name]
	if !ok {
		return "", false
	}
	return toString(val), true
}

// Flat merges variables and constants into one map keyed by name, the shape
// consumed by Settings decoding. Constants win on a name clash.
func (v Values) Flat() map[string]any {
	out := make(map[string]any, len(v.Constants)+len(v.Variables))
	for k, val := range v.Variables {
		out[k] = val
	}
	for k, val := range v.Constants {
		out[k] = val
	}
	return out
}

// toString follows PHP's string conversion for scalars.
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'G', 14, 64)
	}
	return ""
}

func toBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "0"
	case int64:
		return x != 0
	case float64:
		return x != 0
	}
	return false
}

func toInt(v any) int64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int64:
		return x
	case float64:
		return int64(x)
	case string:
		s := strings.TrimSpace(x)
		end := 0
		for end < len(s) && (isDigit(s[end]) || (end == 0 && (s[0] == '-' || s[0] == '+'))) {
			end++
		}
		n, _ := strconv.ParseInt(s[:end], 10, 64)
		return n
	}
	return 0
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return float64(toInt(v))
}

func isNumeric(v any) bool {
	switch x := v.(type) {
	case int64, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return err == nil && strings.TrimSpace(x) != ""
	}
	return false
}

// looseEqual implements the PHP 8 rules for == on scalars.
func looseEqual(a, b any) bool {
	switch {
	case a == nil && b == nil:
		return true
	case isBool(a) || isBool(b) || a == nil || b == nil:
		return toBool(a) == toBool(b)
	case isNumeric(a) && isNumeric(b):
		return toFloat(a) == toFloat(b)
	}
	return toString(a) == toString(b)
}

func strictEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case int64:
		y, ok := b.(int64)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	}
	return false
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func arith(op string, a, b any) any {
	_, af := a.(float64)
	_, bf := b.(float64)
	if af || bf || op == "/" {
		x, y := toFloat(a), toFloat(b)
		switch op {
		case "+":
			return x + y
		case "-":
			return x - y
		case "*":
			return x * y
		case "/":
			if y == 0 {
				return nil
			}
			r := x / y
			if r == math.Trunc(r) && !af && !bf {
				return int64(r)
			}
			return r
		case "%":
			if int64(y) == 0 {
				return nil
			}
			return int64(x) % int64(y)
		}
		return nil
	}
	x, y := toInt(a), toInt(b)
	switch op {
	case "+":
		return x + y
	case "-":
		return x - y
	case "*":
		return x * y
	case "%":
		if y == 0 {
			return nil
		}
		return x % y
	}
	return nil
}
