package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operator is a comparison operator.
type Operator string

const (
	OpEq       Operator = "=="
	OpNeq      Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
)

// Scope resolves field paths against the data being filtered.
type Scope interface {
	Lookup(path []string) (interface{}, bool)
}

// Eval reports whether e holds in s. A comparison involving a missing
// field, or operands of the wrong type for its operator, is false.
func Eval(e Expr, s Scope) bool {
	switch x := e.(type) {
	case *Logical:
		if x.Op == "AND" {
			return Eval(x.Left, s) && Eval(x.Right, s)
		}
		return Eval(x.Left, s) || Eval(x.Right, s)
	case *Not:
		return !Eval(x.X, s)
	case *Compare:
		return evalCompare(x, s)
	}
	panic(fmt.Sprintf("condition: unknown expression %T", e))
}

func evalCompare(c *Compare, s Scope) bool {
	left, ok := resolve(c.Left, s)
	if !ok {
		return false
	}
	right, ok := resolve(c.Right, s)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return equal(left, right)
	case OpNeq:
		return !equal(left, right)
	case OpGt, OpGte, OpLt, OpLte:
		l, lok := Number(left)
		r, rok := Number(right)
		if !lok || !rok {
			return false
		}
		switch c.Op {
		case OpGt:
			return l > r
		case OpGte:
			return l >= r
		case OpLt:
			return l < r
		}
		return l <= r
	case OpContains:
		ls, ok := left.(string)
		return ok && strings.Contains(ls, text(right))
	case OpMatches:
		ls, ok := left.(string)
		if !ok || c.re == nil {
			return false
		}
		return c.re.MatchString(ls)
	}
	return false
}

func resolve(op Operand, s Scope) (interface{}, bool) {
	switch o := op.(type) {
	case *Literal:
		return o.Value, true
	case *Field:
		return s.Lookup(o.Path)
	}
	return nil, false
}

// equal compares numbers by value, bools as bools, everything else by
// string rendering.
func equal(left, right interface{}) bool {
	if l, ok := Number(left); ok {
		if r, ok := Number(right); ok {
			return math.Abs(l-r) < 1e-9
		}
	}
	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		return ok && lb == rb
	}
	return text(left) == text(right)
}

func text(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Number coerces JSON numbers, Go numeric types and numeric strings to a
// finite float64.
func Number(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// MapScope resolves paths through nested maps.
type MapScope map[string]interface{}

func (m MapScope) Lookup(path []string) (interface{}, bool) {
	return lookupMap(m, path)
}

func lookupMap(m map[string]interface{}, path []string) (interface{}, bool) {
	if len(path) == 0 || m == nil {
		return nil, false
	}
	v, ok := m[path[0]]
	if !ok || len(path) == 1 {
		return v, ok
	}
	sub, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return lookupMap(sub, path[1:])
}
