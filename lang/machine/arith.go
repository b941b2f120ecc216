package machine

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// arithOp identifies one of the binary arithmetic/bitwise operators the VM
// dispatches on; it doubles as an index key for error messages.
type arithOp uint8

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opIDiv
	opMod
	opPow
	opBAnd
	opBOr
	opBXor
	opShl
	opShr
)

// minInt and maxInt are small generic min/max helpers over any integer
// type; grounded on the constraints.Ordered pattern the
// teacher's dependency set already pulls in via golang.org/x/exp/constraints
// rather than hand duplicating a min/max per numeric type.
func minInt[T constraints.Integer](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func maxInt[T constraints.Integer](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// toNumber coerces v to a number following Lua's arithmetic coercion rule:
// numbers pass through, and strings are parsed if they look like a complete
// numeral. Any other value fails.
func toNumber(v Value) (Value, bool) {
	switch v := v.(type) {
	case Int, Float:
		return v, true
	case String:
		return parseNumber(strings.TrimSpace(string(v)))
	}
	return nil, false
}

func parseNumber(s string) (Value, bool) {
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") ||
		strings.HasPrefix(s, "-0x") || strings.HasPrefix(s, "-0X") {
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return Int(i), true
		}
		if u, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return Int(u), true
		}
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f), true
	}
	return nil, false
}

// toInt coerces v to an exact integer, as required by the bitwise
// operators: a Float must have no fractional part.
func toInt(v Value) (int64, bool) {
	switch v := v.(type) {
	case Int:
		return int64(v), true
	case Float:
		i := int64(v)
		if Float(i) == v {
			return i, true
		}
	case String:
		if n, ok := parseNumber(strings.TrimSpace(string(v))); ok {
			return toInt(n)
		}
	}
	return 0, false
}

// arith performs a binary arithmetic/bitwise operator on two already-number
// operands (the caller handles string coercion and metamethod fallback).
// Integer operations stay integer except for '/', and '^' which are always
// float, matching Lua 5.3+'s two-subtype number model.
func arith(op arithOp, x, y Value) (Value, error) {
	switch op {
	case opDiv:
		return Float(asFloat(x) / asFloat(y)), nil
	case opPow:
		return Float(math.Pow(asFloat(x), asFloat(y))), nil
	}

	xi, xIsInt := x.(Int)
	yi, yIsInt := y.(Int)
	if xIsInt && yIsInt {
		switch op {
		case opAdd:
			return xi + yi, nil
		case opSub:
			return xi - yi, nil
		case opMul:
			return xi * yi, nil
		case opIDiv:
			if yi == 0 {
				return nil, errDivByZero
			}
			return Int(floorDivInt(int64(xi), int64(yi))), nil
		case opMod:
			if yi == 0 {
				return nil, errDivByZero
			}
			return Int(floorModInt(int64(xi), int64(yi))), nil
		case opBAnd:
			return xi & yi, nil
		case opBOr:
			return xi | yi, nil
		case opBXor:
			return xi ^ yi, nil
		case opShl:
			return Int(shiftLeft(int64(xi), int64(yi))), nil
		case opShr:
			return Int(shiftLeft(int64(xi), -int64(yi))), nil
		}
	}

	switch op {
	case opBAnd, opBOr, opBXor, opShl, opShr:
		xint, xok := toInt(x)
		yint, yok := toInt(y)
		if !xok || !yok {
			return nil, errNoIntRepr
		}
		return arith(op, Int(xint), Int(yint))
	}

	xf, yf := asFloat(x), asFloat(y)
	switch op {
	case opAdd:
		return Float(xf + yf), nil
	case opSub:
		return Float(xf - yf), nil
	case opMul:
		return Float(xf * yf), nil
	case opIDiv:
		return Float(math.Floor(xf / yf)), nil
	case opMod:
		return Float(floorModFloat(xf, yf)), nil
	}
	return nil, errUnsupportedArith
}

// ToNumber is the exported form of toNumber, used by the standard library's
// tonumber.
func ToNumber(v Value) (Value, bool) { return toNumber(v) }

// ToInt is the exported form of toInt.
func ToInt(v Value) (int64, bool) { return toInt(v) }

// AsFloat is the exported form of asFloat, valid only once the caller has
// established v is a number (e.g. via ToNumber).
func AsFloat(v Value) float64 { return asFloat(v) }

func asFloat(v Value) float64 {
	switch v := v.(type) {
	case Int:
		return float64(v)
	case Float:
		return float64(v)
	}
	return math.NaN()
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorModInt(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func floorModFloat(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// shiftLeft implements Lua's shift semantics: shifting by >= 64 in either
// direction yields 0, and a negative count reverses the direction
// (logical, not arithmetic, shift).
func shiftLeft(x, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(x) << uint(n))
	}
	return int64(uint64(x) >> uint(-n))
}

var (
	errDivByZero        = arithError("attempt to perform 'n%%0'")
	errNoIntRepr         = arithError("number has no integer representation")
	errUnsupportedArith = arithError("attempt to perform arithmetic on a non-number value")
)

type arithError string

func (e arithError) Error() string { return string(e) }
