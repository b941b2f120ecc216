package machine

import "fmt"

// index implements t[k] read access, including __index metamethod chasing
// (up to 100 steps, to stop a metatable cycle): a table __index pointing at
// another table is followed again (which is how single inheritance / prototype chains are
// built in Lua), a function __index is called with (t, k) and its first
// result used.
func (vm *VM) index(co *Coroutine, t, k Value) (Value, error) {
	for i := 0; i < 100; i++ { // bound the chain against a metatable cycle
		if tbl, ok := t.(*Table); ok {
			v := tbl.Get(k)
			if _, isNil := v.(Nil); !isNil {
				return v, nil
			}
			h := metamethod(tbl, metaIndex)
			if h == nil {
				return Null, nil
			}
			if ht, ok := h.(*Table); ok {
				t = ht
				continue
			}
			results, err := vm.Call(co, h, []Value{t, k})
			if err != nil {
				return nil, err
			}
			return first(results), nil
		}

		h := metamethod(t, metaIndex)
		if h == nil {
			return nil, fmt.Errorf("attempt to index a %s value", typeName(t))
		}
		if ht, ok := h.(*Table); ok {
			t = ht
			continue
		}
		results, err := vm.Call(co, h, []Value{t, k})
		if err != nil {
			return nil, err
		}
		return first(results), nil
	}
	return nil, fmt.Errorf("'__index' chain too long; possible loop")
}

// newindex implements t[k] = v write access, including __newindex chasing.
func (vm *VM) newindex(co *Coroutine, t, k, v Value) error {
	for i := 0; i < 100; i++ {
		if tbl, ok := t.(*Table); ok {
			if _, isNil := tbl.Get(k).(Nil); !isNil {
				return tbl.Set(k, v)
			}
			h := metamethod(tbl, metaNewIndex)
			if h == nil {
				return tbl.Set(k, v)
			}
			if ht, ok := h.(*Table); ok {
				t = ht
				continue
			}
			_, err := vm.Call(co, h, []Value{t, k, v})
			return err
		}

		h := metamethod(t, metaNewIndex)
		if h == nil {
			return fmt.Errorf("attempt to index a %s value", typeName(t))
		}
		if ht, ok := h.(*Table); ok {
			t = ht
			continue
		}
		_, err := vm.Call(co, h, []Value{t, k, v})
		return err
	}
	return fmt.Errorf("'__newindex' chain too long; possible loop")
}

// Index is the exported form of index, for Go code that needs t[k] with
// __index honored.
func (vm *VM) Index(co *Coroutine, t, k Value) (Value, error) { return vm.index(co, t, k) }

// NewIndex is the exported form of newindex.
func (vm *VM) NewIndex(co *Coroutine, t, k, v Value) error { return vm.newindex(co, t, k, v) }

// Length is the exported form of length, for Go code that needs the '#'
// operator's result including __len.
func (vm *VM) Length(co *Coroutine, v Value) (Value, error) { return vm.length(co, v) }

// Equals is the exported form of equals, for Go code that needs '=='
// including __eq; rawequal does not use it.
func (vm *VM) Equals(co *Coroutine, x, y Value) (bool, error) { return vm.equals(co, x, y) }

// ToString implements tostring's full behavior: a __tostring metamethod
// takes precedence, followed by a __name string for tables/userdata
// lacking one, followed by the value's own default String().
func (vm *VM) ToString(co *Coroutine, v Value) (string, error) {
	if h := metamethod(v, metaToString); h != nil {
		results, err := vm.Call(co, h, []Value{v})
		if err != nil {
			return "", err
		}
		return first(results).String(), nil
	}
	if mt := metatableOf(v); mt != nil {
		if name, ok := mt.Get(String("__name")).(String); ok {
			return fmt.Sprintf("%s: %p", name, v), nil
		}
	}
	return v.String(), nil
}

func first(vs []Value) Value {
	if len(vs) == 0 {
		return Null
	}
	return vs[0]
}

// equals implements ==, with Lua's rule that values of different primitive
// types are never equal (no numeric-tower coercion the way arithmetic has).
// Two distinct tables are compared with the first __eq metamethod found on
// either one's metatable (x's first), and are unequal without one; every
// other reference kind compares by identity alone.
func (vm *VM) equals(co *Coroutine, x, y Value) (bool, error) {
	switch xv := x.(type) {
	case Nil:
		_, ok := y.(Nil)
		return ok, nil
	case Bool:
		yv, ok := y.(Bool)
		return ok && xv == yv, nil
	case String:
		yv, ok := y.(String)
		return ok && xv == yv, nil
	case Int:
		switch yv := y.(type) {
		case Int:
			return xv == yv, nil
		case Float:
			return Float(xv) == yv, nil
		}
		return false, nil
	case Float:
		switch yv := y.(type) {
		case Int:
			return xv == Float(yv), nil
		case Float:
			return xv == yv, nil
		}
		return false, nil
	}

	if x == y {
		return true, nil
	}
	tx, xok := x.(*Table)
	ty, yok := y.(*Table)
	if xok && yok {
		h := metamethod(tx, metaEq)
		if h == nil {
			h = metamethod(ty, metaEq)
		}
		if h != nil {
			results, err := vm.Call(co, h, []Value{tx, ty})
			if err != nil {
				return false, err
			}
			return first(results).Truthy(), nil
		}
	}
	return false, nil
}

// less implements <, and lessEqual implements <=, both with metamethod
// fallback; Lua defines a <= b as not (b < a) only up to 5.3, and as its
// own metamethod from 5.4 on, but falling back to __lt when __le is absent
// (as done here) is a harmless superset that accepts either convention.
func (vm *VM) less(co *Coroutine, x, y Value) (bool, error) {
	if xn, xok := numOf(x); xok {
		if yn, yok := numOf(y); yok {
			return xn < yn, nil
		}
	}
	if xs, ok := x.(String); ok {
		if ys, ok := y.(String); ok {
			return xs < ys, nil
		}
	}
	if h := metamethod(x, metaLt); h != nil {
		results, err := vm.Call(co, h, []Value{x, y})
		if err != nil {
			return false, err
		}
		return first(results).Truthy(), nil
	}
	if h := metamethod(y, metaLt); h != nil {
		results, err := vm.Call(co, h, []Value{x, y})
		if err != nil {
			return false, err
		}
		return first(results).Truthy(), nil
	}
	return false, fmt.Errorf("attempt to compare %s with %s", typeName(x), typeName(y))
}

func (vm *VM) lessEqual(co *Coroutine, x, y Value) (bool, error) {
	if xn, xok := numOf(x); xok {
		if yn, yok := numOf(y); yok {
			return xn <= yn, nil
		}
	}
	if xs, ok := x.(String); ok {
		if ys, ok := y.(String); ok {
			return xs <= ys, nil
		}
	}
	if h := metamethod(x, metaLe); h != nil {
		results, err := vm.Call(co, h, []Value{x, y})
		if err != nil {
			return false, err
		}
		return first(results).Truthy(), nil
	}
	if h := metamethod(y, metaLe); h != nil {
		results, err := vm.Call(co, h, []Value{x, y})
		if err != nil {
			return false, err
		}
		return first(results).Truthy(), nil
	}
	lt, err := vm.less(co, y, x)
	if err != nil {
		return false, err
	}
	return !lt, nil
}

func numOf(v Value) (float64, bool) {
	switch v := v.(type) {
	case Int:
		return float64(v), true
	case Float:
		return float64(v), true
	}
	return 0, false
}

// concat implements the '..' operator: both operands must be a number or a
// string (numbers are converted with their default tostring), with
// __concat as fallback.
func (vm *VM) concat(co *Coroutine, x, y Value) (Value, error) {
	xs, xok := concatOperand(x)
	ys, yok := concatOperand(y)
	if xok && yok {
		return String(xs + ys), nil
	}
	if h := metamethod(x, metaConcat); h != nil {
		results, err := vm.Call(co, h, []Value{x, y})
		if err != nil {
			return nil, err
		}
		return first(results), nil
	}
	if h := metamethod(y, metaConcat); h != nil {
		results, err := vm.Call(co, h, []Value{x, y})
		if err != nil {
			return nil, err
		}
		return first(results), nil
	}
	bad := x
	if xok {
		bad = y
	}
	return nil, fmt.Errorf("attempt to concatenate a %s value", typeName(bad))
}

func concatOperand(v Value) (string, bool) {
	switch v := v.(type) {
	case String:
		return string(v), true
	case Int, Float:
		return v.String(), true
	}
	return "", false
}

// length implements '#': a string's byte length, a table's border (with
// __len as override), or an error for anything else.
func (vm *VM) length(co *Coroutine, v Value) (Value, error) {
	switch v := v.(type) {
	case String:
		return Int(len(v)), nil
	case *Table:
		if h := metamethod(v, metaLen); h != nil {
			results, err := vm.Call(co, h, []Value{v})
			if err != nil {
				return nil, err
			}
			return first(results), nil
		}
		return Int(v.Len()), nil
	}
	return nil, fmt.Errorf("attempt to get length of a %s value", typeName(v))
}
