package machine

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Table is Lua's one structured data type: a hybrid array/hash map. Integer
// keys 1..n that form a contiguous run from the start are kept in a dense
// Go slice (the "array part"); every other key, including non-contiguous
// integers, lives in a swiss.Map (the "hash part"), following the same
// dolthub/swiss-backed design the teacher's Map type uses for its single
// hash part. Splitting out the array part is what makes sequential access
// and the '#' length operator cheap for the common case of table-as-array.
type Table struct {
	array []Value // array[i] holds the value for key i+1; never re-sliced to drop a nil tail
	hash  *swiss.Map[Value, Value]
	meta  *Table

	gcHeader
}

var (
	_ Value        = (*Table)(nil)
	_ HasMetatable = (*Table)(nil)
)

// NewTable returns an empty table with initial capacity hints for its array
// and hash parts; either may be zero.
func NewTable(arrayHint, hashHint int) *Table {
	t := &Table{}
	if arrayHint > 0 {
		t.array = make([]Value, 0, arrayHint)
	}
	t.hash = swiss.NewMap[Value, Value](uint32(hashHint))
	return t
}

func (t *Table) String() string { return fmt.Sprintf("table: %p", t) }
func (t *Table) Type() string   { return "table" }
func (t *Table) Truthy() bool   { return true }

func (t *Table) Metatable() *Table { return t.meta }

// SetMetatable installs m as t's metatable, as used by setmetatable. The
// write barrier covers the case where t was already marked black this cycle
// and m is still white (e.g. a freshly built metatable table).
func (t *Table) SetMetatable(m *Table) {
	t.meta = m
	if m != nil {
		t.barrier(t, m)
	}
}

func (t *Table) markChildren(gc *GC) {
	for _, v := range t.array {
		if v != nil {
			gc.markValue(v)
		}
	}
	t.hash.Iter(func(k, v Value) bool {
		gc.markValue(k)
		gc.markValue(v)
		return false
	})
	if t.meta != nil {
		gc.markObject(t.meta)
	}
}

// Get returns the raw value stored at key, or Null if absent. It does not
// consult a metatable's __index; callers that want metamethod-aware lookup
// should use the vm's Index helper instead.
func (t *Table) Get(key Value) Value {
	if i, ok := arrayIndex(key); ok && i >= 1 && i <= len(t.array) {
		v := t.array[i-1]
		if v == nil {
			return Null
		}
		return v
	}
	key = normalizeKey(key)
	if v, ok := t.hash.Get(key); ok {
		return v
	}
	return Null
}

// Set stores val at key, moving keys between the array and hash parts as
// needed to keep the array part's "contiguous run from 1" invariant. Storing
// Null at a key removes it.
func (t *Table) Set(key, val Value) error {
	if _, isNil := key.(Nil); isNil {
		return fmt.Errorf("table index is nil")
	}
	if f, ok := key.(Float); ok && f != f { // NaN
		return fmt.Errorf("table index is NaN")
	}

	if i, ok := arrayIndex(key); ok && i >= 1 {
		switch {
		case i <= len(t.array):
			if _, isNil := val.(Nil); isNil {
				t.array[i-1] = nil
			} else {
				t.array[i-1] = val
				t.barrier(t, val)
			}
			return nil
		case i == len(t.array)+1:
			if _, isNil := val.(Nil); isNil {
				return nil // appending nil past the end is a no-op
			}
			t.array = append(t.array, val)
			t.barrier(t, val)
			t.migrateFromHash()
			return nil
		}
	}

	key = normalizeKey(key)
	if _, isNil := val.(Nil); isNil {
		t.hash.Delete(key)
		return nil
	}
	t.hash.Put(key, val)
	t.barrier(t, key)
	t.barrier(t, val)
	return nil
}

// migrateFromHash pulls any keys that now continue the array part's
// contiguous run out of the hash part, after an append extended it.
func (t *Table) migrateFromHash() {
	for {
		next := Int(len(t.array) + 1)
		v, ok := t.hash.Get(next)
		if !ok {
			return
		}
		t.hash.Delete(next)
		t.array = append(t.array, v)
	}
}

// Len implements the '#' operator: a border of the table, i.e. some n such
// that t[n] is non-nil and t[n+1] is nil. When the array part's tail holds
// no nils this is simply its length; Lua leaves the result of '#' on a table
// with holes unspecified, so trimming trailing nils here is a valid border.
func (t *Table) Len() int {
	n := len(t.array)
	for n > 0 && t.array[n-1] == nil {
		n--
	}
	return n
}

// Next supports the stateless `next` iterator used by `pairs`: given the
// previously-returned key (or Null to start), it returns the following
// key/value pair and true, or false when iteration is exhausted. It returns
// an error if key is not Null and not a key currently in the table. Table
// mutation during iteration beyond assigning to existing keys is undefined,
// matching the reference language's own contract.
func (t *Table) Next(key Value) (Value, Value, bool, error) {
	if _, isNull := key.(Nil); isNull {
		if idx := t.firstArrayIndex(0); idx >= 0 {
			return Int(idx + 1), t.array[idx], true, nil
		}
		k, v, ok := t.firstHashPair()
		return k, v, ok, nil
	}

	if i, ok := arrayIndex(key); ok && i >= 1 && i <= len(t.array) {
		if idx := t.firstArrayIndex(i); idx >= 0 {
			return Int(idx + 1), t.array[idx], true, nil
		}
		k, v, ok := t.firstHashPair()
		return k, v, ok, nil
	}

	return t.nextHashPair(normalizeKey(key))
}

func (t *Table) firstArrayIndex(from int) int {
	for i := from; i < len(t.array); i++ {
		if t.array[i] != nil {
			return i
		}
	}
	return -1
}

// firstHashPair and nextHashPair walk the hash part via swiss.Map's
// callback-based Iter. Lua does not specify key enumeration order, so
// re-walking the whole map per call (trading performance for a simple,
// correct stateless protocol) is acceptable for a `next`/`pairs`
// implementation; it mirrors the teacher's own Map type, which is likewise
// built directly atop swiss.Map without a persistent cursor of its own.
func (t *Table) firstHashPair() (Value, Value, bool) {
	var k, v Value
	found := false
	t.hash.Iter(func(ik, iv Value) bool {
		k, v = ik, iv
		found = true
		return true // stop after the first pair
	})
	return k, v, found
}

func (t *Table) nextHashPair(after Value) (Value, Value, bool, error) {
	var k, v Value
	found, seen := false, false
	t.hash.Iter(func(ik, iv Value) bool {
		if seen {
			k, v, found = ik, iv, true
			return true
		}
		if ik == after {
			seen = true
		}
		return false
	})
	if found {
		return k, v, true, nil
	}
	if seen {
		return Null, Null, false, nil
	}
	return Null, Null, false, fmt.Errorf("invalid key to 'next'")
}

// arrayIndex reports whether key denotes a positive integer usable as an
// array-part index: an Int directly, or a Float with an exact integral
// value (Lua's table indexing treats 2 and 2.0 as the same key).
func arrayIndex(key Value) (int, bool) {
	switch k := key.(type) {
	case Int:
		if k > 0 {
			return int(k), true
		}
	case Float:
		if i := int64(k); Float(i) == k && i > 0 {
			return int(i), true
		}
	}
	return 0, false
}

// normalizeKey canonicalizes a float key with an exact integral value to an
// Int, so that t[2] and t[2.0] address the same hash-part slot.
func normalizeKey(key Value) Value {
	if f, ok := key.(Float); ok {
		if i := int64(f); Float(i) == f {
			return Int(i)
		}
	}
	return key
}
