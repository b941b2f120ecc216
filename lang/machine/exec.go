package machine

import (
	"fmt"

	"github.com/thara/vela/lang/compiler"
)

// step executes exactly one bytecode instruction on co's topmost frame,
// advancing its program counter and mutating co's stack and frame list as
// the instruction requires. It is the single dispatch point the rest of
// the package's opcode handling lives behind, in the spirit of the
// teacher's own single switch-based interpreter loop, generalized here from
// a tree-walking evaluator to a flat stack-machine fetch/decode/execute
// cycle.
func (vm *VM) step(co *Coroutine) error {
	fr := co.frames[len(co.frames)-1]
	code := fr.code()
	op := compiler.Op(code[fr.pc])
	pc := fr.pc
	fr.pc++

	switch op {
	case compiler.NOP:
		// nothing

	case compiler.CONSTNIL:
		co.push(Null)
	case compiler.CONSTTRUE:
		co.push(Bool(true))
	case compiler.CONSTFALSE:
		co.push(Bool(false))
	case compiler.CONST:
		k := fr.proto().Consts[code[fr.pc]]
		fr.pc++
		co.push(constToValue(k))

	case compiler.GETLOCAL:
		slot := int(code[fr.pc])
		fr.pc++
		co.push(co.stack[fr.base+slot])
	case compiler.SETLOCAL:
		slot := int(code[fr.pc])
		fr.pc++
		co.stack[fr.base+slot] = co.pop()

	case compiler.GETUPVAL:
		idx := int(code[fr.pc])
		fr.pc++
		co.push(fr.closure.Upvals[idx].get())
	case compiler.SETUPVAL:
		idx := int(code[fr.pc])
		fr.pc++
		fr.closure.Upvals[idx].set(co.pop())

	case compiler.GETTABUP:
		upIdx, kIdx := int(code[fr.pc]), int(code[fr.pc+1])
		fr.pc += 2
		t := fr.closure.Upvals[upIdx].get()
		k := constToValue(fr.proto().Consts[kIdx])
		v, err := vm.index(co, t, k)
		if err != nil {
			return wrapRuntimeError(vm, co, err)
		}
		co.push(v)
	case compiler.SETTABUP:
		upIdx, kIdx := int(code[fr.pc]), int(code[fr.pc+1])
		fr.pc += 2
		v := co.pop()
		t := fr.closure.Upvals[upIdx].get()
		k := constToValue(fr.proto().Consts[kIdx])
		if err := vm.newindex(co, t, k, v); err != nil {
			return wrapRuntimeError(vm, co, err)
		}

	case compiler.GETTABLE:
		k := co.pop()
		t := co.pop()
		v, err := vm.index(co, t, k)
		if err != nil {
			return wrapRuntimeError(vm, co, err)
		}
		co.push(v)
	case compiler.SETTABLE:
		v := co.pop()
		k := co.pop()
		t := co.pop()
		if err := vm.newindex(co, t, k, v); err != nil {
			return wrapRuntimeError(vm, co, err)
		}
	case compiler.NEWTABLE:
		t := NewTable(0, 0)
		vm.gc.track(t, 48)
		co.push(t)
	case compiler.SETLIST:
		n, start := int(code[fr.pc]), int(code[fr.pc+1])
		fr.pc += 2
		if n == compiler.AllResults {
			n = co.lastResultCount
		}
		vals := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			vals[i] = co.pop()
		}
		t := co.pop().(*Table)
		for i, v := range vals {
			t.Set(Int(start+i), v)
		}

	case compiler.LT, compiler.LE, compiler.GT, compiler.GE, compiler.EQL, compiler.NEQ:
		y := co.pop()
		x := co.pop()
		result, err := vm.compare(co, op, x, y)
		if err != nil {
			return wrapRuntimeError(vm, co, err)
		}
		co.push(Bool(result))

	case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.IDIV,
		compiler.MOD, compiler.POW, compiler.BAND, compiler.BOR, compiler.BXOR,
		compiler.SHL, compiler.SHR:
		y := co.pop()
		x := co.pop()
		v, err := vm.binaryArith(co, op, x, y)
		if err != nil {
			return wrapRuntimeError(vm, co, err)
		}
		co.push(v)

	case compiler.CONCAT:
		y := co.pop()
		x := co.pop()
		v, err := vm.concat(co, x, y)
		if err != nil {
			return wrapRuntimeError(vm, co, err)
		}
		co.push(v)

	case compiler.LEN:
		x := co.pop()
		v, err := vm.length(co, x)
		if err != nil {
			return wrapRuntimeError(vm, co, err)
		}
		co.push(v)

	case compiler.UNM:
		x := co.pop()
		v, err := vm.unaryMinus(co, x)
		if err != nil {
			return wrapRuntimeError(vm, co, err)
		}
		co.push(v)

	case compiler.BNOT:
		x := co.pop()
		i, ok := toInt(x)
		if !ok {
			return wrapRuntimeError(vm, co, fmt.Errorf("attempt to perform bitwise operation on a %s value", typeName(x)))
		}
		co.push(Int(^i))

	case compiler.NOT:
		x := co.pop()
		co.push(Bool(!x.Truthy()))

	case compiler.POP:
		co.pop()
	case compiler.DUP:
		v := co.stack[len(co.stack)-1]
		co.push(v)
	case compiler.SWAP:
		n := len(co.stack)
		co.stack[n-1], co.stack[n-2] = co.stack[n-2], co.stack[n-1]
	case compiler.ROTATE:
		n := int(code[fr.pc])
		fr.pc++
		idx := len(co.stack) - n
		v := co.stack[idx]
		copy(co.stack[idx:], co.stack[idx+1:])
		co.stack[len(co.stack)-1] = v

	case compiler.JMP:
		off := readOffset(code, fr.pc)
		fr.pc = fr.pc + 2 + off
	case compiler.JMPIFFALSE:
		off := readOffset(code, fr.pc)
		cond := co.stack[len(co.stack)-1]
		if !cond.Truthy() {
			fr.pc = fr.pc + 2 + off
		} else {
			fr.pc += 2
		}
	case compiler.LOOP:
		off := readOffset(code, fr.pc)
		fr.pc = fr.pc + 2 - off

	case compiler.CLOSURE:
		protoIdx := int(code[fr.pc])
		fr.pc++
		sub := fr.proto().Protos[protoIdx]
		cl := &Closure{Proto: sub, Upvals: make([]*Upvalue, len(sub.Upvals))}
		for i, uv := range sub.Upvals {
			isLocal, idx := code[fr.pc] != 0, int(code[fr.pc+1])
			fr.pc += 2
			if uv.IsLocal != isLocal || uv.Index != idx {
				// defensive: encoder and this decoder must agree; trust uv as
				// authoritative if they ever diverge.
				isLocal, idx = uv.IsLocal, uv.Index
			}
			if isLocal {
				cl.Upvals[i] = co.open.capture(vm.gc, &co.stack, fr.base+idx)
			} else {
				cl.Upvals[i] = fr.closure.Upvals[idx]
			}
		}
		vm.gc.track(cl, 64)
		co.push(cl)

	case compiler.CALL:
		n, r := int(code[fr.pc]), int(code[fr.pc+1])
		fr.pc += 2
		want := resultWant(r)
		base := len(co.stack) - n - 1
		if err := vm.callAt(co, base, n, want); err != nil {
			return err
		}

	case compiler.CALLMULTI:
		m, r := int(code[fr.pc]), int(code[fr.pc+1])
		fr.pc += 2
		n := m + co.lastResultCount
		want := resultWant(r)
		base := len(co.stack) - n - 1
		if err := vm.callAt(co, base, n, want); err != nil {
			return err
		}

	case compiler.TAILCALL:
		n := int(code[fr.pc])
		fr.pc++
		base := len(co.stack) - n - 1
		if err := vm.tailCallAt(co, base, n); err != nil {
			return err
		}

	case compiler.TAILCALLMULTI:
		m := int(code[fr.pc])
		fr.pc++
		n := m + co.lastResultCount
		base := len(co.stack) - n - 1
		if err := vm.tailCallAt(co, base, n); err != nil {
			return err
		}

	case compiler.RETURN:
		n := int(code[fr.pc])
		fr.pc++
		if n == compiler.AllResults {
			n = co.lastResultCount
		}
		vals := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			vals[i] = co.pop()
		}
		vm.returnFrom(co, vals)

	case compiler.VARARG:
		n := int(code[fr.pc])
		fr.pc++
		if n == compiler.AllResults {
			for i := 0; i < fr.varargCount; i++ {
				co.push(co.stack[fr.varargBase+i])
			}
			co.lastResultCount = fr.varargCount
		} else {
			for i := 0; i < n; i++ {
				if i < fr.varargCount {
					co.push(co.stack[fr.varargBase+i])
				} else {
					co.push(Null)
				}
			}
		}

	case compiler.YIELD:
		n, r := int(code[fr.pc]), int(code[fr.pc+1])
		fr.pc += 2
		if n == compiler.AllResults {
			n = co.lastResultCount
		}
		vals := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			vals[i] = co.pop()
		}
		fr.yieldWant = resultWant(r)
		co.xfer = vals
		co.status = StatusSuspended

	case compiler.CLOSEUPVAL:
		co.open.closeFrom(len(co.stack) - 1)
		co.pop()

	default:
		return wrapRuntimeError(vm, co, fmt.Errorf("internal error: unimplemented opcode %s", op))
	}

	_ = pc
	return nil
}

func resultWant(r int) int {
	if r == compiler.AllResults {
		return -1
	}
	return r
}

func readOffset(code []byte, operandPos int) int {
	return int(uint16(code[operandPos]) | uint16(code[operandPos+1])<<8)
}

func (vm *VM) compare(co *Coroutine, op compiler.Op, x, y Value) (bool, error) {
	switch op {
	case compiler.EQL:
		return vm.equals(co, x, y)
	case compiler.NEQ:
		eq, err := vm.equals(co, x, y)
		return !eq, err
	case compiler.LT:
		return vm.less(co, x, y)
	case compiler.LE:
		return vm.lessEqual(co, x, y)
	case compiler.GT:
		return vm.less(co, y, x)
	case compiler.GE:
		return vm.lessEqual(co, y, x)
	}
	return false, fmt.Errorf("internal error: unhandled comparison %s", op)
}

func opToArith(op compiler.Op) arithOp {
	switch op {
	case compiler.ADD:
		return opAdd
	case compiler.SUB:
		return opSub
	case compiler.MUL:
		return opMul
	case compiler.DIV:
		return opDiv
	case compiler.IDIV:
		return opIDiv
	case compiler.MOD:
		return opMod
	case compiler.POW:
		return opPow
	case compiler.BAND:
		return opBAnd
	case compiler.BOR:
		return opBOr
	case compiler.BXOR:
		return opBXor
	case compiler.SHL:
		return opShl
	case compiler.SHR:
		return opShr
	}
	panic("internal error: not an arithmetic opcode")
}

func (vm *VM) binaryArith(co *Coroutine, op compiler.Op, x, y Value) (Value, error) {
	a := op
	ao := opToArith(a)

	xn, xok := toNumber(x)
	yn, yok := toNumber(y)
	if xok && yok {
		v, err := arith(ao, xn, yn)
		if err == nil {
			return v, nil
		}
		return nil, err
	}

	name := arithMeta[ao]
	if h := metamethod(x, name); h != nil {
		results, err := vm.Call(co, h, []Value{x, y})
		if err != nil {
			return nil, err
		}
		return first(results), nil
	}
	if h := metamethod(y, name); h != nil {
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
	return nil, fmt.Errorf("attempt to perform arithmetic on a %s value", typeName(bad))
}

func (vm *VM) unaryMinus(co *Coroutine, x Value) (Value, error) {
	switch x := x.(type) {
	case Int:
		return -x, nil
	case Float:
		return -x, nil
	}
	if n, ok := toNumber(x); ok {
		switch n := n.(type) {
		case Int:
			return -n, nil
		case Float:
			return -n, nil
		}
	}
	if h := metamethod(x, metaUnm); h != nil {
		results, err := vm.Call(co, h, []Value{x, x})
		if err != nil {
			return nil, err
		}
		return first(results), nil
	}
	return nil, fmt.Errorf("attempt to perform arithmetic on a %s value", typeName(x))
}
