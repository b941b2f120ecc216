package stdlib

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/thara/vela/lang/machine"
)

func openMath(vm *machine.VM) {
	t := vm.NewTable(0, 8)
	t.Set(machine.String("huge"), machine.Float(math.Inf(1)))
	t.Set(machine.String("pi"), machine.Float(math.Pi))
	machine.Register(t, "floor", nativeMathFloor)
	machine.Register(t, "ceil", nativeMathCeil)
	machine.Register(t, "abs", nativeMathAbs)
	machine.Register(t, "max", nativeMathMax)
	machine.Register(t, "min", nativeMathMin)
	rng := rand.New(rand.NewSource(1))
	machine.Register(t, "random", nativeMathRandom(rng))
	machine.Register(t, "randomseed", nativeMathRandomSeed(rng))
	vm.Globals.Set(machine.String("math"), t)
}

func wantNumber(fn string, n int, co *machine.Coroutine, argCount, i int) (machine.Value, error) {
	v := co.Arg(argCount, i)
	switch v.(type) {
	case machine.Int, machine.Float:
		return v, nil
	}
	return nil, argError(fn, n, "number", v)
}

func nativeMathFloor(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	v, err := wantNumber("floor", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	if i, ok := v.(machine.Int); ok {
		co.Push(i)
		return 1, nil
	}
	co.Push(machine.Int(int64(math.Floor(machine.AsFloat(v)))))
	return 1, nil
}

func nativeMathCeil(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	v, err := wantNumber("ceil", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	if i, ok := v.(machine.Int); ok {
		co.Push(i)
		return 1, nil
	}
	co.Push(machine.Int(int64(math.Ceil(machine.AsFloat(v)))))
	return 1, nil
}

func nativeMathAbs(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	v, err := wantNumber("abs", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	if i, ok := v.(machine.Int); ok {
		if i < 0 {
			i = -i
		}
		co.Push(i)
		return 1, nil
	}
	co.Push(machine.Float(math.Abs(machine.AsFloat(v))))
	return 1, nil
}

func nativeMathMax(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 1 {
		return 0, fmt.Errorf("bad argument #1 to 'max' (value expected)")
	}
	best, err := wantNumber("max", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	for i := 1; i < argCount; i++ {
		v, err := wantNumber("max", i+1, co, argCount, i)
		if err != nil {
			return 0, err
		}
		if machine.AsFloat(v) > machine.AsFloat(best) {
			best = v
		}
	}
	co.Push(best)
	return 1, nil
}

func nativeMathMin(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 1 {
		return 0, fmt.Errorf("bad argument #1 to 'min' (value expected)")
	}
	best, err := wantNumber("min", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	for i := 1; i < argCount; i++ {
		v, err := wantNumber("min", i+1, co, argCount, i)
		if err != nil {
			return 0, err
		}
		if machine.AsFloat(v) < machine.AsFloat(best) {
			best = v
		}
	}
	co.Push(best)
	return 1, nil
}

// nativeMathRandom and nativeMathRandomSeed close over a *rand.Rand owned
// by this call to openMath, i.e. one per VM instance, per the design note
// against a package-level singleton RNG: two VMs running concurrently (or
// a test re-seeding one without disturbing another) never share state.
func nativeMathRandom(rng *rand.Rand) func(*machine.VM, *machine.Coroutine, int) (int, error) {
	return func(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
		switch argCount {
		case 0:
			co.Push(machine.Float(rng.Float64()))
			return 1, nil
		case 1:
			n, ok := machine.ToInt(co.Arg(argCount, 0))
			if !ok {
				return 0, argError("random", 1, "number", co.Arg(argCount, 0))
			}
			if n < 1 {
				return 0, fmt.Errorf("bad argument #1 to 'random' (interval is empty)")
			}
			co.Push(machine.Int(1 + rng.Int63n(n)))
			return 1, nil
		case 2:
			lo, ok1 := machine.ToInt(co.Arg(argCount, 0))
			hi, ok2 := machine.ToInt(co.Arg(argCount, 1))
			if !ok1 || !ok2 {
				return 0, argError("random", 1, "number", co.Arg(argCount, 0))
			}
			if lo > hi {
				return 0, fmt.Errorf("bad argument #2 to 'random' (interval is empty)")
			}
			co.Push(machine.Int(lo + rng.Int63n(hi-lo+1)))
			return 1, nil
		}
		return 0, fmt.Errorf("wrong number of arguments to 'random'")
	}
}

func nativeMathRandomSeed(rng *rand.Rand) func(*machine.VM, *machine.Coroutine, int) (int, error) {
	return func(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
		seed := int64(1)
		if argCount >= 1 {
			s, ok := machine.ToInt(co.Arg(argCount, 0))
			if !ok {
				return 0, argError("randomseed", 1, "number", co.Arg(argCount, 0))
			}
			seed = s
		}
		rng.Seed(seed)
		return 0, nil
	}
}
