package machine

// hookMask is a bitset of the debug-hook events a coroutine's hook wants to
// be notified of, set by debug.sethook's mask string ("c"all, "r"eturn,
// "l"ine). The count event has no mask letter; a positive count argument
// enables it.
type hookMask uint8

const (
	hookCall hookMask = 1 << iota
	hookReturn
	hookLine
	hookCountEvt
)

func parseHookMask(s string) hookMask {
	var m hookMask
	for _, r := range s {
		switch r {
		case 'c':
			m |= hookCall
		case 'r':
			m |= hookReturn
		case 'l':
			m |= hookLine
		}
	}
	return m
}

func (m hookMask) String() string {
	s := ""
	if m&hookCall != 0 {
		s += "c"
	}
	if m&hookReturn != 0 {
		s += "r"
	}
	if m&hookLine != 0 {
		s += "l"
	}
	return s
}

// fireHook invokes co's debug hook with event and the current line (if
// applicable), guarding against reentrancy: a hook that itself triggers
// further hookable instructions does not recurse into itself.
func (vm *VM) fireHook(co *Coroutine, event string, line int32) {
	if co.hook == nil || co.inHook {
		return
	}
	if _, isNil := co.hook.(Nil); isNil {
		return
	}
	co.inHook = true
	defer func() { co.inHook = false }()

	args := []Value{String(event)}
	if line >= 0 {
		args = append(args, Int(line))
	} else {
		args = append(args, Null)
	}
	// A hook error is not propagated to the script it is observing; debug
	// hooks are a diagnostic side channel, not part of normal control flow.
	_, _ = vm.Call(co, co.hook, args)
}

// checkLineAndCountHooks is consulted by the dispatch loop between
// instructions, firing the "line" event on a line-number change and the
// "count" event every baseHookCount instructions.
func (vm *VM) checkLineAndCountHooks(co *Coroutine) {
	if co.hook == nil || co.hookMask == 0 {
		return
	}
	fr := co.currentFrame()
	if fr == nil {
		return
	}
	if co.hookMask&hookLine != 0 {
		line := fr.line()
		if line != co.lastHookLine {
			co.lastHookLine = line
			vm.fireHook(co, "line", line)
		}
	}
	if co.hookMask&hookCountEvt != 0 && co.baseHookCount > 0 {
		co.hookCount--
		if co.hookCount <= 0 {
			co.hookCount = co.baseHookCount
			vm.fireHook(co, "count", -1)
		}
	}
}
