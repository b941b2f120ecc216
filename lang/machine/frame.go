package machine

import "github.com/thara/vela/lang/compiler"

// frame records one active Lua call on a coroutine's call stack: the
// closure being run, its program counter, and where its local variables and
// temporaries begin on the shared value stack.
type frame struct {
	closure *Closure
	pc      int
	base    int // index into co.stack where this frame's slot 0 lives

	// varargBase/varargCount describe the extra arguments passed to a
	// vararg function beyond its declared fixed parameters; "..." reads
	// from here.
	varargBase  int
	varargCount int

	// wantResults is the number of results the caller asked for (-1 for
	// "as many as the callee returns"); it drives how CALL/CALLMULTI
	// adjusts the stack once this frame returns.
	wantResults int

	// retBase is where the caller expects this frame's first result to end
	// up once it returns (overwriting the callee and its arguments).
	retBase int

	isTail bool // true if this frame replaced its caller via a tail call

	// yieldWant is valid only while this frame is suspended inside a YIELD
	// instruction: the result count that instruction requested (-1 for
	// AllResults), consulted by deliverResume to know how many of the next
	// resume's arguments to push back onto the stack as YIELD's results.
	yieldWant int
}

// line reports the source line the frame is currently executing, used for
// runtime error messages.
func (fr *frame) line() int32 {
	if fr.closure == nil {
		return 0
	}
	return fr.closure.Proto.LineForPC(fr.pc)
}

func (fr *frame) code() []byte { return fr.closure.Proto.Code }

// proto is a convenience accessor used throughout the dispatch loop.
func (fr *frame) proto() *compiler.Proto { return fr.closure.Proto }
