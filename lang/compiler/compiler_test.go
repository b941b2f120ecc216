package compiler_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thara/vela/lang/compiler"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/token"
)

func compile(t *testing.T, src string) *compiler.Proto {
	t.Helper()

	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(fset, "test.vela", []byte(src))
	require.NoError(t, err)

	proto, err := compiler.Compile(fset, chunk)
	require.NoError(t, err)
	return proto
}

// TestTailCallEmitsTailcallOp checks that a call in tail position ("return
// f(...)") compiles to TAILCALL rather than CALL+RETURN, since that's the
// only thing that gives tail calls their constant call-stack-space property
// (see lang/machine's TestTailCallDoesNotGrowCallDepth for the runtime side
// of this guarantee).
func TestTailCallEmitsTailcallOp(t *testing.T) {
	proto := compile(t, `
		function countdown(n)
			if n <= 0 then
				return n
			end
			return countdown(n - 1)
		end
	`)
	require.Len(t, proto.Protos, 1)

	var out bytes.Buffer
	compiler.Disassemble(&out, proto.Protos[0])
	listing := out.String()

	assert.Contains(t, listing, "tailcall")
	assert.NotContains(t, listing, "tailcallmulti")
}

// TestTailCallMultiEmittedForMultiValueTailCall checks that "return f(g())",
// a tail call whose last argument is itself a multi-value call, compiles to
// TAILCALLMULTI rather than plain TAILCALL, since the argument count isn't
// known until g() actually runs.
func TestTailCallMultiEmittedForMultiValueTailCall(t *testing.T) {
	proto := compile(t, `
		function f(...)
			return ...
		end
		function g()
			return 1, 2
		end
		function h()
			return f(g())
		end
	`)
	require.Len(t, proto.Protos, 3)

	var out bytes.Buffer
	compiler.Disassemble(&out, proto.Protos[2])
	assert.Contains(t, out.String(), "tailcallmulti")
}

// TestBreakInLoopEmitsCloseUpval checks that a break statement nested inside
// a block that declares locals compiles to CLOSEUPVAL before the jump out of
// the loop, so any closure already created over those locals keeps its own
// snapshot instead of observing the loop's reused stack slot after the loop
// exits (see lang/machine's TestBreakClosesUpvalues for the runtime side).
func TestBreakInLoopEmitsCloseUpval(t *testing.T) {
	proto := compile(t, `
		fns = {}
		for i = 1, 5 do
			if i > 3 then
				break
			end
			local x = i
			fns[i] = function() return x end
		end
	`)

	var out bytes.Buffer
	compiler.Disassemble(&out, proto)
	assert.Contains(t, out.String(), "closeupval")
}
