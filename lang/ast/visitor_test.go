package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thara/vela/lang/ast"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/token"
)

func TestInspectVisitsEveryNode(t *testing.T) {
	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(fset, "test.vela", []byte(`
		local x = 1
		if x then
			print(x)
		end
	`))
	require.NoError(t, err)

	var kinds []string
	ast.Inspect(chunk, func(n ast.Node) bool {
		kinds = append(kinds, fName(n))
		return true
	})

	assert.Contains(t, kinds, "*ast.Chunk")
	assert.Contains(t, kinds, "*ast.LocalStmt")
	assert.Contains(t, kinds, "*ast.IfStmt")
	assert.Contains(t, kinds, "*ast.CallExpr")
}

func TestInspectSkipsPrunedSubtree(t *testing.T) {
	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(fset, "test.vela", []byte(`
		if true then
			local y = 1
		end
	`))
	require.NoError(t, err)

	var sawLocal bool
	ast.Inspect(chunk, func(n ast.Node) bool {
		if _, ok := n.(*ast.IfStmt); ok {
			return false // prune: should never reach the local inside
		}
		if _, ok := n.(*ast.LocalStmt); ok {
			sawLocal = true
		}
		return true
	})

	assert.False(t, sawLocal, "Inspect should not descend into a pruned subtree")
}

func fName(n ast.Node) string {
	switch n.(type) {
	case *ast.Chunk:
		return "*ast.Chunk"
	case *ast.Block:
		return "*ast.Block"
	case *ast.LocalStmt:
		return "*ast.LocalStmt"
	case *ast.IfStmt:
		return "*ast.IfStmt"
	case *ast.CallExpr:
		return "*ast.CallExpr"
	default:
		return "?"
	}
}
