// Package ast defines the types to represent the abstract syntax tree (AST)
// of the language.
//
// The shape of this package - the Node/Expr/Stmt split, the fmt.Formatter
// based pretty-printing, the Visitor/Walk pattern - is adapted from the
// teacher repository's lang/ast package, generalized here for this
// language's own statement and expression grammar.
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thara/vela/lang/token"
)

// Node represents any node in the AST.
type Node interface {
	// Every Node implements the fmt.Formatter interface so they can print a
	// short description of themselves. Only the 'v' and 's' verbs are
	// supported; the '#' flag additionally prints child-count information.
	fmt.Formatter

	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)

	// Walk enters each child node, implementing the Visitor pattern.
	Walk(v Visitor)
}

// Expr represents an expression in the AST.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a statement in the AST.
type Stmt interface {
	Node

	// BlockEnding reports whether the statement may only appear as the last
	// statement of a block (return, break, goto).
	BlockEnding() bool
}

// Name is an identifier occurrence.
type Name struct {
	NamePos token.Pos
	Name    string
}

func (n *Name) Format(f fmt.State, verb rune) { format(f, verb, n, "name "+n.Name, nil) }
func (n *Name) Span() (start, end token.Pos) {
	return n.NamePos, n.NamePos + token.Pos(len(n.Name))
}
func (n *Name) Walk(_ Visitor) {}

// Chunk is the root node of a parsed file, the same as a Block except it
// additionally tracks the file name and the position of the EOF token (so
// that empty files still get a valid span).
type Chunk struct {
	Name  string
	Block *Block
	EOF   token.Pos
}

func (n *Chunk) Format(f fmt.State, verb rune) { format(f, verb, n, "chunk "+n.Name, nil) }
func (n *Chunk) Span() (start, end token.Pos) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}
func (n *Chunk) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

// Block is a sequence of statements delimited by some enclosing construct:
// a chunk, a do-end, a function body, a loop body, an if/elseif/else branch.
type Block struct {
	Start token.Pos
	End   token.Pos
	Stmts []Stmt
}

func (n *Block) Format(f fmt.State, verb rune) {
	format(f, verb, n, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

func format(f fmt.State, verb rune, n Node, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}

	label = strings.ReplaceAll(label, "\r\n", "⏎")
	label = strings.ReplaceAll(label, "\n", "⏎")
	label = strings.ReplaceAll(label, "\t", "⭾")

	if w, ok := f.Width(); ok {
		minus, plus := f.Flag('-'), f.Flag('+')
		runes := []rune(label)
		switch {
		case len(runes) >= w:
			runes = runes[:w]
		case minus:
			runes = append(runes, []rune(strings.Repeat(" ", w-len(runes)))...)
		case !plus:
			runes = append([]rune(strings.Repeat(" ", w-len(runes))), runes...)
		}
		label = string(runes)
	}

	fmt.Fprint(f, label)
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprint(f, " {")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "%s=%d", k, counts[k])
		}
		fmt.Fprint(f, "}")
	}
}
