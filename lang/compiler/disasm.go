package compiler

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of p and, recursively, every
// nested prototype it owns. It is used by the CLI's disasm command and by
// tests that assert on generated bytecode shape.
func Disassemble(w io.Writer, p *Proto) {
	disassemble(w, p, "")
}

func disassemble(w io.Writer, p *Proto, indent string) {
	fmt.Fprintf(w, "%sfunction %s (%d params%s, %d upvalues, maxstack %d)\n",
		indent, protoLabel(p), p.NumParams, varargSuffix(p.IsVararg), len(p.Upvals), p.MaxStack)

	code := p.Code
	for pc := 0; pc < len(code); {
		op := Op(code[pc])
		line := p.LineForPC(pc)
		switch {
		case hasJumpOperand(op):
			off := int16(uint16(code[pc+1]) | uint16(code[pc+2])<<8)
			fmt.Fprintf(w, "%s%4d  [%d]  %-12s %+d\n", indent, pc, line, op, off)
			pc += 3
		case op == CLOSURE:
			protoIdx := code[pc+1]
			fmt.Fprintf(w, "%s%4d  [%d]  %-12s %d\n", indent, pc, line, op, protoIdx)
			pc += 2
			if int(protoIdx) < len(p.Protos) {
				for range p.Protos[protoIdx].Upvals {
					pc += 2
				}
			}
		default:
			n := operandCount(op)
			operands := code[pc+1 : pc+1+n]
			fmt.Fprintf(w, "%s%4d  [%d]  %-12s % d\n", indent, pc, line, op, operands)
			pc += 1 + n
		}
	}

	for i, sub := range p.Protos {
		fmt.Fprintf(w, "%s-- proto %d --\n", indent, i)
		disassemble(w, sub, indent+"  ")
	}
}

func protoLabel(p *Proto) string {
	if p.Name == "" {
		return "<anonymous>"
	}
	return p.Name
}

func varargSuffix(isVararg bool) string {
	if isVararg {
		return "+"
	}
	return ""
}
