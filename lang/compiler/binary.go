package compiler

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/thara/vela/lang/token"
)

// magic identifies a compiled bytecode file; the Version byte follows it.
var magic = [5]byte{'V', 'E', 'L', 'A', 0}

// WriteBinary serializes proto (normally the top-level chunk's Proto) to w
// in this package's versioned bytecode format, recursively writing its
// nested function prototypes. The encoding favors simplicity over density:
// unsigned/signed LEB128 varints for lengths and counts, little-endian
// fixed-width floats, length-prefixed strings.
func WriteBinary(w io.Writer, proto *Proto) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}
	e.bytes(magic[:])
	e.byte(Version)
	e.proto(proto)
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// ReadBinary deserializes a Proto previously written by WriteBinary.
func ReadBinary(r io.Reader) (*Proto, error) {
	br := bufio.NewReader(r)
	d := &decoder{r: br}
	var got [5]byte
	d.bytes(got[:])
	if d.err == nil && got != magic {
		d.err = fmt.Errorf("compiler: not a bytecode file (bad magic)")
	}
	version := d.byte()
	if d.err == nil && version != Version {
		d.err = fmt.Errorf("compiler: bytecode version %d, expected %d", version, Version)
	}
	if d.err != nil {
		return nil, d.err
	}
	p := d.proto()
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

type encoder struct {
	w   *bufio.Writer
	err error
	buf [binary.MaxVarintLen64]byte
}

func (e *encoder) bytes(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) byte(b byte) { e.bytes([]byte{b}) }

func (e *encoder) uvarint(x uint64) {
	n := binary.PutUvarint(e.buf[:], x)
	e.bytes(e.buf[:n])
}

func (e *encoder) varint(x int64) {
	n := binary.PutVarint(e.buf[:], x)
	e.bytes(e.buf[:n])
}

func (e *encoder) str(s string) {
	e.uvarint(uint64(len(s)))
	e.bytes([]byte(s))
}

func (e *encoder) proto(p *Proto) {
	e.str(p.Source)
	e.str(p.Name)
	e.uvarint(uint64(p.Line))
	e.uvarint(uint64(p.NumParams))
	e.boolean(p.IsVararg)
	e.uvarint(uint64(p.MaxStack))

	e.uvarint(uint64(len(p.Code)))
	e.bytes(p.Code)

	e.uvarint(uint64(len(p.Lines)))
	for _, l := range p.Lines {
		e.varint(int64(l))
	}

	e.uvarint(uint64(len(p.Consts)))
	for _, k := range p.Consts {
		e.constant(k)
	}

	e.uvarint(uint64(len(p.Upvals)))
	for _, uv := range p.Upvals {
		e.boolean(uv.IsLocal)
		e.uvarint(uint64(uv.Index))
		e.str(uv.Name)
	}

	e.uvarint(uint64(len(p.Locals)))
	for _, l := range p.Locals {
		e.str(l.Name)
		e.uvarint(uint64(l.StartPC))
		e.uvarint(uint64(l.EndPC))
		e.boolean(l.IsCaptured)
		e.str(l.Attrib)
	}

	e.uvarint(uint64(len(p.Protos)))
	for _, sub := range p.Protos {
		e.proto(sub)
	}
}

func (e *encoder) boolean(b bool) {
	if b {
		e.byte(1)
	} else {
		e.byte(0)
	}
}

func (e *encoder) constant(k Const) {
	e.byte(byte(k.Kind))
	switch k.Kind {
	case ConstBool:
		e.boolean(k.Bool)
	case ConstInt:
		e.varint(k.Int)
	case ConstFloat:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(k.Float))
		e.bytes(buf[:])
	case ConstString:
		e.str(k.Str)
	}
}

type decoder struct {
	r   *bufio.Reader
	err error
}

func (d *decoder) bytes(b []byte) {
	if d.err != nil {
		return
	}
	_, d.err = io.ReadFull(d.r, b)
}

func (d *decoder) byte() byte {
	var b [1]byte
	d.bytes(b[:])
	return b[0]
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	x, err := binary.ReadUvarint(d.r)
	if err != nil {
		d.err = err
	}
	return x
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	x, err := binary.ReadVarint(d.r)
	if err != nil {
		d.err = err
	}
	return x
}

func (d *decoder) str() string {
	n := d.uvarint()
	if d.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	d.bytes(b)
	return string(b)
}

func (d *decoder) boolean() bool { return d.byte() != 0 }

func (d *decoder) proto() *Proto {
	p := &Proto{}
	p.Source = d.str()
	p.Name = d.str()
	p.Line = token.Pos(d.uvarint())
	p.NumParams = int(d.uvarint())
	p.IsVararg = d.boolean()
	p.MaxStack = int(d.uvarint())

	codeLen := d.uvarint()
	p.Code = make([]byte, codeLen)
	d.bytes(p.Code)

	lineCount := d.uvarint()
	p.Lines = make([]int32, lineCount)
	for i := range p.Lines {
		p.Lines[i] = int32(d.varint())
	}

	constCount := d.uvarint()
	p.Consts = make([]Const, constCount)
	for i := range p.Consts {
		p.Consts[i] = d.constant()
	}

	upvalCount := d.uvarint()
	p.Upvals = make([]UpvalDesc, upvalCount)
	for i := range p.Upvals {
		p.Upvals[i].IsLocal = d.boolean()
		p.Upvals[i].Index = int(d.uvarint())
		p.Upvals[i].Name = d.str()
	}

	localCount := d.uvarint()
	p.Locals = make([]LocalDesc, localCount)
	for i := range p.Locals {
		p.Locals[i].Name = d.str()
		p.Locals[i].StartPC = int(d.uvarint())
		p.Locals[i].EndPC = int(d.uvarint())
		p.Locals[i].IsCaptured = d.boolean()
		p.Locals[i].Attrib = d.str()
	}

	protoCount := d.uvarint()
	p.Protos = make([]*Proto, protoCount)
	for i := range p.Protos {
		p.Protos[i] = d.proto()
	}

	return p
}

func (d *decoder) constant() Const {
	kind := ConstKind(d.byte())
	switch kind {
	case ConstBool:
		return Const{Kind: kind, Bool: d.boolean()}
	case ConstInt:
		return Const{Kind: kind, Int: d.varint()}
	case ConstFloat:
		var buf [8]byte
		d.bytes(buf[:])
		return Const{Kind: kind, Float: math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))}
	case ConstString:
		return Const{Kind: kind, Str: d.str()}
	default:
		return Const{Kind: ConstNil}
	}
}
