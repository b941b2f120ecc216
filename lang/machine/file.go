package machine

import "fmt"

// File is the value kind a file handle would occupy: a distinct heap kind
// from Userdata, following the original implementation's FileObject, which
// the original's io.* builtins (io.open, file:read, file:write, ...) return
// and operate on. No io.* builtin opens one yet (file I/O is this repo's
// stated non-goal), so Name/Mode are the only state worth carrying — a
// real implementation would add the open os.File handle here without
// disturbing File's shape as a Value.
type File struct {
	Name string
	Mode string

	gcHeader
}

var _ Value = (*File)(nil)

func (f *File) String() string { return fmt.Sprintf("file (%s)", f.Name) }
func (f *File) Type() string   { return "userdata" }
func (f *File) Truthy() bool   { return true }

// markChildren is a no-op: like the original's FileObject::markReferences,
// a file handle references no other collectible object.
func (f *File) markChildren(*GC) {}

// Socket is the value kind a network connection handle would occupy,
// following the original implementation's SocketObject. No socket.*
// builtin creates one yet (networking is out of scope alongside file I/O),
// so this carries no live file descriptor — only enough shape to let a
// Value flow through the stack, tables, and the collector as one.
type Socket struct {
	Addr string

	gcHeader
}

var _ Value = (*Socket)(nil)

func (s *Socket) String() string { return fmt.Sprintf("socket (%s)", s.Addr) }
func (s *Socket) Type() string   { return "userdata" }
func (s *Socket) Truthy() bool   { return true }

// markChildren is a no-op: a socket handle references no other collectible
// object, mirroring SocketObject::markReferences in the original.
func (s *Socket) markChildren(*GC) {}
