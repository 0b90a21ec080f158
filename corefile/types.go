// Package corefile implements the post-mortem process backend for
// Mach-O core files: recognizing a core, loading its segment table,
// discovering the embedded dyld/kernel image, and answering sparse
// memory-read and region-info queries against it.
//
// Parsing of the Mach-O container itself — headers, load commands,
// sections — is delegated to github.com/blacktop/go-macho; this package
// consumes that parser through the ObjectFile interface and never
// re-implements it.
package corefile

import "fmt"

// Address is a 64-bit process virtual address. InvalidAddr is the
// sentinel for "unknown".
type Address uint64

// InvalidAddr denotes an unknown or unset address.
const InvalidAddr Address = ^Address(0)

// Valid reports whether a is not the InvalidAddr sentinel.
func (a Address) Valid() bool {
	return a != InvalidAddr
}

func (a Address) String() string {
	if !a.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%#x", uint64(a))
}

// FileRange is a byte range inside the core file.
type FileRange struct {
	Offset uint64
	Size   uint64
}

// End returns the exclusive end offset of the range.
func (r FileRange) End() uint64 {
	return r.Offset + r.Size
}

// VMRange is a byte range in the inferior's virtual address space.
type VMRange struct {
	Base Address
	Size uint64
}

// End returns the exclusive end address of the range.
func (r VMRange) End() Address {
	return Address(uint64(r.Base) + r.Size)
}

// Contains reports whether a falls in [Base, End).
func (r VMRange) Contains(a Address) bool {
	return a >= r.Base && a < r.End()
}

// Perm is the readable/writable/executable bitmask attached to a
// mapped VM range.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

func (p Perm) Readable() bool   { return p&PermRead != 0 }
func (p Perm) Writable() bool   { return p&PermWrite != 0 }
func (p Perm) Executable() bool { return p&PermExec != 0 }

func (p Perm) String() string {
	r, w, x := '-', '-', '-'
	if p.Readable() {
		r = 'r'
	}
	if p.Writable() {
		w = 'w'
	}
	if p.Executable() {
		x = 'x'
	}
	return fmt.Sprintf("%c%c%c", r, w, x)
}

// SectionInfo is the shape the object-file collaborator hands back for
// each load-command-described mapping: a VM range paired with a file
// range and the permissions recorded for it (zero if the producer
// didn't record any).
type SectionInfo struct {
	VM   VMRange
	File FileRange
	Perm Perm
}

// RegionInfo describes the result of a region-info query: either a real
// mapped range, or a synthetic unmapped gap running up to the next
// mapped range's base.
type RegionInfo struct {
	Base, End           Address
	Read, Write, Execute bool
}
