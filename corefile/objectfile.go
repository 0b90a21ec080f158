package corefile

import (
	"io"

	macho "github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
)

// ArchDescriptor names the single architecture a core file was
// captured from. Core files are always single-slice, so this is a
// value rather than a list.
type ArchDescriptor struct {
	CPU      types.CPU
	SubCPU   types.CPUSubtype
	Platform string // e.g. "apple-macosx"; supplied by the caller, empty if unknown
}

// cpuSubtype486 is CPU_SUBTYPE_486 from <mach/machine.h>. go-macho's own
// CPUSubtype table only names this value "X86Arch1"; we need the exact
// numeric match to implement the i486-normalization special case.
const cpuSubtype486 = 4

// archName mirrors the debugger's internal architecture naming before
// normalization: 32-bit x86 cores with the 486 subtype are named
// "x86_32_i486" prior to the Triple() rewrite below.
func archName(cpu types.CPU, sub types.CPUSubtype) string {
	switch cpu {
	case types.CPU386:
		if sub&types.CpuSubtypeMask == cpuSubtype486 {
			return "x86_32_i486"
		}
		return "i386"
	case types.CPUAmd64:
		return "x86_64"
	case types.CPUArm64:
		return "arm64"
	case types.CPUArm:
		return "arm"
	default:
		return cpu.String()
	}
}

// Triple returns the rewritten architecture name joined with the
// platform component, e.g. "x86_64-apple-macosx". A detected
// "x86_32_i486" core is always rewritten to plain "i386", preserving
// the platform; this is the one open-question special case named in
// the original design and is preserved as-is.
func (d ArchDescriptor) Triple() string {
	arch := archName(d.CPU, d.SubCPU)
	if arch == "x86_32_i486" {
		arch = "i386"
	}
	if d.Platform == "" {
		return arch
	}
	return arch + "-" + d.Platform
}

// ObjectFile is the external object-file parser collaborator. It is
// assumed to yield a section list and thread-context count; this
// package never parses Mach-O load commands itself, only consumes them
// through this interface.
type ObjectFile interface {
	// Sections returns the VM/file mappings described by the core's
	// load commands, in load-command order.
	Sections() []SectionInfo
	// NumThreadContexts returns the number of captured thread contexts
	// (LC_THREAD and LC_UNIXTHREAD commands).
	NumThreadContexts() uint32
	// CopyAt copies up to len(dst) bytes starting at the given file
	// offset, returning however many bytes were actually available.
	CopyAt(fileOffset uint64, dst []byte) (int, error)
	// Architecture reports the single CPU/subtype the core was
	// captured from.
	Architecture() ArchDescriptor
}

// KernelSearcher is the Darwin-kernel dynamic-loader plugin
// collaborator: given a loaded session, it performs its own targeted
// search for the primary kernel image and reports its address, or
// InvalidAddr if it found nothing.
type KernelSearcher interface {
	SearchForKernel(session *CoreSession) Address
}

// machoObjectFile adapts a *macho.File (and the raw file it was parsed
// from) to the ObjectFile interface.
type machoObjectFile struct {
	f   *macho.File
	raw io.ReaderAt
}

func newMachoObjectFile(raw io.ReaderAt) (*machoObjectFile, error) {
	f, err := macho.NewFile(raw)
	if err != nil {
		return nil, err
	}
	return &machoObjectFile{f: f, raw: raw}, nil
}

func (m *machoObjectFile) Sections() []SectionInfo {
	segs := m.f.Segments()
	out := make([]SectionInfo, 0, len(segs))
	for _, seg := range segs {
		if seg == nil {
			continue
		}
		out = append(out, SectionInfo{
			VM:   VMRange{Base: Address(seg.Addr), Size: seg.Memsz},
			File: FileRange{Offset: seg.Offset, Size: seg.Filesz},
			Perm: permFromProt(seg.Prot),
		})
	}
	return out
}

func permFromProt(p types.VmProtection) Perm {
	var perm Perm
	if p.Read() {
		perm |= PermRead
	}
	if p.Write() {
		perm |= PermWrite
	}
	if p.Execute() {
		perm |= PermExec
	}
	return perm
}

func (m *machoObjectFile) NumThreadContexts() uint32 {
	var n uint32
	for _, l := range m.f.Loads {
		switch l.Command() {
		case types.LC_THREAD, types.LC_UNIXTHREAD:
			n++
		}
	}
	return n
}

func (m *machoObjectFile) CopyAt(fileOffset uint64, dst []byte) (int, error) {
	n, err := m.raw.ReadAt(dst, int64(fileOffset))
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (m *machoObjectFile) Architecture() ArchDescriptor {
	return ArchDescriptor{CPU: m.f.CPU, SubCPU: m.f.SubCPU}
}
