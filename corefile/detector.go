package corefile

import (
	"encoding/binary"
	"os"

	"github.com/blacktop/go-macho/types"
)

// headerProbeSize is sizeof(mach_header_64), the larger of the 32- and
// 64-bit Mach-O header sizes; Detect always reads this many bytes so a
// single probe covers both header shapes.
const headerProbeSize = 32

// Detect reads the first sizeof(mach_header) bytes of path and reports
// whether it names a Mach-O core file. It returns a candidate
// CoreSession — with only its path and raw file handle valid — if and
// only if the read yielded exactly the requested bytes, the header
// parsed, and its file type is MH_CORE. Any I/O error or non-core
// header is rejected as ErrNotACore; Detect applies no further
// heuristics.
func Detect(path string) (*CoreSession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrNotACore
	}

	buf := make([]byte, headerProbeSize)
	n, err := f.ReadAt(buf, 0)
	if err != nil || n != headerProbeSize {
		f.Close()
		return nil, ErrNotACore
	}

	hdr, ok := probeHeader(buf)
	if !ok || hdr.Type != types.MH_CORE {
		f.Close()
		return nil, ErrNotACore
	}

	return &CoreSession{path: path, raw: f}, nil
}

// probeHeader decodes a raw mach_header/mach_header_64 without going
// through the full go-macho parser, which expects to walk the complete
// load-command area rather than a bare header probe. go-macho's own
// types.FileHeader has no standalone byte-decoder exported, so the
// struct is filled in here field-by-field and the constants it already
// defines (types.Magic32/64, types.MH_CORE, ...) are reused for the
// comparisons that matter. Detect never needs the byte-swapped (CIGAM)
// case ImageProber handles — core files are always captured in host
// byte order.
func probeHeader(b []byte) (types.FileHeader, bool) {
	if len(b) < 28 {
		return types.FileHeader{}, false
	}
	order := binary.LittleEndian
	magic := types.Magic(order.Uint32(b[0:4]))
	switch magic {
	case types.Magic32, types.Magic64:
	default:
		return types.FileHeader{}, false
	}
	return types.FileHeader{
		Magic:        magic,
		CPU:          types.CPU(order.Uint32(b[4:8])),
		SubCPU:       types.CPUSubtype(order.Uint32(b[8:12])),
		Type:         types.HeaderFileType(order.Uint32(b[12:16])),
		NCommands:    order.Uint32(b[16:20]),
		SizeCommands: order.Uint32(b[20:24]),
		Flags:        types.HeaderFlag(order.Uint32(b[24:28])),
	}, true
}
