package corefile

import (
	"encoding/binary"

	"github.com/blacktop/go-macho/types"
)

// Wire-format Mach-O header magics. go-macho's types package defines
// the native-order pair (types.Magic32/64) but not the byte-swapped
// CIGAM pair, since the upstream parser never needs to detect a
// foreign-order header sitting at an arbitrary swept address the way a
// core-file image prober does.
const (
	magicCigam32 = 0xcefaedfe // MH_CIGAM
	magicCigam64 = 0xcffaedfe // MH_CIGAM_64
)

// flagDyldLink is MH_DYLDLINK.
const flagDyldLink = 0x4

// machHeaderProbeSize covers the larger (64-bit) mach_header, which is
// also enough bytes to read every field of the smaller 32-bit one.
const machHeaderProbeSize = 32

// ImageProber sweeps address ranges reading Mach-O headers at page
// granularity, classifying each hit as dynamic-linker or kernel and
// recording at most one of each in the shared DiscoveryState.
// Dynamically linked executables are recognized and ignored.
type ImageProber struct {
	reader    *CorefileReader
	discovery *DiscoveryState
}

// NewImageProber builds a prober that reads through reader and records
// hits into discovery.
func NewImageProber(reader *CorefileReader, discovery *DiscoveryState) *ImageProber {
	return &ImageProber{reader: reader, discovery: discovery}
}

// Probe reads a candidate Mach-O header at addr. A short read, bad
// magic, or uninteresting file type is silently ignored — the sweep
// that drives Probe expects most addresses to miss. A hit never demotes
// an already-recorded address for the same slot.
func (p *ImageProber) Probe(addr Address) {
	buf := make([]byte, machHeaderProbeSize)
	n, _ := p.reader.Read(addr, buf)
	if n < 28 { // smallest possible header: 32-bit mach_header, no trailing reserved word
		return
	}

	magic := binary.LittleEndian.Uint32(buf[0:4])
	var swapped bool
	switch magic {
	case uint32(types.Magic32), uint32(types.Magic64):
		swapped = false
	case magicCigam32, magicCigam64:
		swapped = true
	default:
		return
	}

	field := func(off int) uint32 {
		if swapped {
			return binary.BigEndian.Uint32(buf[off : off+4])
		}
		return binary.LittleEndian.Uint32(buf[off : off+4])
	}

	filetype := types.HeaderFileType(field(12))
	flags := field(24)

	switch filetype {
	case types.MH_DYLINKER:
		if !p.discovery.DyldAddr.Valid() {
			p.discovery.DyldAddr = addr
		}
	case types.MH_EXECUTE:
		// Executables that are dynamically linked are not the loader;
		// the loader is the separately-mapped dyld.
		if flags&flagDyldLink == 0 && !p.discovery.KernelAddr.Valid() {
			p.discovery.KernelAddr = addr
		}
	}
}
