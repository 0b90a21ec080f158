package corefile

import (
	"encoding/binary"

	"testing"

	"github.com/blacktop/go-macho/types"
)

// buildNativeHeader writes a 32-byte mach_header_64 in host (little
// endian) order, the shape ImageProber expects from a native-arch
// image such as dyld.
func buildNativeHeader(magic uint32, cpu, subcpu, filetype, flags uint32) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], cpu)
	binary.LittleEndian.PutUint32(buf[8:12], subcpu)
	binary.LittleEndian.PutUint32(buf[12:16], filetype)
	binary.LittleEndian.PutUint32(buf[16:20], 0) // ncmds, unused by Probe
	binary.LittleEndian.PutUint32(buf[20:24], 0) // sizeofcmds, unused by Probe
	binary.LittleEndian.PutUint32(buf[24:28], flags)
	return buf
}

// buildSwappedHeader writes a header as a foreign-order image (e.g. the
// kernel's own architecture differing from the reading host) would: the
// magic's 4 raw bytes are fixed so a native little-endian read of them
// recovers the CIGAM constant, while every other field is stored
// genuinely big-endian.
func buildSwappedHeader(cigam uint32, cpu, subcpu, filetype, flags uint32) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], cigam)
	binary.BigEndian.PutUint32(buf[4:8], cpu)
	binary.BigEndian.PutUint32(buf[8:12], subcpu)
	binary.BigEndian.PutUint32(buf[12:16], filetype)
	binary.BigEndian.PutUint32(buf[16:20], 0)
	binary.BigEndian.PutUint32(buf[20:24], 0)
	binary.BigEndian.PutUint32(buf[24:28], flags)
	return buf
}

// A native-order dyld image is discovered by its MH_DYLINKER file type.
func TestLoad_DiscoversDyldImage(t *testing.T) {
	const dyldAddr = Address(0x7fff5fc00000)
	header := buildNativeHeader(uint32(types.Magic64), uint32(types.CPUAmd64), 0, uint32(types.MH_DYLINKER), 0)

	obj := &fakeObjectFile{
		sections: []SectionInfo{
			{VM: VMRange{Base: dyldAddr, Size: 0x1000}, File: FileRange{Offset: 0x2000, Size: 0x1000}, Perm: PermRead | PermExec},
		},
		threads: 1,
		blocks:  []fakeBlock{{Offset: 0x2000, Data: header}},
	}
	session := loadTestSession(t, obj)

	d := session.Discovery()
	if d.DyldAddr != dyldAddr {
		t.Errorf("DyldAddr = %s, want %s", d.DyldAddr, dyldAddr)
	}
	if d.LoaderPluginName != "dyld-macosx" {
		t.Errorf("LoaderPluginName = %q, want dyld-macosx", d.LoaderPluginName)
	}
}

// A byte-swapped MH_EXECUTE header with MH_DYLDLINK clear is the
// kernel's own image, and is recognized even though every multi-byte
// field after the magic arrives in the opposite endianness.
func TestLoad_DiscoversKernelImageByteSwapped(t *testing.T) {
	const kernelAddr = Address(0xffffff8000200000)
	header := buildSwappedHeader(magicCigam64, uint32(types.CPUArm64), 0, uint32(types.MH_EXECUTE), 0)

	obj := &fakeObjectFile{
		sections: []SectionInfo{
			{VM: VMRange{Base: kernelAddr, Size: 0x1000}, File: FileRange{Offset: 0x3000, Size: 0x1000}, Perm: PermRead | PermExec},
		},
		threads: 1,
		blocks:  []fakeBlock{{Offset: 0x3000, Data: header}},
	}
	session := loadTestSession(t, obj)

	d := session.Discovery()
	if d.KernelAddr != kernelAddr {
		t.Errorf("KernelAddr = %s, want %s", d.KernelAddr, kernelAddr)
	}
	if d.DyldAddr.Valid() {
		t.Errorf("DyldAddr unexpectedly valid: %s", d.DyldAddr)
	}
	if d.LoaderPluginName != "darwin-kernel" {
		t.Errorf("LoaderPluginName = %q, want darwin-kernel", d.LoaderPluginName)
	}
}

// An MH_EXECUTE header with MH_DYLDLINK set is an ordinary dynamically
// linked binary, not the kernel, and must not be recorded.
func TestProbe_IgnoresLinkedExecutable(t *testing.T) {
	header := buildNativeHeader(uint32(types.Magic64), uint32(types.CPUAmd64), 0, uint32(types.MH_EXECUTE), flagDyldLink)

	obj := &fakeObjectFile{
		sections: []SectionInfo{
			{VM: VMRange{Base: 0x1000, Size: 0x1000}, File: FileRange{Offset: 0, Size: 0x1000}, Perm: PermRead | PermExec},
		},
		threads: 1,
		blocks:  []fakeBlock{{Offset: 0, Data: header}},
	}
	session := loadTestSession(t, obj)

	d := session.Discovery()
	if d.KernelAddr.Valid() || d.DyldAddr.Valid() {
		t.Errorf("unexpected discovery on linked executable: %+v", d)
	}
}

// When both a dyld and a kernel image are present, CorefilePreference
// breaks the tie over which loader plugin gets attached to the session.
func TestLoad_PreferenceTieBreak(t *testing.T) {
	const dyldAddr = Address(0x7fff5fc00000)
	const kernelAddr = Address(0xffffff8000200000)
	dyldHeader := buildNativeHeader(uint32(types.Magic64), uint32(types.CPUAmd64), 0, uint32(types.MH_DYLINKER), 0)
	kernelHeader := buildSwappedHeader(magicCigam64, uint32(types.CPUArm64), 0, uint32(types.MH_EXECUTE), 0)

	newSession := func() *fakeObjectFile {
		return &fakeObjectFile{
			sections: []SectionInfo{
				{VM: VMRange{Base: dyldAddr, Size: 0x1000}, File: FileRange{Offset: 0x1000, Size: 0x1000}, Perm: PermRead | PermExec},
				{VM: VMRange{Base: kernelAddr, Size: 0x1000}, File: FileRange{Offset: 0x2000, Size: 0x1000}, Perm: PermRead | PermExec},
			},
			threads: 1,
			blocks: []fakeBlock{
				{Offset: 0x1000, Data: dyldHeader},
				{Offset: 0x2000, Data: kernelHeader},
			},
		}
	}

	userSession := &CoreSession{path: "tie.core", obj: newSession()}
	if err := Load(userSession, nil, WithCorefilePreference(PreferUser)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := userSession.Discovery().LoaderPluginName; got != "dyld-macosx" {
		t.Errorf("PreferUser: LoaderPluginName = %q, want dyld-macosx", got)
	}

	kernelSession := &CoreSession{path: "tie.core", obj: newSession()}
	if err := Load(kernelSession, nil, WithCorefilePreference(PreferKernel)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := kernelSession.Discovery().LoaderPluginName; got != "darwin-kernel" {
		t.Errorf("PreferKernel: LoaderPluginName = %q, want darwin-kernel", got)
	}
}
