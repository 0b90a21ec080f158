package corefile

import "io"

// fakeBlock is a contiguous run of synthetic file bytes starting at
// Offset, used by fakeObjectFile.CopyAt to answer reads the way the
// real core file's bytes would.
type fakeBlock struct {
	Offset uint64
	Data   []byte
}

// fakeObjectFile is a literal, hand-built ObjectFile used in place of a
// real Mach-O core image: building a byte-exact core file fixture for
// every scenario in spec.md §8 would mostly test go-macho's own parser,
// which is out of scope here (see SPEC_FULL.md §1). It implements the
// same interface the production machoObjectFile does.
type fakeObjectFile struct {
	sections []SectionInfo
	threads  uint32
	blocks   []fakeBlock
	arch     ArchDescriptor
}

func (f *fakeObjectFile) Sections() []SectionInfo   { return f.sections }
func (f *fakeObjectFile) NumThreadContexts() uint32 { return f.threads }
func (f *fakeObjectFile) Architecture() ArchDescriptor { return f.arch }

func (f *fakeObjectFile) CopyAt(fileOffset uint64, dst []byte) (int, error) {
	for _, b := range f.blocks {
		if fileOffset < b.Offset || fileOffset >= b.Offset+uint64(len(b.Data)) {
			continue
		}
		off := fileOffset - b.Offset
		n := copy(dst, b.Data[off:])
		return n, nil
	}
	return 0, io.EOF
}

// sequentialBlock builds a fakeBlock of n bytes at offset, each byte
// set to its low-order index so tests can assert exact content after a
// splice without needing a real binary fixture.
func sequentialBlock(offset uint64, n int) fakeBlock {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return fakeBlock{Offset: offset, Data: data}
}

func newTestSession(obj ObjectFile) *CoreSession {
	return &CoreSession{obj: obj}
}
