package corefile

// CorefileReader implements the sparse read(addr, len) operation
// against a CoreSession's segment index, splicing across entries.
type CorefileReader struct {
	session *CoreSession
}

// NewCorefileReader builds a reader over session's segment index.
func NewCorefileReader(session *CoreSession) *CorefileReader {
	return &CorefileReader{session: session}
}

// Read fills dst starting at addr, splicing across however many
// segments it takes. Success is measured in bytes returned, never in
// whether the request was fully satisfied: a read spanning a gap
// returns a short count with no error as long as at least one byte was
// read. The error is populated only when the very first address is
// unmapped.
func (r *CorefileReader) Read(addr Address, dst []byte) (int, error) {
	var read int
	for read < len(dst) {
		cur := addr + Address(read)
		entry, ok := r.session.segments.FindContains(cur)
		if !ok {
			if read == 0 {
				return 0, &UnmappedReadError{Addr: cur}
			}
			break
		}

		offInSeg := uint64(cur - entry.Base)
		avail := uint64(entry.End - cur)
		want := len(dst) - read
		if uint64(want) > avail {
			want = int(avail)
		}

		got, err := r.session.obj.CopyAt(entry.Value.Offset+offInSeg, dst[read:read+want])
		read += got
		if got == 0 || err != nil {
			break
		}
	}
	return read, nil
}

// GetRegionInfo answers a region-info query: the mapped range
// containing addr, or a synthetic unmapped-gap region running up to
// the next mapped range's base. Clients iterate memory regions by
// repeatedly querying the End of the previously returned region.
func GetRegionInfo(session *CoreSession, addr Address) (RegionInfo, error) {
	entry, ok := session.perms.FindContainsOrFollows(addr)
	if !ok {
		return RegionInfo{}, &InvalidRegionAddressError{Addr: addr}
	}
	if entry.Base <= addr && addr < entry.End {
		return RegionInfo{
			Base:    entry.Base,
			End:     entry.End,
			Read:    entry.Value.Readable(),
			Write:   entry.Value.Writable(),
			Execute: entry.Value.Executable(),
		}, nil
	}
	return RegionInfo{Base: addr, End: entry.Base}, nil
}
