package corefile

import (
	"errors"
	"fmt"
)

// Error kinds surfaced verbatim to the debugger's result sink. NotACore
// is silent to the caller: the plugin registry is expected to try the
// next file-type handler. The rest are fatal to Load.
var (
	ErrNotACore              = errors.New("not a core file")
	ErrInvalidCoreModule     = errors.New("core object file was never produced")
	ErrInvalidCoreObjectFile = errors.New("core object file exists but has no backing data")
	ErrNoThreadContexts      = errors.New("no thread state found in core file (LC_THREAD/LC_UNIXTHREAD missing or unsupported)")
	ErrNoSections            = errors.New("core file has no sections")
)

// UnmappedReadError is returned by CorefileReader.Read when zero bytes
// could be served because the very first requested address is not
// backed by any segment.
type UnmappedReadError struct {
	Addr Address
}

func (e *UnmappedReadError) Error() string {
	return fmt.Sprintf("core file does not contain %s", e.Addr)
}

// InvalidRegionAddressError is returned by GetRegionInfo when the
// address lies past the last permission entry.
type InvalidRegionAddressError struct {
	Addr Address
}

func (e *InvalidRegionAddressError) Error() string {
	return "invalid address"
}
