package corefile

import (
	"io"

	"github.com/blacktop/macho-core/rangemap"
)

// SegmentIndex maps VM ranges to the file ranges backing them.
type SegmentIndex = rangemap.Map[Address, FileRange]

// PermissionIndex maps VM ranges to the permissions recorded for them.
type PermissionIndex = rangemap.Map[Address, Perm]

// DiscoveryState records what the image-discovery sweep found: at most
// one dyld address, at most one kernel address, and the name of the
// dynamic-loader plugin chosen between them.
type DiscoveryState struct {
	DyldAddr         Address
	KernelAddr       Address
	LoaderPluginName string
}

func newDiscoveryState() DiscoveryState {
	return DiscoveryState{DyldAddr: InvalidAddr, KernelAddr: InvalidAddr}
}

// CoreSession owns the object-file handle, the two indices, the
// discovery state, and the thread-context count for one core file.
// Between construction (by Detect) and a successful Load, only Path and
// the raw file handle are valid.
type CoreSession struct {
	path string
	raw  io.ReaderAt
	obj  ObjectFile

	segments  SegmentIndex
	perms     PermissionIndex
	discovery DiscoveryState

	threadCount uint32
	arch        ArchDescriptor
	loaded      bool
}

// NewSession builds a candidate CoreSession directly from an
// already-opened handle and an ObjectFile collaborator, bypassing
// Detect's own header sniff. This is the extension point other
// packages use to embed the corefile backend against an object-file
// implementation other than go-macho.
func NewSession(path string, raw io.ReaderAt, obj ObjectFile) *CoreSession {
	return &CoreSession{path: path, raw: raw, obj: obj}
}

// Path returns the core file's path on disk.
func (s *CoreSession) Path() string { return s.path }

// Loaded reports whether Load has completed successfully.
func (s *CoreSession) Loaded() bool { return s.loaded }

// Segments returns the session's VM->file-offset index.
func (s *CoreSession) Segments() *SegmentIndex { return &s.segments }

// Permissions returns the session's VM->permission index.
func (s *CoreSession) Permissions() *PermissionIndex { return &s.perms }

// Discovery returns the image-discovery results.
func (s *CoreSession) Discovery() DiscoveryState { return s.discovery }

// Architecture returns the core's single captured architecture.
func (s *CoreSession) Architecture() ArchDescriptor { return s.arch }

// ThreadCount returns the number of captured thread contexts.
func (s *CoreSession) ThreadCount() uint32 { return s.threadCount }

// Close releases the underlying file handle, if any.
func (s *CoreSession) Close() error {
	if c, ok := s.raw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
