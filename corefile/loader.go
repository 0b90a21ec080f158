package corefile

import (
	"log"

	"github.com/blacktop/macho-core/rangemap"
)

// sweepStride is the byte stride of the image-discovery sweep. The
// sweep never checks alignment of the underlying segments against this
// stride; a Mach-O header straddling a non-0x1000 boundary would be
// missed. This is preserved as-is from the original design — flagged
// for future review, not a bug this package fixes.
const sweepStride = 0x1000

// Preference selects which discovered image CoreSession.Discovery
// prefers when both a dyld and a kernel image were found.
type Preference int

const (
	// PreferUser prefers the dyld image, falling back to the kernel.
	// This is the default.
	PreferUser Preference = iota
	// PreferKernel prefers the kernel image, falling back to dyld.
	PreferKernel
)

// Config holds the one setting Load accepts: the process-wide
// corefile_preference knob from the debugger's global settings.
type Config struct {
	CorefilePreference Preference
}

// Option configures a Config. It follows the same functional-options
// shape the wrapped go-macho parser uses for its own FileConfig.
type Option func(*Config)

// WithCorefilePreference overrides the default PreferUser policy.
func WithCorefilePreference(p Preference) Option {
	return func(c *Config) { c.CorefilePreference = p }
}

// Load populates session's indices, runs image discovery, resolves the
// architecture, and marks the session loaded. kernelSearch is the
// Darwin-kernel dynamic-loader plugin's callback and may be nil if no
// such plugin is registered.
func Load(session *CoreSession, kernelSearch KernelSearcher, opts ...Option) error {
	cfg := Config{CorefilePreference: PreferUser}
	for _, o := range opts {
		o(&cfg)
	}

	if session.obj == nil {
		obj, err := newMachoObjectFile(session.raw)
		if err != nil {
			return ErrInvalidCoreModule
		}
		session.obj = obj
	}

	sections := session.obj.Sections()
	if len(sections) == 0 {
		return ErrNoSections
	}

	session.threadCount = session.obj.NumThreadContexts()
	if session.threadCount == 0 {
		return ErrNoThreadContexts
	}

	buildIndices(session, sections)
	session.discovery = newDiscoveryState()

	runDiscoverySweep(session)
	refineKernelAddr(session, kernelSearch)
	selectImage(session, cfg.CorefilePreference)

	session.arch = session.obj.Architecture()
	session.loaded = true
	return nil
}

// buildIndices runs the index-construction algorithm: sections are
// consumed in load-command order, coalesced into SegmentIndex while
// they keep arriving in ascending VM order, and always recorded
// unmodified (with the zero-permission fallback) into PermissionIndex.
func buildIndices(session *CoreSession, sections []SectionInfo) {
	var segments SegmentIndex
	var perms PermissionIndex

	sorted := true
	var maxSeenBase Address
	for i, sec := range sections {
		// The monotonicity check compares against the previous
		// section's start, not its end — a strictly-increasing but
		// overlapping-in-VM input would escape detection here. This
		// is the original design's documented open question, not a
		// bug fixed by this loader.
		if i > 0 && sec.VM.Base < maxSeenBase {
			sorted = false
		}
		maxSeenBase = sec.VM.Base

		entry := rangemap.Entry[Address, FileRange]{
			Base:  sec.VM.Base,
			End:   sec.VM.End(),
			Value: sec.File,
		}
		appendOrCoalesce(&segments, entry, sorted)

		perm := sec.Perm
		if perm == 0 {
			perm = PermRead | PermExec
		}
		perms.Append(rangemap.Entry[Address, Perm]{
			Base:  sec.VM.Base,
			End:   sec.VM.End(),
			Value: perm,
		})
	}

	if !sorted {
		segments.Sort()
		perms.Sort()
	}

	session.segments = segments
	session.perms = perms
}

// appendOrCoalesce implements the coalescing contract: a new entry
// merges into the index's back entry in place when the VM ranges are
// adjacent AND the file ranges are adjacent. Coalescing is skipped
// entirely once out-of-order input has been observed; the caller
// untangles that with a plain sort afterward instead.
func appendOrCoalesce(segments *SegmentIndex, entry rangemap.Entry[Address, FileRange], sorted bool) {
	if sorted {
		if back := segments.Back(); back != nil &&
			back.End == entry.Base &&
			back.Value.End() == entry.Value.Offset {
			back.End = entry.End
			back.Value.Size = entry.Value.End() - back.Value.Offset
			return
		}
	}
	segments.Append(entry)
}

// runDiscoverySweep walks every segment in VM order stepping by
// sweepStride, probing for dyld/kernel Mach-O headers, unless both
// slots are already known. It keeps sweeping past the first hit since
// both images may be present.
func runDiscoverySweep(session *CoreSession) {
	if session.discovery.DyldAddr.Valid() && session.discovery.KernelAddr.Valid() {
		return
	}
	reader := NewCorefileReader(session)
	prober := &ImageProber{reader: reader, discovery: &session.discovery}
	for i := 0; i < session.segments.Size(); i++ {
		e := session.segments.At(i)
		for addr := e.Base; addr < e.End; addr += sweepStride {
			prober.Probe(addr)
		}
	}
}

// refineKernelAddr hands control to the Darwin-kernel plugin's own
// search when a kernel image was swept up, since exhaustive
// 4K-stride scanning can false-hit on non-primary kernel images
// present elsewhere in the dump. The session's two discovered
// addresses are hidden from the callback (swapped to InvalidAddr and
// restored afterward) so it performs its own independent search rather
// than short-circuiting on our sweep result.
func refineKernelAddr(session *CoreSession, kernelSearch KernelSearcher) {
	if !session.discovery.KernelAddr.Valid() || kernelSearch == nil {
		return
	}
	savedKernel := session.discovery.KernelAddr
	savedDyld := session.discovery.DyldAddr
	session.discovery.KernelAddr = InvalidAddr
	session.discovery.DyldAddr = InvalidAddr

	found := kernelSearch.SearchForKernel(session)

	session.discovery.KernelAddr = savedKernel
	session.discovery.DyldAddr = savedDyld
	if found.Valid() {
		session.discovery.KernelAddr = found
	}
}

// selectImage applies the corefile_preference policy, choosing which
// discovered image address get reported and which loader plugin name
// is attached to the session.
func selectImage(session *CoreSession, pref Preference) {
	d := &session.discovery
	switch pref {
	case PreferKernel:
		if d.KernelAddr.Valid() {
			d.LoaderPluginName = "darwin-kernel"
		} else if d.DyldAddr.Valid() {
			d.LoaderPluginName = "dyld-macosx"
		}
	default: // PreferUser
		if d.DyldAddr.Valid() {
			d.LoaderPluginName = "dyld-macosx"
		} else if d.KernelAddr.Valid() {
			d.LoaderPluginName = "darwin-kernel"
		}
	}
	if !d.DyldAddr.Valid() && !d.KernelAddr.Valid() {
		log.Printf("macho-core: no dyld or kernel image found while loading %s", session.path)
	}
}
