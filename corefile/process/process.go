// Package process implements ProcessFacade: the layer that makes a
// loaded CoreSession answer to the same questions a live, stopped
// process would — a thread list, an image-info address, and memory
// reads — without ever pretending the process can be resumed.
package process

import (
	"github.com/blacktop/macho-core/corefile"
)

// State is where a Facade sits in its lifecycle. A Facade never moves
// backward.
type State int

const (
	// StateCandidate is a Facade wrapping a session Detect produced but
	// that Load has not yet populated.
	StateCandidate State = iota
	// StateLoaded is a Facade whose session has a populated segment
	// index, permission index, and discovery state.
	StateLoaded
	// StateAlive is a Facade that has additionally synthesized its
	// thread list at least once.
	StateAlive
)

// ThreadHandle identifies one of the thread contexts captured in the
// core file. Handles are assigned in load-command order starting at 0
// and carry no meaning beyond that ordering — there is no live thread
// behind them to signal, suspend, or resume.
type ThreadHandle uint32

// Facade adapts a loaded CoreSession to look like a stopped inferior.
// It never owns the session's lifetime: callers construct it around a
// session that Detect and Load have already taken through their normal
// sequence, and Destroy never closes the underlying file.
type Facade struct {
	session    *corefile.CoreSession
	state      State
	threads    []ThreadHandle
	preference corefile.Preference
}

// New wraps session in a Facade. session must already be loaded;
// preference only affects ImageInfoAddress, not anything Load already
// decided.
func New(session *corefile.CoreSession, preference corefile.Preference) *Facade {
	state := StateCandidate
	if session.Loaded() {
		state = StateLoaded
	}
	return &Facade{session: session, state: state, preference: preference}
}

// State reports the facade's current lifecycle state.
func (f *Facade) State() State { return f.state }

// IsAlive reports whether the facade behaves like a debuggable process
// at all — true once the session has been loaded, matching how a
// debugger treats "attached to a core" as equivalent to "attached to a
// live, stopped process" for every read-only query.
func (f *Facade) IsAlive() bool { return f.state >= StateLoaded }

// WarnBeforeDetach always reports false: detaching from a core-file
// session leaves no process running to lose, so there is nothing a
// user needs to be warned about.
func (f *Facade) WarnBeforeDetach() bool { return false }

// Destroy is a deliberate no-op. There is no process to kill and no
// resources here the Facade itself owns; the underlying CoreSession's
// file handle is released by its own Close, on a lifetime the Facade
// does not control.
func (f *Facade) Destroy() error { return nil }

// RefreshThreadList (re)synthesizes the facade's thread handles from
// the session's captured thread-context count. It is idempotent: calling
// it again always rebuilds the same handles from the same count, since
// a core file's thread contexts are fixed at capture time. It reports
// whether the facade is now alive.
func (f *Facade) RefreshThreadList() bool {
	if !f.session.Loaded() {
		return false
	}
	n := f.session.ThreadCount()
	threads := make([]ThreadHandle, n)
	for i := range threads {
		threads[i] = ThreadHandle(i)
	}
	f.threads = threads
	f.state = StateAlive
	return true
}

// Threads returns the facade's synthesized thread handles. It is empty
// until RefreshThreadList has run at least once.
func (f *Facade) Threads() []ThreadHandle { return f.threads }

// ImageInfoAddress returns the address of whichever dynamic-loader
// image the session's discovery found, choosing between dyld and the
// kernel by the preference the Facade was built with. It is
// corefile.InvalidAddr if discovery found neither.
func (f *Facade) ImageInfoAddress() corefile.Address {
	d := f.session.Discovery()
	switch f.preference {
	case corefile.PreferKernel:
		if d.KernelAddr.Valid() {
			return d.KernelAddr
		}
		return d.DyldAddr
	default:
		if d.DyldAddr.Valid() {
			return d.DyldAddr
		}
		return d.KernelAddr
	}
}

// Read answers a memory-read request exactly as CorefileReader does:
// the facade never caches or re-interprets the bytes, since a core
// file's memory is immutable once captured.
func (f *Facade) Read(addr corefile.Address, dst []byte) (int, error) {
	return corefile.NewCorefileReader(f.session).Read(addr, dst)
}

// RegionInfo answers a region-info query against the facade's session.
func (f *Facade) RegionInfo(addr corefile.Address) (corefile.RegionInfo, error) {
	return corefile.GetRegionInfo(f.session, addr)
}
