// Package plugin registers the Mach-O core file backend under the
// identity a debugger's plugin loader expects: a name, a description,
// and a one-shot Initialize the loader calls exactly once regardless of
// how many times the containing shared object is dlopen'd into a
// process.
package plugin

import "sync"

const (
	// Name is the plugin's short identifier, used in plugin-list output.
	Name = "mach-o-core"
	// Description is the one-line human-readable summary shown alongside
	// Name in plugin-list output.
	Description = "Mach-O core file debugging plug-in."
	// Version is the plugin's structure version, bumped only if the
	// loader-facing registration shape changes.
	Version = 1
)

var initOnce sync.Once

// Initialize runs the plugin's registration exactly once per process,
// regardless of how many times the caller invokes it. register is
// called on the first invocation only; later calls are no-ops.
func Initialize(register func()) {
	initOnce.Do(register)
}
