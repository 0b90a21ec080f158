// Command macho-core-inspect opens a Mach-O core file, loads it, and
// prints its segment table, discovered image addresses, and thread
// count. It exists to exercise the corefile backend end to end, in the
// same minimal, no-framework style as the library's own cmd tools.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/blacktop/macho-core/corefile"
	"github.com/blacktop/macho-core/corefile/process"
)

func main() {
	preferKernel := flag.Bool("prefer-kernel", false, "prefer the kernel image over dyld when both are found")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: macho-core-inspect [-prefer-kernel] <core-file>")
		os.Exit(2)
	}

	if err := inspect(flag.Arg(0), *preferKernel); err != nil {
		fmt.Fprintf(os.Stderr, "macho-core-inspect: %v\n", err)
		os.Exit(1)
	}
}

func inspect(path string, preferKernel bool) error {
	session, err := corefile.Detect(path)
	if err != nil {
		return fmt.Errorf("detect %s: %w", path, err)
	}
	defer session.Close()

	pref := corefile.PreferUser
	if preferKernel {
		pref = corefile.PreferKernel
	}
	if err := corefile.Load(session, nil, corefile.WithCorefilePreference(pref)); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	facade := process.New(session, pref)
	facade.RefreshThreadList()

	fmt.Printf("core:         %s\n", session.Path())
	fmt.Printf("architecture: %s\n", session.Architecture().Triple())
	fmt.Printf("threads:      %d\n", len(facade.Threads()))
	fmt.Printf("image info:   %s\n", facade.ImageInfoAddress())

	d := session.Discovery()
	fmt.Printf("dyld address:   %s\n", d.DyldAddr)
	fmt.Printf("kernel address: %s\n", d.KernelAddr)
	fmt.Printf("loader plugin:  %s\n", d.LoaderPluginName)

	segments := session.Segments()
	fmt.Printf("segments (%d):\n", segments.Size())
	for i := 0; i < segments.Size(); i++ {
		e := segments.At(i)
		fmt.Printf("  [%s,%s) -> file [%#x,%#x)\n", e.Base, e.End, e.Value.Offset, e.Value.End())
	}

	return nil
}
