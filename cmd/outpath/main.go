// Command outpath tesselates trip files into outlined path layers. It
// reports the instance buffers, renders a PNG preview and prints the WGSL
// of every layer kind.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
