// Command stellmhd solves fixed-boundary ideal MHD equilibria for
// toroidal plasma devices from a text input deck.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
