// Command weave is a small tool for poking at weave files: create them,
// add versions from stdin, extract and annotate texts, diff and merge
// versions, and pull histories together.
package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("weave: ")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
