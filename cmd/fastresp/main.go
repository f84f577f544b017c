// Command fastresp issues requests through the streaming client and
// prints the classified outcome of each.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
