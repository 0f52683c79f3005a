// Command cachesim simulates a set-associative data cache on a memory trace.
package main

import "github.com/sarchlab/cachesim/cachesim/cmd"

func main() {
	cmd.Execute()
}
