// Command dsq is the single entrypoint for every dsq process role:
// worker, scheduler, forwarder, http ingress, and the queue/schedule/stat
// inspection subcommands, collapsing the teacher's separate cmd/server
// and cmd/worker binaries into one cobra CLI (grounded on
// denisvmedia-inventario's cmd/inventario Execute() delegation style).
package main

import "os"

func main() {
	Execute(os.Args[1:]...)
}
