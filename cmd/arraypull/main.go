// Command arraypull applies $pull updates to documents and manages their
// oplog.
package main

import (
	"os"

	"github.com/roach88/arraypull/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
