// symdex maintains a searchable index of symbol names extracted from
// compiled-code dumps. All behavior lives in the cmd package; this is
// just the exit-code shim.
package main

import (
	"os"

	"github.com/codenav/symdex/cmd/symdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
