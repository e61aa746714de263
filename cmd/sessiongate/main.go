// Command sessiongate runs the bearer-token authentication service and its
// operational tooling (schema migrations, account creation).
//
// Configuration is read from SESSIONGATE_* environment variables; command
// flags override them.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
