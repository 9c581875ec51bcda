// devwatch rebuilds a project whenever its watched sources change.
package main

import (
	"os"

	"github.com/hupe1980/devwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
