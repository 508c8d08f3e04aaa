// cmd/tools/tourism-cli/main.go
package main

import (
	"os"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
