package main

import (
	"os"

	"github.com/navbytes/requestkit/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
