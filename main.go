package main

import (
	"os"

	"github.com/jlynch25/railid/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
