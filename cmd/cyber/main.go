package main

import (
	"os"

	"github.com/jediknight00/apollo/cmd/cyber/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
