package main

import (
	"os"

	"github.com/seiggy/apm/cmd/apm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
