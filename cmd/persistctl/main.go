package main

import (
	"os"

	"github.com/bassista/go_persist/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
