package main

import (
	"os"

	"github.com/berrylauncher/berry/client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
