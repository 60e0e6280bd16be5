package main

import (
	"os"

	"github.com/kiosk404/ferry/internal/ferryctl/cmd"
)

func main() {
	command := cmd.NewDefaultFerryCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
