package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kiosk404/ferry/internal/ferry"
)

func main() {
	ferry.NewApp("ferry").Run()
}
