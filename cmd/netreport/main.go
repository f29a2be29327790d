package main

import (
	"os"

	"github.com/0x4d31/netreport/internal/app"
)

func main() {
	a := &app.App{}
	if err := a.Run(); err != nil {
		os.Exit(1)
	}
}
