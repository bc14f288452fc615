package main

import (
	"os"

	"github.com/sunwell/studio/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
