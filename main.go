package main

import (
	"os"

	"github.com/vtikhonov/cv-screener/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
