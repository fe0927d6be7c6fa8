package main

import (
	"errors"
	"fmt"
	"os"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalidVPA) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
