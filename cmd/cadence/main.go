package main

import (
	"context"
	"fmt"
	"os"
)

const (
	exitSuccess = 0
	exitError   = 1
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			os.Exit(exitError)
		}
	}()

	if err := Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}

	os.Exit(exitSuccess)
}
