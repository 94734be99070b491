package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// context.Canceled is Ctrl-C during watch or serve, already a
		// clean shutdown by the time it reaches here.
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "substr:", err)
		os.Exit(1)
	}
}
