// Command cherry builds front-end asset bundles from .cherry manifests
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/cherry/cherry/pkg/cli"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.ExecuteWithVersion(context.Background(), version); err != nil {
		fmt.Fprintf(os.Stderr, "🍒 %s %v\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}
