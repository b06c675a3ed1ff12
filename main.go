package main

import (
	"context"
	"fmt"
	"os"

	"github.com/diana-archive/gazetteer/cmd"
	"github.com/diana-archive/gazetteer/internal/buildinfo"
	"github.com/diana-archive/gazetteer/internal/config"
)

func main() {
	ctx := config.NewContext(nil, buildinfo.Current())

	rootCmd := cmd.RootCommand(ctx)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
