package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "sommelier",
		Short:   "Wine sommelier assistant with response caching",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newChatCmd(),
		newMetricsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
