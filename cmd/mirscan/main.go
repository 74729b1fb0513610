package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "mirscan",
		Short:   "mirscan — miRNA binding-site scanner with a session result cache",
		Version: version,
	}

	root.AddCommand(
		newScanCmd(),
		newIndexCmd(),
		newHistoryCmd(),
		newCollectionsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
