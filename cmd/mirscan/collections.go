package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mirscan/mirscan/pkg/config"
	"github.com/mirscan/mirscan/pkg/models"
)

func newCollectionsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List configured model collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(cfg.Collections) == 0 {
				fmt.Println("No collections configured.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPATH\tMODELS")
			for _, ref := range cfg.Collections {
				count := "?"
				if set, err := models.LoadModelSet(ref.Path); err == nil {
					count = fmt.Sprintf("%d", len(set.Models))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", ref.Name, ref.Path, count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "mirscan.yaml", "path to config file")
	return cmd
}
