package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirscan/mirscan/pkg/config"
	"github.com/mirscan/mirscan/pkg/history"
)

func newHistoryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the scan history log",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := history.Open(cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			records, err := log.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No scans recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTARGET\tCOLLECTION\tMODELS\tHITS\tSOURCE\tDURATION")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					r.CreatedAt.Format("2006-01-02T15:04:05"), r.Target, r.Collection, r.Models, r.Hits, r.Source, r.Duration)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum records to show")

	var olderThan time.Duration
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete old scan records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := history.Open(cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			n, err := log.Purge(cmd.Context(), time.Now().UTC().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Printf("Purged %d records.\n", n)
			return nil
		},
	}
	purgeCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "delete records older than this")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mirscan.yaml", "path to config file")
	cmd.AddCommand(listCmd, purgeCmd)
	return cmd
}
