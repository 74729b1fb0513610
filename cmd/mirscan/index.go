package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mirscan/mirscan/pkg/config"
	"github.com/mirscan/mirscan/pkg/models"
	"github.com/mirscan/mirscan/pkg/precomputed"
	"github.com/mirscan/mirscan/pkg/scanner"
)

func newIndexCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the precomputed site index",
	}

	var (
		modelsPath string
		collection string
	)
	buildCmd := &cobra.Command{
		Use:   "build [gene...]",
		Short: "Scan transcripts of the given genes and store their sites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Precomputed.DBPath == "" {
				return fmt.Errorf("no precomputed db_path configured")
			}
			ctx := cmd.Context()

			set, err := loadModelSet(cfg, collection, modelsPath)
			if err != nil {
				return err
			}

			src, err := openAnnotation(cfg)
			if err != nil {
				return err
			}
			if src == nil {
				return fmt.Errorf("no annotation source configured")
			}
			defer func() { _ = src.Close() }()

			idx, err := precomputed.Open(cfg.Precomputed.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			if err := idx.SetModels(ctx, set); err != nil {
				return err
			}

			// Store every site unfiltered and in log units; Lookup applies
			// the per-request filters.
			params := models.ScanParams{}
			eng := scanner.New(cfg.Scan.ScoreScale)

			for _, gene := range args {
				transcripts, err := src.TranscriptsForGene(ctx, gene)
				if err != nil {
					return err
				}
				for _, tr := range transcripts {
					raw, err := eng.Scan(ctx, tr.Sequence, set, params)
					if err != nil {
						return fmt.Errorf("scan %s: %w", tr.ID, err)
					}
					hits := make([]models.Hit, 0, len(raw))
					for _, h := range raw {
						h.LogAffinity /= cfg.Scan.ScoreScale
						if h.Start >= tr.CDSLength {
							h.Region = models.RegionUTR
						} else {
							h.Region = models.RegionORF
						}
						hits = append(hits, h)
					}
					if err := idx.AddTranscript(ctx, tr, hits); err != nil {
						return err
					}
					fmt.Printf("indexed %s: %d sites\n", tr.ID, len(hits))
				}
			}
			return nil
		},
	}
	buildCmd.Flags().StringVar(&modelsPath, "models", "", "model collection YAML file")
	buildCmd.Flags().StringVar(&collection, "collection", "", "configured collection name")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Precomputed.DBPath == "" {
				return fmt.Errorf("no precomputed db_path configured")
			}

			idx, err := precomputed.Open(cfg.Precomputed.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			transcripts, sites, names, err := idx.Stats(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Transcripts:\t%d\n", transcripts)
			fmt.Fprintf(w, "Sites:\t%d\n", sites)
			fmt.Fprintf(w, "Models:\t%s\n", strings.Join(names, ", "))
			return w.Flush()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mirscan.yaml", "path to config file")
	cmd.AddCommand(buildCmd, statsCmd)
	return cmd
}
