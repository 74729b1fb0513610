package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirscan/mirscan/pkg/aggregate"
	"github.com/mirscan/mirscan/pkg/annotation"
	"github.com/mirscan/mirscan/pkg/cache"
	"github.com/mirscan/mirscan/pkg/config"
	"github.com/mirscan/mirscan/pkg/export"
	"github.com/mirscan/mirscan/pkg/history"
	"github.com/mirscan/mirscan/pkg/models"
	"github.com/mirscan/mirscan/pkg/precomputed"
	"github.com/mirscan/mirscan/pkg/resolver"
	"github.com/mirscan/mirscan/pkg/scanner"
)

// scanTarget pairs a resolved target with the sequence the engine scans.
type scanTarget struct {
	target    models.Target
	sequence  string
	cdsLength int
}

// countingEngine wraps the live scanner so the history log can tell a real
// scan apart from a precomputed or cached answer.
type countingEngine struct {
	inner resolver.Engine
	calls int
}

func (e *countingEngine) Scan(ctx context.Context, seq string, set models.ModelSet, p models.ScanParams) ([]models.Hit, error) {
	e.calls++
	return e.inner.Scan(ctx, seq, set, p)
}

func newScanCmd() *cobra.Command {
	var (
		configPath   string
		gene         string
		transcriptID string
		seq          string
		modelsPath   string
		collection   string
		utrOnly      bool
		summary      bool
		outDir       string
		showCache    bool

		shadow         int
		minDistance    int
		maxLogAffinity float64
		onlyCanonical  bool
		keepMatchSeq   bool
		circular       bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a gene, transcript, or raw sequence for binding sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			set, err := loadModelSet(cfg, collection, modelsPath)
			if err != nil {
				return err
			}

			targets, err := resolveTargets(ctx, cfg, gene, transcriptID, seq, utrOnly)
			if err != nil {
				return err
			}

			params := cfg.Scan.Defaults
			flags := cmd.Flags()
			if flags.Changed("shadow") {
				params.Shadow = shadow
			}
			if flags.Changed("min-distance") {
				params.MinDistance = minDistance
			}
			if flags.Changed("max-log-affinity") {
				params.MaxLogAffinity = maxLogAffinity
			}
			if flags.Changed("only-canonical") {
				params.OnlyCanonical = onlyCanonical
			}
			if flags.Changed("keep-match-seq") {
				params.KeepMatchSeq = keepMatchSeq
			}
			if flags.Changed("circular") {
				params.Circular = circular
			}

			c := cache.New(cfg.Cache.BudgetBytes)
			engine := &countingEngine{inner: scanner.New(cfg.Scan.ScoreScale)}

			var index resolver.SiteIndex
			if cfg.Precomputed.DBPath != "" {
				idx, err := precomputed.Open(cfg.Precomputed.DBPath)
				if err != nil {
					return fmt.Errorf("open precomputed index: %w", err)
				}
				defer func() { _ = idx.Close() }()
				index = idx
			}

			res := resolver.New(c, index, engine, cfg.Scan.ScoreScale)

			var hist *history.Log
			if cfg.History.Enabled {
				hist, err = history.Open(cfg.History.DBPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "warning: history unavailable: %v\n", err)
				} else {
					defer func() { _ = hist.Close() }()
				}
			}

			for _, st := range targets {
				start := time.Now()
				_, cacheHitsBefore, _ := c.Stats()
				callsBefore := engine.calls
				entry, err := res.Resolve(ctx, resolver.Request{
					Target:    st.target,
					Sequence:  st.sequence,
					Models:    set,
					Params:    params,
					CDSLength: st.cdsLength,
				})
				if err != nil {
					return fmt.Errorf("scan %s: %w", st.target.Descriptor, err)
				}

				_, cacheHitsAfter, _ := c.Stats()
				source := answerSource(cacheHitsAfter-cacheHitsBefore, engine.calls-callsBefore)
				if hist != nil {
					rec := history.Record{
						Target:     st.target.Descriptor,
						Collection: set.Collection,
						Models:     len(set.Models),
						Hits:       len(entry.Hits),
						Source:     source,
						Duration:   time.Since(start),
						CreatedAt:  time.Now().UTC(),
					}
					if err := hist.Record(ctx, rec); err != nil {
						fmt.Fprintf(os.Stderr, "warning: history write failed: %v\n", err)
					}
				}

				if err := printTarget(st, entry.Hits, summary, params.KeepMatchSeq); err != nil {
					return err
				}
				if outDir != "" {
					if err := exportTarget(outDir, st.target.Descriptor, set.Names(), entry.Hits, summary); err != nil {
						return err
					}
				}
			}

			if showCache {
				printCache(c)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "mirscan.yaml", "path to config file")
	cmd.Flags().StringVar(&gene, "gene", "", "scan every transcript of a gene symbol")
	cmd.Flags().StringVar(&transcriptID, "transcript", "", "scan one transcript by id")
	cmd.Flags().StringVar(&seq, "seq", "", "scan a raw sequence")
	cmd.Flags().StringVar(&modelsPath, "models", "", "model collection YAML file")
	cmd.Flags().StringVar(&collection, "collection", "", "configured collection name")
	cmd.Flags().BoolVar(&utrOnly, "utr-only", false, "restrict to the 3' UTR")
	cmd.Flags().BoolVar(&summary, "summary", false, "aggregate hits into per-miRNA repression estimates")
	cmd.Flags().StringVar(&outDir, "out", "", "write TSV exports to this directory")
	cmd.Flags().BoolVar(&showCache, "show-cache", false, "list cache entries after scanning")

	cmd.Flags().IntVar(&shadow, "shadow", 0, "ignore sites starting before this position")
	cmd.Flags().IntVar(&minDistance, "min-distance", 0, "minimum distance between reported sites")
	cmd.Flags().Float64Var(&maxLogAffinity, "max-log-affinity", 0, "score threshold; weaker sites are dropped")
	cmd.Flags().BoolVar(&onlyCanonical, "only-canonical", false, "report canonical site types only")
	cmd.Flags().BoolVar(&keepMatchSeq, "keep-match-seq", false, "record the matched subsequence per hit")
	cmd.Flags().BoolVar(&circular, "circular", false, "treat the sequence as circular")

	return cmd
}

// answerSource labels where one resolved result came from, given how the
// cache hit counter and the engine call counter moved across the Resolve.
// A duplicate target within one invocation is a cache hit, not a
// precomputed answer.
func answerSource(cacheHitDelta int64, engineCallDelta int) string {
	switch {
	case engineCallDelta > 0:
		return history.SourceScan
	case cacheHitDelta > 0:
		return history.SourceCache
	default:
		return history.SourcePrecomputed
	}
}

// loadModelSet picks the model collection from either a configured
// collection name or an explicit file path.
func loadModelSet(cfg *config.Config, collection, modelsPath string) (models.ModelSet, error) {
	switch {
	case collection != "":
		ref, err := cfg.Collection(collection)
		if err != nil {
			return models.ModelSet{}, err
		}
		set, err := models.LoadModelSet(ref.Path)
		if err != nil {
			return models.ModelSet{}, err
		}
		if set.Collection == "" {
			set.Collection = ref.Name
		}
		return set, nil
	case modelsPath != "":
		return models.LoadModelSet(modelsPath)
	default:
		return models.ModelSet{}, fmt.Errorf("no models selected: pass --collection or --models")
	}
}

// openAnnotation opens the configured annotation backend, or nil when none
// is configured.
func openAnnotation(cfg *config.Config) (annotation.Source, error) {
	switch {
	case cfg.Annotation.DBPath != "":
		return annotation.OpenDB(cfg.Annotation.DBPath)
	case cfg.Annotation.TablePath != "":
		return annotation.LoadTable(cfg.Annotation.TablePath)
	default:
		return nil, nil
	}
}

func resolveTargets(ctx context.Context, cfg *config.Config, gene, transcriptID, seq string, utrOnly bool) ([]scanTarget, error) {
	selected := 0
	for _, s := range []string{gene, transcriptID, seq} {
		if s != "" {
			selected++
		}
	}
	if selected != 1 {
		return nil, fmt.Errorf("select exactly one of --gene, --transcript, or --seq")
	}

	if seq != "" {
		if utrOnly {
			return nil, fmt.Errorf("--utr-only needs an annotated transcript")
		}
		return []scanTarget{{
			target:   models.Target{Descriptor: "custom seq"},
			sequence: seq,
		}}, nil
	}

	src, err := openAnnotation(cfg)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("no annotation source configured; --gene and --transcript need one")
	}
	defer func() { _ = src.Close() }()

	var transcripts []models.Transcript
	if transcriptID != "" {
		tr, err := src.Transcript(ctx, transcriptID)
		if err != nil {
			return nil, err
		}
		transcripts = []models.Transcript{tr}
	} else {
		transcripts, err = src.TranscriptsForGene(ctx, gene)
		if err != nil {
			return nil, err
		}
	}

	targets := make([]scanTarget, 0, len(transcripts))
	for _, tr := range transcripts {
		st := scanTarget{
			target: models.Target{
				Descriptor:   tr.ID,
				TranscriptID: tr.ID,
				UTROnly:      utrOnly,
			},
		}
		if utrOnly {
			if tr.CDSLength >= len(tr.Sequence) {
				return nil, fmt.Errorf("transcript %s has no 3' UTR", tr.ID)
			}
			st.sequence = tr.Sequence[tr.CDSLength:]
		} else {
			st.sequence = tr.Sequence
			st.cdsLength = tr.CDSLength
		}
		targets = append(targets, st)
	}
	return targets, nil
}

func printTarget(st scanTarget, hits []models.Hit, summary, withMatch bool) error {
	fmt.Printf("%s (%d nt, %d sites)\n", st.target.Descriptor, len(st.sequence), len(hits))
	if len(hits) == 0 {
		return nil
	}

	if summary {
		summaries := aggregate.Aggregate(st.target.Descriptor, hits, true)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MIR\tSITES\tBEST SITE\tREPRESSION")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%d\t%s\t%.3f\n", s.Mir, s.Sites, s.BestSite, s.Repression)
		}
		return w.Flush()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if withMatch {
		fmt.Fprintln(w, "MIR\tSTART\tEND\tTYPE\tSCORE\tREGION\tMATCH")
	} else {
		fmt.Fprintln(w, "MIR\tSTART\tEND\tTYPE\tSCORE\tREGION")
	}
	for _, h := range hits {
		if withMatch {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%.3f\t%s\t%s\n",
				h.Mir, h.Start, h.End, h.SiteType, h.LogAffinity, h.Region, h.MatchSeq)
		} else {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%.3f\t%s\n",
				h.Mir, h.Start, h.End, h.SiteType, h.LogAffinity, h.Region)
		}
	}
	return w.Flush()
}

func exportTarget(dir, target string, modelNames []string, hits []models.Hit, summary bool) error {
	now := time.Now().UTC()

	name := export.HitsFilename(target, modelNames, now)
	write := func(path string, fn func(f *os.File) error) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if err := write(filepath.Join(dir, name), func(f *os.File) error {
		return export.WriteHits(f, hits)
	}); err != nil {
		return fmt.Errorf("export hits: %w", err)
	}

	if summary {
		summaries := aggregate.Aggregate(target, hits, true)
		name := export.SummariesFilename(target, modelNames, now)
		if err := write(filepath.Join(dir, name), func(f *os.File) error {
			return export.WriteSummaries(f, summaries)
		}); err != nil {
			return fmt.Errorf("export summaries: %w", err)
		}
	}
	return nil
}

func printCache(c *cache.Cache) {
	infos := c.List()
	entries, hits, misses := c.Stats()
	fmt.Printf("\nCache: %d entries, %d hits, %d misses\n", entries, hits, misses)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\n", info.Fingerprint, info.Label)
	}
	_ = w.Flush()
}
