// Command tangomine mines vocabulary flashcards out of subtitles, e-books,
// plain text, web articles and online video, and commits them to a local
// Anki instance over AnkiConnect.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shiromaru/tangomine/pkg/anki"
	"github.com/shiromaru/tangomine/pkg/config"
	"github.com/shiromaru/tangomine/pkg/dictionary"
	"github.com/shiromaru/tangomine/pkg/frequency"
	"github.com/shiromaru/tangomine/pkg/media"
	"github.com/shiromaru/tangomine/pkg/mining"
	"github.com/shiromaru/tangomine/pkg/source"
	"github.com/shiromaru/tangomine/pkg/tokenizer"
	"github.com/shiromaru/tangomine/pkg/wordaudio"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tangomine",
		Short:         "Mine Japanese vocabulary flashcards from real sentences",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newScanCmd(),
		newMineCmd(),
		newYoutubeCmd(),
		newImportDictCmd(),
		newImportFreqCmd(),
		newCacheCmd(),
	)
	return root
}

// app bundles everything a mining command needs.
type app struct {
	cfg    *config.Config
	dict   *dictionary.Store
	freq   *frequency.Store
	runner *mining.Runner
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(cfg.Log)

	dict, err := dictionary.Open(cfg.Paths.DictDB)
	if err != nil {
		return nil, fmt.Errorf("open dictionary (run import-dict first?): %w", err)
	}

	// A missing frequency store degrades ranking instead of failing.
	freq, err := frequency.Open(cfg.Paths.FreqDB)
	if err != nil {
		log.Warn("frequency store unavailable", "path", cfg.Paths.FreqDB, "err", err)
		freq = nil
	}

	tokens, err := tokenizer.New()
	if err != nil {
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}

	client := anki.NewClient(cfg.Anki.URL)
	known := anki.NewKnownWords(client, cfg.Targets, cfg.Paths.CacheFile, log)
	known.Load()
	// Serve the persisted set immediately; reconcile with the collection in
	// the background. Commands that need freshness refresh synchronously.
	known.StartRefresh(ctx)

	var wa mining.AudioFetcher
	if cfg.Mining.WordAudio {
		wa = wordaudio.NewFetcher(cfg.Paths.TempDir)
	}

	policy := mining.SkipKnown
	if cfg.Mining.AllowKnown {
		policy = mining.AllowKnown
	}

	runner := &mining.Runner{
		Tokens:    tokens,
		Dict:      dict,
		Freq:      freq,
		Known:     known,
		Client:    client,
		Clipper:   media.NewTranscoder(),
		WordAudio: wa,
		Threshold: cfg.Mining.FreqThreshold,
		Policy:    policy,
		PadMS:     cfg.Mining.ClipPadMS,
		TempDir:   cfg.Paths.TempDir,
		Workers:   cfg.Mining.Workers,
		Deck:      cfg.Anki.Deck,
		Model:     cfg.Anki.NoteType,
		Tags:      cfg.Anki.Tags,
		Log:       log,
	}
	return &app{cfg: cfg, dict: dict, freq: freq, runner: runner}, nil
}

func (a *app) close() {
	a.dict.Close()
	if a.freq != nil {
		a.freq.Close()
	}
}

// loadUnits reads sentence units from a path or URL, dispatching on shape.
func loadUnits(ctx context.Context, src string, from, to int) (units []source.SentenceUnit, label string, err error) {
	switch {
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		units, label, err = source.ExtractArticle(ctx, src)
	case hasExt(src, ".srt", ".vtt", ".ass", ".ssa"):
		units, err = source.ParseSubtitles(src, 0)
		label = src
	case hasExt(src, ".epub"):
		units, err = source.ExtractEPUB(src)
		label = src
	default:
		units, err = source.ExtractText(src)
		label = src
	}
	if err != nil {
		return nil, "", err
	}
	return source.SliceRange(units, from, to), label, nil
}

func hasExt(path string, exts ...string) bool {
	for _, e := range exts {
		if len(path) >= len(e) && path[len(path)-len(e):] == e {
			return true
		}
	}
	return false
}

func newScanCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "scan <source>",
		Short: "List minable words without committing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			units, label, err := loadUnits(cmd.Context(), args[0], from, to)
			if err != nil {
				return err
			}
			report, err := a.runner.Scan(cmd.Context(), units, "", label)
			if err != nil {
				return err
			}
			for _, sel := range report.Selections {
				fmt.Printf("%s\t%s\t%d\t%s\n",
					sel.Lemma, sel.Reading, sel.Rank, sel.Occurrence.Sentence.Text)
			}
			fmt.Printf("\n%d candidates, %d too rare or undefined\n",
				len(report.Selections), len(report.TooRare))
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "first sentence to scan (1-based)")
	cmd.Flags().IntVar(&to, "to", 0, "last sentence to scan (inclusive)")
	return cmd
}

func newMineCmd() *cobra.Command {
	var from, to int
	var mediaPath string
	var only []string
	cmd := &cobra.Command{
		Use:   "mine <source>",
		Short: "Scan a source and commit every selected word as a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			units, label, err := loadUnits(cmd.Context(), args[0], from, to)
			if err != nil {
				return err
			}

			if len(only) > 0 {
				if _, err := a.runner.Scan(cmd.Context(), units, mediaPath, label); err != nil {
					return err
				}
				added := 0
				for _, lemma := range only {
					ok, err := a.runner.AddOne(cmd.Context(), lemma)
					if err != nil {
						return err
					}
					if ok {
						added++
					} else {
						fmt.Printf("%s: already in deck\n", lemma)
					}
				}
				fmt.Printf("added %d of %d requested\n", added, len(only))
				return nil
			}

			res, err := a.runner.MineAll(cmd.Context(), units, mediaPath, label)
			if err != nil {
				return err
			}
			fmt.Printf("added %d cards, skipped %d duplicates\n", res.Added, res.Duplicates)
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "first sentence to mine (1-based)")
	cmd.Flags().IntVar(&to, "to", 0, "last sentence to mine (inclusive)")
	cmd.Flags().StringVar(&mediaPath, "media", "", "media file to clip sentence audio/images from")
	cmd.Flags().StringSliceVar(&only, "only", nil, "commit only these lemmas from the scan")
	return cmd
}

func newYoutubeCmd() *cobra.Command {
	var destDir string
	cmd := &cobra.Command{
		Use:   "youtube <url>",
		Short: "Download a video with manual Japanese subtitles and mine it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if destDir == "" {
				destDir = a.cfg.Paths.TempDir
			}
			mediaPath, subPath, err := source.Download(cmd.Context(), args[0], destDir)
			if err != nil {
				return err
			}
			units, err := source.ParseSubtitles(subPath, 0)
			if err != nil {
				return err
			}
			res, err := a.runner.MineAll(cmd.Context(), units, mediaPath, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("added %d cards, skipped %d duplicates\n", res.Added, res.Duplicates)
			return nil
		},
	}
	cmd.Flags().StringVar(&destDir, "dest", "", "download directory (default temp dir)")
	return cmd
}

func newImportDictCmd() *cobra.Command {
	var download bool
	cmd := &cobra.Command{
		Use:   "import-dict [jmdict.json]",
		Short: "Build the dictionary database from a jmdict-simplified file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			config.NewLogger(cfg.Log)

			var path string
			if len(args) == 1 {
				path = args[0]
			} else if download {
				path = cfg.Paths.DictDB + ".src.json"
				if err := dictionary.EnsureSource(cmd.Context(), path); err != nil {
					return err
				}
			} else {
				return fmt.Errorf("pass a jmdict-simplified JSON file or --download")
			}

			entries, err := dictionary.LoadJMdict(path)
			if err != nil {
				return err
			}
			rows, err := dictionary.Import(cfg.Paths.DictDB, entries)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d entries into %s\n", rows, cfg.Paths.DictDB)
			return nil
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, "download the latest jmdict-eng-common release")
	return cmd
}

func newImportFreqCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-freq <yomitan-freq.zip>",
		Short: "Build the frequency database from a Yomitan frequency dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			config.NewLogger(cfg.Log)

			terms, err := frequency.Import(args[0], cfg.Paths.FreqDB)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d terms into %s\n", terms, cfg.Paths.FreqDB)
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the known-word cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Reconcile the cache with the Anki collection now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := config.NewLogger(cfg.Log)
			client := anki.NewClient(cfg.Anki.URL)
			known := anki.NewKnownWords(client, cfg.Targets, cfg.Paths.CacheFile, log)
			known.Load()
			res := known.Refresh(cmd.Context())
			fmt.Printf("refresh: %s, %d known words\n", res.Outcome, res.Size)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the persisted known-word cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := config.NewLogger(cfg.Log)
			known := anki.NewKnownWords(nil, cfg.Targets, cfg.Paths.CacheFile, log)
			if err := known.Clear(); err != nil {
				return err
			}
			fmt.Println("cache cleared")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the persisted cache size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := config.NewLogger(cfg.Log)
			known := anki.NewKnownWords(nil, cfg.Targets, cfg.Paths.CacheFile, log)
			fmt.Printf("%d known words cached at %s\n", known.Load(), cfg.Paths.CacheFile)
			return nil
		},
	})

	return cmd
}
