package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/TobiSchelling/artikle/internal/config"
	"github.com/TobiSchelling/artikle/internal/database"
	"github.com/TobiSchelling/artikle/internal/fetch"
	"github.com/TobiSchelling/artikle/internal/generate"
	"github.com/TobiSchelling/artikle/internal/imagegen"
	"github.com/TobiSchelling/artikle/internal/keywords"
	"github.com/TobiSchelling/artikle/internal/llm"
	"github.com/TobiSchelling/artikle/internal/output"
	"github.com/TobiSchelling/artikle/internal/pipeline"
	"github.com/TobiSchelling/artikle/internal/server"
	"github.com/TobiSchelling/artikle/internal/topics"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "artikle",
	Short:   "Batch article and illustration generator",
	Long:    "artikle turns a list of topics into AI-written HTML articles with blueprint illustrations and a CSV index.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if strings.EqualFold(cfg.Logging.Level, "debug") {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("artikle", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/artikle/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the topics file, providers and output directory.")
		fmt.Println("API keys are read from the environment variables named in the config.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("History:")
		fmt.Printf("  Runs: %d\n", stats.Runs)
		fmt.Printf("  Topics: %d\n", stats.Topics)
		fmt.Printf("  Published: %d\n", stats.Succeeded)
		fmt.Printf("  Aborted: %d\n", stats.Aborted)
		fmt.Printf("  Without image: %d\n", stats.NoImage)

		runs, err := db.GetRecentRuns(5)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("\nNo runs yet. Run 'artikle run' to generate articles.")
			return nil
		}

		fmt.Println("\nRecent runs:")
		for _, r := range runs {
			fmt.Printf("  %s  %s  %d/%d published, %d aborted\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Succeeded, r.TopicCount, r.Aborted)
		}

		latest, err := db.GetLatestRun()
		if err != nil || latest == nil {
			return err
		}
		fmt.Printf("\nLatest run (%s):\n", latest.ID)
		for _, t := range latest.Topics {
			line := fmt.Sprintf("  %d. %s: %s", t.Position, t.Title, t.State)
			if t.FailedStage != nil {
				line += " at " + *t.FailedStage
			}
			if t.Error != nil {
				line += " (" + *t.Error + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

// --- run command ---

var (
	dryRun     bool
	noImages   bool
	topicsFile string
	outDir     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate an article, illustration and index row for every topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		if topicsFile != "" {
			cfg.Input.TopicsFile = topicsFile
		}
		if outDir != "" {
			cfg.Output.Dir = outDir
		}
		if noImages {
			cfg.Image.Enabled = false
		}

		collected, err := topics.NewCollector(cfg).Collect()
		if err != nil {
			return err
		}
		printSources(collected)

		if dryRun {
			pipe := pipeline.New(pipeline.Deps{
				Images:    dryRunImages(),
				OutputDir: cfg.Output.Dir,
				ImagesDir: cfg.Output.ImagesDir,
			})
			result := pipe.DryRun(collected.Topics)
			for _, tr := range result.Topics {
				fmt.Printf("[dry-run] %d. %s -> %s", tr.Position, tr.Topic.Title, tr.DocumentPath)
				if tr.ImagePath != "" {
					fmt.Printf(" + %s", tr.ImagePath)
				}
				fmt.Println()
			}
			return nil
		}

		deps, cleanup, err := buildDeps()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result := pipeline.New(deps).Run(ctx, collected.Topics)
		if result.Err != nil {
			return result.Err
		}
		printResult(result)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be generated without calling any backend")
	runCmd.Flags().BoolVar(&noImages, "no-images", false, "Skip image generation")
	runCmd.Flags().StringVar(&topicsFile, "topics", "", "Topics CSV file (overrides config)")
	runCmd.Flags().StringVar(&outDir, "out", "", "Output directory (overrides config)")
}

// buildDeps wires the configured backends into pipeline collaborators.
func buildDeps() (pipeline.Deps, func(), error) {
	gen := cfg.Generation
	provider, err := llm.CreateProvider(llm.ProviderConfig{
		Provider:  gen.Provider,
		Model:     gen.Article.Model,
		APIKey:    gen.APIKey(),
		OllamaURL: gen.OllamaURL,
		OpenAIURL: gen.OpenAIURL,
		Timeout:   gen.Timeout,
	})
	if err != nil {
		return pipeline.Deps{}, nil, fmt.Errorf("text provider: %w", err)
	}
	provider = llm.WithRetry(provider, gen.Retry.MaxAttempts, gen.Retry.Backoff)

	writer := generate.NewWriter(provider,
		generate.Settings{Model: gen.Article.Model, Temperature: gen.Article.Temperature, MaxTokens: gen.Article.MaxTokens},
		generate.Settings{Model: gen.Summary.Model, Temperature: gen.Summary.Temperature, MaxTokens: gen.Summary.MaxTokens},
	)
	if cfg.Input.FetchReferences {
		writer.WithReferences(fetch.New(15 * time.Second))
	}

	deps := pipeline.Deps{
		Generator:     writer,
		Extractor:     keywords.Default(),
		Sink:          output.NewFileSink(cfg.Output.Dir, cfg.Output.IndexFile, cfg.Output.ExportMarkdown),
		OutputDir:     cfg.Output.Dir,
		ImagesDir:     cfg.Output.ImagesDir,
		ReportFile:    cfg.Output.ReportFile,
		ExcerptLength: cfg.Output.ExcerptLength,
	}

	if cfg.Image.Enabled {
		imgProvider := llm.NewOpenAIImageProvider(cfg.Image.APIKey(), cfg.Image.OpenAIURL, cfg.Image.Timeout)
		if imgProvider.IsConfigured() {
			deps.Images = imagegen.New(imgProvider, cfg.Output.Dir, cfg.Output.ImagesDir, imagegen.Options{
				Model:      cfg.Image.Model,
				Size:       cfg.Image.Size,
				Quality:    cfg.Image.Quality,
				Background: cfg.Image.Background,
				Timeout:    cfg.Image.Timeout,
			})
		} else {
			log.Printf("Image generation disabled: $%s is not set", cfg.Image.APIKeyEnv)
		}
	}

	cleanup := func() {}
	db, err := openDB()
	if err != nil {
		log.Printf("Run history unavailable: %v", err)
	} else {
		deps.Recorder = db
		cleanup = func() { db.Close() }
	}

	return deps, cleanup, nil
}

// dryRunImages returns a placeholder generator so the plan lists image paths.
func dryRunImages() pipeline.ImageGenerator {
	if !cfg.Image.Enabled {
		return nil
	}
	return imagegen.New(nil, cfg.Output.Dir, cfg.Output.ImagesDir, imagegen.Options{})
}

func printSources(r *topics.Result) {
	fmt.Printf("Topics: %d (%d duplicates skipped)\n", len(r.Topics), r.Duplicates)
	if len(r.Sources) <= 1 {
		return
	}
	type kv struct {
		key string
		val int
	}
	var sorted []kv
	for k, v := range r.Sources {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
	for _, s := range sorted {
		fmt.Printf("  %s: %d\n", s.key, s.val)
	}
}

func printResult(r *pipeline.Result) {
	fmt.Printf("\nRun %s\n", r.RunID)
	for _, tr := range r.Topics {
		switch {
		case tr.Succeeded() && tr.ImagePath == "":
			fmt.Printf("  ✓ %s -> %s (no image)\n", tr.Topic.Title, tr.DocumentPath)
		case tr.Succeeded():
			fmt.Printf("  ✓ %s -> %s\n", tr.Topic.Title, tr.DocumentPath)
		default:
			fmt.Printf("  ✗ %s: %s failed: %v\n", tr.Topic.Title, tr.FailedStage, tr.Err)
		}
	}
	fmt.Printf("\n%d processed, %d aborted, %d without image\n", r.Processed, r.Aborted, r.WithoutImage)
	if r.Cancelled {
		fmt.Println("Run was interrupted; remaining topics were skipped.")
	}
	if r.ReportPath != "" {
		fmt.Printf("Report: %s\n", r.ReportPath)
	}
	fmt.Println("Run 'artikle serve' to browse the results.")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, server.Options{
			OutputDir:  cfg.Output.Dir,
			ImagesDir:  cfg.Output.ImagesDir,
			ReportFile: cfg.Output.ReportFile,
		}, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.OpenInDir(dataDir)
}
