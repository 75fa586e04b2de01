package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ocrstudio/internal/llm"
	"github.com/ziadkadry99/ocrstudio/internal/logger"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
	"github.com/ziadkadry99/ocrstudio/internal/pipeline"
	"github.com/ziadkadry99/ocrstudio/internal/progress"
	"github.com/ziadkadry99/ocrstudio/internal/walker"
)

var (
	extractModule      string
	extractConsignor   string
	extractTransporter string
	extractPrompt      string
	extractOutDir      string
	extractDryRun      bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [dir]",
	Short: "Run extraction over a directory of sample documents",
	Long: `Walks dir (default ".") for images and PDFs matching samples.include and
sends each one through the vision model.

With --module every document is processed against the resolved
configuration and recorded in run history. Without it each document is
run as a sandbox test and the output carries suggested mappings instead.
Results are written as one JSON file per document under --out, or as
JSON lines on stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractModule, "module", "", "module code; enables production processing")
	extractCmd.Flags().StringVar(&extractConsignor, "consignor", "", "consignor code")
	extractCmd.Flags().StringVar(&extractTransporter, "transporter", "", "transporter code")
	extractCmd.Flags().StringVar(&extractPrompt, "prompt", "", "prompt overriding the resolved configuration")
	extractCmd.Flags().StringVar(&extractOutDir, "out", "", "directory for per-document JSON results")
	extractCmd.Flags().BoolVar(&extractDryRun, "dry-run", false, "list the documents that would be extracted")
	rootCmd.AddCommand(extractCmd)
}

// batchLine is one stdout record of a batch run.
type batchLine struct {
	File   string `json:"file"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	docs, err := walker.Walk(walker.WalkerConfig{
		RootDir:     root,
		Include:     cfg.Samples.Include,
		Exclude:     cfg.Samples.Exclude,
		MaxFileSize: cfg.MaxUploadBytes(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if extractDryRun {
		for _, d := range docs {
			fmt.Fprintf(out, "%s\t%s\t%d\n", d.RelPath, d.MediaType, d.Size)
		}
		fmt.Fprintf(out, "%d documents\n", len(docs))
		return nil
	}
	if len(docs) == 0 {
		log.Warn().Str("dir", root).Msg("no sample documents found")
		return nil
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	extractor, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	svc := pipeline.NewService(openConfigStore(database), extractor, catalog, pipeline.NewRunStore(database))
	applyPromptDefaults(svc, cfg)

	if extractOutDir != "" {
		if err := os.MkdirAll(extractOutDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	key := ocrconfig.NewKey(extractModule, extractConsignor, extractTransporter)
	var override *string
	if cmd.Flags().Changed("prompt") {
		override = &extractPrompt
	}

	reporter := progress.NewReporter(os.Stderr)
	reporter.Start(len(docs))

	enc := json.NewEncoder(out)
	var failed int
	var cost float64
	for i, d := range docs {
		if ctx.Err() != nil {
			break
		}
		reporter.Update(i+1, d.RelPath)

		result, c, err := extractOne(ctx, svc, key, override, d)
		cost += c
		line := batchLine{File: d.RelPath, Result: result}
		if err != nil {
			failed++
			line.Error = err.Error()
			log.Debug().Err(err).Str("file", d.RelPath).Msg("extraction failed")
		}

		if extractOutDir != "" && err == nil {
			if werr := writeResult(extractOutDir, d.RelPath, result); werr != nil {
				reporter.Finish()
				return werr
			}
			continue
		}
		if err := enc.Encode(line); err != nil {
			reporter.Finish()
			return fmt.Errorf("writing result: %w", err)
		}
	}
	reporter.Finish()

	log.Info().
		Int("documents", len(docs)).
		Int("failed", failed).
		Float64("cost_usd", cost).
		Msg("batch extraction finished")

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

// extractOne runs a single document through the service and returns the
// result to report together with the model cost.
func extractOne(ctx context.Context, svc *pipeline.Service, key ocrconfig.Key, override *string, d walker.FileInfo) (any, float64, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", d.RelPath, err)
	}
	req := pipeline.Request{
		Key:            key,
		Document:       llm.Document{Name: filepath.Base(d.Path), MIMEType: d.MediaType, Data: data},
		OverridePrompt: override,
	}

	if key.Module == "" {
		res, err := svc.RunTest(ctx, req)
		if err != nil {
			return nil, 0, err
		}
		return res, res.Cost, nil
	}
	res, err := svc.ProcessDocument(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	return res, res.Cost, nil
}

// resultPath maps a document's relative path to its JSON result file.
func resultPath(outDir, relPath string) string {
	base := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return filepath.Join(outDir, filepath.FromSlash(base)+".json")
}

func writeResult(outDir, relPath string, result any) error {
	path := resultPath(outDir, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result for %s: %w", relPath, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
