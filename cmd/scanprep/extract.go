package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanforge/scanprep/fields"
	"github.com/scanforge/scanprep/observability"
	"github.com/scanforge/scanprep/pagesource"
	"github.com/scanforge/scanprep/pagesource/mupdf"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file...]",
	Short: "Extract invoice fields from documents via a vision model",
	Long: `Send each document page to a vision model with the invoice extraction
prompt and write the structured reply to <stem>.txt next to the output
folder. Pages are rasterized the same way the process command sees them,
so the model reads exactly what the pipeline would produce.

Examples:
  scanprep extract bill.pdf --api-key $SCANPREP_API_KEY
  scanprep extract scans/*.png --provider ollama --model llava -o ./extracted`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("provider", "", "vision provider: googleai, openai or ollama")
	extractCmd.Flags().String("model", "", "vision model name")
	extractCmd.Flags().String("api-key", "", "provider API key (or SCANPREP_API_KEY)")
	extractCmd.Flags().StringP("output", "o", ".", "output folder for .txt reports")
	extractCmd.Flags().Float64("dpi", 0, "PDF render density")
	extractCmd.Flags().Duration("timeout", 0, "per-page vision-model call timeout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		cfg.Extraction.Provider = v
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Extraction.Model = v
	}
	if v, _ := cmd.Flags().GetString("api-key"); v != "" {
		cfg.Extraction.APIKey = v
	}
	if cfg.Extraction.APIKey == "" {
		cfg.Extraction.APIKey = os.Getenv("SCANPREP_API_KEY")
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		cfg.Extraction.TimeoutSeconds = int(v / time.Second)
	}
	dpi, _ := cmd.Flags().GetFloat64("dpi")
	if dpi <= 0 {
		dpi = cfg.Pipeline.DPI
	}
	outputDir, _ := cmd.Flags().GetString("output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	log := newLogger(cmd)
	extractor, err := fields.NewVisionExtractor(cmd.Context(), fields.VisionConfig{
		Provider: cfg.Extraction.Provider,
		Model:    cfg.Extraction.Model,
		APIKey:   cfg.Extraction.APIKey,
	})
	if err != nil {
		return err
	}

	adapter := pagesource.New(mupdf.New(), dpi,
		pagesource.WithTracer(observability.NewLogTracer(log)))
	timeout := cfg.ExtractTimeout()
	failures := 0
	for _, path := range args {
		if err := extractFile(cmd, adapter, extractor, log, path, outputDir, timeout); err != nil {
			log.Error("extraction failed", observability.String("file", filepath.Base(path)),
				observability.Error("err", err))
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d file(s) failed", failures)
	}
	return nil
}

func extractFile(cmd *cobra.Command, adapter *pagesource.Adapter, extractor *fields.VisionExtractor,
	log observability.Logger, path, outputDir string, timeout time.Duration) error {

	pages, err := adapter.Pages(cmd.Context(), path)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return errors.New("document has no pages")
	}

	paged := pagesource.IsDocument(path)
	sections := make([]string, 0, len(pages))
	for _, page := range pages {
		raw, err := extractPage(cmd.Context(), extractor, page.Image, timeout)
		if err != nil {
			return fmt.Errorf("page %d: %w", page.Index+1, err)
		}
		sections = append(sections, pageSection(raw, page.Index+1, paged))
		log.Info("page extracted", observability.String("file", filepath.Base(path)),
			observability.Int("page", page.Index+1))
	}

	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	outPath := filepath.Join(outputDir, stem+".txt")
	if err := os.WriteFile(outPath, []byte(strings.Join(sections, "\n\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK    %s -> %s\n", name, outPath)
	return nil
}

// extractPage runs one vision-model call under the configured bound so a
// hung provider fails the page instead of blocking the run.
func extractPage(ctx context.Context, extractor *fields.VisionExtractor, img image.Image,
	timeout time.Duration) (string, error) {

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return extractor.ExtractRaw(ctx, img)
}

// pageSection formats one page's reply. Document pages always carry a
// "Page N:" header, even for single-page documents; plain images never do.
func pageSection(raw string, page int, paged bool) string {
	if !paged {
		return raw
	}
	return fmt.Sprintf("Page %d:\n%s", page, raw)
}
