package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanforge/scanprep/batch"
	"github.com/scanforge/scanprep/config"
	"github.com/scanforge/scanprep/observability"
	"github.com/scanforge/scanprep/orient"
	"github.com/scanforge/scanprep/orient/osd"
	"github.com/scanforge/scanprep/orient/tesseract"
	"github.com/scanforge/scanprep/pagesource"
	"github.com/scanforge/scanprep/pagesource/mupdf"
	"github.com/scanforge/scanprep/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process [path]",
	Short: "Normalize a folder or a single scanned document",
	Long: `Process every image and PDF in the input folder: detect and correct
page orientation, stretch contrast, boost brightness on dark scans and
binarize. Non-image files are copied through unchanged. One PNG is written
per input page; the batch never aborts on a single bad file.

The optional positional path overrides the configured input: a folder is
processed as a batch, a file is processed on its own.

Examples:
  scanprep process --input ./scans --output ./processed
  scanprep process scan.png --output ./processed
  scanprep process --config config.toml --detector tesseract
  scanprep process --input ./scans --output ./out --dpi 150 --threshold 128`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("input", "i", "", "input folder (overrides config)")
	processCmd.Flags().StringP("output", "o", "", "output folder (overrides config)")
	processCmd.Flags().Float64("dpi", 0, "PDF render density (default from config)")
	processCmd.Flags().Int("threshold", -1, "binarization threshold 0-255")
	processCmd.Flags().Float64("contrast", 0, "contrast stretch factor")
	processCmd.Flags().Float64("brightness", 0, "conditional brightness factor")
	processCmd.Flags().Int("significance", -1, "orientation significance window in degrees")
	processCmd.Flags().String("detector", "", "orientation detector: osd, tesseract or none")
	processCmd.Flags().Duration("timeout", 0, "per-page orientation detection timeout")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyProcessFlags(cmd, &cfg)

	var singleFile string
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("stat %s: %w", args[0], err)
		}
		if info.IsDir() {
			cfg.Paths.InputFolder = args[0]
		} else {
			singleFile = args[0]
		}
	}

	if cfg.Paths.OutputFolder == "" {
		return errors.New("output folder is required (flag or config)")
	}
	if singleFile == "" && cfg.Paths.InputFolder == "" {
		return errors.New("input path is required (argument, flag or config)")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cmd)
	detector, err := buildDetector(cfg.Pipeline.Detector)
	if err != nil {
		return err
	}

	tracer := observability.NewLogTracer(log)
	pipe := pipeline.New(detector, cfg.Params(),
		pipeline.WithLogger(log),
		pipeline.WithTracer(tracer),
		pipeline.WithDetectorTimeout(cfg.DetectTimeout()))
	adapter := pagesource.New(mupdf.New(), cfg.Pipeline.DPI, pagesource.WithTracer(tracer))
	runner := batch.New(adapter, pipe, log, batch.WithTracer(tracer))

	start := time.Now()
	var report *batch.Report
	if singleFile != "" {
		report, err = runner.RunFile(cmd.Context(), singleFile, cfg.Paths.OutputFolder)
	} else {
		report, err = runner.Run(cmd.Context(), cfg.Paths.InputFolder, cfg.Paths.OutputFolder)
	}
	if err != nil {
		return err
	}

	log.Info("batch complete",
		observability.Int("files", len(report.Results)),
		observability.Int("processed", report.Processed()),
		observability.Int("failed", report.Failed()),
		observability.String("elapsed", time.Since(start).Round(time.Millisecond).String()))
	printReport(cmd, report)

	if !report.OK() {
		return fmt.Errorf("%d file(s) failed", report.Failed())
	}
	return nil
}

func applyProcessFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("input"); v != "" {
		cfg.Paths.InputFolder = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Paths.OutputFolder = v
	}
	if v, _ := cmd.Flags().GetFloat64("dpi"); v > 0 {
		cfg.Pipeline.DPI = v
	}
	if v, _ := cmd.Flags().GetInt("threshold"); v >= 0 {
		cfg.Pipeline.BinarizeThreshold = v
	}
	if v, _ := cmd.Flags().GetFloat64("contrast"); v > 0 {
		cfg.Pipeline.ContrastFactor = v
	}
	if v, _ := cmd.Flags().GetFloat64("brightness"); v > 0 {
		cfg.Pipeline.BrightnessFactor = v
	}
	if v, _ := cmd.Flags().GetInt("significance"); v >= 0 {
		cfg.Pipeline.SignificanceDegrees = v
	}
	if v, _ := cmd.Flags().GetString("detector"); v != "" {
		cfg.Pipeline.Detector = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		cfg.Pipeline.DetectTimeoutSeconds = int(v / time.Second)
	}
}

func buildDetector(name string) (orient.Detector, error) {
	switch name {
	case "osd":
		return osd.New(), nil
	case "tesseract":
		return tesseract.New(tesseract.WithLanguages("eng")), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown detector %q", name)
	}
}

func printReport(cmd *cobra.Command, report *batch.Report) {
	out := cmd.OutOrStdout()
	for _, res := range report.Results {
		switch res.Status {
		case batch.StatusFailed:
			fmt.Fprintf(out, "FAIL  %s: %v\n", res.Name, res.Err)
		case batch.StatusCopied:
			fmt.Fprintf(out, "COPY  %s\n", res.Name)
		default:
			fmt.Fprintf(out, "OK    %s (%d page(s))\n", res.Name, res.Pages)
		}
	}
}
