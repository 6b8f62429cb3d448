// Package batch runs the normalization pipeline over a folder of input
// documents. Image and PDF files go through the pipeline page-by-page;
// every other regular file is copied through unchanged. Failures are
// isolated per file: the batch always runs to completion and reports each
// outcome.
package batch

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/scanforge/scanprep/observability"
	"github.com/scanforge/scanprep/pagesource"
	"github.com/scanforge/scanprep/pipeline"
)

// Status classifies a file's outcome.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusCopied    Status = "copied"
	StatusFailed    Status = "failed"
)

// FileResult records the outcome for one input file.
type FileResult struct {
	Name    string
	Status  Status
	Pages   int
	Outputs []string
	Err     error
}

// Report aggregates the per-file outcomes of one batch run.
type Report struct {
	Results []FileResult
}

// Failed returns the number of failed files.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Processed returns the number of files that produced normalized output.
func (r *Report) Processed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusProcessed {
			n++
		}
	}
	return n
}

// OK reports whether every file completed without failure.
func (r *Report) OK() bool { return r.Failed() == 0 }

// Runner executes batches.
type Runner struct {
	adapter *pagesource.Adapter
	pipe    *pipeline.Pipeline
	log     observability.Logger
	tracer  observability.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithTracer sets the tracer for batch runs. Defaults to NopTracer.
func WithTracer(tr observability.Tracer) Option {
	return func(r *Runner) { r.tracer = tr }
}

// New constructs a Runner.
func New(adapter *pagesource.Adapter, pipe *pipeline.Pipeline, log observability.Logger, opts ...Option) *Runner {
	if log == nil {
		log = observability.NopLogger{}
	}
	r := &Runner{adapter: adapter, pipe: pipe, log: log, tracer: observability.NopTracer()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every regular file in inputDir into outputDir. Hidden files
// and subdirectories are skipped. The returned error covers setup problems
// only (unreadable input folder, uncreatable output folder); per-file
// failures live in the report.
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("batch: read input folder: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("batch: create output folder: %w", err)
	}

	ctx, span := r.tracer.StartSpan(ctx, observability.MetricBatchTime)
	defer span.Finish()

	report := &Report{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			span.SetError(err)
			return report, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		report.Results = append(report.Results, r.processEntry(ctx, inputDir, outputDir, name))
	}
	span.SetTag(observability.MetricBatchFailures, report.Failed())
	return report, nil
}

// RunFile processes one input file into outputDir, with the same per-file
// semantics as Run: supported formats go through the pipeline, anything else
// is copied through. Unlike a folder run, a missing or unreadable input path
// is a setup error.
func (r *Runner) RunFile(ctx context.Context, inputPath, outputDir string) (*Report, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("batch: stat input file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("batch: %s is a folder; pass it as the input folder instead", inputPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("batch: create output folder: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{}
	report.Results = append(report.Results,
		r.processEntry(ctx, filepath.Dir(inputPath), outputDir, filepath.Base(inputPath)))
	return report, nil
}

func (r *Runner) processEntry(ctx context.Context, inputDir, outputDir, name string) FileResult {
	src := filepath.Join(inputDir, name)
	log := r.log.With(observability.String("file", name))

	if !pagesource.IsSupported(name) {
		if err := copyThrough(src, filepath.Join(outputDir, name)); err != nil {
			log.Error("copy-through failed", observability.Error("err", err))
			return FileResult{Name: name, Status: StatusFailed, Err: err}
		}
		log.Info("copied non-image file")
		return FileResult{Name: name, Status: StatusCopied, Outputs: []string{name}}
	}

	pages, err := r.adapter.Pages(ctx, src)
	if err != nil {
		derr := &pipeline.DecodeError{Path: name, Err: err}
		log.Error("decode failed, skipping file", observability.Error("err", derr))
		return FileResult{Name: name, Status: StatusFailed, Err: derr}
	}

	paged := pagesource.IsDocument(name)
	result := FileResult{Name: name, Status: StatusProcessed, Pages: len(pages)}
	for _, page := range pages {
		out, err := r.pipe.Process(ctx, page.Image)
		if err != nil {
			log.Error("page failed", observability.Int("page", page.Index+1),
				observability.Error("err", err))
			result.Status = StatusFailed
			result.Err = err
			continue
		}
		outName := OutputName(name, page.Index, paged)
		if err := writeAtomic(filepath.Join(outputDir, outName), out); err != nil {
			log.Error("write failed", observability.String("output", outName),
				observability.Error("err", err))
			result.Status = StatusFailed
			result.Err = err
			continue
		}
		log.Info("page normalized", observability.Int("page", page.Index+1),
			observability.String("output", outName))
		result.Outputs = append(result.Outputs, outName)
	}
	return result
}

// OutputName derives the output filename: the stem is preserved, multi-page
// documents get a 1-based page suffix, and the result is always PNG.
func OutputName(inputName string, pageIndex int, paged bool) string {
	stem := strings.TrimSuffix(inputName, filepath.Ext(inputName))
	if paged {
		return fmt.Sprintf("%s_page%d_processed.png", stem, pageIndex+1)
	}
	return stem + "_processed.png"
}

// writeAtomic encodes img as PNG into a temp file and renames it into place,
// so a failed page never leaves a partial artifact behind.
func writeAtomic(path string, img image.Image) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		tmp.Close()
		return fmt.Errorf("encode output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish output: %w", err)
	}
	return nil
}

// copyThrough copies src to dst preserving the source's permission bits and
// modification time.
func copyThrough(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("flush destination: %w", err)
	}
	// OpenFile's perm is filtered by the umask; restore the exact bits.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("preserve mode: %w", err)
	}
	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return fmt.Errorf("preserve times: %w", err)
	}
	return nil
}
