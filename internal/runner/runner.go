package runner

// =============================================================================
// RUNNER: ALL UNITS OR NOTHING
// =============================================================================
//
// The runner drives the frontend and the extractor over every input file and
// owns the output stream. Units are processed in parallel but each unit's
// records are buffered, and nothing reaches the output until every unit has
// succeeded. Consumers compare the stream against debug info line by line;
// half a stream looks like missing coverage, which is worse than no stream.
//
// Region diagnostics (dropped and inverted regions) are buffered per unit
// too and flushed in input order, so parallel runs read the same as serial
// ones.
//
// When output validation is on, a record that breaks the CUE contract fails
// the run. Do not filter the record out: fix the extractor.
// =============================================================================

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/dbgcov/internal/cfront"
	"github.com/robert-at-pretension-io/dbgcov/internal/config"
	"github.com/robert-at-pretension-io/dbgcov/internal/extractor"
	"github.com/robert-at-pretension-io/dbgcov/internal/region"
	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
	"github.com/robert-at-pretension-io/dbgcov/internal/validator"
)

// Runner turns C source files into a region stream
type Runner struct {
	// Configuration loaded from dbgcov.json / dbgcov.yaml
	Config *config.Config

	// Output receives the region stream
	Output io.Writer

	// Diag receives region diagnostics and verbose sections
	Diag io.Writer

	// Verbose output
	Verbose bool

	// Timing output (JSONL)
	Timing     bool
	TimingPath string

	// Optional parser factory (for tests)
	parserFactory func() Parser
}

// Parser abstracts the frontend for tests
type Parser interface {
	ParseFile(ctx context.Context, path string) (*syntax.TranslationUnit, error)
}

// Result describes a completed run
type Result struct {
	Files   []FileResult    `json:"files"`
	Records []region.Record `json:"-"`
}

// FileResult provides per-file region counts
type FileResult struct {
	Path     string         `json:"path"`
	Unit     string         `json:"unit"`
	Regions  int            `json:"regions"`
	Kinds    map[string]int `json:"kinds"`
	Dropped  int            `json:"dropped"`
	Inverted int            `json:"inverted"`
	Cached   bool           `json:"cached"`
}

// unitOutput is everything one unit produced, held until the run succeeds
type unitOutput struct {
	records  []region.Record
	diag     bytes.Buffer
	dropped  int
	inverted int
	cached   bool
}

func (o *unitOutput) snapshot() cachedUnit {
	return cachedUnit{Records: o.records, Diag: o.diag.String(), Dropped: o.dropped, Inverted: o.inverted}
}

func (o *unitOutput) restore(u cachedUnit) {
	o.records = u.Records
	o.diag.WriteString(u.Diag)
	o.dropped = u.Dropped
	o.inverted = u.Inverted
	o.cached = true
}

// New creates a Runner with default configuration writing to stdout and stderr
func New() *Runner {
	return NewWithConfig(config.DefaultConfig())
}

// NewWithConfig creates a Runner with the given configuration
func NewWithConfig(cfg *config.Config) *Runner {
	return &Runner{
		Config: cfg,
		Output: os.Stdout,
		Diag:   os.Stderr,
	}
}

func (r *Runner) newParser() Parser {
	if r.parserFactory != nil {
		return r.parserFactory()
	}
	return cfront.New(cfront.Options{
		Strict:           r.Config.Frontend.Strict,
		HonorLineMarkers: r.Config.LineMarkersHonored(),
	})
}

// Run processes every file and directory in paths. Directories expand
// through the configured source patterns.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	runStart := time.Now()
	timing := newTimingRecorder(runStart, r.resolveTimingPath())
	defer timing.Close()
	if err := timing.Err(); err != nil {
		return nil, fmt.Errorf("opening timing file: %w", err)
	}

	format, err := region.ParseFormat(r.Config.Output.Format)
	if err != nil {
		return nil, err
	}

	workingDir, err := r.workingDir()
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// PHASE 1: Resolve inputs
	// =========================================================================
	stageStart := time.Now()
	files, err := r.Config.ResolveSources(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no C sources found in %s", strings.Join(paths, ", "))
	}
	if r.Config.Analysis.WorkingDir != "" {
		for i, f := range files {
			if abs, err := filepath.Abs(f); err == nil {
				files[i] = abs
			}
		}
	}
	timing.RecordStage("scan", stageStart, time.Since(stageStart), "")

	// =========================================================================
	// PHASE 2: Extract regions (parallel, buffered per unit)
	// =========================================================================
	stageStart = time.Now()
	var cache *regionCache
	if r.Config.CacheEnabled() {
		cache = newRegionCache(r.cacheDir(workingDir), r.cacheOptionsKey(workingDir))
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}

	outputs := make([]*unitOutput, len(files))
	parsers := sync.Pool{New: func() any { return r.newParser() }}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism())
	for i, file := range files {
		out := &unitOutput{}
		outputs[i] = out
		g.Go(func() error {
			fileStart := time.Now()
			var hash string
			if cache != nil {
				h, err := hashFile(file)
				if err != nil {
					return fmt.Errorf("%s: hashing for cache: %w", file, err)
				}
				hash = h
				unit, ok, err := cache.Get(file, hash)
				if err != nil {
					return err
				}
				if ok {
					out.restore(unit)
					timing.RecordFile("extract", file, "cached", len(out.records), fileStart, time.Since(fileStart))
					return nil
				}
			}

			parser := parsers.Get().(Parser)
			defer parsers.Put(parser)

			err := extractFile(gctx, parser, file, workingDir, out)
			if err == nil && cache != nil {
				err = cache.Put(file, hash, out.snapshot())
			}
			status := "ok"
			if err != nil {
				status = "error"
			}
			timing.RecordFile("extract", file, status, len(out.records), fileStart, time.Since(fileStart))
			return err
		})
	}
	runErr := g.Wait()
	timing.RecordStage("extract", stageStart, time.Since(stageStart), "")

	for _, out := range outputs {
		if _, err := r.Diag.Write(out.diag.Bytes()); err != nil {
			return nil, fmt.Errorf("writing diagnostics: %w", err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if cache != nil {
		if err := cache.Save(); err != nil {
			return nil, err
		}
	}

	result := &Result{}
	for i, out := range outputs {
		result.Records = append(result.Records, out.records...)
		result.Files = append(result.Files, FileResult{
			Path:     files[i],
			Unit:     extractor.UnitPath(workingDir, files[i]),
			Regions:  len(out.records),
			Kinds:    countKinds(out.records),
			Dropped:  out.dropped,
			Inverted: out.inverted,
			Cached:   out.cached,
		})
	}

	// =========================================================================
	// PHASE 3: Validate against the region contract
	// =========================================================================
	if r.Config.Output.Validate {
		stageStart = time.Now()
		v, err := validator.New()
		if err != nil {
			return nil, fmt.Errorf("CRITICAL: Failed to initialize CUE validator: %w", err)
		}
		if err := v.ValidateRegions(result.Records); err != nil {
			timing.RecordStage("validate", stageStart, time.Since(stageStart), "error")
			return nil, fmt.Errorf("CRITICAL: region stream violates contract: %w", err)
		}
		timing.RecordStage("validate", stageStart, time.Since(stageStart), "ok")
	}

	// =========================================================================
	// PHASE 4: Write
	// =========================================================================
	stageStart = time.Now()
	if err := region.WriteAll(r.Output, format, result.Records); err != nil {
		return nil, fmt.Errorf("writing regions: %w", err)
	}
	timing.RecordStage("write", stageStart, time.Since(stageStart), "")

	if r.Verbose {
		r.printVerbose(result)
	}

	timing.RecordStage("total", runStart, time.Since(runStart), "")
	return result, nil
}

// extractFile parses one file and runs the extractor over it
func extractFile(ctx context.Context, parser Parser, file, workingDir string, out *unitOutput) error {
	unit, err := parser.ParseFile(ctx, file)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	collector := &region.Collector{}
	emitter := region.NewEmitter(collector, &out.diag, workingDir)
	ex := extractor.New(emitter, extractor.Options{WorkingDir: workingDir})
	if err := ex.ExtractUnit(unit); err != nil {
		return err
	}

	out.records = collector.Records
	out.dropped = emitter.Dropped()
	out.inverted = emitter.Inverted()
	return nil
}

func (r *Runner) workingDir() (string, error) {
	if r.Config.Analysis.WorkingDir != "" {
		return filepath.Abs(r.Config.Analysis.WorkingDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determining working directory: %w", err)
	}
	return wd, nil
}

func (r *Runner) parallelism() int {
	if n := r.Config.Analysis.MaxParallelFiles; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func countKinds(records []region.Record) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[string(rec.Kind)]++
	}
	return counts
}

func (r *Runner) printVerbose(result *Result) {
	fmt.Fprintf(r.Diag, "\n=== Verbose: Regions ===\n")
	total := 0
	for _, f := range result.Files {
		total += f.Regions
		fmt.Fprintf(r.Diag, "  %s (unit %s): %d regions\n", f.Path, f.Unit, f.Regions)
		kinds := make([]string, 0, len(f.Kinds))
		for k := range f.Kinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(r.Diag, "    %-14s %d\n", k, f.Kinds[k])
		}
		if f.Dropped > 0 || f.Inverted > 0 {
			fmt.Fprintf(r.Diag, "    dropped %d, inverted %d\n", f.Dropped, f.Inverted)
		}
	}
	fmt.Fprintf(r.Diag, "\n=== Verbose: Summary ===\n")
	fmt.Fprintf(r.Diag, "  %d files, %d regions\n", len(result.Files), total)
}
