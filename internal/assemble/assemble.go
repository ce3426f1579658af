// Package assemble runs a full corpus build: stage the archive, normalize
// every kernel in a bounded worker pool, and package the result.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/hlsbench/internal/archive"
	"github.com/Aman-CERP/hlsbench/internal/describe"
	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/kernel"
	"github.com/Aman-CERP/hlsbench/internal/ledger"
	"github.com/Aman-CERP/hlsbench/internal/normalize"
	"github.com/Aman-CERP/hlsbench/internal/resolve"
	"github.com/Aman-CERP/hlsbench/internal/ui"
	"github.com/Aman-CERP/hlsbench/pkg/corpus"
)

// BenchmarksDirName is the work-dir subdirectory kernels are built in.
const BenchmarksDirName = "benchmarks"

// Options configures one build.
type Options struct {
	ArchivePath      string
	DescriptionsPath string
	OutputDir        string
	OutputArchive    string
	// WorkDir holds staging and per-kernel output. Empty means a temporary
	// directory removed when the build ends.
	WorkDir     string
	KernelPaths []string
	// Jobs bounds the worker pool; <= 0 means runtime.NumCPU().
	Jobs       int
	RootFolder string
	// KeepGoing packages the kernels that succeeded instead of failing
	// the whole build.
	KeepGoing bool
}

// Result is the outcome of a successful build.
type Result struct {
	RunID string
	// Records are sorted by canonical name.
	Records []kernel.Record
	// Failures lists kernels skipped under KeepGoing.
	Failures     []*KernelError
	ArchivePath  string
	ArchiveBytes int64
	Duration     time.Duration
	Stages       ui.StageTimings
}

// Dependencies contains the injected dependencies for Assembler.
type Dependencies struct {
	// Renderer for progress display. Defaults to ui.NopRenderer.
	Renderer ui.Renderer
	// Strategy resolves top functions. Defaults to the pattern strategy.
	Strategy resolve.Strategy
	// Normalizer rewrites kernel sources. Defaults to truncate policy.
	Normalizer *normalize.Normalizer
	// Descriptions caches parsed description documents across runs.
	Descriptions *describe.Cache
	// Ledger records runs when set.
	Ledger ledger.Recorder
	Logger *slog.Logger
}

// Assembler executes corpus builds.
type Assembler struct {
	renderer     ui.Renderer
	strategy     resolve.Strategy
	normalizer   *normalize.Normalizer
	descriptions *describe.Cache
	ledger       ledger.Recorder
	logger       *slog.Logger
}

// NewAssembler creates an Assembler, filling defaults for unset
// dependencies.
func NewAssembler(deps Dependencies) *Assembler {
	a := &Assembler{
		renderer:     deps.Renderer,
		strategy:     deps.Strategy,
		normalizer:   deps.Normalizer,
		descriptions: deps.Descriptions,
		ledger:       deps.Ledger,
		logger:       deps.Logger,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.renderer == nil {
		a.renderer = ui.NopRenderer{}
	}
	if a.strategy == nil {
		a.strategy = resolve.NewPatternStrategy()
	}
	if a.normalizer == nil {
		a.normalizer = normalize.New(normalize.Options{}, a.logger)
	}
	if a.descriptions == nil {
		a.descriptions = describe.NewCache(0)
	}
	return a
}

// slot holds one kernel's progress through both phases.
type slot struct {
	loc    kernel.Location
	meta   kernel.Metadata
	record kernel.Record
	err    error
}

// Run executes a build. Fatal errors (input format, lock, staging) are
// returned directly; per-kernel failures are returned as *BatchError
// unless opts.KeepGoing is set and at least one kernel succeeded.
func (a *Assembler) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := validate(&opts); err != nil {
		return nil, err
	}

	lock := NewOutputLock(opts.OutputDir)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	start := time.Now()
	runID := uuid.New().String()
	a.logger.Info("batch_start",
		slog.String("run_id", runID),
		slog.String("archive", opts.ArchivePath),
		slog.Int("kernels", len(opts.KernelPaths)),
		slog.Int("jobs", opts.Jobs),
		slog.String("resolver", a.strategy.Name()))

	workDir := opts.WorkDir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "hlsbench-*")
		if err != nil {
			return nil, hberrors.InternalError("failed to create work directory", err)
		}
		defer os.RemoveAll(tmp)
		workDir = tmp
	}
	benchDir := filepath.Join(workDir, BenchmarksDirName)
	if err := recreateDir(benchDir); err != nil {
		return nil, err
	}

	var timings ui.StageTimings

	// Stage
	mark := time.Now()
	a.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageStaging, Message: "extracting " + filepath.Base(opts.ArchivePath)})
	root, err := archive.Stage(ctx, opts.ArchivePath, workDir, opts.RootFolder)
	if err != nil {
		return nil, err
	}
	descriptions, err := a.descriptions.Load(opts.DescriptionsPath)
	if err != nil {
		return nil, err
	}
	// The previous corpus survives any input error above.
	if err := recreateDir(opts.OutputDir); err != nil {
		return nil, err
	}
	timings.Stage = time.Since(mark)

	locs := kernel.Locate(root, opts.KernelPaths)
	slots := make([]*slot, len(locs))
	for i, loc := range locs {
		slots[i] = &slot{loc: loc}
	}

	// Phase 1: metadata
	mark = time.Now()
	a.pool(ctx, opts.Jobs, ui.StageMetadata, slots, func(ctx context.Context, s *slot) error {
		meta, err := kernel.ExtractMetadata(s.loc.Dir)
		s.meta = meta
		return err
	})
	markDuplicates(slots)
	timings.Metadata = time.Since(mark)

	// Phase 2: normalize, resolve, describe
	mark = time.Now()
	a.pool(ctx, opts.Jobs, ui.StageNormalizing, slots, func(ctx context.Context, s *slot) error {
		return a.buildKernel(ctx, s, benchDir, descriptions)
	})
	timings.Normalize = time.Since(mark)

	var (
		records  []kernel.Record
		failures []*KernelError
	)
	for _, s := range slots {
		if s.err != nil {
			failures = append(failures, &KernelError{Path: s.loc.RelPath, Err: s.err})
			continue
		}
		records = append(records, s.record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CanonicalName < records[j].CanonicalName })

	result := &Result{
		RunID:    runID,
		Records:  records,
		Failures: failures,
	}

	if len(failures) > 0 && (!opts.KeepGoing || len(records) == 0) {
		for _, f := range failures {
			a.renderer.AddError(ui.ErrorEvent{Kernel: f.Path, Err: f.Err})
			a.logger.Error("kernel_failed", kernelAttrs(f)...)
		}
		result.Duration = time.Since(start)
		a.record(ctx, result, slots, ledger.StatusFailed)
		return nil, &BatchError{Failures: failures, Total: len(slots)}
	}

	for _, f := range failures {
		a.renderer.AddError(ui.ErrorEvent{Kernel: f.Path, Err: f.Err, IsWarn: true})
		a.logger.Warn("kernel_skipped", kernelAttrs(f)...)
	}

	// Package
	mark = time.Now()
	a.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StagePackaging, Current: 0, Total: len(records)})
	for i, r := range records {
		if err := moveDir(filepath.Join(benchDir, r.CanonicalName), filepath.Join(opts.OutputDir, r.CanonicalName)); err != nil {
			return nil, err
		}
		a.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StagePackaging, Current: i + 1, Total: len(records), Kernel: r.CanonicalName})
	}
	if err := os.RemoveAll(filepath.Join(workDir, archive.StagingDirName)); err != nil {
		a.logger.Warn("staging_cleanup_failed", slog.String("error", err.Error()))
	}
	size, err := archive.WriteTarGz(ctx, opts.OutputDir, opts.OutputArchive)
	if err != nil {
		return nil, err
	}
	timings.Package = time.Since(mark)

	result.ArchivePath = opts.OutputArchive
	result.ArchiveBytes = size
	result.Duration = time.Since(start)
	result.Stages = timings

	status := ledger.StatusOK
	if len(failures) > 0 {
		status = ledger.StatusPartial
	}
	a.record(ctx, result, slots, status)

	a.renderer.Complete(ui.CompletionStats{
		Kernels:      len(records),
		Failed:       len(failures),
		Duration:     result.Duration,
		ArchivePath:  result.ArchivePath,
		ArchiveBytes: size,
		Resolver:     a.strategy.Name(),
		RunID:        runID,
		Stages:       timings,
	})
	a.logger.Info("batch_complete",
		slog.String("run_id", runID),
		slog.Int("kernels", len(records)),
		slog.Int("skipped", len(failures)),
		slog.Int64("archive_bytes", size),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// buildKernel runs phase 2 for one kernel whose metadata is known.
func (a *Assembler) buildKernel(ctx context.Context, s *slot, benchDir string, descriptions *describe.Corpus) error {
	name := s.meta.Name()
	out, err := a.normalizer.Normalize(ctx, normalize.Input{
		Dir:      s.loc.Dir,
		Metadata: s.meta,
		OutDir:   benchDir,
	})
	if err != nil {
		return withKernel(err, name, s.loc.RelPath)
	}

	top, err := resolve.Resolve(ctx, a.strategy, out.Header)
	if err != nil {
		return withKernel(err, name, s.loc.RelPath)
	}

	description, err := descriptions.Lookup(name)
	if err != nil {
		return err
	}

	if err := corpus.WriteMarkers(out.Dir, top, description); err != nil {
		return hberrors.Wrap(hberrors.ErrCodeFilePermission, err).WithDetail("kernel", name)
	}

	s.record = kernel.Record{
		SourcePath:    s.loc.RelPath,
		CanonicalName: name,
		TopFunction:   top,
		Description:   description,
	}
	return nil
}

// pool runs fn for every slot without an earlier error, at most jobs at a
// time. Tasks never fail the group: each writes its own slot, so every
// failure is collected. Slots not yet started when ctx is cancelled fail
// with the context error.
func (a *Assembler) pool(ctx context.Context, jobs int, stage ui.Stage, slots []*slot, fn func(context.Context, *slot) error) {
	var pending []*slot
	for _, s := range slots {
		if s.err == nil {
			pending = append(pending, s)
		}
	}

	var done atomic.Int64
	total := len(pending)
	a.renderer.UpdateProgress(ui.ProgressEvent{Stage: stage, Current: 0, Total: total})

	var g errgroup.Group
	g.SetLimit(jobs)
	for _, s := range pending {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				s.err = err
			} else {
				s.err = fn(ctx, s)
			}
			a.renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   stage,
				Current: int(done.Add(1)),
				Total:   total,
				Kernel:  s.loc.RelPath,
			})
			return nil
		})
	}
	_ = g.Wait()
}

// markDuplicates fails every kernel whose canonical name collides with
// another kernel's. It runs before any kernel output is written.
func markDuplicates(slots []*slot) {
	byName := make(map[string][]*slot)
	for _, s := range slots {
		if s.err == nil {
			byName[s.meta.Name()] = append(byName[s.meta.Name()], s)
		}
	}
	for name, group := range byName {
		if len(group) < 2 {
			continue
		}
		paths := make([]string, len(group))
		for i, s := range group {
			paths[i] = s.loc.RelPath
		}
		for _, s := range group {
			s.err = hberrors.Newf(hberrors.ErrCodeDuplicateKernel,
				"canonical name %s is produced by more than one kernel: %s", name, strings.Join(paths, ", ")).
				WithDetail("kernel", name).
				WithDetail("paths", strings.Join(paths, ","))
		}
	}
}

// record writes the run to the ledger. Ledger errors are logged only.
func (a *Assembler) record(ctx context.Context, result *Result, slots []*slot, status string) {
	if a.ledger == nil {
		return
	}

	run := ledger.Run{
		ID:           result.RunID,
		StartedAt:    time.Now().Add(-result.Duration),
		Duration:     result.Duration,
		Status:       status,
		ArchivePath:  result.ArchivePath,
		ArchiveBytes: result.ArchiveBytes,
		Resolver:     a.strategy.Name(),
	}
	for _, s := range slots {
		o := ledger.Outcome{KernelPath: s.loc.RelPath, Status: ledger.StatusOK}
		if s.meta.Kernel != "" && s.meta.Algorithm != "" {
			o.CanonicalName = s.meta.Name()
		}
		if s.err != nil {
			o.Status = ledger.StatusFailed
			o.ErrorCode = hberrors.GetCode(s.err)
			o.ErrorMessage = s.err.Error()
		} else {
			o.TopFunction = s.record.TopFunction
		}
		run.Outcomes = append(run.Outcomes, o)
	}

	// A cancelled build is still recorded.
	if err := a.ledger.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		a.logger.Warn("ledger_write_failed", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
}

func validate(opts *Options) error {
	for _, req := range []struct{ name, value string }{
		{"archive path", opts.ArchivePath},
		{"descriptions path", opts.DescriptionsPath},
		{"output directory", opts.OutputDir},
		{"output archive", opts.OutputArchive},
	} {
		if req.value == "" {
			return hberrors.Newf(hberrors.ErrCodeInvalidInput, "%s is required", req.name)
		}
	}
	if len(opts.KernelPaths) == 0 {
		opts.KernelPaths = kernel.DefaultPaths
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}

	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return hberrors.Wrap(hberrors.ErrCodeInvalidPath, err)
	}
	for _, p := range []struct{ name, value string }{
		{"output archive", opts.OutputArchive},
		{"work directory", opts.WorkDir},
	} {
		if p.value == "" {
			continue
		}
		abs, err := filepath.Abs(p.value)
		if err != nil {
			return hberrors.Wrap(hberrors.ErrCodeInvalidPath, err)
		}
		if rel, err := filepath.Rel(out, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return hberrors.Newf(hberrors.ErrCodeInvalidPath,
				"%s %s must not be inside the output directory %s", p.name, p.value, opts.OutputDir)
		}
	}
	return nil
}

// withKernel attaches the kernel name and path to a structured error.
func withKernel(err error, name, path string) error {
	var be *hberrors.BenchError
	if errors.As(err, &be) {
		return be.WithDetail("kernel", name).WithDetail("path", path)
	}
	return err
}

func kernelAttrs(f *KernelError) []any {
	attrs := []any{slog.String("kernel", f.Path)}
	for k, v := range hberrors.FormatForLog(f.Err) {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func recreateDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return hberrors.New(hberrors.ErrCodeFilePermission, fmt.Sprintf("cannot remove %s", dir), err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return hberrors.New(hberrors.ErrCodeFilePermission, fmt.Sprintf("cannot create %s", dir), err)
	}
	return nil
}
