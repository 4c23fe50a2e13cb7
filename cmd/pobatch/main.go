package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/poextract/poextract/constants"
	"github.com/poextract/poextract/internal/async"
	"github.com/poextract/poextract/internal/common"
	"github.com/poextract/poextract/internal/export"
	"github.com/poextract/poextract/internal/extract"
	"github.com/poextract/poextract/internal/llm"
	"github.com/poextract/poextract/internal/llm/openai"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	var (
		inDir      = flag.String("dir", "", "directory of document text files (required)")
		outDir     = flag.String("out", "", "output directory; defaults to the input directory")
		asXLSX     = flag.Bool("xlsx", false, "write XLSX workbooks instead of JSON")
		configPath = flag.String("config", "", "optional YAML config file")
		workers    = flag.Int("workers", 0, "override worker count")
	)
	flag.Parse()

	if *inDir == "" {
		logger.Error("usage: pobatch -dir <directory> [-out <directory>] [-xlsx]")
		os.Exit(2)
	}
	if *outDir == "" {
		*outDir = *inDir
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}

	jobs, err := collectJobs(*inDir, *outDir, *asXLSX)
	if err != nil {
		logger.Error("scan input directory", "dir", *inDir, "error", err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		logger.Error("no supported documents found", "dir", *inDir)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("create output directory", "dir", *outDir, "error", err)
		os.Exit(1)
	}

	orch := buildOrchestrator(cfg, logger)
	exporter := export.NewService(logger)
	bar := progressbar.Default(int64(len(jobs)), "extracting")

	var failed atomic.Int64
	process := func(ctx context.Context, job async.Job) error {
		defer bar.Add(1)
		if err := processOne(ctx, orch, exporter, job, *asXLSX); err != nil {
			failed.Add(1)
			return err
		}
		return nil
	}

	queue := async.NewDocumentQueue(process, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(cfg.Batch.ProcessTimeout),
	)
	ctx := context.Background()
	for _, job := range jobs {
		if err := queue.Enqueue(ctx, job); err != nil {
			logger.Error("enqueue", "path", job.Path, "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(len(jobs))*cfg.Batch.ProcessTimeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	bar.Finish()

	if n := failed.Load(); n > 0 {
		logger.Error("batch finished with failures", "total", len(jobs), "failed", n)
		os.Exit(1)
	}
}

func collectJobs(inDir, outDir string, asXLSX bool) ([]async.Job, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, err
	}
	outExt := ".json"
	if asXLSX {
		outExt = ".xlsx"
	}
	var jobs []async.Job
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := constants.NormalizeExt(filepath.Ext(e.Name()))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		jobs = append(jobs, async.Job{
			Path:        filepath.Join(inDir, e.Name()),
			OutPath:     filepath.Join(outDir, base+outExt),
			SubmittedAt: time.Now(),
			TraceID:     uuid.New().String(),
		})
	}
	return jobs, nil
}

func processOne(ctx context.Context, orch *extract.Orchestrator, exporter *export.Service, job async.Job, asXLSX bool) error {
	raw, err := os.ReadFile(job.Path)
	if err != nil {
		return err
	}

	res, err := orch.ExtractPurchaseOrder(ctx, string(raw), extract.Options{})
	if err != nil {
		return err
	}

	var out []byte
	if asXLSX {
		out, err = exporter.ExtractionXLSX(res)
	} else {
		out, err = json.MarshalIndent(res, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(job.OutPath, out, 0o644)
}

func buildOrchestrator(cfg *common.Config, logger *slog.Logger) *extract.Orchestrator {
	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		Retry: llm.RetryPolicy{
			MaxAttempts:  cfg.LLM.MaxAttempts,
			BaseDelay:    time.Second,
			MaxDelay:     30 * time.Second,
			JitterFactor: 0.2,
		},
	}, logger)

	ocfg := extract.DefaultConfig()
	ocfg.Chunking.MaxChunkChars = cfg.Chunking.MaxChunkChars
	ocfg.Chunking.MinChunkChars = cfg.Chunking.MinChunkChars
	ocfg.Chunking.OverlapChars = cfg.Chunking.OverlapChars
	ocfg.Chunking.MaxIterations = cfg.Chunking.MaxIterations
	ocfg.Chunking.MaxChunks = cfg.Chunking.MaxChunks
	ocfg.Normalize.VendorKey = cfg.Normalize.VendorKey
	ocfg.InterChunkDelay = cfg.Extract.InterChunkDelay
	ocfg.TruncateFallbackChars = cfg.Extract.TruncateFallbackChars

	return extract.NewOrchestrator(logger, ocfg, client, nil)
}
