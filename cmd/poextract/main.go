package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poextract/poextract/constants"
	"github.com/poextract/poextract/internal/common"
	"github.com/poextract/poextract/internal/export"
	"github.com/poextract/poextract/internal/extract"
	"github.com/poextract/poextract/internal/llm"
	"github.com/poextract/poextract/internal/llm/openai"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		inPath     = flag.String("in", "", "path to the document text file (required)")
		outPath    = flag.String("out", "", "output path; stdout when empty")
		asXLSX     = flag.Bool("xlsx", false, "write an XLSX workbook instead of JSON")
		configPath = flag.String("config", "", "optional YAML config file")
		vendorKey  = flag.String("vendor", "", "vendor noise-pattern key")
		noPrep     = flag.Bool("no-preprocess", false, "disable text normalization")
		noAnchors  = flag.Bool("no-anchors", false, "disable anchor extraction")
	)
	flag.Parse()

	if *inPath == "" {
		logger.Error("usage: poextract -in <file> [-out <file>] [-xlsx]")
		os.Exit(2)
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

	if format := constants.MapExtToFormat(filepath.Ext(*inPath)); format == "" {
		logger.Warn("unrecognized input extension, treating as plain text",
			"path", *inPath, "supported", strings.Join(constants.InputFormats, ", "))
	}
	raw, err := os.ReadFile(*inPath)
	if err != nil {
		logger.Error("read input", "path", *inPath, "error", err)
		os.Exit(1)
	}

	orch := buildOrchestrator(cfg, logger)
	opts := extract.Options{
		DisableTextPreprocessing: *noPrep,
		DisableAnchorExtraction:  *noAnchors,
		VendorKey:                *vendorKey,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	res, err := orch.ExtractPurchaseOrder(ctx, string(raw), opts)
	if err != nil {
		logger.Error("extract failed", "path", *inPath, "error", err, "retryable", common.IsRetryable(err))
		os.Exit(1)
	}

	var out []byte
	if *asXLSX {
		out, err = export.NewService(logger).ExtractionXLSX(res)
	} else {
		out, err = json.MarshalIndent(res, "", "  ")
	}
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}

	if *outPath == "" {
		os.Stdout.Write(out)
		os.Stdout.Write([]byte("\n"))
		return
	}
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		logger.Error("write output", "path", *outPath, "error", err)
		os.Exit(1)
	}
	logger.Info("done", "path", *inPath, "out", *outPath, "line_items", len(res.LineItems), "confidence", res.Score.Overall)
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
	ocfg.Normalize.RemoveArtifacts = cfg.Normalize.RemoveArtifacts
	ocfg.Normalize.CollapseWhitespace = cfg.Normalize.CollapseWhitespace
	ocfg.Normalize.CompressPOPatterns = cfg.Normalize.CompressPOPatterns
	ocfg.Normalize.CompressTableLayout = cfg.Normalize.CompressTableLayout
	ocfg.Normalize.VendorKey = cfg.Normalize.VendorKey
	ocfg.InterChunkDelay = cfg.Extract.InterChunkDelay
	ocfg.TruncateFallbackChars = cfg.Extract.TruncateFallbackChars

	// anchor extraction is an external collaborator; none is wired in the CLI
	return extract.NewOrchestrator(logger, ocfg, client, nil)
}
