package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/poextract/poextract/internal/chunk"
	"github.com/poextract/poextract/internal/common"
	"github.com/poextract/poextract/internal/confidence"
	"github.com/poextract/poextract/internal/entity"
	"github.com/poextract/poextract/internal/llm"
	"github.com/poextract/poextract/internal/merge"
	"github.com/poextract/poextract/internal/normalize"
	"github.com/poextract/poextract/internal/segment"
)

// Orchestrator sequences the extraction pipeline: normalize -> anchors ->
// segment -> plan chunks -> call model per chunk -> parse -> merge -> score.
// One logical task per document; chunk calls are sequential.
type Orchestrator struct {
	logger     *slog.Logger
	cfg        Config
	client     llm.Extractor
	anchors    segment.AnchorExtractor // nil skips the anchor step
	normalizer *normalize.Normalizer
	planner    *chunk.Planner
	scorer     *confidence.Scorer
	limiter    *rate.Limiter
}

func NewOrchestrator(logger *slog.Logger, cfg Config, client llm.Extractor, anchors segment.AnchorExtractor) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InterChunkDelay <= 0 {
		cfg.InterChunkDelay = DefaultConfig().InterChunkDelay
	}
	if cfg.TruncateFallbackChars <= 0 {
		cfg.TruncateFallbackChars = DefaultConfig().TruncateFallbackChars
	}
	return &Orchestrator{
		logger:     logger,
		cfg:        cfg,
		client:     client,
		anchors:    anchors,
		normalizer: normalize.New(logger),
		planner:    chunk.NewPlanner(logger),
		scorer:     confidence.New(logger),
		limiter:    rate.NewLimiter(rate.Every(cfg.InterChunkDelay), 1),
	}
}

// ExtractPurchaseOrder runs the full pipeline for one document. Callers
// always receive either a best-effort MergedExtraction (possibly with reduced
// line items and populated issues) or a terminal error, never a silent empty
// success.
func (o *Orchestrator) ExtractPurchaseOrder(ctx context.Context, text string, opts Options) (entity.MergedExtraction, error) {
	runID := uuid.New().String()
	start := time.Now()
	o.logger.Info("extract.run.start", "run_id", runID, "text_len", len(text))

	if len(text) == 0 {
		return entity.MergedExtraction{}, fmt.Errorf("empty document text")
	}

	var runIssues []string

	// 1) normalize
	workText := text
	var normRes *normalize.Result
	if !opts.DisableTextPreprocessing {
		normOpts := o.cfg.Normalize
		if opts.VendorKey != "" {
			normOpts.VendorKey = opts.VendorKey
		}
		normOpts.ExtraPatterns = append(normOpts.ExtraPatterns, opts.ExtraPatterns...)
		res := o.normalizer.Normalize(text, normOpts)
		normRes = &res
		workText = res.Text
		if res.FallbackApplied {
			runIssues = append(runIssues, "normalization fallback: "+joinReasons(res.FallbackReasons))
		}
	}

	// 2) anchor extraction (external, optional, non-fatal)
	var anchorRes *segment.AnchorResult
	if !opts.DisableAnchorExtraction && o.anchors != nil {
		ar, err := o.anchors.ExtractAnchors(ctx, workText, opts.AnchorOptions)
		if err != nil {
			o.logger.Warn("extract.anchors.skipped", "run_id", runID, "error", err)
			runIssues = append(runIssues, "anchor extraction skipped: "+err.Error())
		} else if ar.Applied {
			o.logger.Debug("extract.anchors.ok",
				"run_id", runID,
				"matched", ar.Stats.AnchorsMatched,
				"reduction_pct", ar.Stats.ReductionPercent,
			)
			anchorRes = &ar
		}
	}

	// 3) segment + 4) plan
	seg := segment.Segment(workText, anchorRes, o.cfg.Segmentation)
	chunkCfg := o.cfg.Chunking
	if opts.Chunking != nil {
		chunkCfg = *opts.Chunking
	}
	specs := o.planner.Plan(workText, chunkCfg)
	o.logger.Info("extract.plan.ok", "run_id", runID, "chunks", len(specs), "work_len", len(workText))

	// 5) sequential chunk calls
	payloads, chunkIssues, err := o.processChunks(ctx, runID, workText, seg, specs)
	if err != nil {
		return entity.MergedExtraction{}, err
	}
	runIssues = append(runIssues, chunkIssues...)

	if len(payloads) == 0 {
		return entity.MergedExtraction{}, fmt.Errorf("no chunk produced usable data (%d planned): %w",
			len(specs), common.ErrRetryable)
	}

	// 6) merge (skipped for single-chunk documents)
	var merged entity.ExtractionPayload
	if len(specs) == 1 {
		merged = payloads[0]
	} else {
		merged = merge.Payloads(payloads)
	}
	merged.Issues = append(merged.Issues, runIssues...)

	// 7) score
	quality := confidence.HeuristicIndicators(text)
	if opts.Quality != nil {
		quality = *opts.Quality
	}
	profile := o.scorer.Score(merged, normRes, quality)

	out := entity.MergedExtraction{
		ExtractionPayload: merged,
		ChunksPlanned:     len(specs),
		ChunksSucceeded:   len(payloads),
		ChunksFailed:      len(specs) - len(payloads),
		Score:             profile,
	}
	o.logger.Info("extract.run.ok",
		"run_id", runID,
		"chunks", len(specs),
		"succeeded", out.ChunksSucceeded,
		"line_items", len(merged.LineItems),
		"confidence", profile.Overall,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// processChunks awaits each chunk call before submitting the next, spacing
// calls through the shared limiter. A failure on one chunk records an issue
// and moves on; only auth errors abort the run.
func (o *Orchestrator) processChunks(ctx context.Context, runID, text string, seg segment.Segments, specs []chunk.Spec) ([]entity.ExtractionPayload, []string, error) {
	var payloads []entity.ExtractionPayload
	var issues []string

	for _, spec := range specs {
		if err := o.limiter.Wait(ctx); err != nil {
			return payloads, issues, err
		}

		payload, err := o.callChunk(ctx, text, seg, spec, len(specs))
		if err != nil {
			if errors.Is(err, llm.ErrAuth) || errors.Is(err, context.Canceled) {
				return nil, nil, err
			}
			if spec.Index == 0 && errors.Is(err, llm.ErrMalformedResponse) {
				// last resort: one truncated whole-document request
				o.logger.Warn("extract.first_chunk.parse_failed", "run_id", runID, "error", err)
				payload, fbErr := o.truncatedFallback(ctx, text, seg)
				if fbErr != nil {
					if errors.Is(fbErr, llm.ErrAuth) {
						return nil, nil, fbErr
					}
					return nil, nil, fmt.Errorf("first chunk unparseable and whole-document fallback failed: %w", fbErr)
				}
				payload.Issues = append(payload.Issues,
					"first chunk unparseable; result from truncated whole-document fallback")
				return []entity.ExtractionPayload{payload}, issues, nil
			}
			o.logger.Warn("extract.chunk.failed", "run_id", runID, "chunk", spec.Index, "error", err)
			issues = append(issues, fmt.Sprintf("chunk %d failed: %v", spec.Index+1, err))
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads, issues, nil
}

func (o *Orchestrator) callChunk(ctx context.Context, text string, seg segment.Segments, spec chunk.Spec, total int) (entity.ExtractionPayload, error) {
	in := llm.PromptInput{
		Header:     seg.Header,
		Totals:     seg.Totals,
		ChunkText:  text[spec.Start:spec.End],
		ChunkIndex: spec.Index,
		ChunkCount: total,
		FewShot:    o.cfg.FewShot,
	}
	// single-chunk prompts carry the located table blocks as extra context;
	// multi-chunk prompts already contain the rows in the chunk text
	if total == 1 {
		in.LineItemBlocks = seg.LineItemBlocks
	}

	reply, err := o.client.Extract(ctx, llm.Request{
		Messages:   llm.BuildMessages(in),
		SchemaName: llm.PurchaseOrderSchemaName,
		Schema:     llm.BuildPurchaseOrderJSONSchema(),
	})
	if err != nil {
		return entity.ExtractionPayload{}, err
	}

	payload, err := llm.Parse(reply.Content, o.logger)
	if err != nil {
		return entity.ExtractionPayload{}, err
	}
	payload.Usage = reply.Usage
	return payload, nil
}

// truncatedFallback resubmits the document as a single bounded request. Line
// items beyond the truncation point are lost; returning something quickly
// beats failing the document.
func (o *Orchestrator) truncatedFallback(ctx context.Context, text string, seg segment.Segments) (entity.ExtractionPayload, error) {
	limit := o.cfg.TruncateFallbackChars
	if len(text) > limit {
		text = text[:limit]
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return entity.ExtractionPayload{}, err
	}
	return o.callChunk(ctx, text, seg, chunk.Spec{Start: 0, End: len(text), Length: len(text)}, 1)
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "unknown"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += ", " + r
	}
	return out
}
