package chunk

import (
	"log/slog"
	"regexp"
	"strings"
)

// Config holds chunk-planning parameters. Values are copied in; the planner
// never mutates shared state between calls.
type Config struct {
	MaxChunkChars int
	MinChunkChars int
	OverlapChars  int
	MaxIterations int
	MaxChunks     int
}

// DefaultConfig returns the baseline used when the caller passes a zero config.
func DefaultConfig() Config {
	return Config{
		MaxChunkChars: 4200,
		MinChunkChars: 600,
		OverlapChars:  180,
		MaxIterations: 100,
		MaxChunks:     12,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxChunkChars <= 0 {
		c.MaxChunkChars = d.MaxChunkChars
	}
	if c.MinChunkChars <= 0 {
		c.MinChunkChars = d.MinChunkChars
	}
	if c.OverlapChars < 0 {
		c.OverlapChars = d.OverlapChars
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = d.MaxChunks
	}
	return c
}

// Spec is one planned character range. OverlapChars is the overlap shared with
// the previous chunk (0 for the first).
type Spec struct {
	Index           int `json:"index"`
	Start           int `json:"start"`
	End             int `json:"end"`
	Length          int `json:"length"`
	OverlapChars    int `json:"overlap_chars"`
	EstimatedTokens int `json:"estimated_tokens"`
}

const (
	charsPerToken   = 4
	lookbackWindow  = 300 // how far back we search for a structural boundary
	rowOverlapScale = 1.5
)

var reTotalsLine = regexp.MustCompile(`(?i)\b(total|subtotal|balance|amount\s+due)\b`)

// Planner computes deterministic overlapping chunk ranges, preferring to break
// on structural boundaries over raw truncation.
type Planner struct {
	logger *slog.Logger
}

func NewPlanner(logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{logger: logger}
}

// Plan returns the chunk sequence for text. The union of [Start,End) ranges
// always covers [0,len(text)) with no gaps; identical inputs yield identical
// output.
func (p *Planner) Plan(text string, cfg Config) []Spec {
	cfg = cfg.withDefaults()
	if len(text) == 0 {
		return nil
	}
	if len(text) <= cfg.MaxChunkChars {
		return []Spec{newSpec(0, 0, len(text), 0)}
	}

	specs, complete := p.planBoundary(text, cfg)
	if !complete {
		p.logger.Warn("chunk.plan.iterations_exhausted", "text_len", len(text), "planned", len(specs))
		return p.planSimple(text, cfg)
	}
	if len(specs) > cfg.MaxChunks {
		p.logger.Warn("chunk.plan.fallback_simple", "text_len", len(text), "planned", len(specs), "max_chunks", cfg.MaxChunks)
		return p.planSimple(text, cfg)
	}
	return specs
}

func (p *Planner) planBoundary(text string, cfg Config) ([]Spec, bool) {
	var specs []Spec
	start := 0
	for iter := 0; start < len(text); iter++ {
		if iter >= cfg.MaxIterations {
			return specs, false
		}

		end := start + cfg.MaxChunkChars
		if end >= len(text) {
			end = len(text)
		} else {
			end = boundaryBreak(text, start, end)
		}

		overlap := 0
		if len(specs) > 0 {
			overlap = specs[len(specs)-1].End - start
		}

		if end-start < cfg.MinChunkChars && len(specs) > 0 {
			// too small to stand alone: absorb into the previous chunk
			prev := &specs[len(specs)-1]
			prev.End = end
			prev.Length = prev.End - prev.Start
			prev.EstimatedTokens = estimateTokens(prev.Length)
		} else {
			specs = append(specs, newSpec(len(specs), start, end, overlap))
		}

		if end >= len(text) {
			break
		}

		next := end - adaptiveOverlap(text, start, end, cfg)
		if next <= start {
			next = end // never stall
		}
		start = next
	}
	return specs, true
}

// planSimple is the degraded fallback: fixed-size ranges, no boundary search,
// no overlap, sized up so the chunk count stays within bounds.
func (p *Planner) planSimple(text string, cfg Config) []Spec {
	size := cfg.MaxChunkChars * 3 / 2
	if need := (len(text) + cfg.MaxChunks - 1) / cfg.MaxChunks; size < need {
		size = need
	}
	var specs []Spec
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		specs = append(specs, newSpec(len(specs), start, end, 0))
	}
	return specs
}

func newSpec(index, start, end, overlap int) Spec {
	return Spec{
		Index:           index,
		Start:           start,
		End:             end,
		Length:          end - start,
		OverlapChars:    overlap,
		EstimatedTokens: estimateTokens(end - start),
	}
}

func estimateTokens(n int) int {
	return (n + charsPerToken - 1) / charsPerToken
}

// boundaryBreak searches backward from target for the nearest newline, then
// space, then table delimiter, within the lookback window. Raw truncation only
// when nothing structural is found.
func boundaryBreak(text string, start, target int) int {
	floor := target - lookbackWindow
	if floor < start+1 {
		floor = start + 1
	}
	window := text[floor:target]
	for _, sep := range []string{"\n", " ", "|"} {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return floor + i + 1 // cut just after the boundary char
		}
	}
	return target
}

// adaptiveOverlap sizes the overlap into the next chunk. A tail that ends
// mid-table-row gets up to 1.5x the row length (capped at half the chunk) so
// the row is not lost; short plain tails shrink the base overlap instead.
func adaptiveOverlap(text string, start, end int, cfg Config) int {
	chunkLen := end - start
	tail := lastLine(text[start:end])

	if looksLikeTableRow(tail) && !reTotalsLine.MatchString(tail) {
		overlap := int(float64(len(tail)) * rowOverlapScale)
		if limit := chunkLen / 2; overlap > limit {
			overlap = limit
		}
		if overlap < cfg.OverlapChars {
			overlap = cfg.OverlapChars
		}
		if overlap >= chunkLen {
			overlap = chunkLen / 2
		}
		return overlap
	}

	overlap := cfg.OverlapChars
	if len(tail) > 0 && len(tail) < overlap {
		overlap = len(tail)
	}
	if overlap >= chunkLen {
		overlap = chunkLen / 2
	}
	return overlap
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func looksLikeTableRow(line string) bool {
	return strings.Count(line, "|") >= 2 ||
		(strings.ContainsAny(line, "0123456789") && strings.Count(line, "  ") >= 2)
}
