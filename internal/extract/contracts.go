package extract

import (
	"regexp"
	"time"

	"github.com/poextract/poextract/internal/chunk"
	"github.com/poextract/poextract/internal/entity"
	"github.com/poextract/poextract/internal/normalize"
	"github.com/poextract/poextract/internal/segment"
)

// Config holds the orchestrator's baseline behavior. Read-only after New;
// per-request overrides come in through Options.
type Config struct {
	Chunking     chunk.Config
	Segmentation segment.Config
	Normalize    normalize.Options

	// InterChunkDelay spaces out sequential chunk calls for rate-limit
	// courtesy.
	InterChunkDelay time.Duration

	// TruncateFallbackChars bounds the whole-document retry issued when the
	// first chunk's payload cannot be parsed.
	TruncateFallbackChars int

	// FewShot includes the example exchange in every prompt.
	FewShot bool
}

func DefaultConfig() Config {
	return Config{
		Chunking:              chunk.DefaultConfig(),
		Segmentation:          segment.DefaultConfig(),
		Normalize:             normalize.DefaultOptions(),
		InterChunkDelay:       500 * time.Millisecond,
		TruncateFallbackChars: 8000,
		FewShot:               true,
	}
}

// Options are per-request overrides for one ExtractPurchaseOrder call.
type Options struct {
	// Chunking overrides the baseline chunk config when non-nil.
	Chunking *chunk.Config

	DisableTextPreprocessing bool
	DisableAnchorExtraction  bool

	// VendorKey selects extra vendor-specific noise patterns for
	// normalization; ExtraPatterns are appended after those.
	VendorKey     string
	ExtraPatterns []*regexp.Regexp

	AnchorOptions segment.AnchorOptions

	// Quality carries upstream document-quality indicators. Nil means they
	// are derived heuristically from the raw text.
	Quality *entity.QualityIndicators
}
