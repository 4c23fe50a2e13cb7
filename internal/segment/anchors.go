package segment

import "context"

// AnchorSnippet is one salient window around a domain keyword.
type AnchorSnippet struct {
	AnchorID string `json:"anchor_id"`
	Snippet  string `json:"snippet"`
}

// AnchorStats summarizes an anchor-extraction run.
type AnchorStats struct {
	ReductionPercent float64 `json:"reduction_percent"`
	AnchorsMatched   int     `json:"anchors_matched"`
}

// AnchorResult is what the external anchor extractor returns.
type AnchorResult struct {
	Snippets     []AnchorSnippet `json:"snippets"`
	CombinedText string          `json:"combined_text"`
	Applied      bool            `json:"applied"`
	Stats        AnchorStats     `json:"stats"`
}

// AnchorOptions tune the external extractor. Passed through opaquely.
type AnchorOptions struct {
	MaxSnippets  int `json:"max_snippets,omitempty"`
	ContextChars int `json:"context_chars,omitempty"`
}

// AnchorExtractor is the external collaborator that locates salient snippets
// around domain keywords before chunking. Implementations live outside this
// module; a nil extractor means the step is skipped.
type AnchorExtractor interface {
	ExtractAnchors(ctx context.Context, text string, opts AnchorOptions) (AnchorResult, error)
}
