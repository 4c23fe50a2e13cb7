package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/poextract/poextract/constants"
)

// Options control which transformation passes run.
type Options struct {
	RemoveArtifacts     bool
	CollapseWhitespace  bool
	CompressPOPatterns  bool
	CompressTableLayout bool
	VendorKey           string           // selects extra vendor noise patterns
	ExtraPatterns       []*regexp.Regexp // caller-supplied removals, applied last
}

// DefaultOptions enables the safe passes and leaves table compression off.
func DefaultOptions() Options {
	return Options{
		RemoveArtifacts:    true,
		CollapseWhitespace: true,
		CompressPOPatterns: true,
	}
}

// Result describes one normalization run. If FallbackApplied is true, Text is
// the original input untouched.
type Result struct {
	Text                  string   `json:"text"`
	OriginalLength        int      `json:"original_length"`
	OptimizedLength       int      `json:"optimized_length"`
	ReductionPercent      float64  `json:"reduction_percent"`
	EstimatedTokenSavings int      `json:"estimated_token_savings"`
	FallbackApplied       bool     `json:"fallback_applied"`
	FallbackReasons       []string `json:"fallback_reasons,omitempty"`
}

// Normalizer strips scan artifacts and compresses purchase-order boilerplate
// into token-cheaper forms, refusing any transformation that would erase a
// domain key signal.
type Normalizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize applies the enabled passes in a fixed order, then verifies the
// output still carries every key signal the input had. On any safety failure
// the original text is returned verbatim with FallbackApplied set.
func (n *Normalizer) Normalize(text string, opts Options) Result {
	original := text
	out := text

	if opts.RemoveArtifacts {
		out = removeArtifacts(out, opts.VendorKey, opts.ExtraPatterns)
	}
	// Table compression keys on wide column gaps, so it must see the raw
	// spacing before whitespace collapsing eats it.
	if opts.CompressTableLayout {
		out = compressTableLayout(out)
	}
	if opts.CollapseWhitespace {
		out = collapseWhitespace(out)
	}
	if opts.CompressPOPatterns {
		out = compressPOPatterns(out)
	}

	if reasons := n.safetyCheck(original, out); len(reasons) > 0 {
		n.logger.Warn("normalize.fallback",
			"reasons", reasons,
			"original_len", len(original),
			"optimized_len", len(out),
		)
		return Result{
			Text:            original,
			OriginalLength:  len(original),
			OptimizedLength: len(original),
			FallbackApplied: true,
			FallbackReasons: reasons,
		}
	}

	res := Result{
		Text:            out,
		OriginalLength:  len(original),
		OptimizedLength: len(out),
	}
	if len(original) > 0 {
		res.ReductionPercent = float64(len(original)-len(out)) / float64(len(original)) * 100
	}
	if saved := len(original) - len(out); saved > 0 {
		res.EstimatedTokenSavings = saved / charsPerToken
	}
	n.logger.Debug("normalize.ok",
		"original_len", res.OriginalLength,
		"optimized_len", res.OptimizedLength,
		"reduction_pct", fmt.Sprintf("%.1f", res.ReductionPercent),
	)
	return res
}

const charsPerToken = 4

// safetyCheck returns the fallback reason codes, empty when the output is safe.
// A signal only counts as lost if the original had it and the output has none.
func (n *Normalizer) safetyCheck(original, out string) []string {
	if strings.TrimSpace(out) == "" && strings.TrimSpace(original) != "" {
		return []string{"empty_output"}
	}
	var lost []string
	for _, sig := range constants.AllSignals {
		re := constants.KeySignalPatterns[sig]
		if re.MatchString(original) && !re.MatchString(out) {
			lost = append(lost, string(sig))
		}
	}
	if len(lost) > 0 {
		return []string{"lost_signals:" + strings.Join(lost, ",")}
	}
	return nil
}

func removeArtifacts(s, vendorKey string, extra []*regexp.Regexp) string {
	for _, re := range artifactPatterns {
		s = re.ReplaceAllString(s, "")
	}
	if vendorKey != "" {
		for _, re := range vendorPatterns[strings.ToLower(vendorKey)] {
			s = re.ReplaceAllString(s, "")
		}
	}
	for _, re := range extra {
		s = re.ReplaceAllString(s, "")
	}
	return s
}

// collapseWhitespace keeps line breaks; collapses >2 newlines into a single
// blank line and trims trailing spaces per line.
func collapseWhitespace(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func compressPOPatterns(s string) string {
	s = rePOLabel.ReplaceAllString(s, "PO#$1")
	s = rePOHash.ReplaceAllString(s, "PO#$1")
	s = reTotalLabel.ReplaceAllString(s, "TOTAL:")
	s = reProseDate.ReplaceAllStringFunc(s, func(m string) string {
		parts := reProseDate.FindStringSubmatch(m)
		return isoDate(parts[1], parts[2], parts[3], m)
	})
	s = reDMYDate.ReplaceAllStringFunc(s, func(m string) string {
		parts := reDMYDate.FindStringSubmatch(m)
		return isoDate(parts[2], parts[1], parts[3], m)
	})
	return s
}

func isoDate(month, day, year, fallback string) string {
	mn, ok := monthNumbers[strings.ToLower(strings.TrimSuffix(month, "."))]
	if !ok {
		return fallback
	}
	var d int
	if _, err := fmt.Sscanf(day, "%d", &d); err != nil || d < 1 || d > 31 {
		return fallback
	}
	return fmt.Sprintf("%s-%02d-%02d", year, mn, d)
}

// compressTableLayout rewrites wide column gaps on data lines into a single
// delimiter so rows survive whitespace collapsing without losing structure.
func compressTableLayout(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.ContainsAny(line, "0123456789") && len(reColumnGap.FindAllString(line, -1)) >= 2 {
			lines[i] = reColumnGap.ReplaceAllString(line, " | ")
		}
	}
	return strings.Join(lines, "\n")
}
