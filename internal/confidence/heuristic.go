package confidence

import (
	"regexp"
	"strings"

	"github.com/poextract/poextract/internal/entity"
)

var (
	reDate   = regexp.MustCompile(`\b20\d{2}[-/]\d{1,2}[-/]\d{1,2}\b`)
	reCurr   = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud|inr|jpy)\b|[$£€]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
	reGarble = regexp.MustCompile(`[^\x20-\x7E\n\t]`)
)

// HeuristicIndicators grades a document from its raw text when the caller has
// no upstream OCR metadata. Naive: presence of date-ish, currency-ish and
// amount-ish patterns plus the share of non-printable garbage.
func HeuristicIndicators(text string) entity.QualityIndicators {
	lower := strings.ToLower(text)

	legibility := entity.QualityHigh
	if len(text) > 0 {
		garbage := float64(len(reGarble.FindAllString(text, -1))) / float64(len(text))
		switch {
		case garbage > 0.05:
			legibility = entity.QualityLow
		case garbage > 0.01:
			legibility = entity.QualityMedium
		}
	}

	signals := 0
	if reDate.MatchString(lower) {
		signals++
	}
	if reCurr.MatchString(lower) {
		signals++
	}
	if reAmount.MatchString(lower) {
		signals++
	}
	completeness := entity.QualityLow
	switch {
	case signals >= 3 && len(text) > 120:
		completeness = entity.QualityHigh
	case signals >= 2:
		completeness = entity.QualityMedium
	}

	// no image to inspect: text input grades clarity by length alone
	clarity := entity.QualityMedium
	if len(strings.TrimSpace(text)) > 240 {
		clarity = entity.QualityHigh
	}

	return entity.QualityIndicators{
		ImageClarity:   clarity,
		TextLegibility: legibility,
		Completeness:   completeness,
	}
}
