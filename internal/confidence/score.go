package confidence

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/poextract/poextract/internal/entity"
	"github.com/poextract/poextract/internal/normalize"
)

// Penalty factors and thresholds. Each unmet threshold multiplies the running
// confidence once.
const (
	qualityHardThreshold = 0.5
	qualitySoftThreshold = 0.7

	completenessHardThreshold = 0.6
	completenessSoftThreshold = 0.8

	issuesHardThreshold = 3
	issuesSoftThreshold = 1

	hardPenalty = 0.8
	softPenalty = 0.9

	confidenceFloor = 0.1
)

// Scorer computes the final confidence profile from model-reported scores,
// document-quality indicators, and structural completeness.
type Scorer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{logger: logger}
}

// Score derives the profile. The result always satisfies
// Normalized in [0.1, 1.0] and Overall == round(Normalized*100).
func (s *Scorer) Score(payload entity.ExtractionPayload, norm *normalize.Result, quality entity.QualityIndicators) entity.ConfidenceProfile {
	base := coerce(payload.Confidence)
	running := base

	q := quality.Composite()
	if q < qualityHardThreshold {
		running *= hardPenalty
	}
	if q < qualitySoftThreshold {
		running *= softPenalty
	}

	comp := completeness(payload)
	if comp < completenessHardThreshold {
		running *= hardPenalty
	}
	if comp < completenessSoftThreshold {
		running *= softPenalty
	}

	// normalization fallback reasons count as extraction notes
	issueCount := len(payload.Issues)
	if norm != nil && norm.FallbackApplied {
		issueCount += len(norm.FallbackReasons)
	}
	if issueCount > issuesHardThreshold {
		running *= hardPenalty
	}
	if issueCount > issuesSoftThreshold {
		running *= softPenalty
	}

	if running < confidenceFloor {
		running = confidenceFloor
	}
	if running > 1 {
		running = 1
	}

	profile := entity.ConfidenceProfile{
		Overall:    int(math.Round(running * 100)),
		Normalized: running,
		PerField:   perField(payload, base),
	}
	s.logger.Debug("confidence.score",
		"base", base,
		"quality", q,
		"completeness", comp,
		"issues", issueCount,
		"overall", profile.Overall,
	)
	return profile
}

// coerce maps the model-reported value into 0..1, treating values above 1 as
// percentages. Unreported (zero) starts from a neutral 0.5.
func coerce(v float64) float64 {
	if v == 0 {
		return 0.5
	}
	if v > 1 {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// completeness checks presence and plausibility of the structural pieces of a
// purchase order. Weights sum to 1.
func completeness(p entity.ExtractionPayload) float64 {
	score := 0.0

	if len(p.PONumber) >= 3 {
		score += 0.25
	}
	if p.Supplier != "" {
		score += 0.15
		if p.SupplierContact != "" {
			score += 0.05
		}
	}
	score += 0.30 * itemCompleteness(p.LineItems)
	score += 0.10 * dateOrderScore(p.OrderDate, p.DeliveryDate)
	if _, err := strconv.ParseFloat(p.Total, 64); err == nil {
		score += 0.15
	}
	return score
}

// itemCompleteness is the fraction of line items carrying a description plus
// a quantity or a price.
func itemCompleteness(items []entity.LineItem) float64 {
	if len(items) == 0 {
		return 0
	}
	good := 0
	for _, li := range items {
		if li.Description != nil && *li.Description != "" &&
			(li.Quantity != nil || li.UnitPrice != nil || li.Total != nil) {
			good++
		}
	}
	return float64(good) / float64(len(items))
}

// dateOrderScore rewards valid dates in logical order (order before delivery).
func dateOrderScore(orderDate, deliveryDate string) float64 {
	od, odErr := time.Parse("2006-01-02", orderDate)
	dd, ddErr := time.Parse("2006-01-02", deliveryDate)
	switch {
	case odErr == nil && ddErr == nil:
		if !dd.Before(od) {
			return 1
		}
		return 0.25 // both present but reversed
	case odErr == nil || ddErr == nil:
		return 0.5
	default:
		return 0
	}
}

// perField grades each header field and the line items individually against
// the coerced model confidence.
func perField(p entity.ExtractionPayload, base float64) map[string]float64 {
	out := make(map[string]float64, 8)

	grade := func(name, value string, valid bool) {
		switch {
		case value == "":
			out[name] = 0
		case valid:
			out[name] = base
		default:
			out[name] = base * 0.5
		}
	}

	grade("po_number", p.PONumber, len(p.PONumber) >= 3)
	grade("supplier", p.Supplier, true)
	grade("order_date", p.OrderDate, validDate(p.OrderDate))
	grade("delivery_date", p.DeliveryDate, validDate(p.DeliveryDate))
	grade("total", p.Total, validDecimal(p.Total))
	grade("currency_code", p.CurrencyCode, len(p.CurrencyCode) == 3)
	out["line_items"] = base * itemCompleteness(p.LineItems)
	return out
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validDecimal(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
