package normalize_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poextract/poextract/internal/normalize"
)

func TestNormalizeRemovesScanArtifacts(t *testing.T) {
	in := "Page 1 of 3\nPO# 12345\nSupplier: Acme Corp\nPrinted on 2024-01-02\nTotal: $99.00\n"

	res := normalize.New(nil).Normalize(in, normalize.DefaultOptions())

	require.False(t, res.FallbackApplied)
	assert.NotContains(t, res.Text, "Page 1 of 3")
	assert.NotContains(t, res.Text, "Printed on")
	assert.Contains(t, res.Text, "PO#12345")
	assert.Contains(t, res.Text, "Supplier: Acme Corp")
}

func TestNormalizeCompressesPOLabels(t *testing.T) {
	in := "Purchase Order Number: AB-9931\nGrand Total: $1,250.00\n"

	res := normalize.New(nil).Normalize(in, normalize.DefaultOptions())

	require.False(t, res.FallbackApplied)
	assert.Contains(t, res.Text, "PO#AB-9931")
	assert.Contains(t, res.Text, "TOTAL: $1,250.00")
}

func TestNormalizeCompressesProseDates(t *testing.T) {
	n := normalize.New(nil)

	res := n.Normalize("Order Date: March 5, 2024\n", normalize.DefaultOptions())
	assert.Contains(t, res.Text, "2024-03-05")

	res = n.Normalize("Delivery by 21st August 2024\n", normalize.DefaultOptions())
	assert.Contains(t, res.Text, "2024-08-21")
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	in := "Supplier: Acme\r\n\r\n\r\n\r\nTotal: $5\t\tdue  now\n"

	res := normalize.New(nil).Normalize(in, normalize.DefaultOptions())

	require.False(t, res.FallbackApplied)
	assert.NotContains(t, res.Text, "\r")
	assert.NotContains(t, res.Text, "\t")
	assert.NotContains(t, res.Text, "\n\n\n")
	assert.NotContains(t, res.Text, "  ")
}

func TestNormalizeTableCompressionSeesRawSpacing(t *testing.T) {
	opts := normalize.DefaultOptions()
	opts.CompressTableLayout = true
	in := "WIDGET-1     Blue widget     10     4.50\n"

	res := normalize.New(nil).Normalize(in, opts)

	require.False(t, res.FallbackApplied)
	assert.Contains(t, res.Text, "WIDGET-1 | Blue widget | 10 | 4.50")
}

func TestNormalizeFallbackWhenSignalLost(t *testing.T) {
	in := "PO# 12345\nSupplier: Acme Corp\nTotal: $99.00\n"
	opts := normalize.DefaultOptions()
	opts.ExtraPatterns = []*regexp.Regexp{regexp.MustCompile(`(?im)^PO#.*$`)}

	res := normalize.New(nil).Normalize(in, opts)

	require.True(t, res.FallbackApplied)
	assert.Equal(t, in, res.Text)
	assert.Equal(t, len(in), res.OptimizedLength)
	require.Len(t, res.FallbackReasons, 1)
	assert.True(t, strings.HasPrefix(res.FallbackReasons[0], "lost_signals:"))
	assert.Contains(t, res.FallbackReasons[0], "po_number")
}

func TestNormalizeFallbackWhenOutputEmpty(t *testing.T) {
	in := "Supplier: Acme Corp\n"
	opts := normalize.DefaultOptions()
	opts.ExtraPatterns = []*regexp.Regexp{regexp.MustCompile(`(?s).*`)}

	res := normalize.New(nil).Normalize(in, opts)

	require.True(t, res.FallbackApplied)
	assert.Equal(t, in, res.Text)
	assert.Equal(t, []string{"empty_output"}, res.FallbackReasons)
}

func TestNormalizeReductionMetrics(t *testing.T) {
	in := "Page 1 of 1\n\n\n\nSupplier: Acme Corp\nTotal: $10\n" + strings.Repeat("****** CONFIDENTIAL ******\n", 10)

	res := normalize.New(nil).Normalize(in, normalize.DefaultOptions())

	require.False(t, res.FallbackApplied)
	assert.Equal(t, len(in), res.OriginalLength)
	assert.Equal(t, len(res.Text), res.OptimizedLength)
	assert.Less(t, res.OptimizedLength, res.OriginalLength)
	assert.Greater(t, res.ReductionPercent, 0.0)
	assert.Equal(t, (res.OriginalLength-res.OptimizedLength)/4, res.EstimatedTokenSavings)
}

func TestNormalizeEmptyInput(t *testing.T) {
	res := normalize.New(nil).Normalize("", normalize.DefaultOptions())

	assert.False(t, res.FallbackApplied)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, 0, res.OriginalLength)
}
