package chunk_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poextract/poextract/internal/chunk"
)

func docOfLines(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("WIDGET-100 | Industrial blue widget, boxed | 12 | 4.50 | 54.00\n")
	}
	return b.String()
}

// The union of [Start,End) ranges must cover [0,len) with no gaps, each chunk
// within bounds, and OverlapChars consistent with the previous chunk's end.
func assertCoverage(t *testing.T, specs []chunk.Spec, textLen, maxChars int) {
	t.Helper()
	require.NotEmpty(t, specs)
	assert.Equal(t, 0, specs[0].Start)
	assert.Equal(t, textLen, specs[len(specs)-1].End)
	for i, s := range specs {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, s.End-s.Start, s.Length)
		assert.LessOrEqual(t, s.Length, maxChars)
		assert.Equal(t, (s.Length+3)/4, s.EstimatedTokens)
		if i > 0 {
			prev := specs[i-1]
			assert.LessOrEqual(t, s.Start, prev.End, "gap between chunks %d and %d", i-1, i)
			assert.Greater(t, s.End, prev.End, "chunk %d does not advance", i)
			assert.Equal(t, prev.End-s.Start, s.OverlapChars)
		}
	}
}

func TestPlanSingleChunkWhenTextFits(t *testing.T) {
	p := chunk.NewPlanner(nil)
	text := docOfLines(5)

	specs := p.Plan(text, chunk.Config{})

	require.Len(t, specs, 1)
	assert.Equal(t, 0, specs[0].Start)
	assert.Equal(t, len(text), specs[0].End)
	assert.Equal(t, 0, specs[0].OverlapChars)
}

func TestPlanEmptyText(t *testing.T) {
	assert.Nil(t, chunk.NewPlanner(nil).Plan("", chunk.Config{}))
}

func TestPlanTenThousandCharDocument(t *testing.T) {
	p := chunk.NewPlanner(nil)
	text := docOfLines(160) // 10,400 chars of table rows
	require.Greater(t, len(text), 10000)
	cfg := chunk.Config{MaxChunkChars: 4200, OverlapChars: 180}

	specs := p.Plan(text, cfg)

	require.GreaterOrEqual(t, len(specs), 3)
	assertCoverage(t, specs, len(text), 4200)
	for _, s := range specs[1:] {
		assert.Greater(t, s.OverlapChars, 0)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	p := chunk.NewPlanner(nil)
	text := docOfLines(300)
	cfg := chunk.Config{MaxChunkChars: 4200, OverlapChars: 180}

	first := p.Plan(text, cfg)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.Plan(text, cfg))
	}
}

func TestPlanBreaksOnLineBoundaries(t *testing.T) {
	p := chunk.NewPlanner(nil)
	text := docOfLines(160)

	specs := p.Plan(text, chunk.Config{MaxChunkChars: 4200, OverlapChars: 180})

	require.Greater(t, len(specs), 1)
	for _, s := range specs[:len(specs)-1] {
		assert.Equal(t, byte('\n'), text[s.End-1], "chunk %d should end just after a newline", s.Index)
	}
}

func TestPlanRowAwareOverlapGrowsForTableTails(t *testing.T) {
	p := chunk.NewPlanner(nil)
	// rows longer than a chunk force cuts mid-row, so every tail is a
	// partial table row
	row := strings.Repeat("X|", 500) + "\n"
	text := strings.Repeat(row, 20)

	specs := p.Plan(text, chunk.Config{MaxChunkChars: 1000, MinChunkChars: 100, OverlapChars: 40, MaxChunks: 100})

	require.Greater(t, len(specs), 1)
	for _, s := range specs[1:] {
		assert.LessOrEqual(t, s.OverlapChars, 500, "overlap must stay under half the chunk")
	}
	assertCoverage(t, specs, len(text), 1000)
}

func TestPlanNoOverlapPastTotalsLine(t *testing.T) {
	p := chunk.NewPlanner(nil)
	text := docOfLines(60) + "TOTAL: 3,240.00\n" + docOfLines(60)

	specs := p.Plan(text, chunk.Config{MaxChunkChars: 4200, OverlapChars: 180})
	assertCoverage(t, specs, len(text), 4200)
}

func TestPlanSimpleFallbackWhenTooManyChunks(t *testing.T) {
	p := chunk.NewPlanner(nil)
	text := docOfLines(400)
	cfg := chunk.Config{MaxChunkChars: 1000, MinChunkChars: 100, OverlapChars: 180, MaxChunks: 4}

	specs := p.Plan(text, cfg)

	require.NotEmpty(t, specs)
	assert.LessOrEqual(t, len(specs), 4)
	assert.Equal(t, 0, specs[0].Start)
	assert.Equal(t, len(text), specs[len(specs)-1].End)
	for i, s := range specs {
		assert.Equal(t, 0, s.OverlapChars)
		if i > 0 {
			assert.Equal(t, specs[i-1].End, s.Start, "simple plan is contiguous")
		}
	}
}

func TestPlanZeroConfigUsesDefaults(t *testing.T) {
	p := chunk.NewPlanner(nil)
	text := docOfLines(200)

	specs := p.Plan(text, chunk.Config{})

	assertCoverage(t, specs, len(text), 4200)
}
