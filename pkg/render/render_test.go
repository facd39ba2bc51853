package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/samplerate/pkg/estimate"
)

func compute(t *testing.T, tx, ss int64) estimate.Result {
	t.Helper()
	r, err := estimate.Compute(estimate.Input{
		TransactionsPerSession: tx,
		SessionsPerDay:         ss,
		Ceiling:                estimate.DefaultCeiling(),
	})
	require.NoError(t, err)
	return r
}

func TestLines_NoSampling(t *testing.T) {
	lines := Lines(compute(t, 10, 5000))
	require.Len(t, lines, 3)
	assert.Equal(t, "Transactions per day: 50,000 transactions/day", lines[0])
	assert.Equal(t,
		"Max number of transactions per day: 13,824,000 transactions/day "+
			"(200 events/s * 86,400 s = 17,280,000 transactions/day * 80%)",
		lines[1])
	assert.Equal(t, "Sample rate: 100.000%", lines[2])
}

func TestLines_Sampling(t *testing.T) {
	text := strings.Join(Lines(compute(t, 1000, 50000)), "\n")
	assert.Contains(t, text, "You will need to sample the transactions.")
	assert.Contains(t, text, "Sample rate: 27.648%")
	assert.Contains(t, text, "Sample rate = (13,824,000 / 50,000,000) * 100 = 27.648%")
}

func TestLines_FixedCapWithoutMargin(t *testing.T) {
	r, err := estimate.FromDaily(10, estimate.Ceiling{DailyCap: 13824000})
	require.NoError(t, err)
	assert.Contains(t, Lines(r)[1], "(13,824,000 transactions/day)")
}

func TestPNG_Decodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, compute(t, 1000, 50000)))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	b := img.Bounds()
	assert.GreaterOrEqual(t, b.Dx(), minWidth)
	// title + blank + 4 value lines + breakdown header + 3 breakdown lines
	assert.Equal(t, 2*padding+10*lineHeight, b.Dy())
}
