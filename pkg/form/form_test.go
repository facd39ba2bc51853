package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/samplerate/pkg/estimate"
)

func newForm(t *testing.T) *Form {
	t.Helper()
	f, err := New(estimate.DefaultCeiling())
	require.NoError(t, err)
	return f
}

func TestForm_Empty(t *testing.T) {
	f := newForm(t)
	r := f.Result()
	assert.Equal(t, int64(0), r.EstimatedPerDay)
	assert.Equal(t, 1.0, r.SampleRate)
	assert.Empty(t, f.Message())
}

func TestForm_RecomputesOnEachChange(t *testing.T) {
	f := newForm(t)

	require.NoError(t, f.Set(FieldTransactionsPerSession, "10"))
	assert.Equal(t, int64(0), f.Result().EstimatedPerDay, "sessions still unset")

	require.NoError(t, f.Set(FieldSessionsPerDay, "5000"))
	assert.Equal(t, int64(50000), f.Result().EstimatedPerDay)
	assert.Equal(t, 1.0, f.Result().SampleRate)

	require.NoError(t, f.Set(FieldTransactionsPerSession, "1000"))
	require.NoError(t, f.Set(FieldSessionsPerDay, "50000"))
	r := f.Result()
	assert.Equal(t, int64(50000000), r.EstimatedPerDay)
	assert.True(t, r.SamplingRequired)
	assert.InDelta(t, 0.27648, r.SampleRate, 1e-12)
}

func TestForm_InvalidInputKeepsLastValidValue(t *testing.T) {
	f := newForm(t)
	require.NoError(t, f.Set(FieldTransactionsPerSession, "12"))
	require.NoError(t, f.Set(FieldSessionsPerDay, "100"))

	err := f.Set(FieldTransactionsPerSession, "12a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, estimate.ErrInvalidInteger))
	assert.Equal(t, estimate.InvalidIntegerMessage, f.Message())

	snap := f.Snapshot()
	assert.Equal(t, "12", snap.TransactionsPerSession)
	assert.Equal(t, int64(1200), snap.Result.EstimatedPerDay)

	// The next accepted change clears the message.
	require.NoError(t, f.Set(FieldSessionsPerDay, "200"))
	assert.Empty(t, f.Message())
	assert.Equal(t, int64(2400), f.Result().EstimatedPerDay)
}

func TestForm_ClearedFieldIsZero(t *testing.T) {
	f := newForm(t)
	require.NoError(t, f.Set(FieldTransactionsPerSession, "10"))
	require.NoError(t, f.Set(FieldSessionsPerDay, "10"))
	require.NoError(t, f.Set(FieldSessionsPerDay, ""))
	assert.Equal(t, int64(0), f.Result().EstimatedPerDay)
	assert.Equal(t, 1.0, f.Result().SampleRate)
}

func TestForm_OverflowKeepsLastValidValue(t *testing.T) {
	f := newForm(t)
	require.NoError(t, f.Set(FieldTransactionsPerSession, "9223372036854775807"))
	require.NoError(t, f.Set(FieldSessionsPerDay, "1"))

	err := f.Set(FieldSessionsPerDay, "2")
	require.ErrorIs(t, err, estimate.ErrOverflow)
	assert.Equal(t, "1", f.Snapshot().SessionsPerDay)
	assert.Equal(t, estimate.InvalidIntegerMessage, f.Message())
}

func TestForm_EventsPerSecondPreset(t *testing.T) {
	f := newForm(t)
	require.NoError(t, f.Set(FieldTransactionsPerSession, "1000"))
	require.NoError(t, f.Set(FieldSessionsPerDay, "50000"))

	require.NoError(t, f.Set(FieldEventsPerSecond, "1000"))
	r := f.Result()
	assert.Equal(t, int64(86400000), r.RawCeiling)
	assert.Equal(t, int64(69120000), r.EffectiveCeiling)
	assert.False(t, r.SamplingRequired)

	err := f.Set(FieldEventsPerSecond, "123")
	require.ErrorIs(t, err, estimate.ErrUnknownPreset)
	assert.NotEmpty(t, f.Message())
	assert.Equal(t, int64(1000), f.Snapshot().Ceiling.EventsPerSecond)
}

func TestForm_UnknownField(t *testing.T) {
	f := newForm(t)
	assert.ErrorIs(t, f.Set("color", "blue"), ErrUnknownField)
}

func TestForm_SetCeiling(t *testing.T) {
	f := newForm(t)
	require.NoError(t, f.Set(FieldTransactionsPerSession, "100"))
	require.NoError(t, f.Set(FieldSessionsPerDay, "100"))

	require.NoError(t, f.SetCeiling(estimate.Ceiling{DailyCap: 5000}))
	assert.Equal(t, 0.5, f.Result().SampleRate)

	assert.ErrorIs(t, f.SetCeiling(estimate.Ceiling{}), estimate.ErrInvalidCeiling)
	assert.Equal(t, int64(5000), f.Result().EffectiveCeiling, "invalid ceiling must not replace the current one")
}

func TestNew_InvalidCeiling(t *testing.T) {
	_, err := New(estimate.Ceiling{SafetyMargin: 2, DailyCap: 1})
	assert.ErrorIs(t, err, estimate.ErrInvalidCeiling)
}
