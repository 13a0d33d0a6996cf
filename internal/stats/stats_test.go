package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackstore/internal/schema"
)

func f(v float64) *float64 { return &v }

func requireValue(t *testing.T, want float64, got *float64) {
	t.Helper()
	require.NotNil(t, got)
	assert.InDelta(t, want, *got, 1e-9)
}

func TestAggregate_WeightedAverage(t *testing.T) {
	samples := []Sample{
		{Time: 0, HeartRate: f(100)},
		{Time: 10_000, HeartRate: f(110)},
		{Time: 20_000},
	}

	got := Aggregate(samples)

	requireValue(t, 105, got.HeartRate.Avg)
	requireValue(t, 110, got.HeartRate.Max)
	assert.Equal(t, Channel{}, got.Cadence)
	assert.Equal(t, Channel{}, got.Power)
}

func TestAggregate_ManualPauseExcluded(t *testing.T) {
	samples := []Sample{
		{Time: 0, HeartRate: f(100)},
		{Time: 10_000, Type: schema.SegmentStartManual, HeartRate: f(110)},
		{Time: 20_000},
	}

	got := Aggregate(samples)

	requireValue(t, 100, got.HeartRate.Avg)
	requireValue(t, 100, got.HeartRate.Max)
}

func TestAggregate_UnevenSampling(t *testing.T) {
	// A dense burst of high readings must not dominate a long low interval.
	samples := []Sample{
		{Time: 0, Power: f(100)},
		{Time: 90_000, Power: f(300)},
		{Time: 91_000, Power: f(300)},
		{Time: 92_000, Power: f(300)},
		{Time: 100_000},
	}

	got := Aggregate(samples)

	// (100*90 + 300*1 + 300*1 + 300*8) / 100
	requireValue(t, 120, got.Power.Avg)
	requireValue(t, 300, got.Power.Max)
}

func TestAggregate_ChannelsIndependent(t *testing.T) {
	samples := []Sample{
		{Time: 0, HeartRate: f(120), Cadence: f(80)},
		{Time: 5_000, Cadence: f(90), Power: f(200)},
		{Time: 15_000, HeartRate: f(140)},
		{Time: 20_000},
	}

	got := Aggregate(samples)

	// hr: 120 for 5s, 140 for 5s
	requireValue(t, 130, got.HeartRate.Avg)
	requireValue(t, 140, got.HeartRate.Max)
	// cadence: 80 for 5s, 90 for 10s
	requireValue(t, (80.0*5+90.0*10)/15, got.Cadence.Avg)
	requireValue(t, 90, got.Cadence.Max)
	// power: 200 for 10s
	requireValue(t, 200, got.Power.Avg)
	requireValue(t, 200, got.Power.Max)
}

func TestAggregate_LastPointCountsForMaxOnly(t *testing.T) {
	got := Aggregate([]Sample{{Time: 0, Cadence: f(70)}})

	assert.Nil(t, got.Cadence.Avg)
	requireValue(t, 70, got.Cadence.Max)
}

func TestAggregate_OnlyManualStarts(t *testing.T) {
	got := Aggregate([]Sample{
		{Time: 0, Type: schema.SegmentStartManual, HeartRate: f(150)},
		{Time: 1_000, Type: schema.SegmentStartManual, HeartRate: f(160)},
	})

	assert.Equal(t, Channel{}, got.HeartRate)
}

func TestAggregate_OtherPointTypesCount(t *testing.T) {
	samples := []Sample{
		{Time: 0, Type: schema.SegmentStartAutomatic, HeartRate: f(100)},
		{Time: 1_000, Type: schema.Idle, HeartRate: f(100)},
		{Time: 2_000, Type: schema.SegmentEndManual, HeartRate: f(100)},
		{Time: 3_000},
	}

	requireValue(t, 100, Aggregate(samples).HeartRate.Avg)
}

func TestAggregate_NegativeDeltaClamped(t *testing.T) {
	samples := []Sample{
		{Time: 10_000, HeartRate: f(200)},
		{Time: 0, HeartRate: f(100)},
		{Time: 10_000},
	}

	got := Aggregate(samples)

	requireValue(t, 100, got.HeartRate.Avg)
	requireValue(t, 200, got.HeartRate.Max)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Equal(t, SensorStats{}, Aggregate(nil))
}

func TestAccumulator_ResultIsRepeatable(t *testing.T) {
	var acc Accumulator
	acc.Add(Sample{Time: 0, HeartRate: f(100)})
	acc.Add(Sample{Time: 10_000, HeartRate: f(110)})

	first := acc.Result()
	second := acc.Result()
	assert.Equal(t, first, second)
	requireValue(t, 100, first.HeartRate.Avg)
	requireValue(t, 110, first.HeartRate.Max)

	acc.Add(Sample{Time: 20_000})
	requireValue(t, 105, acc.Result().HeartRate.Avg)
}

func TestSensorStats_Row(t *testing.T) {
	s := SensorStats{
		HeartRate: Channel{Avg: f(105), Max: f(110)},
		Power:     Channel{Max: f(250)},
	}

	assert.Equal(t, []any{105.0, 110.0, nil, nil, nil, 250.0}, s.Row())
	assert.Len(t, Columns, len(s.Row()))
}
