// Package stats computes duration-weighted sensor statistics for a track.
//
// Each trackpoint's reading is weighted by the time until the next point of
// the same track, whether or not that next point carries a reading. Points
// that start a manually paused segment are excluded: they contribute neither
// a value nor a weight. The last point has no successor and weight 0, so it
// counts towards the maximum but not the average.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/trackstore/internal/schema"
)

// Column names of the sensor statistics row.
const (
	ColAvgHeartRate = "avg_hr"
	ColMaxHeartRate = "max_hr"
	ColAvgCadence   = "avg_cadence"
	ColMaxCadence   = "max_cadence"
	ColAvgPower     = "avg_power"
	ColMaxPower     = "max_power"
)

// Columns lists the sensor statistics row in order.
var Columns = []string{
	ColAvgHeartRate, ColMaxHeartRate,
	ColAvgCadence, ColMaxCadence,
	ColAvgPower, ColMaxPower,
}

// Sample is the part of a trackpoint the aggregator reads. Samples must be
// supplied in trackpoint identity order.
type Sample struct {
	// Time is the point's timestamp in milliseconds.
	Time int64

	Type schema.PointType

	// Nil means the point carries no reading for the channel.
	HeartRate *float64
	Cadence   *float64
	Power     *float64
}

// Channel holds the statistics of one sensor channel. Nil means undefined.
type Channel struct {
	Avg *float64
	Max *float64
}

// SensorStats is the aggregate of the three sensor channels of a track.
type SensorStats struct {
	HeartRate Channel
	Cadence   Channel
	Power     Channel
}

// Row returns the statistics in Columns order, with nil for undefined values.
func (s SensorStats) Row() []any {
	return []any{
		nullable(s.HeartRate.Avg), nullable(s.HeartRate.Max),
		nullable(s.Cadence.Avg), nullable(s.Cadence.Max),
		nullable(s.Power.Avg), nullable(s.Power.Max),
	}
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// Aggregate computes the statistics of samples ordered by identity.
func Aggregate(samples []Sample) SensorStats {
	var acc Accumulator
	for _, s := range samples {
		acc.Add(s)
	}
	return acc.Result()
}

// Accumulator computes statistics incrementally, one sample at a time, so
// callers can stream rows from the database. The zero value is ready to use.
type Accumulator struct {
	prev    Sample
	hasPrev bool

	heartRate channelAcc
	cadence   channelAcc
	power     channelAcc
}

// Add appends the next sample in identity order. The previous sample's
// weight becomes known at this point.
func (a *Accumulator) Add(s Sample) {
	if a.hasPrev {
		a.settle(weight(a.prev, s.Time))
	}
	a.prev = s
	a.hasPrev = true
}

// Result returns the statistics of all samples added so far.
// The accumulator can keep receiving samples afterwards.
func (a *Accumulator) Result() SensorStats {
	final := *a
	final.heartRate = a.heartRate.clone()
	final.cadence = a.cadence.clone()
	final.power = a.power.clone()
	if final.hasPrev {
		final.settle(0)
	}
	return SensorStats{
		HeartRate: final.heartRate.result(),
		Cadence:   final.cadence.result(),
		Power:     final.power.result(),
	}
}

// settle records the pending sample with weight w.
func (a *Accumulator) settle(w float64) {
	p := a.prev
	if p.Type == schema.SegmentStartManual {
		return
	}
	a.heartRate.add(p.HeartRate, w)
	a.cadence.add(p.Cadence, w)
	a.power.add(p.Power, w)
}

// weight is the time from p to its successor, never negative.
func weight(p Sample, nextTime int64) float64 {
	d := nextTime - p.Time
	if d < 0 {
		return 0
	}
	return float64(d)
}

type channelAcc struct {
	values  []float64
	weights []float64
}

func (c *channelAcc) add(v *float64, w float64) {
	if v == nil {
		return
	}
	c.values = append(c.values, *v)
	c.weights = append(c.weights, w)
}

func (c channelAcc) clone() channelAcc {
	return channelAcc{
		values:  append([]float64(nil), c.values...),
		weights: append([]float64(nil), c.weights...),
	}
}

func (c channelAcc) result() Channel {
	if len(c.values) == 0 {
		return Channel{}
	}

	maxValue := floats.Max(c.values)
	ch := Channel{Max: &maxValue}

	if floats.Sum(c.weights) > 0 {
		avg := stat.Mean(c.values, c.weights)
		ch.Avg = &avg
	}
	return ch
}
