package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackstore/internal/errs"
	"github.com/roach88/trackstore/internal/schema"
)

func TestFilterProjection(t *testing.T) {
	got := FilterProjection(schema.Tracks, []string{"name", "bogus", "_id", "name", "markerCount"})
	assert.Equal(t, []string{"name", "_id", "markerCount"}, got)

	assert.Nil(t, FilterProjection(schema.Tracks, nil))
	assert.Nil(t, FilterProjection(schema.Tracks, []string{"bogus", "sensor_power"}))
}

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"default direction", "name, time DESC", "name ASC, time DESC"},
		{"lowercase direction", "name desc", "name DESC"},
		{"extra whitespace", "  _id   ASC ,name  ", "_id ASC, name ASC"},
		{"single", "time", "time ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms, err := ParseSortOrder(schema.Markers, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatOrder(terms))
		})
	}
}

func TestParseSortOrder_Blank(t *testing.T) {
	terms, err := ParseSortOrder(schema.Tracks, "  ")
	require.NoError(t, err)
	assert.Nil(t, terms)
}

func TestParseSortOrder_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown column", "name ASC, bogus_column DESC"},
		{"bad direction", "name UP"},
		{"too many tokens", "name ASC NULLS"},
		{"empty term", "name,,time"},
		{"trailing comma", "name,"},
		{"expression", "name||time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSortOrder(schema.Markers, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrInvalidInput)
		})
	}
}

func TestParseSortOrder_TracksUseTrackColumns(t *testing.T) {
	terms, err := ParseSortOrder(schema.Tracks, "starttime DESC, markerCount")
	require.NoError(t, err)
	assert.Equal(t, "starttime DESC, markerCount ASC", FormatOrder(terms))

	_, err = ParseSortOrder(schema.Tracks, "sensor_heartrate")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestBindArgs(t *testing.T) {
	got, err := BindArgs([]string{" 42 ", "walking", "a.b@c-d_e", "99999999999999999999", "007", "0"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(42), "walking", "a.b@c-d_e", "99999999999999999999", "007", int64(0)}, got)

	got, err = BindArgs(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBindArgs_Rejects(t *testing.T) {
	for _, arg := range []string{"", "1 OR 1=1", "x'", "a;b", "café"} {
		_, err := BindArgs([]string{"1", arg})
		require.Error(t, err, arg)
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
		assert.Contains(t, err.Error(), "position 1")
	}
}

func TestBuildFilter(t *testing.T) {
	f, err := BuildFilter(schema.TrackPoints, "trackid = ? AND type IN (?, ?)", []string{"7", "0", "3"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(7), int64(0), int64(3)}, f.Args)
	assert.NoError(t, Validate(Select{Table: schema.TrackPoints, Filter: f.Predicate, Args: f.Args}))
}

func TestBuildFilter_ArgCountMismatch(t *testing.T) {
	_, err := BuildFilter(schema.TrackPoints, "trackid = ?", nil)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = BuildFilter(schema.TrackPoints, "", []string{"1"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = BuildFilter(schema.TrackPoints, "trackid = ? OR trackid = ?", []string{"1"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}
