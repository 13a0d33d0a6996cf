package querysql

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackstore/internal/queryir"
	"github.com/roach88/trackstore/internal/schema"
)

func assertGoldenSQL(t *testing.T, name, sql string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(sql))
}

func TestCompile_SelectTracksDefault(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{Table: schema.Tracks})
	require.NoError(t, err)

	assert.Empty(t, params)
	assert.NotContains(t, sql, "markerTotal")
	assertGoldenSQL(t, "select_tracks_default", sql)
}

func TestCompile_SelectTracksMarkerCount(t *testing.T) {
	stmt := queryir.Select{
		Table:   schema.Tracks,
		Columns: []string{schema.ColID, schema.ColName, schema.ColMarkerCount},
		Order:   []queryir.OrderTerm{{Column: schema.ColMarkerCount, Direction: queryir.Desc}},
	}

	sql, params, err := NewSQLCompiler().Compile(stmt)
	require.NoError(t, err)

	assert.Empty(t, params)
	assertGoldenSQL(t, "select_tracks_marker_count", sql)
}

func TestCompile_SelectJoinsWhenFilteringOnMarkerCount(t *testing.T) {
	stmt := queryir.Select{
		Table:   schema.Tracks,
		Columns: []string{schema.ColID},
		Filter:  queryir.Compare{Column: schema.ColMarkerCount, Op: queryir.OpGt, Operand: queryir.Placeholder{Index: 0}},
		Args:    []any{int64(2)},
	}

	sql, params, err := NewSQLCompiler().Compile(stmt)
	require.NoError(t, err)

	assert.Contains(t, sql, "LEFT OUTER JOIN")
	assert.Contains(t, sql, "WHERE CAST(COALESCE(markerTotal, 0) AS INTEGER) > ?")
	assert.Equal(t, []any{int64(2)}, params)
}

func TestCompile_SelectTrackPointsFiltered(t *testing.T) {
	stmt := queryir.Select{
		Table:   schema.TrackPoints,
		Columns: []string{schema.ColID, schema.ColTime, schema.ColHeartRate},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Compare{Column: schema.ColTrackID, Op: queryir.OpEq, Operand: queryir.Placeholder{Index: 0}},
			queryir.Or{Predicates: []queryir.Predicate{
				queryir.In{Column: schema.ColType, Operands: []queryir.Operand{
					queryir.Placeholder{Index: 1}, queryir.Placeholder{Index: 2},
				}},
				queryir.Not{Predicate: queryir.IsNull{Column: schema.ColHeartRate}},
			}},
		}},
		Args:  []any{int64(7), int64(0), int64(3)},
		Order: []queryir.OrderTerm{{Column: schema.ColTime, Direction: queryir.Asc}},
	}

	sql, params, err := NewSQLCompiler().Compile(stmt)
	require.NoError(t, err)

	assert.Equal(t, []any{int64(7), int64(0), int64(3)}, params)
	assertGoldenSQL(t, "select_trackpoints_filtered", sql)
}

func TestCompile_ParsedSelection(t *testing.T) {
	f, err := queryir.BuildFilter(schema.TrackPoints, "trackid = ? AND (type IN (?, ?) OR NOT sensor_heartrate IS NULL)", []string{"7", "0", "3"})
	require.NoError(t, err)

	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		Table:   schema.TrackPoints,
		Columns: []string{schema.ColID, schema.ColTime, schema.ColHeartRate},
		Filter:  f.Predicate,
		Args:    f.Args,
		Order:   []queryir.OrderTerm{{Column: schema.ColTime, Direction: queryir.Asc}},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{int64(7), int64(0), int64(3)}, params)
	assertGoldenSQL(t, "select_trackpoints_filtered", sql)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	stmts := []queryir.Select{
		{Table: schema.Tracks},
		{Table: schema.TrackPoints, Filter: queryir.IDEquals(schema.ColID, 1)},
		{Table: schema.Markers, Order: []queryir.OrderTerm{{Column: schema.ColName, Direction: queryir.Asc}}},
	}

	for _, stmt := range stmts {
		sql, _, err := NewSQLCompiler().Compile(stmt)
		require.NoError(t, err)
		assert.Contains(t, sql, " ORDER BY ")
		assert.True(t, strings.HasSuffix(sql, "_id ASC"), sql)
	}
}

func TestCompile_OrderByExplicitIDNotRepeated(t *testing.T) {
	sql, _, err := NewSQLCompiler().Compile(queryir.Select{
		Table: schema.Markers,
		Order: []queryir.OrderTerm{{Column: schema.ColID, Direction: queryir.Desc}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, "ORDER BY _id DESC"), sql)
}

func TestCompile_ValuesNeverInterpolated(t *testing.T) {
	hostile := "x'); DROP TABLE tracks; --"

	sql, params, err := NewSQLCompiler().Compile(queryir.Insert{
		Table:   schema.Markers,
		Columns: []string{schema.ColTrackID, schema.ColName},
		Values:  []any{int64(1), hostile},
	})
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{int64(1), hostile}, params)
	assertGoldenSQL(t, "insert_marker", sql)

	sql, params, err = NewSQLCompiler().Compile(queryir.Select{
		Table:  schema.Markers,
		Filter: queryir.Compare{Column: schema.ColName, Op: queryir.OpEq, Operand: queryir.Value{V: hostile}},
	})
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{hostile}, params)
}

func TestCompile_InsertDefaultValues(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Insert{Table: schema.Tracks})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO tracks DEFAULT VALUES", sql)
	assert.Empty(t, params)
}

func TestCompile_UpdateParamsSetFirst(t *testing.T) {
	stmt := queryir.Update{
		Table:   schema.Tracks,
		Columns: []string{schema.ColName},
		Values:  []any{"x"},
		Filter: queryir.Conjoin(
			queryir.IDIn(schema.ColID, []int64{1, 2}),
			queryir.Compare{Column: schema.ColName, Op: queryir.OpEq, Operand: queryir.Placeholder{Index: 0}},
		),
		Args: []any{"old"},
	}

	sql, params, err := NewSQLCompiler().Compile(stmt)
	require.NoError(t, err)

	assert.Equal(t, []any{"x", int64(1), int64(2), "old"}, params)
	assertGoldenSQL(t, "update_tracks_by_ids", sql)
}

func TestCompile_UpdateWithoutFilter(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Update{
		Table:   schema.Markers,
		Columns: []string{schema.ColName, schema.ColIcon},
		Values:  []any{"a", nil},
	})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE markers SET name = ?, icon = ?", sql)
	assert.Equal(t, []any{"a", nil}, params)
}

func TestCompile_Delete(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Delete{Table: schema.TrackPoints})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM trackpoints", sql)
	assert.Empty(t, params)

	sql, params, err = NewSQLCompiler().Compile(queryir.Delete{
		Table:  schema.Tracks,
		Filter: queryir.Compare{Column: schema.ColMarkerCount, Op: queryir.OpEq, Operand: queryir.Placeholder{Index: 0}},
		Args:   []any{int64(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0)}, params)
	assertGoldenSQL(t, "delete_tracks_by_marker_count", sql)
}

func TestCompile_PointerStatements(t *testing.T) {
	sql, _, err := NewSQLCompiler().Compile(&queryir.Delete{Table: schema.Markers})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM markers", sql)

	sql, _, err = NewSQLCompiler().Compile(&queryir.Select{Table: schema.Markers, Columns: []string{schema.ColID}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT _id FROM markers ORDER BY _id ASC", sql)
}

func TestCompile_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		stmt queryir.Statement
	}{
		{"nil", nil},
		{"unknown column", queryir.Select{Table: schema.Markers, Columns: []string{"bogus"}}},
		{"computed write", queryir.Insert{
			Table:   schema.Tracks,
			Columns: []string{schema.ColMarkerCount},
			Values:  []any{int64(1)},
		}},
		{"missing arg", queryir.Delete{
			Table:  schema.Markers,
			Filter: queryir.Compare{Column: schema.ColID, Op: queryir.OpEq, Operand: queryir.Placeholder{Index: 0}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewSQLCompiler().Compile(tt.stmt)
			assert.Error(t, err)
		})
	}
}
