package provider

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/roach88/trackstore/internal/errs"
	"github.com/roach88/trackstore/internal/queryir"
	"github.com/roach88/trackstore/internal/resource"
	"github.com/roach88/trackstore/internal/schema"
	"github.com/roach88/trackstore/internal/stats"
)

// RowSet is a materialized query result.
type RowSet struct {
	// Columns names the values of each row, in order.
	Columns []string

	// Rows holds driver values: int64, float64, string, []byte or nil.
	Rows [][]any

	// NotificationURI is the locator observers should watch to learn that
	// this result is stale.
	NotificationURI string
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	return len(rs.Rows)
}

// Index returns the position of column, or -1.
func (rs *RowSet) Index(column string) int {
	for i, c := range rs.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the value of column in row i.
func (rs *RowSet) Value(i int, column string) (any, bool) {
	j := rs.Index(column)
	if i < 0 || i >= len(rs.Rows) || j < 0 {
		return nil, false
	}
	return rs.Rows[i][j], true
}

// Query reads the rows addressed by uri.
//
// projection is filtered against the table's columns; an empty result
// selects every stored column. selection and args narrow the result and
// sort orders it, after the identity constraints of the locator.
func (p *Provider) Query(ctx context.Context, uri string, projection []string, selection string, args []string, sort string) (rs *RowSet, err error) {
	start := time.Now()
	var m resource.Match
	defer func() { p.observe("query", m, err, start) }()

	if m, err = p.router.Resolve(uri); err != nil {
		return nil, err
	}

	var pin queryir.Predicate
	switch m.Kind {
	case resource.TrackPoints, resource.Tracks, resource.Markers:
	case resource.TrackPointByID, resource.MarkerByID:
		pin = queryir.IDEquals(schema.ColID, m.ID())
	case resource.TracksByIDs:
		pin = queryir.IDIn(schema.ColID, m.IDs)
	case resource.TrackPointsByTrackIDs, resource.MarkersByTrackIDs:
		pin = queryir.IDIn(schema.ColTrackID, m.IDs)
	case resource.TrackSensorStats:
		return p.querySensorStats(ctx, uri, m.ID(), projection, selection, args, sort)
	default:
		return nil, errs.UnknownResource("query", uri)
	}
	table := m.Kind.Table()

	filter, err := queryir.BuildFilter(table, selection, args)
	if err != nil {
		return nil, err
	}
	order, err := queryir.ParseSortOrder(table, sort)
	if err != nil {
		return nil, err
	}
	columns := queryir.FilterProjection(table, projection)

	query, params, err := p.compiler.Compile(queryir.Select{
		Table:   table,
		Columns: columns,
		Filter:  queryir.Conjoin(pin, filter.Predicate),
		Args:    filter.Args,
		Order:   order,
	})
	if err != nil {
		return nil, errs.Invalid("query", "%v", err)
	}
	if len(columns) == 0 {
		columns = table.Columns
	}

	p.logger.Debug().Str("kind", m.Kind.String()).Str("sql", query).Msg("query")

	rows, err := p.store.Query(ctx, query, params...)
	if err != nil {
		return nil, storeError("query", "query failed", err)
	}
	defer rows.Close()

	rs = &RowSet{Columns: append([]string(nil), columns...), NotificationURI: uri}
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storeError("query", "scan row", err)
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query", "iterate rows", err)
	}
	return rs, nil
}

// querySensorStats answers a sensor statistics locator with a single row.
// The statistics row has no selection or sort; projection picks columns.
func (p *Provider) querySensorStats(ctx context.Context, uri string, trackID int64, projection []string, selection string, args []string, sort string) (*RowSet, error) {
	if strings.TrimSpace(selection) != "" || len(args) > 0 || strings.TrimSpace(sort) != "" {
		return nil, errs.Invalid("query", "sensor statistics accept no selection or sort order")
	}

	s, err := p.SensorStats(ctx, trackID)
	if err != nil {
		return nil, err
	}

	full := s.Row()
	columns := statsProjection(projection)
	row := make([]any, len(columns))
	for i, col := range columns {
		for j, c := range stats.Columns {
			if c == col {
				row[i] = full[j]
			}
		}
	}
	return &RowSet{Columns: columns, Rows: [][]any{row}, NotificationURI: uri}, nil
}

// statsProjection keeps the known statistics columns of projection, or
// returns all of them.
func statsProjection(projection []string) []string {
	known := make(map[string]bool, len(stats.Columns))
	for _, c := range stats.Columns {
		known[c] = true
	}
	var out []string
	for _, c := range projection {
		if known[c] {
			out = append(out, c)
			delete(known, c)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), stats.Columns...)
	}
	return out
}

// SensorStats computes the duration-weighted heart rate, cadence and power
// statistics of a track. A track without points, or an unknown track, has
// undefined statistics.
func (p *Provider) SensorStats(ctx context.Context, trackID int64) (stats.SensorStats, error) {
	query, params, err := p.compiler.Compile(queryir.Select{
		Table: schema.TrackPoints,
		Columns: []string{
			schema.ColTime, schema.ColType,
			schema.ColHeartRate, schema.ColCadence, schema.ColPower,
		},
		Filter: queryir.IDEquals(schema.ColTrackID, trackID),
	})
	if err != nil {
		return stats.SensorStats{}, errs.Invalid("sensor stats", "%v", err)
	}

	rows, err := p.store.Query(ctx, query, params...)
	if err != nil {
		return stats.SensorStats{}, storeError("sensor stats", "query failed", err)
	}
	defer rows.Close()

	var acc stats.Accumulator
	for rows.Next() {
		var (
			t                       int64
			typ                     int64
			heartRate, cadence, pow sql.NullFloat64
		)
		if err := rows.Scan(&t, &typ, &heartRate, &cadence, &pow); err != nil {
			return stats.SensorStats{}, storeError("sensor stats", "scan row", err)
		}
		acc.Add(stats.Sample{
			Time:      t,
			Type:      schema.PointType(typ),
			HeartRate: nullFloat(heartRate),
			Cadence:   nullFloat(cadence),
			Power:     nullFloat(pow),
		})
	}
	if err := rows.Err(); err != nil {
		return stats.SensorStats{}, storeError("sensor stats", "iterate rows", err)
	}
	return acc.Result(), nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
