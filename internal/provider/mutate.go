package provider

import (
	"context"
	"database/sql"
	"time"

	"github.com/roach88/trackstore/internal/errs"
	"github.com/roach88/trackstore/internal/queryir"
	"github.com/roach88/trackstore/internal/resource"
	"github.com/roach88/trackstore/internal/schema"
)

// Insert adds one row to the table addressed by uri and returns the locator
// of the new row. Only bare table locators accept inserts.
func (p *Provider) Insert(ctx context.Context, uri string, values Values) (locator string, err error) {
	start := time.Now()
	var m resource.Match
	defer func() { p.observe("insert", m, err, start) }()

	if m, err = p.router.Resolve(uri); err != nil {
		return "", err
	}
	if !m.Kind.IsCollection() {
		return "", errs.UnknownResource("insert", uri)
	}
	table := m.Kind.Table()

	r, err := prepareInsert("insert", table, values)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var id int64
	err = p.store.WithTx(ctx, func(tx *sql.Tx) error {
		id, err = p.insertRow(ctx, tx, table, r)
		return err
	})
	if err != nil {
		return "", storeError("insert", "insert failed", err)
	}

	p.recordWritten(table, 1)
	p.notify(uri)
	p.logger.Debug().Str("table", table.Name).Int64("id", id).Msg("inserted")
	return p.router.Item(table, id), nil
}

// BulkInsert adds every element of values in one transaction and returns the
// number of rows inserted. Either every row is inserted or none is.
func (p *Provider) BulkInsert(ctx context.Context, uri string, values []Values) (n int, err error) {
	start := time.Now()
	var m resource.Match
	defer func() { p.observe("bulk_insert", m, err, start) }()

	if m, err = p.router.Resolve(uri); err != nil {
		return 0, err
	}
	if !m.Kind.IsCollection() {
		return 0, errs.UnknownResource("bulk insert", uri)
	}
	table := m.Kind.Table()

	rows := make([]row, len(values))
	for i, v := range values {
		r, err := prepareInsert("bulk insert", table, v)
		if err != nil {
			p.logger.Debug().Int("row", i).Msg("bulk insert rejected")
			return 0, err
		}
		rows[i] = r
	}
	if len(rows) == 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			if _, err := p.insertRow(ctx, tx, table, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeError("bulk insert", "insert failed", err)
	}

	p.recordWritten(table, int64(len(rows)))
	p.notify(uri)
	p.logger.Debug().Str("table", table.Name).Int("rows", len(rows)).Msg("bulk inserted")
	return len(rows), nil
}

func (p *Provider) insertRow(ctx context.Context, tx *sql.Tx, table *schema.Table, r row) (int64, error) {
	query, params, err := p.compiler.Compile(queryir.Insert{
		Table:   table,
		Columns: r.columns,
		Values:  r.values,
	})
	if err != nil {
		return 0, errs.Invalid("insert", "%v", err)
	}

	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, errs.Store("insert", "insert failed", nil)
	}
	return id, nil
}

// Update changes the rows addressed by uri that also match the caller's
// selection, and returns the number of rows changed.
//
// Item and list locators pin the update to their identities; the caller's
// selection must hold as well.
func (p *Provider) Update(ctx context.Context, uri string, values Values, selection string, args []string) (n int64, err error) {
	start := time.Now()
	var m resource.Match
	defer func() { p.observe("update", m, err, start) }()

	if m, err = p.router.Resolve(uri); err != nil {
		return 0, err
	}

	var pin queryir.Predicate
	switch m.Kind {
	case resource.TrackPoints, resource.Tracks, resource.Markers:
	case resource.TrackPointByID, resource.MarkerByID:
		pin = queryir.IDEquals(schema.ColID, m.ID())
	case resource.TracksByIDs:
		pin = queryir.IDIn(schema.ColID, m.IDs)
	default:
		return 0, errs.UnknownResource("update", uri)
	}
	table := m.Kind.Table()

	r, err := prepareUpdate("update", table, values)
	if err != nil {
		return 0, err
	}
	filter, err := queryir.BuildFilter(table, selection, args)
	if err != nil {
		return 0, err
	}

	query, params, err := p.compiler.Compile(queryir.Update{
		Table:   table,
		Columns: r.columns,
		Values:  r.values,
		Filter:  queryir.Conjoin(pin, filter.Predicate),
		Args:    filter.Args,
	})
	if err != nil {
		return 0, errs.Invalid("update", "%v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, params...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, storeError("update", "update failed", err)
	}

	p.recordWritten(table, n)
	p.notify(uri)
	p.logger.Debug().Str("table", table.Name).Int64("rows", n).Msg("updated")
	return n, nil
}

// Delete removes the rows of a bare table locator that match the caller's
// selection and returns the number of rows matched directly.
//
// Rows removed by cascade are counted towards the deleted-row total. When
// the total exceeds the vacuum threshold the database is compacted before
// Delete returns, and the total restarts at zero.
func (p *Provider) Delete(ctx context.Context, uri string, selection string, args []string) (n int64, err error) {
	start := time.Now()
	var m resource.Match
	defer func() { p.observe("delete", m, err, start) }()

	if m, err = p.router.Resolve(uri); err != nil {
		return 0, err
	}
	if !m.Kind.IsCollection() {
		return 0, errs.UnknownResource("delete", uri)
	}
	table := m.Kind.Table()

	filter, err := queryir.BuildFilter(table, selection, args)
	if err != nil {
		return 0, err
	}
	query, params, err := p.compiler.Compile(queryir.Delete{
		Table:  table,
		Filter: filter.Predicate,
		Args:   filter.Args,
	})
	if err != nil {
		return 0, errs.Invalid("delete", "%v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	before, err := p.store.TotalChanges(ctx)
	if err != nil {
		return 0, storeError("delete", "read change counter", err)
	}

	err = p.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, params...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, storeError("delete", "delete failed", err)
	}

	p.notify(uri)

	// The delete has committed. Counter and compaction failures are logged,
	// not returned, and the pending total carries over to the next delete.
	after, err := p.store.TotalChanges(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("read change counter after delete")
		return n, nil
	}
	p.recordDeleted(ctx, table, n, after-before)
	return n, nil
}

// recordDeleted adds delta to the deleted-row total and compacts the
// database once the total exceeds the threshold.
func (p *Provider) recordDeleted(ctx context.Context, table *schema.Table, direct, delta int64) {
	if delta < 0 {
		delta = 0
	}

	total, err := p.counter.AddTotalRowsDeleted(delta)
	if err != nil {
		p.logger.Error().Err(err).Int64("rows", delta).Msg("update deleted-row counter")
		return
	}
	if p.metrics != nil {
		p.metrics.RecordRowsDeleted(delta, total)
	}
	p.logger.Info().
		Str("table", table.Name).
		Int64("rows", direct).
		Int64("cascaded", delta-direct).
		Int64("total_deleted", total).
		Msg("deleted")

	if total <= p.vacuumThreshold {
		return
	}

	p.logger.Info().Int64("total_deleted", total).Msg("compacting database")
	start := time.Now()
	if err := p.store.Vacuum(ctx); err != nil {
		p.logger.Error().Err(err).Msg("vacuum failed")
		return
	}
	if err := p.counter.ResetTotalRowsDeleted(); err != nil {
		p.logger.Error().Err(err).Msg("reset deleted-row counter")
		return
	}
	if p.metrics != nil {
		p.metrics.RecordCompaction(time.Since(start))
	}
	p.logger.Info().Dur("took", time.Since(start)).Msg("compaction finished")
}

func (p *Provider) recordWritten(table *schema.Table, n int64) {
	if p.metrics != nil {
		p.metrics.RecordRowsWritten(table.Name, n)
	}
}
