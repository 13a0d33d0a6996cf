package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/trackstore/internal/queryir"
	"github.com/roach88/trackstore/internal/schema"
)

const (
	// markerJoin attaches per-track marker totals to a tracks select.
	markerJoin = "LEFT OUTER JOIN (SELECT " + schema.ColTrackID + " AS markerTrackId, COUNT(*) AS markerTotal FROM " +
		"markers GROUP BY " + schema.ColTrackID + ") ON (tracks." + schema.ColID + " = markerTrackId)"

	// markerCountJoined reads the joined total, 0 for tracks without markers.
	// The CAST gives the expression integer affinity, so text arguments
	// compare numerically as they do against stored integer columns.
	markerCountJoined = "CAST(COALESCE(markerTotal, 0) AS INTEGER)"

	// markerCountCorrelated is used where a join is not possible (UPDATE, DELETE).
	markerCountCorrelated = "CAST((SELECT COUNT(*) FROM markers WHERE markers." + schema.ColTrackID + " = tracks." + schema.ColID + ") AS INTEGER)"
)

// SQLCompiler compiles queryir statements to parameterized SQL for SQLite.
//
// Every select carries an ORDER BY ending in the primary key so results are
// deterministic. Values are always bound as parameters; the only identifiers
// that reach SQL text are the schema's column constants.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile validates stmt and converts it to SQL.
// Returns (sql, params, error).
func (c *SQLCompiler) Compile(stmt queryir.Statement) (string, []any, error) {
	if err := queryir.Validate(stmt); err != nil {
		return "", nil, err
	}

	switch s := stmt.(type) {
	case queryir.Select:
		return c.compileSelect(s)
	case *queryir.Select:
		return c.compileSelect(*s)
	case queryir.Insert:
		return c.compileInsert(s)
	case *queryir.Insert:
		return c.compileInsert(*s)
	case queryir.Update:
		return c.compileUpdate(s)
	case *queryir.Update:
		return c.compileUpdate(*s)
	case queryir.Delete:
		return c.compileDelete(s)
	case *queryir.Delete:
		return c.compileDelete(*s)
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

// predicateWriter renders predicates and collects their parameters.
type predicateWriter struct {
	table  *schema.Table
	args   []any
	joined bool
	params []any
}

func (c *SQLCompiler) compileSelect(s queryir.Select) (string, []any, error) {
	columns := s.Columns
	if len(columns) == 0 {
		columns = s.Table.Columns
	}

	joined := s.Table == schema.Tracks && referencesComputed(s)

	var b strings.Builder
	b.WriteString("SELECT ")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		expr := columnExpr(s.Table, col, joined)
		b.WriteString(expr)
		if expr != col {
			b.WriteString(" AS ")
			b.WriteString(col)
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(s.Table.Name)
	if joined {
		b.WriteString(" ")
		b.WriteString(markerJoin)
	}

	w := &predicateWriter{table: s.Table, args: s.Args, joined: joined}
	if s.Filter != nil {
		where, err := w.write(s.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy(s.Table, s.Order, joined))

	return b.String(), w.params, nil
}

// orderBy renders the requested terms followed by the primary key as a
// tiebreaker, or the primary key alone.
func orderBy(table *schema.Table, terms []queryir.OrderTerm, joined bool) string {
	parts := make([]string, 0, len(terms)+1)
	hasID := false
	for _, t := range terms {
		if t.Column == schema.ColID {
			hasID = true
		}
		parts = append(parts, columnExpr(table, t.Column, joined)+" "+string(t.Direction))
	}
	if !hasID {
		parts = append(parts, schema.ColID+" "+string(queryir.Asc))
	}
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) compileInsert(s queryir.Insert) (string, []any, error) {
	if len(s.Columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", s.Table.Name), nil, nil
	}

	marks := make([]string, len(s.Columns))
	for i := range marks {
		marks[i] = "?"
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.Table.Name,
		strings.Join(s.Columns, ", "),
		strings.Join(marks, ", "))

	params := make([]any, len(s.Values))
	copy(params, s.Values)
	return sql, params, nil
}

func (c *SQLCompiler) compileUpdate(s queryir.Update) (string, []any, error) {
	sets := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		sets[i] = col + " = ?"
	}

	w := &predicateWriter{table: s.Table, args: s.Args}
	w.params = append(w.params, s.Values...)

	sql := fmt.Sprintf("UPDATE %s SET %s", s.Table.Name, strings.Join(sets, ", "))
	if s.Filter != nil {
		where, err := w.write(s.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sql += " WHERE " + where
	}
	return sql, w.params, nil
}

func (c *SQLCompiler) compileDelete(s queryir.Delete) (string, []any, error) {
	w := &predicateWriter{table: s.Table, args: s.Args}

	sql := "DELETE FROM " + s.Table.Name
	if s.Filter != nil {
		where, err := w.write(s.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sql += " WHERE " + where
	}
	return sql, w.params, nil
}

func (w *predicateWriter) write(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		if err := w.operand(pred.Operand); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s ?", w.column(pred.Column), pred.Op), nil

	case queryir.In:
		marks := make([]string, len(pred.Operands))
		for i, op := range pred.Operands {
			if err := w.operand(op); err != nil {
				return "", err
			}
			marks[i] = "?"
		}
		return fmt.Sprintf("%s IN (%s)", w.column(pred.Column), strings.Join(marks, ", ")), nil

	case queryir.IsNull:
		if pred.Negated {
			return w.column(pred.Column) + " IS NOT NULL", nil
		}
		return w.column(pred.Column) + " IS NULL", nil

	case queryir.And:
		return w.group(pred.Predicates, " AND ")

	case queryir.Or:
		return w.group(pred.Predicates, " OR ")

	case queryir.Not:
		inner, err := w.write(pred.Predicate)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil

	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (w *predicateWriter) group(preds []queryir.Predicate, sep string) (string, error) {
	parts := make([]string, 0, len(preds))
	for _, sub := range preds {
		sql, err := w.write(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (w *predicateWriter) operand(o queryir.Operand) error {
	switch op := o.(type) {
	case queryir.Placeholder:
		if op.Index < 0 || op.Index >= len(w.args) {
			return fmt.Errorf("placeholder %d out of range", op.Index)
		}
		w.params = append(w.params, w.args[op.Index])
	case queryir.Value:
		w.params = append(w.params, op.V)
	default:
		return fmt.Errorf("unsupported operand type: %T", o)
	}
	return nil
}

func (w *predicateWriter) column(col string) string {
	return columnExpr(w.table, col, w.joined)
}

// columnExpr returns the SQL expression for an allow-listed column.
func columnExpr(table *schema.Table, col string, joined bool) string {
	if table == schema.Tracks && col == schema.ColMarkerCount {
		if joined {
			return markerCountJoined
		}
		return markerCountCorrelated
	}
	return col
}

// referencesComputed reports whether a select projects, filters or sorts on
// a computed column.
func referencesComputed(s queryir.Select) bool {
	for _, col := range s.Columns {
		if s.Table.IsComputed(col) {
			return true
		}
	}
	for _, t := range s.Order {
		if s.Table.IsComputed(t.Column) {
			return true
		}
	}
	return predicateReferencesComputed(s.Table, s.Filter)
}

func predicateReferencesComputed(table *schema.Table, p queryir.Predicate) bool {
	switch pred := p.(type) {
	case queryir.Compare:
		return table.IsComputed(pred.Column)
	case queryir.In:
		return table.IsComputed(pred.Column)
	case queryir.IsNull:
		return table.IsComputed(pred.Column)
	case queryir.And:
		for _, sub := range pred.Predicates {
			if predicateReferencesComputed(table, sub) {
				return true
			}
		}
	case queryir.Or:
		for _, sub := range pred.Predicates {
			if predicateReferencesComputed(table, sub) {
				return true
			}
		}
	case queryir.Not:
		return predicateReferencesComputed(table, pred.Predicate)
	}
	return false
}
