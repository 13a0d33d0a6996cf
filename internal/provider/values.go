package provider

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/trackstore/internal/errs"
	"github.com/roach88/trackstore/internal/schema"
)

// Values maps column names to the values written by an insert or update.
//
// Accepted value types are nil, bool, the signed and unsigned integer types,
// float32, float64, string, []byte and uuid.UUID, which is stored as its 16
// raw bytes.
type Values map[string]any

// row is a validated, normalized Values in column order.
type row struct {
	columns []string
	values  []any
}

// prepareInsert validates v for an insert into table and returns it in
// normalized form. Required columns must be present and non-nil. Tracks
// without a uuid get a fresh UUIDv7.
func prepareInsert(op string, table *schema.Table, v Values) (row, error) {
	for _, col := range table.Required {
		if val, ok := v[col]; !ok || val == nil {
			return row{}, errs.Invalid(op, "%s requires %s", table.Name, col)
		}
	}

	r, err := normalize(op, table, v, true)
	if err != nil {
		return row{}, err
	}

	if table == schema.Tracks && !hasValue(r, schema.ColUUID) {
		id, err := uuid.NewV7()
		if err != nil {
			return row{}, errs.Store(op, "generate track uuid", err)
		}
		r = withColumn(r, schema.ColUUID, id[:])
	}
	return r, nil
}

// prepareUpdate validates v for an update of table. The identity column
// cannot be changed and at least one column must be set.
func prepareUpdate(op string, table *schema.Table, v Values) (row, error) {
	if len(v) == 0 {
		return row{}, errs.Invalid(op, "no values to update")
	}
	if _, ok := v[schema.ColID]; ok {
		return row{}, errs.Invalid(op, "column %s cannot be updated", schema.ColID)
	}
	return normalize(op, table, v, false)
}

func normalize(op string, table *schema.Table, v Values, insert bool) (row, error) {
	columns := make([]string, 0, len(v))
	for col := range v {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	r := row{columns: columns, values: make([]any, len(columns))}
	for i, col := range columns {
		if !table.Writable(col) {
			return row{}, errs.Invalid(op, "column %q is not writable in %s", col, table.Name)
		}
		val, err := normalizeValue(v[col])
		if err != nil {
			return row{}, errs.Invalid(op, "column %q: %v", col, err)
		}
		if col == schema.ColUUID && val != nil {
			if val, err = normalizeUUID(val); err != nil {
				return row{}, errs.Invalid(op, "column %q: %v", col, err)
			}
		}
		if val, err = conform(table, col, val); err != nil {
			return row{}, errs.Invalid(op, "column %q: %v", col, err)
		}
		if col == schema.ColID && insert && val != nil {
			if id, ok := val.(int64); !ok || id < 0 {
				return row{}, errs.Invalid(op, "column %q must be a non-negative integer", col)
			}
		}
		r.values[i] = val
	}
	return r, nil
}

// conform checks a normalized value against the column's storage class.
// Integral floats are accepted for INTEGER columns and integers for REAL
// columns; text is never parsed into a number.
func conform(table *schema.Table, col string, val any) (any, error) {
	if val == nil {
		return nil, nil
	}
	class, _ := table.ClassOf(col)
	switch class {
	case schema.Integer:
		switch x := val.(type) {
		case int64:
			return x, nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case float64:
			if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
				return int64(x), nil
			}
		}
	case schema.Real:
		switch x := val.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
	case schema.Text:
		if x, ok := val.(string); ok {
			return x, nil
		}
	case schema.Blob:
		if x, ok := val.([]byte); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("%T value does not fit %s", val, class)
}

// normalizeValue converts val to one of the driver types int64, float64,
// bool, string, []byte or nil. Strings are converted to NFC.
func normalizeValue(val any) (any, error) {
	switch x := val.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return fromUnsigned(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return fromUnsigned(x)
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		return norm.NFC.String(x), nil
	case []byte:
		return append([]byte(nil), x...), nil
	case uuid.UUID:
		return append([]byte(nil), x[:]...), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", val)
}

func fromUnsigned(x uint64) (any, error) {
	if x > 1<<63-1 {
		return nil, fmt.Errorf("value %d overflows int64", x)
	}
	return int64(x), nil
}

// normalizeUUID stores a textual uuid as its 16 raw bytes.
func normalizeUUID(val any) (any, error) {
	switch x := val.(type) {
	case string:
		id, err := uuid.Parse(x)
		if err != nil {
			return nil, err
		}
		return id[:], nil
	case []byte:
		if len(x) != 16 {
			return nil, fmt.Errorf("uuid must be 16 bytes, got %d", len(x))
		}
		return x, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", val)
}

func hasValue(r row, column string) bool {
	for i, col := range r.columns {
		if col == column {
			return r.values[i] != nil
		}
	}
	return false
}

// withColumn sets column to val, replacing an existing entry.
func withColumn(r row, column string, val any) row {
	for i, col := range r.columns {
		if col == column {
			r.values[i] = val
			return r
		}
	}
	r.columns = append(r.columns, column)
	r.values = append(r.values, val)
	return r
}
