package queryir

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/trackstore/internal/errs"
	"github.com/roach88/trackstore/internal/schema"
)

var (
	numericArg    = regexp.MustCompile(`^\d+$`)
	identifierArg = regexp.MustCompile(`^[a-zA-Z0-9_\-@.]+$`)
)

// FilterProjection keeps the allow-listed columns of projection in order,
// dropping unknown and duplicate ones. It returns nil when nothing is left,
// meaning "all columns".
func FilterProjection(table *schema.Table, projection []string) []string {
	var out []string
	seen := make(map[string]bool, len(projection))
	for _, col := range projection {
		if !table.Allows(col) || seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	return out
}

// ParseSortOrder parses a comma-separated "column [ASC|DESC]" list.
// A blank sort yields nil. Every column must be allow-listed and every
// direction must be ASC or DESC, case-insensitively.
func ParseSortOrder(table *schema.Table, sort string) ([]OrderTerm, error) {
	if strings.TrimSpace(sort) == "" {
		return nil, nil
	}

	parts := strings.Split(sort, ",")
	terms := make([]OrderTerm, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) < 1 || len(fields) > 2 {
			return nil, errs.Invalid("parse sort order", "invalid sort order %q", sort)
		}

		column := fields[0]
		if !table.Allows(column) {
			return nil, errs.Invalid("parse sort order", "invalid sort order %q: unknown column %q", sort, column)
		}

		dir := Asc
		if len(fields) == 2 {
			switch strings.ToUpper(fields[1]) {
			case string(Asc):
				dir = Asc
			case string(Desc):
				dir = Desc
			default:
				return nil, errs.Invalid("parse sort order", "invalid sort order %q: bad direction %q", sort, fields[1])
			}
		}
		terms = append(terms, OrderTerm{Column: column, Direction: dir})
	}
	return terms, nil
}

// FormatOrder renders terms in normalized form, e.g. "name ASC, time DESC".
func FormatOrder(terms []OrderTerm) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.Column + " " + string(t.Direction)
	}
	return strings.Join(parts, ", ")
}

// BindArgs validates caller-supplied selection arguments and converts them to
// driver values. Each argument is trimmed and must be purely numeric or a
// restricted identifier (letters, digits and _ - @ .). A numeric argument
// is bound as int64 only when it is the canonical form of that integer;
// anything else, "007" included, is bound as text so it matches stored text
// exactly.
func BindArgs(args []string) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	out := make([]any, len(args))
	for i, raw := range args {
		arg := strings.TrimSpace(raw)
		switch {
		case numericArg.MatchString(arg):
			if n, err := strconv.ParseInt(arg, 10, 64); err == nil && strconv.FormatInt(n, 10) == arg {
				out[i] = n
			} else {
				out[i] = arg
			}
		case identifierArg.MatchString(arg):
			out[i] = arg
		default:
			return nil, errs.Invalid("bind args", "invalid argument %q at position %d", raw, i)
		}
	}
	return out, nil
}

// Filter is a validated caller predicate together with its bound arguments.
type Filter struct {
	Predicate Predicate
	Args      []any
}

// BuildFilter parses selection and binds args, checking that the number of
// arguments matches the number of placeholders.
func BuildFilter(table *schema.Table, selection string, args []string) (Filter, error) {
	sel, err := ParseSelection(table, selection)
	if err != nil {
		return Filter{}, err
	}
	bound, err := BindArgs(args)
	if err != nil {
		return Filter{}, err
	}
	if len(bound) != sel.Params {
		return Filter{}, errs.Invalid("bind args", "selection has %d placeholders but %d arguments were given", sel.Params, len(bound))
	}
	return Filter{Predicate: sel.Predicate, Args: bound}, nil
}
