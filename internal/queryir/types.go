package queryir

import "github.com/roach88/trackstore/internal/schema"

// Statement is a complete operation against one table.
type Statement interface {
	statementNode()
}

// Predicate is a boolean condition over a table's columns.
type Predicate interface {
	predicateNode()
}

// Operand is the right-hand side of a comparison.
type Operand interface {
	operandNode()
}

// Select reads rows.
//
//	SELECT <Columns> FROM <Table> WHERE <Filter> ORDER BY <Order>
//
// Empty Columns selects every stored column of Table. Empty Order falls back
// to the table's identity order.
type Select struct {
	Table   *schema.Table
	Columns []string
	Filter  Predicate // nil = no filter
	Args    []any     // values for Placeholder operands in Filter
	Order   []OrderTerm
}

func (Select) statementNode() {}

// Insert adds one row.
type Insert struct {
	Table   *schema.Table
	Columns []string
	Values  []any
}

func (Insert) statementNode() {}

// Update changes rows matching Filter.
type Update struct {
	Table   *schema.Table
	Columns []string
	Values  []any
	Filter  Predicate
	Args    []any
}

func (Update) statementNode() {}

// Delete removes rows matching Filter. A nil Filter removes every row.
type Delete struct {
	Table  *schema.Table
	Filter Predicate
	Args   []any
}

func (Delete) statementNode() {}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Compare is "<Column> <Op> <Operand>".
type Compare struct {
	Column  string
	Op      Op
	Operand Operand
}

func (Compare) predicateNode() {}

// In is "<Column> IN (<Operands>)".
type In struct {
	Column   string
	Operands []Operand
}

func (In) predicateNode() {}

// IsNull is "<Column> IS [NOT] NULL".
type IsNull struct {
	Column  string
	Negated bool
}

func (IsNull) predicateNode() {}

// And holds when every predicate holds. Empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or holds when any predicate holds.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Placeholder refers to the Index-th caller-supplied argument.
type Placeholder struct {
	Index int
}

func (Placeholder) operandNode() {}

// Value is a value bound by code, never by caller text.
type Value struct {
	V any
}

func (Value) operandNode() {}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderTerm is one "<Column> <Direction>" element of a sort order.
type OrderTerm struct {
	Column    string
	Direction Direction
}

// Conjoin ANDs predicates together, skipping nils. It returns nil when no
// predicate remains and the predicate itself when only one does.
func Conjoin(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}

// IDEquals pins column to a single bound identity.
func IDEquals(column string, id int64) Predicate {
	return Compare{Column: column, Op: OpEq, Operand: Value{V: id}}
}

// IDIn pins column to a set of bound identities.
func IDIn(column string, ids []int64) Predicate {
	if len(ids) == 1 {
		return IDEquals(column, ids[0])
	}
	ops := make([]Operand, len(ids))
	for i, id := range ids {
		ops[i] = Value{V: id}
	}
	return In{Column: column, Operands: ops}
}
