package queryir

import (
	"fmt"

	"github.com/roach88/trackstore/internal/schema"
)

// Validate checks a statement built by code or by the parser before it is
// compiled: every column must be allow-listed for the statement's table,
// written columns must be stored columns, and every placeholder must refer to
// an existing argument.
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement) error {
	v := &validator{}
	v.validateStatement(stmt)
	if len(v.problems) > 0 {
		return fmt.Errorf("invalid statement: %s", v.problems[0])
	}
	return nil
}

// validator accumulates problems during traversal.
type validator struct {
	table    *schema.Table
	nargs    int
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateStatement(stmt Statement) {
	switch s := stmt.(type) {
	case Select:
		v.validateSelect(s)
	case *Select:
		v.validateSelect(*s)
	case Insert:
		v.validateInsert(s)
	case *Insert:
		v.validateInsert(*s)
	case Update:
		v.validateUpdate(s)
	case *Update:
		v.validateUpdate(*s)
	case Delete:
		v.validateDelete(s)
	case *Delete:
		v.validateDelete(*s)
	case nil:
		v.addProblem("nil statement")
	default:
		v.addProblem("unknown statement type %T", stmt)
	}
}

func (v *validator) bind(table *schema.Table, nargs int) bool {
	if table == nil {
		v.addProblem("statement has no table")
		return false
	}
	v.table = table
	v.nargs = nargs
	return true
}

func (v *validator) validateSelect(s Select) {
	if !v.bind(s.Table, len(s.Args)) {
		return
	}
	for _, col := range s.Columns {
		v.column(col)
	}
	for _, term := range s.Order {
		v.column(term.Column)
		if term.Direction != Asc && term.Direction != Desc {
			v.addProblem("bad sort direction %q", term.Direction)
		}
	}
	v.validatePredicate(s.Filter)
}

func (v *validator) validateInsert(s Insert) {
	if !v.bind(s.Table, 0) {
		return
	}
	v.writes(s.Columns, s.Values)
}

func (v *validator) validateUpdate(s Update) {
	if !v.bind(s.Table, len(s.Args)) {
		return
	}
	if len(s.Columns) == 0 {
		v.addProblem("update sets no columns")
	}
	v.writes(s.Columns, s.Values)
	v.validatePredicate(s.Filter)
}

func (v *validator) validateDelete(s Delete) {
	if !v.bind(s.Table, len(s.Args)) {
		return
	}
	v.validatePredicate(s.Filter)
}

func (v *validator) writes(columns []string, values []any) {
	if len(columns) != len(values) {
		v.addProblem("%d columns but %d values", len(columns), len(values))
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if !v.table.Writable(col) {
			v.addProblem("column %q is not writable in %s", col, v.table.Name)
		}
		if seen[col] {
			v.addProblem("column %q written twice", col)
		}
		seen[col] = true
	}
}

func (v *validator) column(col string) {
	if !v.table.Allows(col) {
		v.addProblem("column %q not allowed for %s", col, v.table.Name)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Compare:
		v.column(pred.Column)
		v.validateOp(pred.Op)
		v.validateOperand(pred.Operand)
	case In:
		v.column(pred.Column)
		if len(pred.Operands) == 0 {
			v.addProblem("empty IN list for %q", pred.Column)
		}
		for _, op := range pred.Operands {
			v.validateOperand(op)
		}
	case IsNull:
		v.column(pred.Column)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		if len(pred.Predicates) == 0 {
			v.addProblem("empty OR")
		}
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Not:
		if pred.Predicate == nil {
			v.addProblem("NOT without operand")
		}
		v.validatePredicate(pred.Predicate)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateOp(op Op) {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
	default:
		v.addProblem("unknown operator %q", op)
	}
}

func (v *validator) validateOperand(o Operand) {
	switch op := o.(type) {
	case Placeholder:
		if op.Index < 0 || op.Index >= v.nargs {
			v.addProblem("placeholder %d out of range (%d args)", op.Index, v.nargs)
		}
	case Value:
		// bound by code
	default:
		v.addProblem("unknown operand type %T", o)
	}
}
