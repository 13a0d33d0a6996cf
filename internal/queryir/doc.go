// Package queryir is the safe query builder's intermediate representation.
//
// Callers of the data-access layer hand in four kinds of untrusted text:
// a projection column list, a selection predicate, selection arguments and a
// sort order. None of that text is ever concatenated into SQL. Instead each
// fragment is parsed into a small typed tree whose identifiers are resolved
// against the target table's allow-list:
//
//	selection "trackid = ? AND (type IN (?, ?) OR time >= ?)"
//	    → And{Compare{trackid = P0}, Or{In{type, P1, P2}, Compare{time >= P3}}}
//
//	sort "name, time desc"
//	    → []OrderTerm{{name, ASC}, {time, DESC}}
//
// Literal values cannot be expressed by a parsed selection: every operand is
// a Placeholder referring to a selection argument by position. Bound values
// supplied by code (identities taken from a locator) use Value operands,
// which the parser never produces.
//
// # Sealed Interfaces
//
// Statement, Predicate and Operand are sealed with marker methods so the SQL
// compiler can switch over them exhaustively:
//
//	switch p := pred.(type) {
//	case Compare:
//	case In:
//	case IsNull:
//	case And:
//	case Or:
//	case Not:
//	}
//
// # Grammar
//
//	expr    := or
//	or      := and ("OR" and)*
//	and     := unary ("AND" unary)*
//	unary   := "NOT" unary | primary
//	primary := "(" expr ")"
//	         | column cmp "?"
//	         | column "IN" "(" "?" ("," "?")* ")"
//	         | column "IS" ["NOT"] "NULL"
//	cmp     := "=" | "==" | "!=" | "<>" | "<" | "<=" | ">" | ">="
//
// Keywords are case-insensitive. Quotes, statement separators and comment
// markers are rejected before parsing starts.
package queryir
