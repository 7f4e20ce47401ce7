package repository

import "strings"

// Filter is a SQL predicate written with ? placeholders. Slice arguments are
// expanded for IN clauses. The zero value matches every row.
type Filter struct {
	clause string
	args   []any
}

// Where builds a filter from a predicate and its arguments.
func Where(clause string, args ...any) Filter {
	return Filter{clause: strings.TrimSpace(clause), args: args}
}

// And combines two filters; zero filters are ignored.
func (f Filter) And(other Filter) Filter {
	switch {
	case f.IsZero():
		return other
	case other.IsZero():
		return f
	}
	args := make([]any, 0, len(f.args)+len(other.args))
	args = append(args, f.args...)
	args = append(args, other.args...)
	return Filter{clause: "(" + f.clause + ") AND (" + other.clause + ")", args: args}
}

// IsZero reports whether the filter has no predicate.
func (f Filter) IsZero() bool {
	return f.clause == ""
}

// Order sorts results by a single column.
type Order struct {
	Column string
	Desc   bool
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// OrderBy is an ordered list of sort keys. Results are unordered when empty.
type OrderBy []Order
