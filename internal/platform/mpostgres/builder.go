package mpostgres

import (
	"fmt"
	"strings"
)

// DefaultMaxLimit bounds any query built through WithLimit/WithLimitOffset
// unless explicitly overridden.
const DefaultMaxLimit int64 = 50

// QueryBuilderOption mutates a QueryBuilder.
type QueryBuilderOption func(b *QueryBuilder)

// QueryBuilder accumulates WHERE/ORDER/LIMIT fragments for the squirrel
// statement builders used by the postgres adapters.
type QueryBuilder struct {
	Params []any
	Where  []string
	Sorts  []string
	Table  string
	Limit  string
	Offset string
}

// NewQueryBuilder creates a QueryBuilder rooted at table.
func NewQueryBuilder(table string, opts ...QueryBuilderOption) *QueryBuilder {
	b := &QueryBuilder{Table: table}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// With applies an additional option to an existing builder.
func (q *QueryBuilder) With(opt QueryBuilderOption) {
	opt(q)
}

// WithLimit caps the result set.
func WithLimit(limit int64) QueryBuilderOption {
	return func(b *QueryBuilder) {
		b.Limit = fmt.Sprintf("LIMIT %d", limit)
	}
}

// WithLimitOffset adds page-style limit/offset pagination.
func WithLimitOffset(limit, offset int64) QueryBuilderOption {
	return func(b *QueryBuilder) {
		b.Limit = fmt.Sprintf("LIMIT %d", limit)
		b.Offset = fmt.Sprintf("OFFSET %d", offset)
	}
}

// WithSort orders by field in the given direction.
func WithSort(field, order string) QueryBuilderOption {
	return func(b *QueryBuilder) {
		b.Sorts = append(b.Sorts, fmt.Sprintf("%s %s", field, strings.ToUpper(order)))
	}
}

// WithFilter adds an equality filter, numbering its placeholder after
// whatever parameters already exist on the builder.
func WithFilter(column string, value any) QueryBuilderOption {
	return func(b *QueryBuilder) {
		b.Params = append(b.Params, value)
		b.Where = append(b.Where, fmt.Sprintf("%s = $%d", column, len(b.Params)))
	}
}
</content>
