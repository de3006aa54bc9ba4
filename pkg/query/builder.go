package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField orders by one logical field of a ProjectionMap.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// ParseSortFields reads "status,-created_at" style input. A leading "-"
// sorts descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

type condition struct {
	column string
	op     string
	arg    any
}

// Builder assembles SELECT statements over one ProjectionMap. Conditions
// are ANDed and numbered $1..$n in the order they were added.
type Builder struct {
	projection  *ProjectionMap
	conditions  []condition
	order       []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder that sorts by defaultSort unless
// OrderByFields supplies mapped fields.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

// WhereEquals adds "field = value". Nil values, including typed nil
// pointers, add nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.where(field, "=", value)
}

// WhereSince adds "field >= value" unless value is nil.
func (b *Builder) WhereSince(field string, value any) *Builder {
	return b.where(field, ">=", value)
}

// WhereBefore adds "field < value" unless value is nil.
func (b *Builder) WhereBefore(field string, value any) *Builder {
	return b.where(field, "<", value)
}

// OrderByFields replaces the default sort. Each field may be named by
// field or column; names the projection does not map are dropped, so
// client input never reaches the SQL text.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.order = b.order[:0]
	for _, f := range fields {
		if name, ok := b.projection.Field(f.Field); ok {
			b.order = append(b.order, SortField{Field: name, Descending: f.Descending})
		}
	}
	return b
}

// Build returns the filtered, ordered SELECT over every projected column.
func (b *Builder) Build() (string, []any) {
	where, args := b.whereClause()
	return b.selectFrom(b.projection.Columns()) + where + b.orderClause(), args
}

// BuildPage is Build restricted to one page. page is 1-based.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	sql, args := b.Build()
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, pageSize, (page-1)*pageSize), args
}

// BuildCount returns COUNT(*) under the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.whereClause()
	return b.selectFrom("COUNT(*)") + where, args
}

// BuildSingle selects the row whose idField equals id. Conditions and
// ordering are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	sql := b.selectFrom(b.projection.Columns()) + " WHERE " + b.projection.Column(idField) + " = $1"
	return sql, []any{id}
}

// BuildAggregate selects exprs under the current conditions. An
// expression may name mapped fields as {Field}.
func (b *Builder) BuildAggregate(exprs ...string) (string, []any) {
	resolved := make([]string, len(exprs))
	for i, e := range exprs {
		resolved[i] = b.resolve(e)
	}
	where, args := b.whereClause()
	return b.selectFrom(strings.Join(resolved, ", ")) + where, args
}

// BuildGroupCount counts rows per distinct value of field, ascending.
func (b *Builder) BuildGroupCount(field string) (string, []any) {
	col := b.projection.Column(field)
	where, args := b.whereClause()
	return fmt.Sprintf("%s%s GROUP BY %s ORDER BY %s ASC", b.selectFrom(col+", COUNT(*)"), where, col, col), args
}

func (b *Builder) where(field, op string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.conditions = append(b.conditions, condition{
		column: b.projection.Column(field),
		op:     op,
		arg:    value,
	})
	return b
}

func (b *Builder) selectFrom(cols string) string {
	return "SELECT " + cols + " FROM " + b.projection.Table()
}

func (b *Builder) whereClause() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	var sb strings.Builder
	args := make([]any, len(b.conditions))
	for i, c := range b.conditions {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "%s %s $%d", c.column, c.op, i+1)
		args[i] = c.arg
	}
	return sb.String(), args
}

func (b *Builder) orderClause() string {
	fields := b.order
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts[i] = b.projection.Column(f.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// resolve swaps {Field} placeholders for qualified columns. An
// unterminated brace is left as written.
func (b *Builder) resolve(expr string) string {
	var sb strings.Builder
	for {
		before, rest, ok := strings.Cut(expr, "{")
		if !ok {
			break
		}
		field, after, ok := strings.Cut(rest, "}")
		if !ok {
			break
		}
		sb.WriteString(before)
		sb.WriteString(b.projection.Column(field))
		expr = after
	}
	sb.WriteString(expr)
	return sb.String()
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
