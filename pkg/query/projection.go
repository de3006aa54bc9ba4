// Package query builds SELECT statements from a projection of view field
// names onto table columns. Generated SQL uses $N placeholders and sticks
// to the subset shared by PostgreSQL and SQLite.
package query

import "strings"

// ProjectionMap maps view field names (the names clients filter and sort
// by) to alias-qualified columns of a single table.
type ProjectionMap struct {
	table    string
	alias    string
	byField  map[string]string
	byColumn map[string]string
	ordered  []string
}

// NewProjectionMap creates an empty projection over table, referenced
// in SQL as alias.
func NewProjectionMap(table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:    table,
		alias:    alias,
		byField:  make(map[string]string),
		byColumn: make(map[string]string),
	}
}

// Project maps field to column. Columns are selected in the order they
// are projected.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byField[field] = qualified
	p.byColumn[column] = field
	p.ordered = append(p.ordered, qualified)
	return p
}

// Table returns the FROM clause target, "table alias".
func (p *ProjectionMap) Table() string {
	return p.table + " " + p.alias
}

// Column returns the qualified column for field, or field itself when it
// is not projected.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.byField[field]; ok {
		return col
	}
	return field
}

// Has reports whether field is projected.
func (p *ProjectionMap) Has(field string) bool {
	_, ok := p.byField[field]
	return ok
}

// Field resolves name, given as a field or as its bare column, to the
// field name. Wire formats use column names, so clients may sort by either.
func (p *ProjectionMap) Field(name string) (string, bool) {
	if _, ok := p.byField[name]; ok {
		return name, true
	}
	field, ok := p.byColumn[name]
	return field, ok
}

// Columns returns the projected columns as a select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}
