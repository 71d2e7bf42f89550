package extract

import (
	"github.com/kova98/redditlookup/data"
)

// Column maps a record column to an object attribute. When Convert is set the
// attribute value is passed through it; a failed conversion only nulls this
// column.
type Column struct {
	Name    string
	Attr    string
	Convert Converter
}

// Mapping declares the record layout for one kind of object: the identity
// column first, then Columns in order.
type Mapping struct {
	IDColumn string
	Columns  []Column
}

// Constant is a column holding the same value on every record of a batch.
type Constant struct {
	Name  string
	Value any
}

type Builder struct {
	extractor *Extractor
	resolver  *Resolver
}

func NewBuilder(extractor *Extractor, resolver *Resolver) *Builder {
	return &Builder{extractor: extractor, resolver: resolver}
}

func (b *Builder) Extractor() *Extractor {
	return b.extractor
}

func (b *Builder) Resolver() *Resolver {
	return b.resolver
}

// ColumnNames returns the column order Build produces for m and constants.
func (m Mapping) ColumnNames(constants ...Constant) []string {
	names := make([]string, 0, 1+len(m.Columns)+len(constants))
	names = append(names, m.IDColumn)
	for _, c := range m.Columns {
		names = append(names, c.Name)
	}
	for _, c := range constants {
		names = append(names, c.Name)
	}
	return names
}

// Build produces exactly one record per object, in input order. Objects that
// are nil or fail every read still yield a record, with NULL values.
func (b *Builder) Build(objects []Object, m Mapping, constants ...Constant) *data.Table {
	table := data.NewTable(m.ColumnNames(constants...)...)
	table.Rows = make([][]any, 0, len(objects))

	for _, obj := range objects {
		row := make([]any, 0, len(table.Columns))
		row = append(row, b.resolver.Value(obj))
		for _, c := range m.Columns {
			row = append(row, b.value(obj, c))
		}
		for _, c := range constants {
			row = append(row, c.Value)
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}

func (b *Builder) value(obj Object, c Column) any {
	if c.Convert != nil {
		return b.extractor.Convert(obj, c.Attr, c.Convert)
	}
	value, _ := b.extractor.Field(obj, c.Attr)
	return value
}
