// The column registry: a fixed, ordered description of the sacct fields we ingest and
// the typed columns they become.  The registry drives both the field list passed to
// sacct -o and the interpretation of its reply, so the two can never disagree.

package registry

// SQLType is the storage type of a column.  Backends map these onto their own names.
type SQLType int

const (
	Int SQLType = iota
	Real
	Text
)

// RawFields maps upstream field name to the raw text of that field for one record.
type RawFields map[string]string

// Row maps column name to a typed value: int64, float64, string, or nil for null.
type Row map[string]any

// Converter turns the raw text of a field into a typed value.  A nil Converter stores the
// text as-is.  Converters are not called for sentinel "unknown" values; those become null
// before conversion is attempted.
type Converter func(s string) (any, error)

// DeriveFunc computes a derived column after all positional columns have been resolved.
// It sees the raw fields, the typed row so far, and the wall-clock time of the parse.
// A nil result means null.
type DeriveFunc func(raw RawFields, row Row, now int64) any

// Column is one immutable column definition.
type Column struct {
	Name    string
	Type    SQLType
	Convert Converter  // positional columns only
	Derive  DeriveFunc // derived columns only
	Derived bool
}

// Variant is a named, version-specific shape of the registry, selected once per run.
type Variant struct {
	Name    string
	Columns []Column
}

// UpstreamFields returns the field names to request from sacct, in positional order.
func (v *Variant) UpstreamFields() []string {
	fields := make([]string, 0, len(v.Columns))
	for _, c := range v.Columns {
		if !c.Derived {
			fields = append(fields, c.Name)
		}
	}
	return fields
}

// ColumnNames returns all column names in registry order, derived included.
func (v *Variant) ColumnNames() []string {
	names := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		names[i] = c.Name
	}
	return names
}

func (v *Variant) Lookup(name string) (Column, bool) {
	for _, c := range v.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
