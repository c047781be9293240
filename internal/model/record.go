package model

import (
	"strconv"
)

// Shape describes the expected form of an extracted value
type Shape string

const (
	ShapeName     Shape = "name"     // Person name, kept as text
	ShapeCurrency Shape = "currency" // Whole units of the site's base currency
)

// FieldSpec declares one field an extraction strategy looks for
type FieldSpec struct {
	Name    string `json:"name" yaml:"name"`
	Locator string `json:"locator" yaml:"locator"` // Human-readable locator rule
	Shape   Shape  `json:"shape" yaml:"shape"`
}

// Target describes what a strategy extracts from a page
type Target struct {
	Kind   string      `json:"kind" yaml:"kind"`
	Fields []FieldSpec `json:"fields" yaml:"fields"`
}

// FieldNames returns the declared field names in order
func (t Target) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Value is a single extracted field value
type Value struct {
	Shape  Shape
	Text   string
	Amount int64
}

// NameValue builds a name-shaped value
func NameValue(name string) Value {
	return Value{Shape: ShapeName, Text: name}
}

// CurrencyValue builds a currency-shaped value
func CurrencyValue(amount int64) Value {
	return Value{Shape: ShapeCurrency, Amount: amount}
}

// String renders the value as a table cell
func (v Value) String() string {
	if v.Shape == ShapeCurrency {
		return strconv.FormatInt(v.Amount, 10)
	}
	return v.Text
}

// Outcome records how a record came to be. It is not serialized.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeParseFailed Outcome = "parse_failed"
)

// Record holds the fields extracted for one identifier.
// A field missing from the record was not found on the page; it is never
// replaced by a default.
type Record struct {
	id      Identifier
	values  map[string]Value
	outcome Outcome
}

// NewRecord creates a record from extracted values. The map is copied.
func NewRecord(id Identifier, values map[string]Value) Record {
	copied := make(map[string]Value, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Record{id: id, values: copied, outcome: OutcomeOK}
}

// AbsentRecord creates a record with every field absent
func AbsentRecord(id Identifier, outcome Outcome) Record {
	return Record{id: id, values: map[string]Value{}, outcome: outcome}
}

// ID returns the identifier the record was produced for
func (r Record) ID() Identifier { return r.id }

// Outcome returns how the record was produced
func (r Record) Outcome() Outcome { return r.outcome }

// Get returns the value for a field and whether it was found
func (r Record) Get(field string) (Value, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Len returns the number of present fields
func (r Record) Len() int { return len(r.values) }

// IsEmpty reports whether every field is absent
func (r Record) IsEmpty() bool { return len(r.values) == 0 }
