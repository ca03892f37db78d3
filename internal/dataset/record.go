// Package dataset loads the program spreadsheet into memory and keeps the
// parsed result for the rest of the process lifetime.
//
// A Dataset is immutable once published by a Loader, so any number of
// goroutines may read it without locking.
package dataset

import (
	"iter"
	"maps"
	"slices"
	"time"
)

// Record is one parsed row of the dataset, keyed by header cell.
// Empty cells are absent rather than stored as "".
type Record struct {
	values map[string]string
}

// NewRecord builds a Record from a column → value map. The map is copied
// and empty values are dropped.
func NewRecord(values map[string]string) Record {
	r := Record{values: make(map[string]string, len(values))}
	for k, v := range values {
		if v != "" {
			r.values[k] = v
		}
	}
	return r
}

// Get returns the value stored under column and whether it was present.
func (r Record) Get(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Value returns the value stored under column, or "" when absent.
func (r Record) Value(column string) string {
	return r.values[column]
}

// Columns returns the populated column names in sorted order.
func (r Record) Columns() []string {
	return slices.Sorted(maps.Keys(r.values))
}

// Len returns the number of populated columns.
func (r Record) Len() int {
	return len(r.values)
}

// Dataset is the ordered sequence of Records read from one source.
type Dataset struct {
	records  []Record
	headers  []string
	source   string
	loadedAt time.Time
}

// New creates a Dataset. The slices are owned by the Dataset afterwards.
func New(records []Record, headers []string, source string, loadedAt time.Time) *Dataset {
	return &Dataset{
		records:  records,
		headers:  headers,
		source:   source,
		loadedAt: loadedAt,
	}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// At returns the record at index i in file order.
func (d *Dataset) At(i int) Record {
	return d.records[i]
}

// All iterates over the records in file order.
func (d *Dataset) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i, r := range d.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Headers returns a copy of the header row after de-duplication.
func (d *Dataset) Headers() []string {
	return slices.Clone(d.headers)
}

// Source describes where the dataset was read from.
func (d *Dataset) Source() string {
	return d.source
}

// LoadedAt returns when the dataset finished loading.
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}
