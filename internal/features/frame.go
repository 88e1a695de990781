// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"math"
	"sort"
	"time"
)

// Kind is the storage type of a Column.
type Kind int

const (
	// Numeric columns hold float64 values; NaN marks a missing value.
	Numeric Kind = iota
	// Categorical columns hold strings with a validity mask.
	Categorical
	// Boolean columns hold bools with a validity mask.
	Boolean
	// Time columns hold timestamps with a validity mask.
	Time
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Boolean:
		return "boolean"
	case Time:
		return "time"
	default:
		return "unknown"
	}
}

// Column is one typed column. Exactly one of the value slices is populated,
// matching Kind. Valid is used by every kind except Numeric.
type Column struct {
	Name  string
	Kind  Kind
	Num   []float64
	Str   []string
	Bool  []bool
	Time  []time.Time
	Valid []bool
}

// NewNumeric returns a numeric column.
func NewNumeric(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Num: values}
}

// NewCategorical returns a categorical column. A nil valid slice marks
// every value present.
func NewCategorical(name string, values []string, valid []bool) *Column {
	if valid == nil {
		valid = allTrue(len(values))
	}
	return &Column{Name: name, Kind: Categorical, Str: values, Valid: valid}
}

// NewBoolean returns a boolean column.
func NewBoolean(name string, values []bool, valid []bool) *Column {
	if valid == nil {
		valid = allTrue(len(values))
	}
	return &Column{Name: name, Kind: Boolean, Bool: values, Valid: valid}
}

// NewTime returns a time column.
func NewTime(name string, values []time.Time, valid []bool) *Column {
	if valid == nil {
		valid = allTrue(len(values))
	}
	return &Column{Name: name, Kind: Time, Time: values, Valid: valid}
}

// Len returns the number of rows.
func (c *Column) Len() int {
	switch c.Kind {
	case Numeric:
		return len(c.Num)
	case Categorical:
		return len(c.Str)
	case Boolean:
		return len(c.Bool)
	case Time:
		return len(c.Time)
	}
	return 0
}

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Num[i])
	}
	return !c.Valid[i]
}

// MissingCount returns the number of missing values.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Unique returns the number of distinct non-missing values.
func (c *Column) Unique() int {
	switch c.Kind {
	case Numeric:
		seen := make(map[float64]struct{})
		for _, v := range c.Num {
			if !math.IsNaN(v) {
				seen[v] = struct{}{}
			}
		}
		return len(seen)
	default:
		seen := make(map[string]struct{})
		for i := 0; i < c.Len(); i++ {
			if !c.IsMissing(i) {
				seen[c.Text(i)] = struct{}{}
			}
		}
		return len(seen)
	}
}

// Text renders row i as a string. Missing values render as "".
func (c *Column) Text(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	switch c.Kind {
	case Numeric:
		return formatFloat(c.Num[i])
	case Categorical:
		return c.Str[i]
	case Boolean:
		if c.Bool[i] {
			return "True"
		}
		return "False"
	case Time:
		return c.Time[i].Format(time.DateOnly)
	}
	return ""
}

// take returns a copy of the column holding only the given rows.
func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Valid != nil {
		out.Valid = make([]bool, len(rows))
		for j, i := range rows {
			out.Valid[j] = c.Valid[i]
		}
	}
	switch c.Kind {
	case Numeric:
		out.Num = make([]float64, len(rows))
		for j, i := range rows {
			out.Num[j] = c.Num[i]
		}
	case Categorical:
		out.Str = make([]string, len(rows))
		for j, i := range rows {
			out.Str[j] = c.Str[i]
		}
	case Boolean:
		out.Bool = make([]bool, len(rows))
		for j, i := range rows {
			out.Bool[j] = c.Bool[i]
		}
	case Time:
		out.Time = make([]time.Time, len(rows))
		for j, i := range rows {
			out.Time[j] = c.Time[i]
		}
	}
	return out
}

// Frame is an ordered collection of equal-length columns.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// NewFrame returns an empty frame with the given row count.
func NewFrame(rows int) *Frame {
	return &Frame{index: make(map[string]int), rows: rows}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Columns returns the columns in order. The slice must not be modified.
func (f *Frame) Columns() []*Column { return f.cols }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Set appends c, or replaces the column of the same name in place.
// It panics when the column length does not match the frame.
func (f *Frame) Set(c *Column) {
	if c.Len() != f.rows {
		panic("features: column " + c.Name + " length does not match frame")
	}
	if i, ok := f.index[c.Name]; ok {
		f.cols[i] = c
		return
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
}

// Drop removes the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := f.cols[:0]
	for _, c := range f.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	f.cols = kept
	f.reindex()
}

// Select returns a frame holding the named columns in the given order.
// Columns are shared, not copied. The second result lists unknown names.
func (f *Frame) Select(names []string) (*Frame, []string) {
	out := NewFrame(f.rows)
	var missing []string
	for _, n := range names {
		c, ok := f.Column(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		out.Set(c)
	}
	return out, missing
}

// Take returns a new frame holding the given rows, in that order.
func (f *Frame) Take(rows []int) *Frame {
	out := NewFrame(len(rows))
	for _, c := range f.cols {
		out.Set(c.take(rows))
	}
	return out
}

// Filter returns a new frame holding the rows where keep is true.
func (f *Frame) Filter(keep []bool) *Frame {
	rows := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}
	return f.Take(rows)
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	rows := make([]int, f.rows)
	for i := range rows {
		rows[i] = i
	}
	return f.Take(rows)
}

// NumericMatrix returns the named numeric columns as a row-major matrix.
func (f *Frame) NumericMatrix(names []string) ([][]float64, []string) {
	var missing []string
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, ok := f.Column(n)
		if !ok || c.Kind != Numeric {
			missing = append(missing, n)
			continue
		}
		cols = append(cols, c)
	}
	if len(missing) > 0 {
		return nil, missing
	}
	m := make([][]float64, f.rows)
	for i := range m {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Num[i]
		}
		m[i] = row
	}
	return m, nil
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		f.index[c.Name] = i
	}
}

func allTrue(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

func nanSlice(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// quantile returns the q-th quantile of the non-NaN values using linear
// interpolation between closest ranks.
func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// popStd is the population standard deviation of non-NaN values.
func popStd(values []float64, mu float64) float64 {
	ss, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			d := v - mu
			ss += d * d
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return math.Sqrt(ss / float64(n))
}
