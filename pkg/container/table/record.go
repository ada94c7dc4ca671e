// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import (
	"fmt"
	"strings"
)

// Record is the stored row of one group. Columns [0, numKeyColumns) hold
// the key values and the rest hold aggregation states in declared order.
// The width of a record is fixed at creation.
type Record struct {
	values []any
}

// NewRecord wraps values without copying them. The record owns the slice
// from now on.
func NewRecord(values []any) *Record {
	return &Record{values: values}
}

// NewRecordWithKey allocates a record of width columns whose leading
// slots are the key values.
func NewRecordWithKey(key *Key, width int) *Record {
	values := make([]any, width)
	copy(values, key.values)
	return &Record{values: values}
}

func (r *Record) Len() int {
	return len(r.values)
}

func (r *Record) Get(i int) any {
	return r.values[i]
}

func (r *Record) Set(i int, v any) {
	r.values[i] = v
}

// Values returns the live slot array.
func (r *Record) Values() []any {
	return r.values
}

// KeyValues returns a copy of the first n columns.
func (r *Record) KeyValues(n int) []any {
	return append([]any(nil), r.values[:n]...)
}

func (r *Record) String() string {
	var buf strings.Builder
	buf.WriteString("[")
	for i, v := range r.values {
		if i > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(fmt.Sprintf("%v", v))
	}
	buf.WriteString("]")
	return buf.String()
}
