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
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/matrixorigin/indexedtable/pkg/container/types"
)

// Key is the group key of one row, the ordered values of its group-by
// columns. A Key is immutable after NewKey returns.
type Key struct {
	values []any
	id     string
	hash   uint64
}

// NewKey builds a key from a copy of values. Every value must be a scalar
// (nil, bool, int64, float64 or string).
func NewKey(values ...any) (*Key, error) {
	buf, err := types.EncodeTuple(values)
	if err != nil {
		return nil, err
	}
	k := &Key{
		values: make([]any, len(values)),
		id:     string(buf),
		hash:   xxhash.Sum64(buf),
	}
	copy(k.values, values)
	return k, nil
}

// ID returns the canonical encoding of the key. Two keys are equal iff
// their IDs are equal.
func (k *Key) ID() string {
	return k.id
}

func (k *Key) Hash() uint64 {
	return k.hash
}

func (k *Key) Len() int {
	return len(k.values)
}

// Value returns the i-th key column.
func (k *Key) Value(i int) any {
	return k.values[i]
}

// Values returns a copy of the key columns.
func (k *Key) Values() []any {
	return append([]any(nil), k.values...)
}

func (k *Key) Equal(o *Key) bool {
	if k == nil || o == nil {
		return k == o
	}
	return k.id == o.id
}

// Compare orders keys by their encoding.
func (k *Key) Compare(o *Key) int {
	return strings.Compare(k.id, o.id)
}

func (k *Key) String() string {
	return types.TupleString(k.values)
}
