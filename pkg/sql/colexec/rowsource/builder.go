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

package rowsource

import (
	"github.com/matrixorigin/indexedtable/pkg/container/table"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan"
)

// Builder turns input rows into the group key and single-row record that
// a group-by table upserts.
type Builder struct {
	input *types.Schema
	qc    *plan.QueryContext
}

func NewBuilder(input *types.Schema, qc *plan.QueryContext) *Builder {
	return &Builder{
		input: input,
		qc:    qc,
	}
}

// Build validates row against the input schema and seeds every aggregation
// state from the row's raw value.
func (b *Builder) Build(row []any) (*table.Key, *table.Record, error) {
	if err := b.input.Validate(row); err != nil {
		return nil, nil, err
	}
	numKeyColumns := b.qc.NumKeyColumns()
	values := make([]any, b.qc.NumColumns())
	for i, idx := range b.qc.GroupByIndexes {
		values[i] = row[idx]
	}
	key, err := table.NewKey(values[:numKeyColumns]...)
	if err != nil {
		return nil, nil, err
	}
	for i, f := range b.qc.AggFuncs {
		var raw any
		if idx := b.qc.AggInputIndexes[i]; idx >= 0 {
			raw = row[idx]
		}
		if values[numKeyColumns+i], err = f.InitialState(raw); err != nil {
			return nil, nil, err
		}
	}
	return key, table.NewRecord(values), nil
}
