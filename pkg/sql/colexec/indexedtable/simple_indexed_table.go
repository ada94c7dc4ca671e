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

package indexedtable

import (
	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/table"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan"
	v2 "github.com/matrixorigin/indexedtable/pkg/util/metric/v2"
)

var _ Table = (*SimpleIndexedTable)(nil)

// SimpleIndexedTable is a Table backed by a plain map from key encoding to
// record. It is not safe for concurrent use: all upserts, Finish and the
// read-out must be serialized by the caller. Parallel aggregation uses one
// table per worker and merges them afterwards.
type SimpleIndexedTable struct {
	indexedTable

	lookupMap     map[string]*table.Record
	sorted        bool
	sortedRecords []*table.Record
}

// NewSimpleIndexedTable creates a table for qc. trimSize is only used when
// qc has an order by.
func NewSimpleIndexedTable(qc *plan.QueryContext, trimSize, trimThreshold int) (*SimpleIndexedTable, error) {
	base, err := newIndexedTable(qc, trimSize, trimThreshold)
	if err != nil {
		return nil, err
	}
	return &SimpleIndexedTable{
		indexedTable: base,
		lookupMap:    make(map[string]*table.Record),
	}, nil
}

func (t *SimpleIndexedTable) Upsert(key *table.Key, rec *table.Record) error {
	if err := t.checkUpsert(key, rec); err != nil {
		return err
	}
	id := key.ID()
	if existing, ok := t.lookupMap[id]; ok {
		v2.TableUpsertMergeCounter.Inc()
		return t.updateRecord(existing, rec)
	}
	if t.state == stateClosedAdmission {
		t.dropRecord()
		return nil
	}
	if err := t.checkKeyColumns(key, rec); err != nil {
		return err
	}
	t.lookupMap[id] = rec
	v2.TableUpsertInsertCounter.Inc()

	if size := len(t.lookupMap); size >= t.trimThreshold {
		if t.hasOrderBy {
			t.resize(t.trimSize)
		} else {
			t.closeAdmission(size)
		}
	}
	return nil
}

func (t *SimpleIndexedTable) resize(trimToSize int) {
	start := nowFunc()
	before := len(t.lookupMap)
	t.lookupMap = t.resizer.ResizeRecordsMap(t.lookupMap, trimToSize)
	t.recordResize(start, before, len(t.lookupMap))
}

func (t *SimpleIndexedTable) resizeAndSort(trimToSize int) {
	start := nowFunc()
	before := len(t.lookupMap)
	t.sortedRecords = t.resizer.SortRecordsMap(t.lookupMap, trimToSize)
	t.sorted = true
	t.lookupMap = nil
	t.recordResize(start, before, len(t.sortedRecords))
}

func (t *SimpleIndexedTable) Size() int {
	if t.sorted {
		return len(t.sortedRecords)
	}
	return len(t.lookupMap)
}

// Finish trims an ordered table to the trim size, sorting the result when
// sort is true. An unordered table is exposed as is.
func (t *SimpleIndexedTable) Finish(sort bool) error {
	if t.state == stateFinished {
		return moerr.NewInvalidStateNoCtx("table is already finished")
	}
	if t.hasOrderBy {
		if sort {
			t.resizeAndSort(t.trimSize)
		} else {
			t.resize(t.trimSize)
		}
	}
	t.state = stateFinished
	t.logFinish(t.Size())
	return nil
}

func (t *SimpleIndexedTable) Iterator() (*Iterator, error) {
	if err := t.takeIterator(); err != nil {
		return nil, err
	}
	if t.sorted {
		return newIterator(t.sortedRecords), nil
	}
	records := make([]*table.Record, 0, len(t.lookupMap))
	for _, rec := range t.lookupMap {
		records = append(records, rec)
	}
	return newIterator(records), nil
}
