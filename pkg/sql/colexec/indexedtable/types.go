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
	"time"

	"github.com/matrixorigin/indexedtable/pkg/container/table"
)

// Table is a group-by aggregation table. Rows are upserted one at a time,
// after Finish the retained records can be read once through Iterator.
//
// Memory is bounded by the trim threshold. An ordered table trims itself
// to the best trim size groups whenever it reaches the threshold, an
// unordered table stops admitting new groups instead. Rows and groups
// discarded this way are counted in Stats and are not errors.
type Table interface {
	// Upsert merges rec into the group of key, or stores rec as a new group.
	// The table owns rec after the call.
	Upsert(key *table.Key, rec *table.Record) error
	// Size is the number of groups, or the number of sorted records once
	// a sorted Finish is done.
	Size() int
	Finish(sort bool) error
	// Iterator can be called once, after Finish.
	Iterator() (*Iterator, error)

	NumResizes() int
	ResizeTime() time.Duration
	Stats() Stats
}

type Stats struct {
	NumResizes int
	ResizeTime time.Duration
	// NumDroppedRecords counts rows of new groups rejected after the
	// table closed admission.
	NumDroppedRecords int64
	// NumEvictedGroups counts groups discarded by resizes.
	NumEvictedGroups int64
	ClosedAdmission  bool
}

type tableState uint8

const (
	stateOpen tableState = iota
	stateClosedAdmission
	stateFinished
)

func (s tableState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateClosedAdmission:
		return "closed-admission"
	case stateFinished:
		return "finished"
	}
	return "unknown"
}

// Iterator is a single pass over the records of a finished table.
type Iterator struct {
	records []*table.Record
	pos     int
}

func newIterator(records []*table.Record) *Iterator {
	return &Iterator{records: records}
}

// Next returns the next record, ok is false once all records are read.
func (it *Iterator) Next() (rec *table.Record, ok bool) {
	if it.pos >= len(it.records) {
		return nil, false
	}
	rec = it.records[it.pos]
	it.pos++
	return rec, true
}

// Remaining is the number of records not read yet.
func (it *Iterator) Remaining() int {
	return len(it.records) - it.pos
}
