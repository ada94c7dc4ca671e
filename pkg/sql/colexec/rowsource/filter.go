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
	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
)

// Filter decides whether an event of a table is aggregated.
type Filter interface {
	Allow(table, event string) bool
}

// EventFilter applies a Filter to the event column of input rows.
type EventFilter struct {
	filter     Filter
	table      string
	eventIndex int
}

// NewEventFilter returns a filter on eventColumn of input. A nil filter or
// an empty eventColumn accepts every row.
func NewEventFilter(f Filter, table string, input *types.Schema, eventColumn string) (*EventFilter, error) {
	ef := &EventFilter{
		filter:     f,
		table:      table,
		eventIndex: -1,
	}
	if f == nil || eventColumn == "" {
		return ef, nil
	}
	idx := input.IndexOf(eventColumn)
	if idx < 0 {
		return nil, moerr.NewBadConfigNoCtx("event column '%s' not found in %s", eventColumn, input)
	}
	if input.ColumnType(idx).Oid != types.T_varchar {
		return nil, moerr.NewBadConfigNoCtx("event column '%s' must be VARCHAR", eventColumn)
	}
	ef.eventIndex = idx
	return ef, nil
}

// Accept reports whether row passes the filter. Rows with a null event
// are accepted.
func (ef *EventFilter) Accept(row []any) bool {
	if ef.eventIndex < 0 {
		return true
	}
	event, ok := row[ef.eventIndex].(string)
	if !ok {
		return true
	}
	return ef.filter.Allow(ef.table, event)
}
