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
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/table"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/logutil"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan"
	"github.com/matrixorigin/indexedtable/pkg/util"
	v2 "github.com/matrixorigin/indexedtable/pkg/util/metric/v2"
)

var nowFunc = time.Now

// indexedTable holds the configuration, admission state and resize
// statistics shared by table implementations.
type indexedTable struct {
	id            uint64
	numKeyColumns int
	numColumns    int
	aggFuncs      []aggexec.AggFunc
	hasOrderBy    bool
	resizer       *TableResizer
	trimSize      int
	trimThreshold int

	state           tableState
	admissionClosed bool
	iterated        bool
	mergeBuf        []any

	numResizes        int
	resizeTime        time.Duration
	numDroppedRecords int64
	numEvictedGroups  int64
}

func newIndexedTable(qc *plan.QueryContext, trimSize, trimThreshold int) (indexedTable, error) {
	ctx := context.Background()
	if qc == nil {
		return indexedTable{}, moerr.NewInvalidArg(ctx, "query context", "nil")
	}
	t := indexedTable{
		id:            util.GetUniqueID(),
		numKeyColumns: qc.NumKeyColumns(),
		numColumns:    qc.NumColumns(),
		aggFuncs:      qc.AggFuncs,
		hasOrderBy:    qc.HasOrderBy(),
		trimSize:      trimSize,
		trimThreshold: trimThreshold,
	}
	if t.numKeyColumns < 1 {
		return indexedTable{}, moerr.NewInvalidArg(ctx, "number of key columns", t.numKeyColumns)
	}
	if trimThreshold < 1 {
		return indexedTable{}, moerr.NewInvalidArg(ctx, "trim threshold", trimThreshold)
	}
	if t.hasOrderBy {
		if trimSize < 1 {
			return indexedTable{}, moerr.NewInvalidArg(ctx, "trim size", trimSize)
		}
		if trimThreshold < trimSize {
			return indexedTable{}, moerr.NewInvalidArg(ctx, "trim threshold",
				fmt.Sprintf("%d, less than trim size %d", trimThreshold, trimSize))
		}
		for _, ob := range qc.OrderBy {
			if ob.Index < 0 || ob.Index >= t.numColumns {
				return indexedTable{}, moerr.NewInvalidArg(ctx, "order by column", ob.Index)
			}
		}
		t.resizer = NewTableResizer(t.numKeyColumns, t.aggFuncs, qc.OrderBy)
	}
	return t, nil
}

func (t *indexedTable) checkUpsert(key *table.Key, rec *table.Record) error {
	if t.state == stateFinished {
		return moerr.NewInvalidStateNoCtx("upsert into a finished table")
	}
	if key == nil {
		return moerr.NewInvalidArgNoCtx("group key", "nil")
	}
	if rec == nil {
		return moerr.NewInvalidArgNoCtx("record", "nil")
	}
	if key.Len() != t.numKeyColumns {
		return moerr.NewSizeNotMatch(context.Background(),
			fmt.Sprintf("key has %d columns, table expects %d", key.Len(), t.numKeyColumns))
	}
	if rec.Len() != t.numColumns {
		return moerr.NewSizeNotMatch(context.Background(),
			fmt.Sprintf("record has %d columns, table expects %d", rec.Len(), t.numColumns))
	}
	return nil
}

// checkKeyColumns verifies the leading columns of a new record mirror its key.
func (t *indexedTable) checkKeyColumns(key *table.Key, rec *table.Record) error {
	for i := 0; i < t.numKeyColumns; i++ {
		kv, rv := key.Value(i), rec.Get(i)
		if types.TypeOfValue(kv) != types.TypeOfValue(rv) || types.Compare(kv, rv) != 0 {
			return moerr.NewInvalidInputNoCtx("record column %d is %v, key %s", i, rv, key)
		}
	}
	return nil
}

// updateRecord merges the aggregation states of incoming into existing,
// column by column in declared order. Every state is checked first, so a
// failed merge leaves existing untouched.
func (t *indexedTable) updateRecord(existing, incoming *table.Record) error {
	values, newValues := existing.Values(), incoming.Values()
	for i, f := range t.aggFuncs {
		col := t.numKeyColumns + i
		if err := f.CheckState(values[col]); err != nil {
			return err
		}
		if err := f.CheckState(newValues[col]); err != nil {
			return err
		}
	}
	merged := t.mergeBuf[:0]
	for i, f := range t.aggFuncs {
		col := t.numKeyColumns + i
		state, err := f.Merge(values[col], newValues[col])
		if err != nil {
			return err
		}
		merged = append(merged, state)
	}
	copy(values[t.numKeyColumns:], merged)
	for i := range merged {
		merged[i] = nil
	}
	t.mergeBuf = merged
	return nil
}

func (t *indexedTable) closeAdmission(size int) {
	t.state = stateClosedAdmission
	t.admissionClosed = true
	v2.TableClosedAdmissionCounter.Inc()
	logutil.Info("group-by table reached trim threshold, no more new groups admitted",
		zap.Uint64("tableID", t.id),
		zap.Int("size", size),
		zap.Int("trimThreshold", t.trimThreshold))
}

func (t *indexedTable) dropRecord() {
	t.numDroppedRecords++
	v2.TableUpsertDropCounter.Inc()
}

func (t *indexedTable) recordResize(start time.Time, before, after int) {
	elapsed := nowFunc().Sub(start)
	t.numResizes++
	t.resizeTime += elapsed
	if after < before {
		t.numEvictedGroups += int64(before - after)
		v2.TableEvictedGroupsCounter.Add(float64(before - after))
	}
	v2.TableResizeCounter.Inc()
	v2.TableResizeDurationHistogram.Observe(elapsed.Seconds())
}

func (t *indexedTable) logFinish(size int) {
	var avg time.Duration
	if t.numResizes > 0 {
		avg = t.resizeTime / time.Duration(t.numResizes)
	}
	logutil.Debug("group-by table finished",
		zap.Uint64("tableID", t.id),
		zap.Int("numResizes", t.numResizes),
		zap.Duration("resizeTime", t.resizeTime),
		zap.Duration("avgResizeTime", avg),
		zap.Int("trimSize", t.trimSize),
		zap.Int("trimThreshold", t.trimThreshold),
		zap.Int64("droppedRecords", t.numDroppedRecords),
		zap.Int64("evictedGroups", t.numEvictedGroups),
		zap.Int("size", size))
	v2.TableFinishedSizeHistogram.Observe(float64(size))
}

// takeIterator marks the single read-out of a finished table.
func (t *indexedTable) takeIterator() error {
	if t.state != stateFinished {
		return moerr.NewInvalidStateNoCtx("iterate a table in state " + t.state.String())
	}
	if t.iterated {
		return moerr.NewInvalidStateNoCtx("table records have already been iterated")
	}
	t.iterated = true
	return nil
}

func (t *indexedTable) NumResizes() int {
	return t.numResizes
}

func (t *indexedTable) ResizeTime() time.Duration {
	return t.resizeTime
}

func (t *indexedTable) Stats() Stats {
	return Stats{
		NumResizes:        t.numResizes,
		ResizeTime:        t.resizeTime,
		NumDroppedRecords: t.numDroppedRecords,
		NumEvictedGroups:  t.numEvictedGroups,
		ClosedAdmission:   t.admissionClosed,
	}
}
