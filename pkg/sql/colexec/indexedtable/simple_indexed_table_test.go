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
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/table"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan"
)

func newTestQueryContext(t *testing.T, aggFunc string, orderBy ...plan.OrderByDef) *plan.QueryContext {
	input, err := types.NewSchema(
		[]string{"k", "v"},
		[]types.Type{types.T_varchar.ToType(), types.T_float64.ToType()},
	)
	require.NoError(t, err)
	qc, err := plan.NewQueryContext(input, plan.QueryDef{
		GroupBy:      []string{"k"},
		Aggregations: []plan.AggregationDef{{Func: aggFunc, Column: "v"}},
		OrderBy:      orderBy,
	})
	require.NoError(t, err)
	return qc
}

func newTestRecord(t *testing.T, qc *plan.QueryContext, k string, v float64) (*table.Key, *table.Record) {
	key, err := table.NewKey(k)
	require.NoError(t, err)
	rec := table.NewRecordWithKey(key, qc.NumColumns())
	state, err := qc.AggFuncs[0].InitialState(v)
	require.NoError(t, err)
	rec.Set(1, state)
	return key, rec
}

func upsert(t *testing.T, qc *plan.QueryContext, tbl Table, k string, v float64) {
	key, rec := newTestRecord(t, qc, k, v)
	require.NoError(t, tbl.Upsert(key, rec))
}

// readAll drains the table and returns its records as key -> final value,
// plus the keys in iteration order.
func readAll(t *testing.T, qc *plan.QueryContext, tbl Table) (map[string]any, []string) {
	it, err := tbl.Iterator()
	require.NoError(t, err)
	res := make(map[string]any)
	var order []string
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		k := rec.Get(0).(string)
		res[k] = qc.AggFuncs[0].Final(rec.Get(1))
		order = append(order, k)
	}
	return res, order
}

func TestUnorderedClosedAdmission(t *testing.T) {
	qc := newTestQueryContext(t, "sum")
	tbl, err := NewSimpleIndexedTable(qc, 0, 3)
	require.NoError(t, err)

	upsert(t, qc, tbl, "A", 1)
	upsert(t, qc, tbl, "B", 2)
	require.False(t, tbl.Stats().ClosedAdmission)
	upsert(t, qc, tbl, "C", 3)
	require.True(t, tbl.Stats().ClosedAdmission)

	upsert(t, qc, tbl, "D", 4)
	upsert(t, qc, tbl, "A", 5)
	require.Equal(t, 3, tbl.Size())

	require.NoError(t, tbl.Finish(false))
	require.Equal(t, 3, tbl.Size())
	stats := tbl.Stats()
	require.Equal(t, int64(1), stats.NumDroppedRecords)
	require.Equal(t, 0, stats.NumResizes)
	require.True(t, stats.ClosedAdmission)

	res, _ := readAll(t, qc, tbl)
	require.Equal(t, map[string]any{"A": 6.0, "B": 2.0, "C": 3.0}, res)
}

func TestOrderedResize(t *testing.T) {
	qc := newTestQueryContext(t, "sum", plan.OrderByDef{Column: "sum(v)", Desc: true})
	tbl, err := NewSimpleIndexedTable(qc, 2, 3)
	require.NoError(t, err)

	upsert(t, qc, tbl, "A", 1)
	upsert(t, qc, tbl, "B", 2)
	require.Equal(t, 0, tbl.NumResizes())
	upsert(t, qc, tbl, "C", 3)
	require.Equal(t, 1, tbl.NumResizes())
	require.Equal(t, 2, tbl.Size())

	// the ordered path keeps admitting new keys
	upsert(t, qc, tbl, "D", 4)
	require.Equal(t, 2, tbl.NumResizes())
	require.Equal(t, 2, tbl.Size())
	upsert(t, qc, tbl, "E", 0.5)
	require.Equal(t, 3, tbl.NumResizes())
	require.False(t, tbl.Stats().ClosedAdmission)
	require.Equal(t, int64(3), tbl.Stats().NumEvictedGroups)

	require.NoError(t, tbl.Finish(true))
	require.Equal(t, 4, tbl.NumResizes())
	require.Equal(t, 2, tbl.Size())
	res, order := readAll(t, qc, tbl)
	require.Equal(t, []string{"D", "C"}, order)
	require.Equal(t, map[string]any{"D": 4.0, "C": 3.0}, res)
}

func TestMergeAfterResize(t *testing.T) {
	qc := newTestQueryContext(t, "sum", plan.OrderByDef{Column: "sum(v)", Desc: true})
	tbl, err := NewSimpleIndexedTable(qc, 2, 3)
	require.NoError(t, err)

	upsert(t, qc, tbl, "A", 10)
	upsert(t, qc, tbl, "B", 1)
	upsert(t, qc, tbl, "A", 5)
	upsert(t, qc, tbl, "C", 3)
	require.Equal(t, 2, tbl.Size())
	upsert(t, qc, tbl, "C", 1)

	require.NoError(t, tbl.Finish(false))
	res, _ := readAll(t, qc, tbl)
	require.Equal(t, map[string]any{"A": 15.0, "C": 4.0}, res)
}

func TestUnorderedNeverExceedsThreshold(t *testing.T) {
	const threshold = 5
	qc := newTestQueryContext(t, "sum")
	tbl, err := NewSimpleIndexedTable(qc, 0, threshold)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(42))
	admitted := make(map[string]bool)
	want := make(map[string]any)
	for i := 0; i < 500; i++ {
		k := fmt.Sprintf("k%02d", r.Intn(20))
		v := float64(r.Intn(100))
		if len(admitted) < threshold {
			admitted[k] = true
		}
		if admitted[k] {
			if old, ok := want[k]; ok {
				want[k] = old.(float64) + v
			} else {
				want[k] = v
			}
		}
		upsert(t, qc, tbl, k, v)
		require.LessOrEqual(t, tbl.Size(), threshold)
	}
	require.NoError(t, tbl.Finish(true))
	res, _ := readAll(t, qc, tbl)
	require.Equal(t, want, res)
}

func TestOrderedRetainsBest(t *testing.T) {
	const trimSize, threshold = 4, 7
	qc := newTestQueryContext(t, "max", plan.OrderByDef{Column: "max(v)", Desc: true})
	tbl, err := NewSimpleIndexedTable(qc, trimSize, threshold)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(7))
	var seen []float64
	for i, v := range r.Perm(200) {
		seen = append(seen, float64(v))
		before := tbl.NumResizes()
		upsert(t, qc, tbl, fmt.Sprintf("k%03d", i), float64(v))
		require.Less(t, tbl.Size(), threshold)
		if tbl.NumResizes() == before {
			continue
		}
		require.Equal(t, trimSize, tbl.Size())
		best := append([]float64(nil), seen...)
		sort.Sort(sort.Reverse(sort.Float64Slice(best)))
		got := make([]float64, 0, trimSize)
		for _, rec := range tbl.lookupMap {
			got = append(got, rec.Get(1).(float64))
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(got)))
		require.Equal(t, best[:trimSize], got)
	}
}

func TestFinishSortedAndUnsortedAgree(t *testing.T) {
	build := func(sorted bool) (map[string]any, []string) {
		qc := newTestQueryContext(t, "avg",
			plan.OrderByDef{Column: "avg(v)"},
			plan.OrderByDef{Column: "k", Desc: true})
		tbl, err := NewSimpleIndexedTable(qc, 10, 25)
		require.NoError(t, err)
		r := rand.New(rand.NewSource(3))
		for i := 0; i < 1000; i++ {
			upsert(t, qc, tbl, fmt.Sprintf("g%02d", r.Intn(60)), float64(r.Intn(10)))
		}
		require.NoError(t, tbl.Finish(sorted))
		require.LessOrEqual(t, tbl.Size(), 10)
		return readAll(t, qc, tbl)
	}
	sortedRes, order := build(true)
	unsortedRes, _ := build(false)
	require.Equal(t, sortedRes, unsortedRes)

	for i := 1; i < len(order); i++ {
		prev, cur := sortedRes[order[i-1]].(float64), sortedRes[order[i]].(float64)
		require.True(t, prev < cur || (prev == cur && order[i-1] > order[i]),
			"%s=%v before %s=%v", order[i-1], prev, order[i], cur)
	}
}

func TestUpsertPreconditions(t *testing.T) {
	qc := newTestQueryContext(t, "sum")
	tbl, err := NewSimpleIndexedTable(qc, 0, 10)
	require.NoError(t, err)

	key, rec := newTestRecord(t, qc, "A", 1)
	err = tbl.Upsert(nil, rec)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
	err = tbl.Upsert(key, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))

	wideKey, err := table.NewKey("A", "B")
	require.NoError(t, err)
	err = tbl.Upsert(wideKey, rec)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrSizeNotMatch))

	err = tbl.Upsert(key, table.NewRecord([]any{"A", 1.0, 2.0}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrSizeNotMatch))

	err = tbl.Upsert(key, table.NewRecord([]any{"B", 1.0}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	require.NoError(t, tbl.Upsert(key, rec))
	err = tbl.Upsert(key, table.NewRecord([]any{"A", "not a sum"}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
	require.Equal(t, 1, tbl.Size())
}

func TestFailedMergeKeepsRecord(t *testing.T) {
	input, err := types.NewSchema(
		[]string{"k", "v"},
		[]types.Type{types.T_varchar.ToType(), types.T_float64.ToType()},
	)
	require.NoError(t, err)
	qc, err := plan.NewQueryContext(input, plan.QueryDef{
		GroupBy: []string{"k"},
		Aggregations: []plan.AggregationDef{
			{Func: "sum", Column: "v"},
			{Func: "avg", Column: "v"},
			{Func: "count", Column: "*"},
		},
	})
	require.NoError(t, err)
	tbl, err := NewSimpleIndexedTable(qc, 0, 10)
	require.NoError(t, err)

	key, err := table.NewKey("A")
	require.NoError(t, err)
	require.NoError(t, tbl.Upsert(key, table.NewRecord([]any{"A", 5.0, &aggexec.AvgPair{Sum: 5, Count: 1}, int64(1)})))

	err = tbl.Upsert(key, table.NewRecord([]any{"A", 1.0, &aggexec.AvgPair{Sum: 1, Count: 1}, "bad"}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
	stored := tbl.lookupMap[key.ID()]
	require.Equal(t, []any{"A", 5.0, &aggexec.AvgPair{Sum: 5, Count: 1}, int64(1)}, stored.Values())

	require.NoError(t, tbl.Upsert(key, table.NewRecord([]any{"A", 1.0, &aggexec.AvgPair{Sum: 1, Count: 1}, int64(1)})))
	require.Equal(t, []any{"A", 6.0, &aggexec.AvgPair{Sum: 6, Count: 2}, int64(2)}, stored.Values())
}

func TestLifecycle(t *testing.T) {
	qc := newTestQueryContext(t, "count")
	tbl, err := NewSimpleIndexedTable(qc, 0, 10)
	require.NoError(t, err)

	_, err = tbl.Iterator()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))

	upsert(t, qc, tbl, "A", 1)
	upsert(t, qc, tbl, "A", 1)
	require.NoError(t, tbl.Finish(false))

	err = tbl.Finish(false)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))
	key, rec := newTestRecord(t, qc, "B", 1)
	err = tbl.Upsert(key, rec)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))

	res, _ := readAll(t, qc, tbl)
	require.Equal(t, map[string]any{"A": int64(2)}, res)
	_, err = tbl.Iterator()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))
	require.Equal(t, 1, tbl.Size())
}

func TestNewSimpleIndexedTableValidation(t *testing.T) {
	ordered := newTestQueryContext(t, "sum", plan.OrderByDef{Column: "k"})
	unordered := newTestQueryContext(t, "sum")

	_, err := NewSimpleIndexedTable(nil, 1, 1)
	require.Error(t, err)
	_, err = NewSimpleIndexedTable(unordered, 0, 0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
	_, err = NewSimpleIndexedTable(ordered, 0, 10)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
	_, err = NewSimpleIndexedTable(ordered, 10, 5)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))

	_, err = NewSimpleIndexedTable(ordered, 5, 5)
	require.NoError(t, err)
	_, err = NewSimpleIndexedTable(unordered, 0, 1)
	require.NoError(t, err)
}

func TestResizeTime(t *testing.T) {
	cur := time.Unix(0, 0)
	stubs := gostub.Stub(&nowFunc, func() time.Time {
		cur = cur.Add(10 * time.Millisecond)
		return cur
	})
	defer stubs.Reset()

	qc := newTestQueryContext(t, "sum", plan.OrderByDef{Column: "sum(v)"})
	tbl, err := NewSimpleIndexedTable(qc, 1, 2)
	require.NoError(t, err)
	upsert(t, qc, tbl, "A", 1)
	upsert(t, qc, tbl, "B", 2)
	require.NoError(t, tbl.Finish(false))

	require.Equal(t, 2, tbl.NumResizes())
	require.Equal(t, 20*time.Millisecond, tbl.ResizeTime())
	require.Equal(t, tbl.ResizeTime(), tbl.Stats().ResizeTime)
}
