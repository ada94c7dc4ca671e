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
	"container/heap"
	"strings"

	"github.com/google/btree"

	"github.com/matrixorigin/indexedtable/pkg/container/table"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan"
)

const sortTreeDegree = 16

// TableResizer ranks records by the order-by expressions of a query. Ties
// are broken by the group key encoding, so the ranking is a total order.
type TableResizer struct {
	numKeyColumns int
	aggFuncs      []aggexec.AggFunc
	orderBy       []plan.OrderByExpr
}

func NewTableResizer(numKeyColumns int, aggFuncs []aggexec.AggFunc, orderBy []plan.OrderByExpr) *TableResizer {
	return &TableResizer{
		numKeyColumns: numKeyColumns,
		aggFuncs:      aggFuncs,
		orderBy:       orderBy,
	}
}

// rankedRecord caches the order-by values of a record for one resize.
type rankedRecord struct {
	r      *TableResizer
	id     string
	rec    *table.Record
	values []any
}

func (r *TableResizer) newRankedRecord(id string, rec *table.Record) *rankedRecord {
	values := make([]any, len(r.orderBy))
	for i, ob := range r.orderBy {
		v := rec.Get(ob.Index)
		if ob.Index >= r.numKeyColumns {
			v = r.aggFuncs[ob.Index-r.numKeyColumns].Final(v)
		}
		values[i] = v
	}
	return &rankedRecord{r: r, id: id, rec: rec, values: values}
}

// compare is negative when a ranks before b.
func (r *TableResizer) compare(a, b *rankedRecord) int {
	for i, ob := range r.orderBy {
		c := types.Compare(a.values[i], b.values[i])
		if ob.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return strings.Compare(a.id, b.id)
}

func (a *rankedRecord) Less(than btree.Item) bool {
	return a.r.compare(a, than.(*rankedRecord)) < 0
}

// rankHeap keeps the root at the record that leaves the heap first.
type rankHeap struct {
	items []*rankedRecord
	less  func(a, b *rankedRecord) bool
}

func (h *rankHeap) Len() int {
	return len(h.items)
}

func (h *rankHeap) Less(i, j int) bool {
	return h.less(h.items[i], h.items[j])
}

func (h *rankHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *rankHeap) Push(x interface{}) {
	h.items = append(h.items, x.(*rankedRecord))
}

func (h *rankHeap) Pop() interface{} {
	n := len(h.items) - 1
	x := h.items[n]
	h.items = h.items[:n]
	return x
}

// selectBounded keeps n records of m in a bounded heap. leavesFirst(a, b)
// reports whether a is pushed out of the heap before b, the root is the
// record pushed out by the next candidate that stays.
func (r *TableResizer) selectBounded(m map[string]*table.Record, n int, leavesFirst func(a, b *rankedRecord) bool) []*rankedRecord {
	h := &rankHeap{
		items: make([]*rankedRecord, 0, n),
		less:  leavesFirst,
	}
	for id, rec := range m {
		item := r.newRankedRecord(id, rec)
		if h.Len() < n {
			h.items = append(h.items, item)
			if h.Len() == n {
				heap.Init(h)
			}
			continue
		}
		if leavesFirst(h.items[0], item) {
			h.items[0] = item
			heap.Fix(h, 0)
		}
	}
	return h.items
}

// ResizeRecordsMap returns a new map holding the best n records of m.
// m is returned as is when it holds no more than n records.
func (r *TableResizer) ResizeRecordsMap(m map[string]*table.Record, n int) map[string]*table.Record {
	size := len(m)
	if size <= n {
		return m
	}
	if n <= 0 {
		return make(map[string]*table.Record)
	}
	numToEvict := size - n
	if n <= numToEvict {
		// keep the best n, the root is the worst kept record
		retained := r.selectBounded(m, n, func(a, b *rankedRecord) bool {
			return r.compare(a, b) > 0
		})
		res := make(map[string]*table.Record, n)
		for _, item := range retained {
			res[item.id] = item.rec
		}
		return res
	}
	// evict the worst numToEvict, the root is the best evicted record
	evicted := r.selectBounded(m, numToEvict, func(a, b *rankedRecord) bool {
		return r.compare(a, b) < 0
	})
	res := make(map[string]*table.Record, n)
	for id, rec := range m {
		res[id] = rec
	}
	for _, item := range evicted {
		delete(res, item.id)
	}
	return res
}

// SortRecordsMap returns the best n records of m in ranking order.
func (r *TableResizer) SortRecordsMap(m map[string]*table.Record, n int) []*table.Record {
	if n <= 0 {
		return nil
	}
	tree := btree.New(sortTreeDegree)
	for id, rec := range m {
		tree.ReplaceOrInsert(r.newRankedRecord(id, rec))
		if tree.Len() > n {
			tree.DeleteMax()
		}
	}
	res := make([]*table.Record, 0, tree.Len())
	tree.Ascend(func(i btree.Item) bool {
		res = append(res, i.(*rankedRecord).rec)
		return true
	})
	return res
}
