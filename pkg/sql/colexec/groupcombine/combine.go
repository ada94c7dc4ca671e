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

package groupcombine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/table"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/logutil"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/indexedtable"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/rowsource"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan"
	v2 "github.com/matrixorigin/indexedtable/pkg/util/metric/v2"
)

const shardQueueSize = 1024

// RowReader is a source of input rows, io.EOF ends the input.
type RowReader interface {
	Read() ([]any, error)
}

type Config struct {
	Workers       int
	TrimSize      int
	TrimThreshold int
}

// Combiner aggregates rows in parallel. Rows are routed by the hash of
// their group key, so every group lives in exactly one shard table. The
// finished shards are merged into one table by a single writer.
type Combiner struct {
	qc      *plan.QueryContext
	builder *rowsource.Builder
	filter  *rowsource.EventFilter
	cfg     Config
	pool    *ants.Pool
}

// New creates a Combiner. filter may be nil.
func New(qc *plan.QueryContext, input *types.Schema, filter *rowsource.EventFilter, cfg Config) (*Combiner, error) {
	if cfg.Workers < 1 {
		return nil, moerr.NewInvalidArgNoCtx("combine workers", cfg.Workers)
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &Combiner{
		qc:      qc,
		builder: rowsource.NewBuilder(input, qc),
		filter:  filter,
		cfg:     cfg,
		pool:    pool,
	}, nil
}

func (c *Combiner) Close() {
	c.pool.Release()
}

type shardRow struct {
	key *table.Key
	rec *table.Record
}

type shard struct {
	rows  chan shardRow
	table *indexedtable.SimpleIndexedTable
}

// Run reads r until io.EOF and returns the finished combined table.
func (c *Combiner) Run(ctx context.Context, r RowReader, sort bool) (indexedtable.Table, error) {
	queryID := uuid.New().String()
	begin := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shards := make([]*shard, c.cfg.Workers)
	for i := range shards {
		tbl, err := indexedtable.NewSimpleIndexedTable(c.qc, c.cfg.TrimSize, c.cfg.TrimThreshold)
		if err != nil {
			return nil, err
		}
		shards[i] = &shard{
			rows:  make(chan shardRow, shardQueueSize),
			table: tbl,
		}
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	setErr := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	start := time.Now()
	for i := range shards {
		s := shards[i]
		wg.Add(1)
		if err := c.pool.Submit(func() {
			defer func() {
				if v := recover(); v != nil {
					setErr(moerr.ConvertPanicError(ctx, v))
				}
				wg.Done()
			}()
			if err := s.aggregate(ctx); err != nil {
				setErr(err)
			}
		}); err != nil {
			wg.Done()
			setErr(err)
			break
		}
	}

	numRows, err := c.dispatch(ctx, r, shards)
	if err != nil {
		setErr(err)
	}
	for _, s := range shards {
		close(s.rows)
	}
	wg.Wait()
	if firstErr != nil {
		logutil.Error("group combine failed", zap.String("queryID", queryID), zap.Error(firstErr))
		return nil, firstErr
	}
	v2.CombineShardDurationHistogram.Observe(time.Since(start).Seconds())

	start = time.Now()
	res, err := c.merge(shards, sort)
	if err != nil {
		return nil, err
	}
	v2.CombineMergeDurationHistogram.Observe(time.Since(start).Seconds())
	logutil.Info("group combine finished",
		zap.String("queryID", queryID),
		zap.String("table", c.qc.Table),
		zap.Int("rows", numRows),
		zap.Int("shards", len(shards)),
		zap.Int("groups", res.Size()),
		zap.Duration("elapsed", time.Since(begin)))
	return res, nil
}

// dispatch reads rows and routes them to the shards by key hash.
func (c *Combiner) dispatch(ctx context.Context, r RowReader, shards []*shard) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, moerr.ConvertGoError(ctx, err)
		}
		row, err := r.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
		v2.CombineRowsCounter.Inc()
		if c.filter != nil && !c.filter.Accept(row) {
			continue
		}
		key, rec, err := c.builder.Build(row)
		if err != nil {
			return n, err
		}
		s := shards[key.Hash()%uint64(len(shards))]
		select {
		case s.rows <- shardRow{key: key, rec: rec}:
		case <-ctx.Done():
			return n, moerr.ConvertGoError(ctx, ctx.Err())
		}
	}
}

// aggregate upserts the rows of one shard and finishes its table. It keeps
// draining the queue after a failure so the dispatcher never blocks.
func (s *shard) aggregate(ctx context.Context) error {
	var err error
	for row := range s.rows {
		if err != nil || ctx.Err() != nil {
			continue
		}
		err = s.table.Upsert(row.key, row.rec)
	}
	if err != nil {
		return err
	}
	return s.table.Finish(false)
}

func (c *Combiner) merge(shards []*shard, sort bool) (indexedtable.Table, error) {
	res, err := indexedtable.NewSimpleIndexedTable(c.qc, c.cfg.TrimSize, c.cfg.TrimThreshold)
	if err != nil {
		return nil, err
	}
	numKeyColumns := c.qc.NumKeyColumns()
	for i, s := range shards {
		it, err := s.table.Iterator()
		if err != nil {
			return nil, err
		}
		for {
			rec, ok := it.Next()
			if !ok {
				break
			}
			key, err := table.NewKey(rec.KeyValues(numKeyColumns)...)
			if err != nil {
				return nil, err
			}
			if err = res.Upsert(key, rec); err != nil {
				return nil, moerr.NewInternalErrorNoCtx("merge shard %d: %v", i, err)
			}
		}
		logutil.Debug("shard merged", zap.Int("shard", i), zap.String("stats", fmt.Sprintf("%+v", s.table.Stats())))
	}
	if err = res.Finish(sort); err != nil {
		return nil, err
	}
	return res, nil
}
