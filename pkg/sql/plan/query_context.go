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


package plan

import (
	"context"
	"strings"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan/function/agg"
)

const (
	DefaultLimit = 10
	// CountStar is the column of count(*), it reads no input column.
	CountStar = "*"
)

type AggregationDef struct {
	Func   string `toml:"func"`
	Column string `toml:"column"`
}

type OrderByDef struct {
	// Column is a group-by column or an aggregation like "sum(cost)".
	Column string `toml:"column"`
	Desc   bool   `toml:"desc"`
}

// ColumnDef is one column of the input rows.
type ColumnDef struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// QueryDef is the group-by query as written in the config file.
type QueryDef struct {
	Table        string           `toml:"table"`
	Columns      []ColumnDef      `toml:"columns"`
	GroupBy      []string         `toml:"group-by"`
	Aggregations []AggregationDef `toml:"aggregations"`
	OrderBy      []OrderByDef     `toml:"order-by"`
	Limit        int              `toml:"limit"`
}

// OrderByExpr orders records by the column at Index of the data schema.
type OrderByExpr struct {
	Index int
	Desc  bool
}

// QueryContext is a QueryDef resolved against an input schema.
type QueryContext struct {
	Table           string
	GroupByIndexes  []int
	AggFuncs        []aggexec.AggFunc
	AggInputIndexes []int
	OrderBy         []OrderByExpr
	Limit           int

	dataSchema   *types.Schema
	resultSchema *types.Schema
}

// InputSchema builds the schema of the input rows from def.Columns.
func InputSchema(def QueryDef) (*types.Schema, error) {
	if len(def.Columns) == 0 {
		return nil, moerr.NewBadConfig(context.Background(), "query on table '%s' declares no input column", def.Table)
	}
	names := make([]string, len(def.Columns))
	typs := make([]types.Type, len(def.Columns))
	for i, col := range def.Columns {
		oid, err := types.ParseType(col.Type)
		if err != nil {
			return nil, err
		}
		names[i] = col.Name
		typs[i] = oid.ToType()
	}
	return types.NewSchema(names, typs)
}

func NewQueryContext(input *types.Schema, def QueryDef) (*QueryContext, error) {
	ctx := context.Background()
	if len(def.GroupBy) == 0 {
		return nil, moerr.NewInvalidInput(ctx, "query on table '%s' has no group-by column", def.Table)
	}
	if def.Limit < 0 {
		return nil, moerr.NewInvalidInput(ctx, "negative limit %d", def.Limit)
	}
	qc := &QueryContext{
		Table: def.Table,
		Limit: def.Limit,
	}
	if qc.Limit == 0 {
		qc.Limit = DefaultLimit
	}

	names := make([]string, 0, len(def.GroupBy)+len(def.Aggregations))
	dataTypes := make([]types.Type, 0, cap(names))
	resultTypes := make([]types.Type, 0, cap(names))
	for _, col := range def.GroupBy {
		idx := input.IndexOf(col)
		if idx < 0 {
			return nil, moerr.NewInvalidInput(ctx, "group-by column '%s' not found in %s", col, input)
		}
		qc.GroupByIndexes = append(qc.GroupByIndexes, idx)
		names = append(names, col)
		dataTypes = append(dataTypes, input.ColumnType(idx))
		resultTypes = append(resultTypes, input.ColumnType(idx))
	}

	for _, ad := range def.Aggregations {
		f, err := agg.New(ad.Func)
		if err != nil {
			return nil, err
		}
		idx := -1
		if ad.Column == CountStar {
			if f.Kind() != aggexec.KindCount {
				return nil, moerr.NewInvalidInput(ctx, "%s(*) is not supported", f.Name())
			}
		} else {
			if idx = input.IndexOf(ad.Column); idx < 0 {
				return nil, moerr.NewInvalidInput(ctx, "aggregation column '%s' not found in %s", ad.Column, input)
			}
		}
		qc.AggFuncs = append(qc.AggFuncs, f)
		qc.AggInputIndexes = append(qc.AggInputIndexes, idx)
		names = append(names, aggexec.ColumnName(f, ad.Column))
		dataTypes = append(dataTypes, types.T_object.ToType())
		resultTypes = append(resultTypes, f.ResultType())
	}

	var err error
	if qc.dataSchema, err = types.NewSchema(names, dataTypes); err != nil {
		return nil, err
	}
	if qc.resultSchema, err = types.NewSchema(names, resultTypes); err != nil {
		return nil, err
	}

	for _, ob := range def.OrderBy {
		idx := qc.dataSchema.IndexOf(normalizeColumn(ob.Column))
		if idx < 0 {
			return nil, moerr.NewInvalidInput(ctx, "order-by column '%s' is neither a group-by column nor an aggregation", ob.Column)
		}
		qc.OrderBy = append(qc.OrderBy, OrderByExpr{Index: idx, Desc: ob.Desc})
	}
	return qc, nil
}

// normalizeColumn lower-cases the function name of "SUM(cost)".
func normalizeColumn(name string) string {
	name = strings.TrimSpace(name)
	i := strings.IndexByte(name, '(')
	if i <= 0 || !strings.HasSuffix(name, ")") {
		return name
	}
	return strings.ToLower(strings.TrimSpace(name[:i])) + "(" + strings.TrimSpace(name[i+1:len(name)-1]) + ")"
}

func (qc *QueryContext) HasOrderBy() bool {
	return len(qc.OrderBy) > 0
}

func (qc *QueryContext) NumKeyColumns() int {
	return len(qc.GroupByIndexes)
}

// NumColumns is the width of a record, keys then aggregation states.
func (qc *QueryContext) NumColumns() int {
	return len(qc.GroupByIndexes) + len(qc.AggFuncs)
}

// DataSchema describes the stored records. Aggregation columns are
// intermediate states.
func (qc *QueryContext) DataSchema() *types.Schema {
	return qc.dataSchema
}

// ResultSchema describes the final output, aggregation columns carry the
// result type of their function.
func (qc *QueryContext) ResultSchema() *types.Schema {
	return qc.resultSchema
}

// GetTableCapacity returns the trim size of an ordered group-by table.
func GetTableCapacity(limit, minTrimSize int) int {
	if limit*5 > minTrimSize {
		return limit * 5
	}
	return minTrimSize
}

// GetTrimThreshold never lets the threshold fall below the trim size.
func GetTrimThreshold(trimSize, trimThreshold int) int {
	if trimThreshold < trimSize {
		return trimSize
	}
	return trimThreshold
}
