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
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
)

func newInputSchema(t *testing.T) *types.Schema {
	s, err := types.NewSchema(
		[]string{"event", "country", "cost", "clicks"},
		[]types.Type{types.T_varchar.ToType(), types.T_varchar.ToType(), types.T_float64.ToType(), types.T_int64.ToType()},
	)
	require.NoError(t, err)
	return s
}

func TestNewQueryContext(t *testing.T) {
	var def QueryDef
	_, err := toml.Decode(`
table = "events"
group-by = ["country", "event"]
limit = 3

[[aggregations]]
func = "sum"
column = "cost"

[[aggregations]]
func = "count"
column = "*"

[[order-by]]
column = "SUM(cost)"
desc = true

[[order-by]]
column = "country"
`, &def)
	require.NoError(t, err)

	qc, err := NewQueryContext(newInputSchema(t), def)
	require.NoError(t, err)
	require.Equal(t, "events", qc.Table)
	require.Equal(t, []int{1, 0}, qc.GroupByIndexes)
	require.Equal(t, []int{2, -1}, qc.AggInputIndexes)
	require.Equal(t, 2, qc.NumKeyColumns())
	require.Equal(t, 4, qc.NumColumns())
	require.True(t, qc.HasOrderBy())
	require.Equal(t, []OrderByExpr{{Index: 2, Desc: true}, {Index: 0}}, qc.OrderBy)
	require.Equal(t, 3, qc.Limit)
	require.Equal(t, []string{"country", "event", "sum(cost)", "count(*)"}, qc.DataSchema().ColumnNames())
	require.Equal(t, types.T_object, qc.DataSchema().ColumnType(2).Oid)
	require.Equal(t, types.T_float64, qc.ResultSchema().ColumnType(2).Oid)
	require.Equal(t, types.T_int64, qc.ResultSchema().ColumnType(3).Oid)
}

func TestNewQueryContextDefaults(t *testing.T) {
	qc, err := NewQueryContext(newInputSchema(t), QueryDef{
		GroupBy:      []string{"event"},
		Aggregations: []AggregationDef{{Func: "max", Column: "clicks"}},
	})
	require.NoError(t, err)
	require.False(t, qc.HasOrderBy())
	require.Equal(t, DefaultLimit, qc.Limit)
}

func TestNewQueryContextErrors(t *testing.T) {
	kases := []struct {
		name string
		def  QueryDef
		code uint16
	}{
		{"no group by", QueryDef{}, moerr.ErrInvalidInput},
		{"negative limit", QueryDef{GroupBy: []string{"event"}, Limit: -1}, moerr.ErrInvalidInput},
		{"unknown group by", QueryDef{GroupBy: []string{"city"}}, moerr.ErrInvalidInput},
		{"unknown function", QueryDef{
			GroupBy:      []string{"event"},
			Aggregations: []AggregationDef{{Func: "median", Column: "cost"}},
		}, moerr.ErrNotSupported},
		{"unknown aggregation column", QueryDef{
			GroupBy:      []string{"event"},
			Aggregations: []AggregationDef{{Func: "sum", Column: "price"}},
		}, moerr.ErrInvalidInput},
		{"star on sum", QueryDef{
			GroupBy:      []string{"event"},
			Aggregations: []AggregationDef{{Func: "sum", Column: "*"}},
		}, moerr.ErrInvalidInput},
		{"duplicate aggregation", QueryDef{
			GroupBy:      []string{"event"},
			Aggregations: []AggregationDef{{Func: "sum", Column: "cost"}, {Func: "sum", Column: "cost"}},
		}, moerr.ErrInvalidInput},
		{"unknown order by", QueryDef{
			GroupBy: []string{"event"},
			OrderBy: []OrderByDef{{Column: "cost"}},
		}, moerr.ErrInvalidInput},
	}
	for _, k := range kases {
		t.Run(k.name, func(t *testing.T) {
			_, err := NewQueryContext(newInputSchema(t), k.def)
			require.True(t, moerr.IsMoErrCode(err, k.code), "got %v", err)
		})
	}
}

func TestInputSchema(t *testing.T) {
	s, err := InputSchema(QueryDef{Columns: []ColumnDef{{Name: "event", Type: "varchar"}, {Name: "cost", Type: "double"}}})
	require.NoError(t, err)
	require.Equal(t, "[event VARCHAR, cost DOUBLE]", s.String())

	_, err = InputSchema(QueryDef{})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
	_, err = InputSchema(QueryDef{Columns: []ColumnDef{{Name: "x", Type: "blob"}}})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestCapacity(t *testing.T) {
	require.Equal(t, 5000, GetTableCapacity(10, 5000))
	require.Equal(t, 10000, GetTableCapacity(2000, 5000))
	require.Equal(t, 1000000, GetTrimThreshold(5000, 1000000))
	require.Equal(t, 5000, GetTrimThreshold(5000, 100))
}
