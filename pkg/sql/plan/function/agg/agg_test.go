// Copyright 2024 Matrix Origin
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


package agg

import (
	"math"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
)

// fold seeds one state per raw value and merges them left to right.
func fold(t *testing.T, f aggexec.AggFunc, raws ...any) any {
	var state any
	for i, raw := range raws {
		s, err := f.InitialState(raw)
		require.NoError(t, err)
		if i == 0 {
			state = s
			continue
		}
		state, err = f.Merge(state, s)
		require.NoError(t, err)
	}
	return state
}

func TestRegistry(t *testing.T) {
	require.Equal(t, []string{
		"avg", "count", "distinctcount", "distinctcountbitmap", "distinctcounthll",
		"max", "min", "minmaxrange", "sum",
	}, Names())

	f, err := New(" SUM ")
	require.NoError(t, err)
	require.Equal(t, "sum", f.Name())
	require.Equal(t, aggexec.KindSum, f.Kind())
	require.Equal(t, "sum(cost)", aggexec.ColumnName(f, "cost"))

	_, err = New("percentile")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
}

func TestAggFinal(t *testing.T) {
	convey.Convey("aggregation results", t, func() {
		kases := []struct {
			name string
			raws []any
			want any
		}{
			{"sum", []any{int64(1), 2.5, nil}, 3.5},
			{"count", []any{int64(1), nil, "x"}, int64(3)},
			{"min", []any{int64(4), -1.5, nil}, -1.5},
			{"min", []any{nil}, math.Inf(1)},
			{"max", []any{int64(4), -1.5, nil}, 4.0},
			{"max", []any{nil, nil}, math.Inf(-1)},
			{"avg", []any{int64(1), int64(2), nil, int64(6)}, 3.0},
			{"avg", []any{nil}, math.Inf(-1)},
			{"minmaxrange", []any{int64(10), int64(-2), 3.0}, 12.0},
			{"minmaxrange", []any{nil}, math.Inf(-1)},
			{"distinctcount", []any{"a", "b", "a", nil, int64(1)}, int64(3)},
			{"distinctcountbitmap", []any{"a", "b", "a", nil}, int64(2)},
			{"distinctcounthll", []any{"a", "b", "a", nil}, int64(2)},
		}
		for _, k := range kases {
			f, err := New(k.name)
			convey.So(err, convey.ShouldBeNil)
			convey.So(f.Final(fold(t, f, k.raws...)), convey.ShouldEqual, k.want)
		}
	})
}

func TestMergeAssociative(t *testing.T) {
	convey.Convey("merging [A,B] then C equals A then [B,C]", t, func() {
		a := []any{int64(3), "x", 1.5}
		b := []any{int64(-7), "y", nil}
		c := []any{2.25, "x", int64(9)}
		numeric := map[string]bool{"sum": true, "min": true, "max": true, "avg": true, "minmaxrange": true}
		for _, name := range Names() {
			f, err := New(name)
			convey.So(err, convey.ShouldBeNil)
			for i := range a {
				if numeric[name] && i == 1 {
					continue
				}
				ab := fold(t, f, a[i], b[i])
				c1 := fold(t, f, c[i])
				left, err := f.Merge(ab, c1)
				convey.So(err, convey.ShouldBeNil)

				a1 := fold(t, f, a[i])
				bc := fold(t, f, b[i], c[i])
				right, err := f.Merge(a1, bc)
				convey.So(err, convey.ShouldBeNil)

				convey.So(f.Final(left), convey.ShouldEqual, f.Final(right))
			}
		}
	})
}

func TestMergeCommutative(t *testing.T) {
	for _, name := range Names() {
		f, err := New(name)
		require.NoError(t, err)
		left, err := f.Merge(fold(t, f, int64(1)), fold(t, f, int64(5)))
		require.NoError(t, err)
		right, err := f.Merge(fold(t, f, int64(5)), fold(t, f, int64(1)))
		require.NoError(t, err)
		require.Equal(t, f.Final(left), f.Final(right), name)
	}
}

func TestMalformedState(t *testing.T) {
	for _, name := range Names() {
		f, err := New(name)
		require.NoError(t, err)
		good, err := f.InitialState(int64(1))
		require.NoError(t, err)

		require.NoError(t, f.CheckState(good), name)
		require.True(t, moerr.IsMoErrCode(f.CheckState("not a state"), moerr.ErrInvalidArg), name)
		require.True(t, moerr.IsMoErrCode(f.CheckState(nil), moerr.ErrInvalidArg), name)

		_, err = f.Merge("not a state", good)
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg), name)
		_, err = f.Merge(good, []int{1})
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg), name)
	}

	for _, name := range []string{"sum", "min", "max", "avg", "minmaxrange"} {
		f, _ := New(name)
		_, err := f.InitialState("abc")
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg), name)
	}
	f, _ := New("distinctcount")
	_, err := f.InitialState(map[int]int{})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
}
