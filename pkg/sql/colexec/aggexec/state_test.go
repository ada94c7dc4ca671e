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

package aggexec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
)

func TestAvgPair(t *testing.T) {
	p := &AvgPair{}
	require.True(t, math.IsInf(p.Avg(), -1))
	p.Apply(&AvgPair{Sum: 3, Count: 1})
	p.Apply(&AvgPair{Sum: 5, Count: 1})
	require.Equal(t, 4.0, p.Avg())
}

func TestMinMaxRangePair(t *testing.T) {
	p := NewMinMaxRangePair()
	require.True(t, math.IsInf(p.Range(), -1))
	p.Apply(&MinMaxRangePair{Min: 2, Max: 2})
	p.Apply(&MinMaxRangePair{Min: -1, Max: -1})
	require.Equal(t, 3.0, p.Range())
}

func TestDistinctSet(t *testing.T) {
	s := NewDistinctSet()
	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Add(int64(1)))
	require.NoError(t, s.Add(1.0))

	o := NewDistinctSet()
	require.NoError(t, o.Add("a"))
	require.NoError(t, o.Add("b"))
	s.Apply(o)
	require.Equal(t, 4, s.Len())

	require.Error(t, s.Add([]int{1}))
}

func TestToFloat64(t *testing.T) {
	v, ok, err := ToFloat64(int64(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3.0, v)

	_, ok, err = ToFloat64(nil)
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = ToFloat64("3")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
}
