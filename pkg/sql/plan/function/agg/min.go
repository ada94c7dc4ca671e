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

	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
)

// aggMin keeps the smallest value, +Inf when only nulls were seen.
type aggMin struct{}

func (aggMin) Name() string           { return "min" }
func (aggMin) Kind() aggexec.AggKind  { return aggexec.KindMin }
func (aggMin) ResultType() types.Type { return types.T_float64.ToType() }
func (a aggMin) Final(state any) any  { return state }

func (a aggMin) InitialState(raw any) (any, error) {
	v, ok, err := aggexec.ToFloat64(raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return math.Inf(1), nil
	}
	return v, nil
}

func (a aggMin) CheckState(state any) error {
	return aggexec.CheckStateType[float64](a, state)
}

func (a aggMin) Merge(state, incoming any) (any, error) {
	s, ok1 := state.(float64)
	in, ok2 := incoming.(float64)
	if !ok1 {
		return nil, aggexec.NewStateTypeError(a, state)
	}
	if !ok2 {
		return nil, aggexec.NewStateTypeError(a, incoming)
	}
	if in < s {
		return in, nil
	}
	return s, nil
}
