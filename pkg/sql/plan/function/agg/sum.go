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
	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
)

type aggSum struct{}

func (aggSum) Name() string           { return "sum" }
func (aggSum) Kind() aggexec.AggKind  { return aggexec.KindSum }
func (aggSum) ResultType() types.Type { return types.T_float64.ToType() }
func (a aggSum) Final(state any) any  { return state }

func (a aggSum) InitialState(raw any) (any, error) {
	v, _, err := aggexec.ToFloat64(raw)
	return v, err
}

func (a aggSum) CheckState(state any) error {
	return aggexec.CheckStateType[float64](a, state)
}

func (a aggSum) Merge(state, incoming any) (any, error) {
	s, ok1 := state.(float64)
	in, ok2 := incoming.(float64)
	if !ok1 {
		return nil, aggexec.NewStateTypeError(a, state)
	}
	if !ok2 {
		return nil, aggexec.NewStateTypeError(a, incoming)
	}
	return s + in, nil
}

// aggCount counts rows, null rows included.
type aggCount struct{}

func (aggCount) Name() string           { return "count" }
func (aggCount) Kind() aggexec.AggKind  { return aggexec.KindCount }
func (aggCount) ResultType() types.Type { return types.T_int64.ToType() }
func (a aggCount) Final(state any) any  { return state }

func (a aggCount) InitialState(raw any) (any, error) {
	return int64(1), nil
}

func (a aggCount) CheckState(state any) error {
	return aggexec.CheckStateType[int64](a, state)
}

func (a aggCount) Merge(state, incoming any) (any, error) {
	s, ok1 := state.(int64)
	in, ok2 := incoming.(int64)
	if !ok1 {
		return nil, aggexec.NewStateTypeError(a, state)
	}
	if !ok2 {
		return nil, aggexec.NewStateTypeError(a, incoming)
	}
	return s + in, nil
}
