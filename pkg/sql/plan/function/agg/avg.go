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

type aggAvg struct{}

func (aggAvg) Name() string           { return "avg" }
func (aggAvg) Kind() aggexec.AggKind  { return aggexec.KindAvg }
func (aggAvg) ResultType() types.Type { return types.T_float64.ToType() }

func (a aggAvg) InitialState(raw any) (any, error) {
	v, ok, err := aggexec.ToFloat64(raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &aggexec.AvgPair{}, nil
	}
	return &aggexec.AvgPair{Sum: v, Count: 1}, nil
}

func (a aggAvg) CheckState(state any) error {
	return aggexec.CheckStateType[*aggexec.AvgPair](a, state)
}

func (a aggAvg) Merge(state, incoming any) (any, error) {
	s, ok := state.(*aggexec.AvgPair)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, state)
	}
	in, ok := incoming.(*aggexec.AvgPair)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, incoming)
	}
	s.Apply(in)
	return s, nil
}

func (a aggAvg) Final(state any) any {
	if s, ok := state.(*aggexec.AvgPair); ok {
		return s.Avg()
	}
	return nil
}

type aggMinMaxRange struct{}

func (aggMinMaxRange) Name() string           { return "minmaxrange" }
func (aggMinMaxRange) Kind() aggexec.AggKind  { return aggexec.KindMinMaxRange }
func (aggMinMaxRange) ResultType() types.Type { return types.T_float64.ToType() }

func (a aggMinMaxRange) InitialState(raw any) (any, error) {
	v, ok, err := aggexec.ToFloat64(raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return aggexec.NewMinMaxRangePair(), nil
	}
	return &aggexec.MinMaxRangePair{Min: v, Max: v}, nil
}

func (a aggMinMaxRange) CheckState(state any) error {
	return aggexec.CheckStateType[*aggexec.MinMaxRangePair](a, state)
}

func (a aggMinMaxRange) Merge(state, incoming any) (any, error) {
	s, ok := state.(*aggexec.MinMaxRangePair)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, state)
	}
	in, ok := incoming.(*aggexec.MinMaxRangePair)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, incoming)
	}
	s.Apply(in)
	return s, nil
}

func (a aggMinMaxRange) Final(state any) any {
	if s, ok := state.(*aggexec.MinMaxRangePair); ok {
		return s.Range()
	}
	return nil
}
