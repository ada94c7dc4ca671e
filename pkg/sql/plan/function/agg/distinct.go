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
	"github.com/RoaringBitmap/roaring"
	hll "github.com/axiomhq/hyperloglog"
	"github.com/cespare/xxhash/v2"

	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
)

// aggDistinctCount keeps every distinct non-null value.
type aggDistinctCount struct{}

func (aggDistinctCount) Name() string           { return "distinctcount" }
func (aggDistinctCount) Kind() aggexec.AggKind  { return aggexec.KindDistinctCount }
func (aggDistinctCount) ResultType() types.Type { return types.T_int64.ToType() }

func (a aggDistinctCount) InitialState(raw any) (any, error) {
	s := aggexec.NewDistinctSet()
	if raw == nil {
		return s, nil
	}
	if err := s.Add(raw); err != nil {
		return nil, aggexec.NewStateTypeError(a, raw)
	}
	return s, nil
}

func (a aggDistinctCount) CheckState(state any) error {
	return aggexec.CheckStateType[*aggexec.DistinctSet](a, state)
}

func (a aggDistinctCount) Merge(state, incoming any) (any, error) {
	s, ok := state.(*aggexec.DistinctSet)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, state)
	}
	in, ok := incoming.(*aggexec.DistinctSet)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, incoming)
	}
	// fold the smaller set into the bigger one
	if in.Len() > s.Len() {
		s, in = in, s
	}
	s.Apply(in)
	return s, nil
}

func (a aggDistinctCount) Final(state any) any {
	if s, ok := state.(*aggexec.DistinctSet); ok {
		return int64(s.Len())
	}
	return nil
}

// hashValue32 maps a scalar to the 32-bit value stored in the bitmap.
func hashValue32(v any) (uint32, error) {
	buf, err := types.AppendEncoded(nil, v)
	if err != nil {
		return 0, err
	}
	return uint32(xxhash.Sum64(buf)), nil
}

// aggDistinctCountBitmap keeps a roaring bitmap of 32-bit value hashes.
// Two values may collide, so the count is a lower bound.
type aggDistinctCountBitmap struct{}

func (aggDistinctCountBitmap) Name() string           { return "distinctcountbitmap" }
func (aggDistinctCountBitmap) Kind() aggexec.AggKind  { return aggexec.KindDistinctCountBitmap }
func (aggDistinctCountBitmap) ResultType() types.Type { return types.T_int64.ToType() }

func (a aggDistinctCountBitmap) InitialState(raw any) (any, error) {
	bmp := roaring.New()
	if raw == nil {
		return bmp, nil
	}
	h, err := hashValue32(raw)
	if err != nil {
		return nil, aggexec.NewStateTypeError(a, raw)
	}
	bmp.Add(h)
	return bmp, nil
}

func (a aggDistinctCountBitmap) CheckState(state any) error {
	return aggexec.CheckStateType[*roaring.Bitmap](a, state)
}

func (a aggDistinctCountBitmap) Merge(state, incoming any) (any, error) {
	s, ok := state.(*roaring.Bitmap)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, state)
	}
	in, ok := incoming.(*roaring.Bitmap)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, incoming)
	}
	s.Or(in)
	return s, nil
}

func (a aggDistinctCountBitmap) Final(state any) any {
	if s, ok := state.(*roaring.Bitmap); ok {
		return int64(s.GetCardinality())
	}
	return nil
}

// aggDistinctCountHLL estimates the distinct count with a HyperLogLog sketch.
type aggDistinctCountHLL struct{}

func (aggDistinctCountHLL) Name() string           { return "distinctcounthll" }
func (aggDistinctCountHLL) Kind() aggexec.AggKind  { return aggexec.KindDistinctCountHLL }
func (aggDistinctCountHLL) ResultType() types.Type { return types.T_int64.ToType() }

func (a aggDistinctCountHLL) InitialState(raw any) (any, error) {
	sk := hll.New()
	if raw == nil {
		return sk, nil
	}
	buf, err := types.AppendEncoded(nil, raw)
	if err != nil {
		return nil, aggexec.NewStateTypeError(a, raw)
	}
	sk.Insert(buf)
	return sk, nil
}

func (a aggDistinctCountHLL) CheckState(state any) error {
	return aggexec.CheckStateType[*hll.Sketch](a, state)
}

func (a aggDistinctCountHLL) Merge(state, incoming any) (any, error) {
	s, ok := state.(*hll.Sketch)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, state)
	}
	in, ok := incoming.(*hll.Sketch)
	if !ok {
		return nil, aggexec.NewStateTypeError(a, incoming)
	}
	if err := s.Merge(in); err != nil {
		return nil, err
	}
	return s, nil
}

func (a aggDistinctCountHLL) Final(state any) any {
	if s, ok := state.(*hll.Sketch); ok {
		return int64(s.Estimate())
	}
	return nil
}
