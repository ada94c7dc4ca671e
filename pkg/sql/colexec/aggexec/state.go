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
	"fmt"
	"math"

	"github.com/matrixorigin/indexedtable/pkg/container/types"
)

// AvgPair is the state of avg.
type AvgPair struct {
	Sum   float64
	Count int64
}

func (p *AvgPair) Apply(o *AvgPair) {
	p.Sum += o.Sum
	p.Count += o.Count
}

// Avg returns -Inf for an empty pair.
func (p *AvgPair) Avg() float64 {
	if p.Count == 0 {
		return math.Inf(-1)
	}
	return p.Sum / float64(p.Count)
}

func (p *AvgPair) String() string {
	return fmt.Sprintf("avg(%v/%d)", p.Sum, p.Count)
}

// MinMaxRangePair is the state of minmaxrange. The empty pair is
// (+Inf, -Inf).
type MinMaxRangePair struct {
	Min float64
	Max float64
}

func NewMinMaxRangePair() *MinMaxRangePair {
	return &MinMaxRangePair{Min: math.Inf(1), Max: math.Inf(-1)}
}

func (p *MinMaxRangePair) Apply(o *MinMaxRangePair) {
	if o.Min < p.Min {
		p.Min = o.Min
	}
	if o.Max > p.Max {
		p.Max = o.Max
	}
}

// Range is Max - Min, -Inf for an empty pair.
func (p *MinMaxRangePair) Range() float64 {
	return p.Max - p.Min
}

func (p *MinMaxRangePair) String() string {
	return fmt.Sprintf("range[%v,%v]", p.Min, p.Max)
}

// DistinctSet is the exact state of distinctcount, keyed by the tuple
// encoding of each value.
type DistinctSet struct {
	values map[string]struct{}
}

func NewDistinctSet() *DistinctSet {
	return &DistinctSet{values: make(map[string]struct{})}
}

func (s *DistinctSet) Add(v any) error {
	buf, err := types.AppendEncoded(nil, v)
	if err != nil {
		return err
	}
	s.values[string(buf)] = struct{}{}
	return nil
}

func (s *DistinctSet) Apply(o *DistinctSet) {
	for k := range o.values {
		s.values[k] = struct{}{}
	}
}

func (s *DistinctSet) Len() int {
	return len(s.values)
}

func (s *DistinctSet) String() string {
	return fmt.Sprintf("distinct(%d)", len(s.values))
}
