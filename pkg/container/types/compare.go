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

package types

import (
	"math"

	"golang.org/x/exp/constraints"
)

// value classes in ascending order, null first.
const (
	nullClass = iota
	boolClass
	numericClass
	stringClass
	objectClass
)

func classOf(v any) int {
	switch v.(type) {
	case nil:
		return nullClass
	case bool:
		return boolClass
	case int64, float64:
		return numericClass
	case string:
		return stringClass
	}
	return objectClass
}

func compareOrdered[T constraints.Ordered](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	return compareOrdered(a, b)
}

// compareIntFloat compares exactly, without rounding i to a float64.
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= -math.MinInt64:
		return -1
	case f < math.MinInt64:
		return 1
	}
	t := math.Trunc(f)
	if c := compareOrdered(i, int64(t)); c != 0 {
		return c
	}
	// same integer part, the fraction decides
	return compareOrdered(t, f)
}

// Compare defines a total order over scalar values. Null sorts first, int64
// and float64 compare numerically with each other, NaN sorts before every
// other number. Values of different classes order by class. Non-scalar
// values are equal to each other.
func Compare(a, b any) int {
	ca, cb := classOf(a), classOf(b)
	if ca != cb {
		return compareOrdered(ca, cb)
	}
	switch av := a.(type) {
	case nil:
		return 0
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case int64:
		switch bv := b.(type) {
		case int64:
			return compareOrdered(av, bv)
		case float64:
			return compareIntFloat(av, bv)
		}
	case float64:
		switch bv := b.(type) {
		case int64:
			return -compareIntFloat(bv, av)
		case float64:
			return compareFloat(av, bv)
		}
	case string:
		return compareOrdered(av, b.(string))
	}
	return 0
}
