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

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
)

type AggKind uint8

const (
	KindSum AggKind = iota
	KindCount
	KindMin
	KindMax
	KindAvg
	KindMinMaxRange
	KindDistinctCount
	KindDistinctCountBitmap
	KindDistinctCountHLL
)

func (k AggKind) String() string {
	switch k {
	case KindSum:
		return "SUM"
	case KindCount:
		return "COUNT"
	case KindMin:
		return "MIN"
	case KindMax:
		return "MAX"
	case KindAvg:
		return "AVG"
	case KindMinMaxRange:
		return "MINMAXRANGE"
	case KindDistinctCount:
		return "DISTINCTCOUNT"
	case KindDistinctCountBitmap:
		return "DISTINCTCOUNTBITMAP"
	case KindDistinctCountHLL:
		return "DISTINCTCOUNTHLL"
	}
	return fmt.Sprintf("AggKind(%d)", uint8(k))
}

// AggFunc owns the intermediate state of one aggregation column.
//
// A state is created from the raw value of a single row by InitialState and
// advanced by Merge. Merge must be associative and commutative. It may
// update state in place and return it, or return a new value; callers always
// store the returned state. The incoming state must not be used after Merge.
//
// A state of an unexpected Go type is a planning error, Merge and
// InitialState report it as ErrInvalidArg.
type AggFunc interface {
	// Name is the lower-case function name, e.g. "sum".
	Name() string
	Kind() AggKind
	// ResultType is the type of the value returned by Final.
	ResultType() types.Type

	InitialState(raw any) (any, error)
	// CheckState reports ErrInvalidArg when Merge can't take state.
	CheckState(state any) error
	Merge(state, incoming any) (any, error)
	// Final converts a state to the value used for ordering and output.
	Final(state any) any
}

// ColumnName is the output column name of an aggregation, e.g. "sum(cost)".
func ColumnName(f AggFunc, column string) string {
	return fmt.Sprintf("%s(%s)", f.Name(), column)
}

// NewStateTypeError reports a state or raw value the function can't handle.
func NewStateTypeError(f AggFunc, v any) error {
	return moerr.NewInvalidArgNoCtx(f.Name()+" state", fmt.Sprintf("%T", v))
}

// CheckStateType accepts states of type T only.
func CheckStateType[T any](f AggFunc, state any) error {
	if _, ok := state.(T); !ok {
		return NewStateTypeError(f, state)
	}
	return nil
}

// ToFloat64 converts a numeric raw value. ok is false for null.
func ToFloat64(raw any) (v float64, ok bool, err error) {
	switch x := raw.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case int64:
		return float64(x), true, nil
	}
	return 0, false, moerr.NewInvalidArgNoCtx("numeric value", fmt.Sprintf("%T", raw))
}
