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
	"context"
	"strings"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
)

type T uint8

const (
	// T_any is the null marker type, a column of this type only holds nil.
	T_any T = iota
	T_bool
	T_int64
	T_float64
	T_varchar
	// T_object holds aggregation intermediate states which are not plain scalars.
	T_object
)

type Type struct {
	Oid T
}

func New(oid T) Type {
	return Type{Oid: oid}
}

func (t T) ToType() Type {
	return Type{Oid: t}
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int64:
		return "BIGINT"
	case T_float64:
		return "DOUBLE"
	case T_varchar:
		return "VARCHAR"
	case T_object:
		return "OBJECT"
	}
	return "UNKNOWN"
}

func (t Type) String() string {
	return t.Oid.String()
}

func (t Type) IsNumeric() bool {
	return t.Oid == T_int64 || t.Oid == T_float64
}

// ParseType maps a column type name used in query definitions to T.
func ParseType(name string) (T, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "any", "null":
		return T_any, nil
	case "bool", "boolean":
		return T_bool, nil
	case "int", "bigint", "int64", "long":
		return T_int64, nil
	case "float", "double", "float64":
		return T_float64, nil
	case "varchar", "string", "char", "text":
		return T_varchar, nil
	}
	return T_any, moerr.NewInvalidInput(context.Background(), "unsupported column type '%s'", name)
}

// TypeOfValue classifies a scalar value. Values outside the scalar
// domain report T_object.
func TypeOfValue(v any) T {
	switch v.(type) {
	case nil:
		return T_any
	case bool:
		return T_bool
	case int64:
		return T_int64
	case float64:
		return T_float64
	case string:
		return T_varchar
	}
	return T_object
}

// IsScalar reports whether v can be part of a group key.
func IsScalar(v any) bool {
	return TypeOfValue(v) != T_object
}

// CheckValue validates v against a column type. Null is accepted by every type.
func CheckValue(typ Type, v any) bool {
	if v == nil {
		return true
	}
	switch typ.Oid {
	case T_any:
		return false
	case T_object:
		return true
	}
	return TypeOfValue(v) == typ.Oid
}
