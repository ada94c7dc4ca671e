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
	"bytes"
	"context"
	"fmt"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
)

// Schema describes the ordered columns of a row or a record.
type Schema struct {
	names []string
	types []Type
	index map[string]int
}

func NewSchema(names []string, typs []Type) (*Schema, error) {
	if len(names) != len(typs) {
		return nil, moerr.NewInvalidInput(context.Background(),
			"schema has %d column names but %d column types", len(names), len(typs))
	}
	s := &Schema{
		names: make([]string, len(names)),
		types: make([]Type, len(typs)),
		index: make(map[string]int, len(names)),
	}
	copy(s.names, names)
	copy(s.types, typs)
	for i, name := range names {
		if _, ok := s.index[name]; ok {
			return nil, moerr.NewInvalidInput(context.Background(), "duplicate column name '%s'", name)
		}
		s.index[name] = i
	}
	return s, nil
}

func (s *Schema) Len() int {
	return len(s.names)
}

func (s *Schema) ColumnName(i int) string {
	return s.names[i]
}

func (s *Schema) ColumnType(i int) Type {
	return s.types[i]
}

func (s *Schema) ColumnNames() []string {
	return append([]string(nil), s.names...)
}

// IndexOf returns the position of the named column or -1.
func (s *Schema) IndexOf(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Validate checks a row against the column count and column types.
func (s *Schema) Validate(values []any) error {
	if len(values) != len(s.types) {
		return moerr.NewSizeNotMatch(context.Background(),
			fmt.Sprintf("row has %d columns, schema has %d", len(values), len(s.types)))
	}
	for i, v := range values {
		if !CheckValue(s.types[i], v) {
			return moerr.NewInvalidInput(context.Background(),
				"column '%s' expects %s, got %T", s.names[i], s.types[i], v)
		}
	}
	return nil
}

func (s *Schema) String() string {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i := range s.names {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(fmt.Sprintf("%s %s", s.names[i], s.types[i]))
	}
	buf.WriteString("]")
	return buf.String()
}
