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

package rowsource

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
)

// CSVReader reads typed rows from CSV text. An empty field is null.
type CSVReader struct {
	r      *csv.Reader
	schema *types.Schema
	header bool
	line   int
}

// NewCSVReader reads rows of schema from r. When hasHeader is set the
// first line must list the schema column names.
func NewCSVReader(r io.Reader, schema *types.Schema, hasHeader bool) *CSVReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = schema.Len()
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &CSVReader{
		r:      cr,
		schema: schema,
		header: hasHeader,
	}
}

// Read returns the next row, or io.EOF after the last one.
func (c *CSVReader) Read() ([]any, error) {
	if c.header {
		c.header = false
		record, err := c.readRecord()
		if err != nil {
			return nil, err
		}
		for i, name := range record {
			if strings.TrimSpace(name) != c.schema.ColumnName(i) {
				return nil, moerr.NewInvalidInputNoCtx("csv header column %d is '%s', expect '%s'",
					i, name, c.schema.ColumnName(i))
			}
		}
	}
	record, err := c.readRecord()
	if err != nil {
		return nil, err
	}
	row := make([]any, len(record))
	for i, field := range record {
		if row[i], err = ParseValue(c.schema.ColumnType(i), field); err != nil {
			return nil, moerr.NewParseError(context.Background(), "line %d column '%s': %v",
				c.line, c.schema.ColumnName(i), err)
		}
	}
	return row, nil
}

func (c *CSVReader) readRecord() ([]string, error) {
	record, err := c.r.Read()
	if err == io.EOF {
		return nil, err
	}
	c.line++
	if err != nil {
		return nil, moerr.NewParseError(context.Background(), "line %d: %v", c.line, err)
	}
	return record, nil
}

// ParseValue converts a text field to a value of typ. The empty string is null.
func ParseValue(typ types.Type, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	switch typ.Oid {
	case types.T_bool:
		return strconv.ParseBool(s)
	case types.T_int64:
		return strconv.ParseInt(s, 10, 64)
	case types.T_float64:
		return strconv.ParseFloat(s, 64)
	case types.T_varchar:
		return s, nil
	}
	return nil, moerr.NewNotSupportedNoCtx("parse %s value", typ)
}
