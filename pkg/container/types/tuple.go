// Copyright 2022 Matrix Origin
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
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
)

/*
 * A tuple is encoded column by column into one byte string, so that several
 * group-by columns can be used as a single hash map key:
 *    var buf []byte
 *    buf, err = AppendEncoded(buf, int64(1))
 *    buf, err = AppendEncoded(buf, "a")
 * Every element starts with a type code, so values of different types never
 * collide, and the encoding of a tuple is injective.
 */

const (
	nilCode        = 0x00
	falseCode      = 0x26
	trueCode       = 0x27
	int64Code      = 0x3b
	float64Code    = 0x21
	stringTypeCode = 0x46
)

func adjustFloatBytes(b []byte) {
	if b[0]&0x80 != 0x00 {
		// Negative numbers: flip all of the bytes.
		for i := 0; i < len(b); i++ {
			b[i] = b[i] ^ 0xff
		}
	} else {
		// Positive number: flip just the sign bit.
		b[0] = b[0] ^ 0x80
	}
}

// AppendEncoded appends the encoding of one scalar value to buf.
func AppendEncoded(buf []byte, v any) ([]byte, error) {
	var scratch [8]byte
	switch v := v.(type) {
	case nil:
		return append(buf, nilCode), nil
	case bool:
		if v {
			return append(buf, trueCode), nil
		}
		return append(buf, falseCode), nil
	case int64:
		binary.BigEndian.PutUint64(scratch[:], uint64(v)^(1<<63))
		buf = append(buf, int64Code)
		return append(buf, scratch[:]...), nil
	case float64:
		if math.IsNaN(v) {
			// all NaN payloads are the same group
			v = math.NaN()
		} else if v == 0 {
			// -0 and +0 are the same group
			v = 0
		}
		binary.BigEndian.PutUint64(scratch[:], math.Float64bits(v))
		adjustFloatBytes(scratch[:])
		buf = append(buf, float64Code)
		return append(buf, scratch[:]...), nil
	case string:
		buf = append(buf, stringTypeCode)
		// escape 0x00 so that the terminator stays unique
		for i := 0; i < len(v); i++ {
			buf = append(buf, v[i])
			if v[i] == 0x00 {
				buf = append(buf, 0xff)
			}
		}
		return append(buf, 0x00), nil
	}
	return buf, moerr.NewInvalidArgNoCtx("tuple element", fmt.Sprintf("%T", v))
}

// EncodeTuple encodes values in order.
func EncodeTuple(values []any) ([]byte, error) {
	buf := make([]byte, 0, len(values)*9)
	var err error
	for _, v := range values {
		if buf, err = AppendEncoded(buf, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// TupleString prints values the way the group keys are logged.
func TupleString(values []any) string {
	var res strings.Builder
	res.WriteString("(")
	for i, v := range values {
		if i > 0 {
			res.WriteString(",")
		}
		switch v := v.(type) {
		case nil:
			res.WriteString("null")
		case string:
			res.WriteString(fmt.Sprintf("%q", v))
		default:
			res.WriteString(fmt.Sprintf("%v", v))
		}
	}
	res.WriteString(")")
	return res.String()
}
