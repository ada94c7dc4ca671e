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
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/aggexec"
)

var registeredAggFunctions = make(map[string]func() aggexec.AggFunc)

// RegisterAgg makes an aggregation available to New under name.
// It is not safe to call concurrently with New.
func RegisterAgg(name string, ctor func() aggexec.AggFunc) {
	registeredAggFunctions[strings.ToLower(name)] = ctor
}

// New returns the aggregation registered under name, case-insensitive.
func New(name string) (aggexec.AggFunc, error) {
	ctor, ok := registeredAggFunctions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, moerr.NewNotSupportedNoCtx("aggregation function '%s'", name)
	}
	return ctor(), nil
}

// Names returns the sorted names of all registered aggregations.
func Names() []string {
	names := maps.Keys(registeredAggFunctions)
	slices.Sort(names)
	return names
}

func init() {
	RegisterAgg("sum", func() aggexec.AggFunc { return aggSum{} })
	RegisterAgg("count", func() aggexec.AggFunc { return aggCount{} })
	RegisterAgg("min", func() aggexec.AggFunc { return aggMin{} })
	RegisterAgg("max", func() aggexec.AggFunc { return aggMax{} })
	RegisterAgg("avg", func() aggexec.AggFunc { return aggAvg{} })
	RegisterAgg("minmaxrange", func() aggexec.AggFunc { return aggMinMaxRange{} })
	RegisterAgg("distinctcount", func() aggexec.AggFunc { return aggDistinctCount{} })
	RegisterAgg("distinctcountbitmap", func() aggexec.AggFunc { return aggDistinctCountBitmap{} })
	RegisterAgg("distinctcounthll", func() aggexec.AggFunc { return aggDistinctCountHLL{} })
}
