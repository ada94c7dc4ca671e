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

package util

import (
	"runtime"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"unicode"

	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/logutil"
)

const componentPrefix = "github.com/matrixorigin/"

var uniqueID uint64

// GetUniqueID returns a process wide id, strictly increasing across calls.
func GetUniqueID() uint64 {
	return atomic.AddUint64(&uniqueID, 1)
}

// ToCamelCase drops every rune that is not a letter, a digit or '.', and
// upper cases the rune following a dropped run.
// ToCamelCase("Hello world!") is "HelloWorld".
func ToCamelCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upper := false
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ComponentVersions returns the versions of the go runtime, the main module
// and the matrixorigin modules linked into the binary.
func ComponentVersions() map[string]string {
	versions := map[string]string{"go": runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return versions
	}
	if info.Main.Path != "" {
		versions[info.Main.Path] = info.Main.Version
	}
	for _, dep := range info.Deps {
		if strings.HasPrefix(dep.Path, componentPrefix) {
			versions[dep.Path] = dep.Version
		}
	}
	return versions
}

func LogVersions() {
	for name, version := range ComponentVersions() {
		logutil.Info("using component", zap.String("name", name), zap.String("version", version))
	}
}
