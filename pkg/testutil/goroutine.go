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

package testutil

import (
	"bytes"
	"runtime"
	"time"
)

// AntsPurgeRoutine is started by the package level pool of ants and never
// exits.
const AntsPurgeRoutine = "ants/v2.(*Pool).purgePeriodically"

// WaitForGoroutine blocks until a goroutine whose stack holds fn is running,
// or timeout passes. It reports whether one was found.
func WaitForGoroutine(fn string, timeout time.Duration) bool {
	buf := make([]byte, 1<<20)
	deadline := time.Now().Add(timeout)
	for {
		n := runtime.Stack(buf, true)
		if bytes.Contains(buf[:n], []byte(fn)) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
