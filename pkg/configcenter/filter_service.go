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

package configcenter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/logutil"
)

// Filters maps a table name to the events allowed for it.
type Filters map[string][]string

func (f Filters) clone() Filters {
	c := make(Filters, len(f))
	for k, v := range f {
		c[k] = append([]string(nil), v...)
	}
	return c
}

var DefaultFilters = Filters{
	"webex_aggregated_meeting_hdfs": {"SessUserLeave"},
	"webex_aggregated_tahoe_hdfs":   {"Tel_Callout_End"},
	"logstash_cmse_servicediagnostic": {
		"FailOnJoinSession", "SipAudioRecvInfo", "SipVideoRecvInfo", "ServerQos",
	},
	"logstash_telephony": {
		"FailOnJoinSession", "SipAudioRecvInfo", "SipVideoRecvInfo", "ServerQos",
	},
}

// FilterService keeps the event filters of a watched document. When the
// document has no entry the defaults apply.
type FilterService struct {
	center   *ConfigureCenter
	fileName string
	defaults Filters

	mu struct {
		sync.RWMutex
		started bool
		closed  bool
		filters Filters
		subs    []chan Filters
		// cancel stops the watch, set before any remote call.
		cancel context.CancelFunc
	}
}

func NewFilterService(center *ConfigureCenter, fileName string, defaults Filters) *FilterService {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &FilterService{
		center:   center,
		fileName: fileName,
		defaults: defaults.clone(),
	}
}

// Start loads the current filters and keeps them up to date until Close.
// A failed first load leaves the defaults in place.
func (s *FilterService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.mu.started || s.mu.closed {
		s.mu.Unlock()
		return moerr.NewInvalidState(ctx, "filter service already started")
	}
	s.mu.started = true
	ctx, s.mu.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.center.Ensure(ctx, s.fileName); err != nil {
		logutil.Warn("ensure filter document failed", zap.String("file", s.fileName), zap.Error(err))
	}
	if doc, err := s.center.Load(ctx, s.fileName); err != nil {
		logutil.Warn("load filters failed, use defaults", zap.String("file", s.fileName), zap.Error(err))
	} else {
		s.update(ParseFilters(doc))
	}

	return s.center.Watch(ctx, s.fileName, func(doc map[string]any) {
		s.update(ParseFilters(doc))
	})
}

func (s *FilterService) update(filters Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.closed {
		return
	}
	s.mu.filters = filters
	current := s.currentLocked()
	for _, ch := range s.mu.subs {
		// latest wins
		select {
		case <-ch:
		default:
		}
		ch <- current.clone()
	}
	logutil.Info("filters updated", zap.Int("tables", len(current)))
}

func (s *FilterService) currentLocked() Filters {
	if len(s.mu.filters) == 0 {
		return s.defaults
	}
	return s.mu.filters
}

// Filters returns a snapshot of the filters in effect.
func (s *FilterService) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked().clone()
}

// Subscribe returns a channel receiving the latest filters after every
// reload. The channel is closed by Close.
func (s *FilterService) Subscribe() <-chan Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Filters, 1)
	if s.mu.closed {
		close(ch)
		return ch
	}
	s.mu.subs = append(s.mu.subs, ch)
	return ch
}

// Allow reports whether event of table passes. Tables without an entry
// accept every event.
func (s *FilterService) Allow(table, event string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events, ok := s.currentLocked()[table]
	if !ok {
		return true
	}
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}

func (s *FilterService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.closed {
		return
	}
	s.mu.closed = true
	if s.mu.cancel != nil {
		s.mu.cancel()
	}
	for _, ch := range s.mu.subs {
		close(ch)
	}
	s.mu.subs = nil
}

// ParseFilters converts a filter document. String values are comma
// separated event lists, arrays hold one event per element.
func ParseFilters(doc map[string]any) Filters {
	filters := make(Filters, len(doc))
	for table, v := range doc {
		var events []string
		switch x := v.(type) {
		case nil:
			continue
		case string:
			events = splitEvents(x)
		case []any:
			for _, e := range x {
				events = append(events, splitEvents(fmt.Sprint(e))...)
			}
		default:
			events = splitEvents(fmt.Sprint(x))
		}
		filters[table] = events
	}
	return filters
}

func splitEvents(s string) []string {
	parts := strings.Split(s, ",")
	events := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			events = append(events, p)
		}
	}
	return events
}
