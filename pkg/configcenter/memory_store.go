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
	"sync"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
)

const memWatchBuffer = 16

type memWatcher struct {
	key string
	ch  chan WatchEvent
}

// memStore is an in-process Store. A watcher whose buffer is full loses its
// oldest pending event, so the latest value is always delivered.
type memStore struct {
	sync.Mutex
	data     map[string][]byte
	watchers map[*memWatcher]struct{}
	closed   bool
}

var _ Store = (*memStore)(nil)

func NewMemoryStore() Store {
	return &memStore{
		data:     make(map[string][]byte),
		watchers: make(map[*memWatcher]struct{}),
	}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil, false, moerr.NewInvalidState(ctx, "store closed")
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *memStore) Put(ctx context.Context, key string, value []byte) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return moerr.NewInvalidState(ctx, "store closed")
	}
	s.data[key] = append([]byte(nil), value...)
	s.notifyLocked(WatchEvent{Type: EventPut, Key: key, Value: s.data[key]})
	return nil
}

// Delete removes key.
func (s *memStore) Delete(ctx context.Context, key string) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return moerr.NewInvalidState(ctx, "store closed")
	}
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.notifyLocked(WatchEvent{Type: EventDelete, Key: key})
	}
	return nil
}

func (s *memStore) notifyLocked(ev WatchEvent) {
	for w := range s.watchers {
		if w.key != ev.Key {
			continue
		}
		select {
		case w.ch <- ev:
		default:
			select {
			case <-w.ch:
			default:
			}
			w.ch <- ev
		}
	}
}

func (s *memStore) Watch(ctx context.Context, key string) (<-chan WatchEvent, error) {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil, moerr.NewInvalidState(ctx, "store closed")
	}
	w := &memWatcher{
		key: key,
		ch:  make(chan WatchEvent, memWatchBuffer),
	}
	s.watchers[w] = struct{}{}
	go func() {
		<-ctx.Done()
		s.Lock()
		defer s.Unlock()
		s.removeLocked(w)
	}()
	return w.ch, nil
}

func (s *memStore) removeLocked(w *memWatcher) {
	if _, ok := s.watchers[w]; ok {
		delete(s.watchers, w)
		close(w.ch)
	}
}

func (s *memStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	for w := range s.watchers {
		s.removeLocked(w)
	}
	return nil
}
