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
	"encoding/json"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/logutil"
	v2 "github.com/matrixorigin/indexedtable/pkg/util/metric/v2"
)

const (
	DefaultRootPath = "/mats/pinot"
	DefaultFileName = "filter.json"

	configDir = "config"
)

// ConfigureCenter reads JSON documents kept under <root>/config in a Store.
type ConfigureCenter struct {
	store Store
	root  string
}

func NewConfigureCenter(store Store, rootPath string) *ConfigureCenter {
	rootPath = strings.TrimRight(rootPath, "/")
	if rootPath == "" {
		rootPath = DefaultRootPath
	}
	return &ConfigureCenter{
		store: store,
		root:  rootPath,
	}
}

// Path returns the store key of the named document. Names starting with
// "/" are used as is.
func (c *ConfigureCenter) Path(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return path.Join(c.root, configDir, name)
}

// Ensure creates an empty document when name does not exist yet.
func (c *ConfigureCenter) Ensure(ctx context.Context, name string) error {
	key := c.Path(name)
	_, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	logutil.Info("create config document", zap.String("path", key))
	return c.store.Put(ctx, key, nil)
}

// Load returns the named document. A missing or empty document is an
// empty map.
func (c *ConfigureCenter) Load(ctx context.Context, name string) (map[string]any, error) {
	key := c.Path(name)
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return make(map[string]any), nil
	}
	return decodeDocument(ctx, key, data)
}

func decodeDocument(ctx context.Context, key string, data []byte) (map[string]any, error) {
	doc := make(map[string]any)
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, moerr.NewParseError(ctx, "config %s: %v", key, err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

// Watch calls onChange with the new content every time the named document
// is written. It returns once the watch is registered; the
// goroutine stops when ctx is done or the store is closed.
func (c *ConfigureCenter) Watch(ctx context.Context, name string, onChange func(map[string]any)) error {
	key := c.Path(name)
	events, err := c.store.Watch(ctx, key)
	if err != nil {
		return err
	}
	go func() {
		for ev := range events {
			if ev.Type == EventDelete {
				logutil.Warn("config document deleted", zap.String("path", key))
				continue
			}
			doc, err := decodeDocument(ctx, key, ev.Value)
			if err != nil {
				v2.ConfigReloadErrorCounter.Inc()
				logutil.Error("reload config failed", zap.String("path", key), zap.Error(err))
				continue
			}
			v2.ConfigReloadOKCounter.Inc()
			logutil.Info("config reloaded", zap.String("path", key), zap.Int("entries", len(doc)))
			onChange(doc)
		}
	}()
	return nil
}
