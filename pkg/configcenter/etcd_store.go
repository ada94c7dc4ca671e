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
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/logutil"
)

const defaultDialTimeout = 5 * time.Second

type EtcdConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
}

type etcdStore struct {
	cli *clientv3.Client
}

var _ Store = (*etcdStore)(nil)

func NewEtcdStore(cfg EtcdConfig) (Store, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, moerr.NewBadConfigNoCtx("no etcd endpoint")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Logger:      logutil.GetGlobalLogger().Named("etcd"),
	})
	if err != nil {
		logutil.Error("connect to etcd failed", zap.Strings("endpoints", cfg.Endpoints), zap.Error(err))
		return nil, moerr.NewBackendCannotConnect(context.Background())
	}
	return &etcdStore{cli: cli}, nil
}

func (s *etcdStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := s.cli.Get(ctx, key)
	if err != nil {
		return nil, false, moerr.ConvertGoError(ctx, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

func (s *etcdStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.cli.Put(ctx, key, string(value)); err != nil {
		return moerr.ConvertGoError(ctx, err)
	}
	return nil
}

func (s *etcdStore) Watch(ctx context.Context, key string) (<-chan WatchEvent, error) {
	wch := s.cli.Watch(ctx, key)
	ch := make(chan WatchEvent, 16)
	go func() {
		defer close(ch)
		for resp := range wch {
			if err := resp.Err(); err != nil {
				logutil.Warn("etcd watch failed", zap.String("key", key), zap.Error(err))
				continue
			}
			for _, ev := range resp.Events {
				we := WatchEvent{
					Type:  EventPut,
					Key:   string(ev.Kv.Key),
					Value: ev.Kv.Value,
				}
				if !ev.IsCreate() && !ev.IsModify() {
					we.Type = EventDelete
				}
				select {
				case ch <- we:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func (s *etcdStore) Close() error {
	return s.cli.Close()
}
