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

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/config"
	"github.com/matrixorigin/indexedtable/pkg/configcenter"
	"github.com/matrixorigin/indexedtable/pkg/logutil"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/groupcombine"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/indexedtable"
	"github.com/matrixorigin/indexedtable/pkg/sql/colexec/rowsource"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan"
	v2 "github.com/matrixorigin/indexedtable/pkg/util/metric/v2"
)

const metricShutdownTimeout = 5 * time.Second

var newStore = func(cfg config.FilterConfig) (configcenter.Store, error) {
	return configcenter.NewEtcdStore(configcenter.EtcdConfig{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout.Duration,
	})
}

// run aggregates the csv rows of in and writes the result to out.
func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, sort bool) error {
	input, qc, err := cfg.QueryContext()
	if err != nil {
		return err
	}

	if cfg.Metric.StatusPort != 0 {
		srv := startMetricServer(cfg.Metric)
		defer stopMetricServer(srv)
	}

	var filter *rowsource.EventFilter
	if cfg.Filter.Enable {
		svc, closeFilter, err := startFilterService(ctx, cfg.Filter)
		if err != nil {
			return err
		}
		defer closeFilter()
		if filter, err = rowsource.NewEventFilter(svc, qc.Table, input, cfg.Filter.EventColumn); err != nil {
			return err
		}
	}

	trimSize, trimThreshold := cfg.TableCapacity(qc.Limit)
	c, err := groupcombine.New(qc, input, filter, groupcombine.Config{
		Workers:       cfg.Combine.Workers,
		TrimSize:      trimSize,
		TrimThreshold: trimThreshold,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Run(ctx, rowsource.NewCSVReader(in, input, cfg.Input.HasHeader), sort)
	if err != nil {
		return err
	}
	return writeResult(out, qc, res)
}

func startFilterService(ctx context.Context, cfg config.FilterConfig) (*configcenter.FilterService, func(), error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	center := configcenter.NewConfigureCenter(store, cfg.RootPath)
	svc := configcenter.NewFilterService(center, cfg.FileName, cfg.Defaults)
	if err := svc.Start(ctx); err != nil {
		svc.Close()
		_ = store.Close()
		return nil, nil, err
	}
	return svc, func() {
		svc.Close()
		if err := store.Close(); err != nil {
			logutil.Warn("close config store failed", zap.Error(err))
		}
	}, nil
}

func startMetricServer(cfg config.MetricConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(v2.GetPrometheusGatherer(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.StatusPort),
		Handler: mux,
	}
	go func() {
		logutil.Info("starting metric server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.Error("metric server failed", zap.Error(err))
		}
	}()
	return srv
}

func stopMetricServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), metricShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logutil.Error("metric server shutdown failed", zap.Error(err))
	}
}

// writeResult writes at most qc.Limit groups of res as csv, with the
// result column names as header.
func writeResult(out io.Writer, qc *plan.QueryContext, res indexedtable.Table) error {
	it, err := res.Iterator()
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.Write(qc.ResultSchema().ColumnNames()); err != nil {
		return err
	}
	numKeys := qc.NumKeyColumns()
	line := make([]string, qc.NumColumns())
	for n := 0; n < qc.Limit; n++ {
		rec, ok := it.Next()
		if !ok {
			break
		}
		for i := range line {
			v := rec.Get(i)
			if i >= numKeys {
				v = qc.AggFuncs[i-numKeys].Final(v)
			}
			line[i] = formatValue(v)
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
