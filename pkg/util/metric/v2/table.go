// Copyright 2023 Matrix Origin
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

package v2

import "github.com/prometheus/client_golang/prometheus"

var (
	tableUpsertCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "table",
			Name:      "upsert_total",
			Help:      "Total number of upserted rows by outcome.",
		}, []string{"type"})

	TableUpsertInsertCounter = tableUpsertCounter.WithLabelValues("insert")
	TableUpsertMergeCounter  = tableUpsertCounter.WithLabelValues("merge")
	TableUpsertDropCounter   = tableUpsertCounter.WithLabelValues("drop")

	TableResizeCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "table",
			Name:      "resize_total",
			Help:      "Total number of group-by table resizes.",
		})

	TableResizeDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "table",
			Name:      "resize_duration_seconds",
			Help:      "Bucketed histogram of group-by table resize duration.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 20),
		})

	TableEvictedGroupsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "table",
			Name:      "evicted_groups_total",
			Help:      "Total number of groups discarded by resizes.",
		})

	TableClosedAdmissionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "table",
			Name:      "closed_admission_total",
			Help:      "Total number of tables that stopped admitting new groups.",
		})

	TableFinishedSizeHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "table",
			Name:      "finished_size",
			Help:      "Bucketed histogram of group count of finished tables.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 24),
		})
)

var (
	combineDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "combine",
			Name:      "duration_seconds",
			Help:      "Bucketed histogram of group combine duration by step.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 20),
		}, []string{"step"})

	CombineShardDurationHistogram = combineDurationHistogram.WithLabelValues("shard")
	CombineMergeDurationHistogram = combineDurationHistogram.WithLabelValues("merge")

	CombineRowsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "combine",
			Name:      "rows_total",
			Help:      "Total number of rows fed to the combine stage.",
		})
)

var (
	configReloadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "config",
			Name:      "reload_total",
			Help:      "Total number of remote config reloads by result.",
		}, []string{"result"})

	ConfigReloadOKCounter    = configReloadCounter.WithLabelValues("ok")
	ConfigReloadErrorCounter = configReloadCounter.WithLabelValues("error")
)
