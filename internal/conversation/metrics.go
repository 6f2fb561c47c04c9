package conversation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConversationsAddedTotal counts Add calls that reached storage.
	// Labels: result (success, error)
	ConversationsAddedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claude_memory",
			Subsystem: "store",
			Name:      "conversations_added_total",
			Help:      "Total number of conversation writes by result",
		},
		[]string{"result"},
	)

	// IndexUpdateFailuresTotal counts records written whose shard update failed.
	IndexUpdateFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "claude_memory",
			Subsystem: "store",
			Name:      "index_update_failures_total",
			Help:      "Total number of stored records whose week index update failed",
		},
	)

	// ShardReadsTotal counts shard reads by outcome.
	// Labels: status (ok, absent, unreadable, malformed)
	ShardReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claude_memory",
			Subsystem: "store",
			Name:      "shard_reads_total",
			Help:      "Total number of week shard reads by status",
		},
		[]string{"status"},
	)

	// ShardRebuildsTotal counts week shards regenerated from records.
	ShardRebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "claude_memory",
			Subsystem: "store",
			Name:      "shard_rebuilds_total",
			Help:      "Total number of week shards rebuilt from records",
		},
	)

	// RecordsSkippedTotal counts record files that could not be parsed.
	RecordsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "claude_memory",
			Subsystem: "store",
			Name:      "records_skipped_total",
			Help:      "Total number of unparseable record files skipped",
		},
	)
)

func recordAdd(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ConversationsAddedTotal.WithLabelValues(result).Inc()
}

func recordShardRead(status ShardStatus) {
	ShardReadsTotal.WithLabelValues(string(status)).Inc()
}
