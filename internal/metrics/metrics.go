package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VersionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revision_versions_created_total",
		Help: "Number of content versions created, by version type.",
	}, []string{"version_type"})

	VersionsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revision_versions_published_total",
		Help: "Number of publish operations that committed.",
	})

	AutoSaveSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revision_autosave_skips_total",
		Help: "Auto-save calls short-circuited by content-hash dedup.",
	})

	AutoSavesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revision_autosaves_pruned_total",
		Help: "Auto-save rows removed by retention pruning.",
	})

	ConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revision_conflict_retries_total",
		Help: "Transactions retried after a serialization failure.",
	})
)
