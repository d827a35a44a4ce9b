// Package metrics declares the Prometheus collectors of the file protection
// layer. Collectors aren't registered on declaration: programs register them
// via Collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for file protection metrics.
const (
	Fail = "fail"
	Ok   = "ok"
)

// Collectors for router.Router metrics.
var (
	RoutedCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fileprotection_routed_calls_total",
		Help: "Cumulative number of statement calls routed, by selected store tag.",
	}, []string{"tag"})
	RoutedCallFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fileprotection_routed_call_failures_total",
		Help: "Cumulative number of routed statement calls which failed, by failing store.",
	}, []string{"store"})
)

// Collectors for exception.Registry metrics.
var (
	ExceptionCacheLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fileprotection_exception_cache_loads_total",
		Help: "Cumulative number of exception cache loads, by kind and status.",
	}, []string{"kind", "status"})
	ExceptionCacheSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fileprotection_exception_cache_dialogs",
		Help: "Number of dialogs held by the most recently loaded exception cache, by kind.",
	}, []string{"kind"})
)

// Collectors for purge.Cleaner metrics.
var (
	PurgeRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fileprotection_purge_runs_total",
		Help: "Cumulative number of purge runs, by status.",
	}, []string{"status"})
	PurgeDeletedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fileprotection_purge_deleted_rows_total",
		Help: "Cumulative number of rows deleted by purge runs, by table.",
	}, []string{"table"})
	PurgeCompactionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fileprotection_purge_compactions_total",
		Help: "Cumulative number of compactions run after a purge.",
	})
	PurgeReclaimedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fileprotection_purge_reclaimed_bytes_total",
		Help: "Cumulative number of bytes reclaimed by compactions.",
	})
)

// Collectors for durable store resets and the restart coordinator.
var (
	StoreResetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fileprotection_store_resets_total",
		Help: "Cumulative number of durable store resets, by status.",
	}, []string{"status"})
	RestartPendingAccounts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fileprotection_restart_pending_accounts",
		Help: "Number of accounts with a pending post-restart durable store wipe.",
	})
)

// Collectors returns the file protection collectors, for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RoutedCallsTotal,
		RoutedCallFailuresTotal,
		ExceptionCacheLoadsTotal,
		ExceptionCacheSize,
		PurgeRunsTotal,
		PurgeDeletedRowsTotal,
		PurgeCompactionsTotal,
		PurgeReclaimedBytesTotal,
		StoreResetsTotal,
		RestartPendingAccounts,
	}
}
