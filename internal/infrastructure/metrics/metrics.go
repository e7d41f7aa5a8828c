package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LoginSucceeded        = "login_succeeded_total"
	LoginRejected         = "login_rejected_total"
	ShareCreated          = "share_created_total"
	ShareFailedAuth       = "share_failed_auth_total"
	ShareFailedStorage    = "share_failed_storage_total"
	ShareFailedMetadata   = "share_failed_metadata_total"
	CompensationFailed    = "share_compensation_failed_total"
	CredentialStoreFailed = "credential_store_failed_total"
	EventDropped          = "event_dropped_total"
	AppRequests           = "app_requests_total"
)

func NewCounter() *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webshare",
			Name:      "general_counters",
		},
		[]string{"result"})
}

// NewTestCounter is not registered globally, so tests can create as many as they need.
func NewTestCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webshare",
			Name:      "general_counters",
		},
		[]string{"result"})
}
