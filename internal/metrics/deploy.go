package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Deployment mode label values.
const (
	ModeProvider  = "provider"
	ModeSimulated = "simulated"
)

var (
	DeploymentsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitebuilder_deployments_completed_total",
		Help: "Deployment attempts that reached a terminal status",
	}, []string{"status", "mode"})

	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitebuilder_provider_requests_total",
		Help: "Requests sent to the deployment provider",
	}, []string{"operation", "outcome"})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sitebuilder_provider_request_duration_seconds",
		Help:    "Deployment provider request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	RecoveryFixesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitebuilder_recovery_fixes_applied_total",
		Help: "Automated file fixes applied after failed deployments",
	}, []string{"rule"})

	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitebuilder_deploy_polls_total",
		Help: "Provider status polls by mapped status",
	}, []string{"status"})
)

var ActivityFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sitebuilder_activity_failures_total",
	Help: "Failed deploy activity executions by activity name",
}, []string{"activity"})
