package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowTotal counts mutation workflows by name and outcome.
	WorkflowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigboard_workflow_total",
		Help: "Mutation workflows executed, by workflow and outcome",
	}, []string{"workflow", "outcome"})

	// WalletReleasedAmount sums milestone releases written to the ledger.
	WalletReleasedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gigboard_wallet_released_amount_total",
		Help: "Total amount released to freelancers in minor units",
	})

	// ChatMessagesTotal counts persisted contract messages.
	ChatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gigboard_chat_messages_total",
		Help: "Contract chat messages persisted",
	})

	// WebSocketConnections is the number of open chat sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gigboard_websocket_connections",
		Help: "Number of active chat websocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigboard_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// RedisErrors counts failed redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigboard_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// ViewCacheResults counts read view cache lookups by view and result.
	ViewCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigboard_view_cache_total",
		Help: "Read view cache lookups by view and result (hit, miss, error)",
	}, []string{"view", "result"})
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)
