// Package constants holds environment names, provider identifiers and the
// default timings of the command lifecycle.
package constants

import "time"

const (
	EnvDevelop    = "develop"
	EnvProduction = "production"
)

// Pub/Sub providers for alert push events.
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// Realtime providers for the per-user event bus.
const (
	RealtimeProviderMemory = "memory"
	RealtimeProviderRedis  = "redis"
)

const (
	// DefaultCommandTimeout is both the conflict window for a new submission
	// and the age at which an unconfirmed command is reaped.
	DefaultCommandTimeout = 30 * time.Second

	// DefaultSuccessDedupWindow suppresses repeated success toasts for the
	// same device and action.
	DefaultSuccessDedupWindow = 5 * time.Second

	DefaultPollBatchSize = 10

	DefaultAlertCooldown = 10 * time.Minute

	DefaultControllerOfflineAfter = 2 * time.Minute

	DefaultSweepSpec = "@every 30s"

	DefaultRealtimeChannelPrefix = "homeswitch:"

	DefaultSlowQueryThreshold = 200 * time.Millisecond
)

// DefaultChannelAllowList names the controller channels accepted by status ingest.
var DefaultChannelAllowList = []string{
	"kitchen",
	"living_room",
	"bedroom",
	"bathroom",
	"fan",
	"light",
	"socket",
	"socket1",
	"socket2",
	"socket3",
	"socket4",
}
