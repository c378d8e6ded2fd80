package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 3330
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBName     = "voxroom"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
)

// Gateway liveness tunables.
const (
	// HeartbeatTimeout is how long a connection may go without a heartbeat
	// before the reaper force-disconnects it.
	HeartbeatTimeout = 120 * time.Second
	// ReapInterval is the stale-connection sweep period.
	ReapInterval = 30 * time.Second
	// DuplicateJoinWindow suppresses user_joined churn when an identity
	// rejoins a room from another connection shortly after joining.
	DuplicateJoinWindow = 5 * time.Second
	// PresenceTTL bounds how long an identity survives in a room's presence
	// set without a refreshing join or heartbeat.
	PresenceTTL = 5 * time.Minute
)

// Gift settlement tunables.
const (
	ReceiverSharePercent = 30
	OwnerSharePercent    = 30
	PlatformSharePercent = 40
	// IdempotencyTTL bounds the fast-path duplicate marker; the unique key on
	// gift_sends remains the durable duplicate signal after expiry.
	IdempotencyTTL = 24 * time.Hour
	// PlatformWalletOwner keys the house wallet credited with platform cuts.
	PlatformWalletOwner = "platform"
)
