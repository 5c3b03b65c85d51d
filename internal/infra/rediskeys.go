package infra

// RedisNamespace isolates this deployment's keys.
const RedisNamespace = "fleetwatch"

// Sets (durable state)
const (
	// RedisKeyStoppedAgents holds the IDs of agents under a hard-stop.
	RedisKeyStoppedAgents = RedisNamespace + ":agents:stopped_set"
)

// Pub/Sub channels (events)
const (
	// RedisChanStopSignal carries "agentID:true|false" hard-stop toggles
	// to any gateway-side listener.
	RedisChanStopSignal = RedisNamespace + ":agents:stop-signal"

	// RedisChanAlerts carries fired alerts as JSON for the external
	// notification sender.
	RedisChanAlerts = RedisNamespace + ":alerts:fired"
)
