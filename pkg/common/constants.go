package common

const (
	RedisStreamSignalCandidates = "trader.signal.candidates"

	RedisStreamGroup    = "risk-gate-group"
	RedisStreamConsumer = "risk-gate-consumer"

	RedisKeyBreakerHalt = "trader:breaker:%s"
)

const (
	SUCCESS = "SUCCESS"
	FAILED  = "FAILED"
	SKIPPED = "SKIPPED"
)
