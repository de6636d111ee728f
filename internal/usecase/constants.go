package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyCacheTTL is how long completed idempotency records stay in the cache
	IdempotencyCacheTTL = 24 * time.Hour

	// IdempotencyRetention is how long completed idempotency records are kept in storage
	IdempotencyRetention = 7 * 24 * time.Hour
)
