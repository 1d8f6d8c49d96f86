// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// ServiceName is reported to tracing, metrics and logs.
const ServiceName = "lfx-v2-meetup-service"

// Meetup constraints
const (
	// MinParticipants is the smallest allowed ceiling; the host alone fills it.
	MinParticipants = 1

	// MaxTitleLength is the longest accepted meetup title.
	MaxTitleLength = 200

	// MaxDecisionsPerBatch caps the size of one approval batch.
	MaxDecisionsPerBatch = 500
)

// Timeouts
const (
	// DefaultNATSRequestTimeout bounds request/reply calls to other services.
	DefaultNATSRequestTimeout = 5 * time.Second

	// DefaultCacheTTL is how long a meetup projection stays in the read cache.
	DefaultCacheTTL = 5 * time.Minute
)

// Worker pools
const (
	// DefaultPostCommitWorkers bounds the goroutines that publish events and
	// invalidate caches once a unit of work has committed.
	DefaultPostCommitWorkers = 4
)
