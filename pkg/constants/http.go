// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// HTTP headers read or written by the meetup API. Header names double as
// NATS message header names when a request fans out to other services.
const (
	// AuthorizationHeader carries the bearer token issued by the gateway.
	AuthorizationHeader string = "authorization"

	// RequestIDHeader correlates a request across logs and NATS messages.
	RequestIDHeader string = "X-REQUEST-ID"

	// XOnBehalfOfHeader names the principal a NATS message is sent for.
	XOnBehalfOfHeader string = "x-on-behalf-of"
)

type contextKey string

// Context keys populated by the HTTP middleware.
const (
	// RequestIDContextID holds the request ID of the current request.
	RequestIDContextID contextKey = "X-REQUEST-ID"

	// PrincipalContextID holds the authenticated caller.
	PrincipalContextID contextKey = "x-on-behalf-of"
)
