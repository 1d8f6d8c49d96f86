// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import "strings"

// CoalesceString returns the first value that is not blank, trimmed.
// Whitespace-only values count as blank so that padded environment
// variables fall through to their defaults.
func CoalesceString(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
