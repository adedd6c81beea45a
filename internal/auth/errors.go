// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package auth

import "errors"

var (
	// ErrMissingToken indicates no token was found in the request.
	ErrMissingToken = errors.New("missing authentication token")

	// ErrInvalidToken indicates a token failed signature or claims checks.
	ErrInvalidToken = errors.New("invalid authentication token")
)
