// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_Disabled(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 5))
	assert.Nil(t, NewRateLimiter(-1, 5))

	var r *RateLimiter
	assert.NoError(t, r.Wait(context.Background()), "nil limiter never blocks")
}

func TestRateLimiter_Burst(t *testing.T) {
	r := NewRateLimiter(1, 2)
	require.NotNil(t, r)

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	require.NoError(t, r.Wait(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "burst tokens are immediate")
}

func TestRateLimiter_ContextDone(t *testing.T) {
	r := NewRateLimiter(0.001, 0)
	require.NoError(t, r.Wait(context.Background()), "first call uses the single burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Wait(ctx))
}
