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

package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLock(t *testing.T) {
	root := t.TempDir()
	first := NewRunLock(root)
	second := NewRunLock(root)

	info, err := first.Holder()
	require.NoError(t, err)
	assert.Nil(t, info, "never taken")

	ok, err := first.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer first.Release()

	ok, err = second.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok, "lock must be exclusive")

	info, err = second.Holder()
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.WithinDuration(t, time.Now(), info.StartedAt, time.Minute)

	running := second.Running()
	require.NotNil(t, running)
	assert.Equal(t, os.Getpid(), running.PID)

	first.Release()
	assert.Nil(t, second.Running())

	ok, err = second.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
	second.Release()
}

func TestRunLock_Wait(t *testing.T) {
	root := t.TempDir()
	holder := NewRunLock(root)
	ok, err := holder.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)

	waiter := NewRunLock(root)
	ok, err = waiter.Wait(0)
	require.NoError(t, err)
	assert.False(t, ok, "zero wait tries once")

	go func() {
		time.Sleep(100 * time.Millisecond)
		holder.Release()
	}()
	ok, err = waiter.Wait(5 * time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	waiter.Release()
}
