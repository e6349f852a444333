/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHooks_PriorityOrder(t *testing.T) {
	h := NewHooks()

	var order []int
	h.AddHook(StreamOnline, func(_ *ExecutionContext) error {
		order = append(order, 2)
		return nil
	}, DefaultPriority)
	h.AddHook(StreamOnline, func(_ *ExecutionContext) error {
		order = append(order, 1)
		return nil
	}, HighPriority)
	h.AddHook(StreamOnline, func(_ *ExecutionContext) error {
		order = append(order, 3)
		return nil
	}, LowPriority)

	halted, err := h.Run(StreamOnline, &ExecutionContext{Context: context.Background()})
	require.Nil(t, err)
	require.False(t, halted)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestHooks_Halt(t *testing.T) {
	h := NewHooks()

	var reached bool
	h.AddHook(RoomMessageReceived, func(_ *ExecutionContext) error {
		return ErrStopped
	}, HighPriority)
	h.AddHook(RoomMessageReceived, func(_ *ExecutionContext) error {
		reached = true
		return nil
	}, DefaultPriority)

	halted, err := h.Run(RoomMessageReceived, &ExecutionContext{Context: context.Background()})
	require.Nil(t, err)
	require.True(t, halted)
	require.False(t, reached)
}

func TestHooks_Error(t *testing.T) {
	h := NewHooks()

	hndErr := errors.New("handler failed")
	h.AddHook(RoomOpened, func(_ *ExecutionContext) error {
		return hndErr
	}, DefaultPriority)

	halted, err := h.Run(RoomOpened, &ExecutionContext{Context: context.Background()})
	require.False(t, halted)
	require.Equal(t, hndErr, err)
}

func TestHooks_ReentrantHandlers(t *testing.T) {
	h := NewHooks()

	var nested bool
	h.AddHook(RoomOpened, func(execCtx *ExecutionContext) error {
		// registering and running further hooks from inside a running
		// handler must not block on the bus lock
		h.AddHook(RoomMessageReceived, func(_ *ExecutionContext) error {
			nested = true
			return nil
		}, DefaultPriority)
		_, err := h.Run(RoomMessageReceived, execCtx)
		return err
	}, DefaultPriority)

	halted, err := h.Run(RoomOpened, &ExecutionContext{Context: context.Background()})
	require.Nil(t, err)
	require.False(t, halted)
	require.True(t, nested)
}

func TestHooks_RemoveHook(t *testing.T) {
	h := NewHooks()

	var invoked bool
	hnd := func(_ *ExecutionContext) error {
		invoked = true
		return nil
	}
	h.AddHook(OccupantJoined, hnd, DefaultPriority)
	h.RemoveHook(OccupantJoined, hnd)

	_, _ = h.Run(OccupantJoined, &ExecutionContext{Context: context.Background()})
	require.False(t, invoked)
}
