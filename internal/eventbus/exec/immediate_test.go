// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediate_RunsBeforeReturn(t *testing.T) {
	ran := false
	require.NoError(t, NewImmediate().Execute(func() { ran = true }))
	assert.True(t, ran)
}

func TestImmediate_RecoversPanic(t *testing.T) {
	var got any
	im := NewImmediate(
		WithName("posting-test"),
		WithPanicHandler(func(executor string, recovered any, _ []byte) {
			assert.Equal(t, "posting-test", executor)
			got = recovered
		}),
	)
	require.NotPanics(t, func() {
		require.NoError(t, im.Execute(func() { panic("boom") }))
	})
	assert.Equal(t, "boom", got)
}

func TestImmediate_PanickingPanicHandler(t *testing.T) {
	im := NewImmediate(WithPanicHandler(func(string, any, []byte) { panic("again") }))
	assert.NotPanics(t, func() {
		_ = im.Execute(func() { panic("boom") })
	})
}

func TestFunc_AdaptsHostScheduler(t *testing.T) {
	var queued []func()
	host := Func(func(task func()) { queued = append(queued, task) })

	ran := false
	require.NoError(t, host.Execute(func() { ran = true }))
	require.Len(t, queued, 1)
	assert.False(t, ran)

	queued[0]()
	assert.True(t, ran)
	assert.ErrorIs(t, host.Execute(nil), ErrNilTask)
}
