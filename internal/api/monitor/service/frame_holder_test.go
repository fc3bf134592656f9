package monitorService

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameHolderEmpty(t *testing.T) {
	var h frameHolder

	frame, ok := h.Take()
	require.False(t, ok)
	require.Nil(t, frame)
}

func TestFrameHolderKeepsNewestFrame(t *testing.T) {
	var h frameHolder

	h.Put([]byte("old"))
	h.Put([]byte("new"))

	frame, ok := h.Take()
	require.True(t, ok)
	require.Equal(t, []byte("new"), frame)
}

func TestFrameHolderHandsOutOnce(t *testing.T) {
	var h frameHolder

	h.Put([]byte("frame"))

	_, ok := h.Take()
	require.True(t, ok)

	// A consumed frame is gone; the next tick must be an idle one.
	_, ok = h.Take()
	require.False(t, ok)
}
