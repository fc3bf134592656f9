package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)), nil))
	return buf.Bytes()
}

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()

	id, err := u.NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	require.Len(t, id, 26)

	other, err := u.NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	require.NotEqual(t, id, other)
}

func TestValidateFrame(t *testing.T) {
	u := New()

	require.ErrorIs(t, u.ValidateFrame(nil), ErrEmptyFrame)
	require.ErrorIs(t, u.ValidateFrame([]byte{}), ErrEmptyFrame)
	require.ErrorIs(t, u.ValidateFrame([]byte("not an image")), ErrNotAnImage)
	require.ErrorIs(t, u.ValidateFrame(make([]byte, 6*1024*1024)), ErrFrameTooLarge)

	require.NoError(t, u.ValidateFrame(encodePNG(t)))
	require.NoError(t, u.ValidateFrame(encodeJPEG(t)))
}

func TestFrameContentType(t *testing.T) {
	u := New()

	require.Equal(t, "image/png", u.FrameContentType(encodePNG(t)))
	require.Equal(t, "image/jpeg", u.FrameContentType(encodeJPEG(t)))
	require.Equal(t, "application/octet-stream", u.FrameContentType([]byte("junk")))
}
