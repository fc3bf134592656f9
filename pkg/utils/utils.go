package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrEmptyFrame    = errors.New("empty frame")
	ErrFrameTooLarge = errors.New("frame size exceeds limit")
	ErrNotAnImage    = errors.New("frame is not a decodable image")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateFrame(frame []byte) error
	FrameContentType(frame []byte) string
}

type utils struct {
	maxFrameSize int64
}

func New() IUtils {
	return &utils{
		maxFrameSize: 5 * 1024 * 1024,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// ValidateFrame rejects frames the detector could not work with before any
// of them reach the sampling loop.
func (u *utils) ValidateFrame(frame []byte) error {
	if len(frame) == 0 {
		return ErrEmptyFrame
	}

	if int64(len(frame)) > u.maxFrameSize {
		return ErrFrameTooLarge
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(frame)); err != nil {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) FrameContentType(frame []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return "application/octet-stream"
	}

	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
