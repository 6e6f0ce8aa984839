package attachments

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func upload(name string, body []byte) *Upload {
	return &Upload{Filename: name, Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func TestValidateAcceptsImage(t *testing.T) {
	data := pngBytes(t)
	v := NewValidator(0)

	got, err := v.Validate(upload("cat.png", data))
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MIME)
	assert.Equal(t, ".png", got.Ext)
	assert.Equal(t, KindImage, got.Kind)

	replay, err := io.ReadAll(got.Body())
	require.NoError(t, err)
	assert.Equal(t, data, replay)
}

func TestValidateUsesSniffedExtension(t *testing.T) {
	// A GIF named .jpg is still an allowed image; it is stored as what it is.
	got, err := NewValidator(0).Validate(upload("photo.JPG", gifBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, "image/gif", got.MIME)
	assert.Equal(t, ".gif", got.Ext)
}

func TestValidateRejects(t *testing.T) {
	data := pngBytes(t)

	tests := []struct {
		name   string
		upload *Upload
	}{
		{"no file", &Upload{}},
		{"declared size over limit", &Upload{Filename: "big.png", Size: 21 << 20, Body: bytes.NewReader(data)}},
		{"executable extension", upload("tool.exe", bytes.Repeat([]byte{0x4d, 0x5a}, 512))},
		{"missing extension", upload("cat", data)},
		{"spoofed extension", upload("notes.png", []byte("just some text, definitely not an image"))},
		{"empty body", upload("cat.png", nil)},
		{"nil body", &Upload{Filename: "cat.png", Size: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewValidator(DefaultMaxBytes).Validate(tt.upload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRejected))
			var rej *RejectionError
			require.ErrorAs(t, err, &rej)
			assert.NotEmpty(t, rej.Reason)
		})
	}
}

func TestKindOfAndContentType(t *testing.T) {
	assert.Equal(t, KindImage, KindOf("uploads/a.png"))
	assert.Equal(t, KindVideo, KindOf("uploads/a.WEBM"))
	assert.Equal(t, KindAudio, KindOf("uploads/a.mp3"))
	assert.Equal(t, Kind(""), KindOf("uploads/a.exe"))

	assert.Equal(t, "video/mp4", ContentType("uploads/a.mp4"))
	assert.Equal(t, "image/jpeg", ContentType("uploads/a.jpeg"))
	assert.Equal(t, "audio/mpeg", ContentType("uploads/a.mp3"))
	assert.Equal(t, "", ContentType("uploads/a.txt"))
}

func TestUploadEmpty(t *testing.T) {
	var nilUpload *Upload
	assert.True(t, nilUpload.Empty())
	assert.True(t, (&Upload{Filename: "  "}).Empty())
	assert.False(t, (&Upload{Filename: "a.png"}).Empty())
}
