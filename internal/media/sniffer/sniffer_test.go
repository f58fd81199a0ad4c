package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legacyvault/internal/models"
)

func TestDetectHead(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want Format
		kind models.MediaType
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, FormatJPEG, models.MediaTypeImage},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}, FormatPNG, models.MediaTypeImage},
		{"gif", []byte("GIF89a......"), FormatGIF, models.MediaTypeImage},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), FormatWEBP, models.MediaTypeImage},
		{"svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg">`), FormatSVG, models.MediaTypeImage},
		{"mp3 id3", []byte("ID3\x04\x00......"), FormatMP3, models.MediaTypeAudio},
		{"mp3 frame", []byte{0xff, 0xfb, 0x90, 0x00}, FormatMP3, models.MediaTypeAudio},
		{"wav", []byte("RIFF\x24\x00\x00\x00WAVEfmt "), FormatWAV, models.MediaTypeAudio},
		{"ogg", []byte("OggS\x00\x02......"), FormatOGG, models.MediaTypeAudio},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), FormatFLAC, models.MediaTypeAudio},
		{"webm", []byte{0x1a, 0x45, 0xdf, 0xa3, 0x01, 0x00}, FormatWEBM, models.MediaTypeVideo},
		{"mp4", []byte("\x00\x00\x00\x20ftypisom\x00\x00\x02\x00"), FormatMP4, models.MediaTypeVideo},
		{"mov", []byte("\x00\x00\x00\x14ftypqt  \x00\x00\x00\x00"), FormatMOV, models.MediaTypeVideo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DetectHead(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Format)
			assert.Equal(t, tt.kind, result.Kind)
			assert.NotEmpty(t, result.MIME)
		})
	}
}

func TestDetectHeadUnknown(t *testing.T) {
	_, err := DetectHead([]byte("plain text file"))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DetectHead(nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}
