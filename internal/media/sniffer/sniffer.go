// Package sniffer detects the real media format of an upload from its
// leading bytes. The declared Content-Type is never trusted on its own.
package sniffer

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"legacyvault/internal/models"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWEBP Format = "webp"
	FormatSVG  Format = "svg"

	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatOGG  Format = "ogg"
	FormatFLAC Format = "flac"

	FormatMP4  Format = "mp4"
	FormatWEBM Format = "webm"
	FormatMOV  Format = "mov"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Format Format
	Kind   models.MediaType
	MIME   string
}

// DetectHead classifies the first bytes of a file. 512 bytes is enough for
// every supported container.
func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	switch {
	case isJPEG(head):
		return Result{FormatJPEG, models.MediaTypeImage, "image/jpeg"}, nil
	case isPNG(head):
		return Result{FormatPNG, models.MediaTypeImage, "image/png"}, nil
	case isGIF(head):
		return Result{FormatGIF, models.MediaTypeImage, "image/gif"}, nil
	case isRIFF(head, "WEBP"):
		return Result{FormatWEBP, models.MediaTypeImage, "image/webp"}, nil
	case isSVG(head):
		return Result{FormatSVG, models.MediaTypeImage, "image/svg+xml"}, nil

	case isRIFF(head, "WAVE"):
		return Result{FormatWAV, models.MediaTypeAudio, "audio/wav"}, nil
	case isMP3(head):
		return Result{FormatMP3, models.MediaTypeAudio, "audio/mpeg"}, nil
	case isOGG(head):
		return Result{FormatOGG, models.MediaTypeAudio, "audio/ogg"}, nil
	case isFLAC(head):
		return Result{FormatFLAC, models.MediaTypeAudio, "audio/flac"}, nil

	case isEBML(head):
		return Result{FormatWEBM, models.MediaTypeVideo, "video/webm"}, nil
	case isQuickTime(head):
		return Result{FormatMOV, models.MediaTypeVideo, "video/quicktime"}, nil
	case isMP4(head):
		return Result{FormatMP4, models.MediaTypeVideo, "video/mp4"}, nil
	}

	return Result{}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isRIFF(head []byte, form string) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte(form))
}

func isSVG(head []byte) bool {
	trimmed := strings.TrimSpace(string(head))
	return strings.HasPrefix(trimmed, "<svg") || strings.HasPrefix(trimmed, "<?xml")
}

func isMP3(head []byte) bool {
	if len(head) >= 3 && bytes.Equal(head[:3], []byte("ID3")) {
		return true
	}
	// Bare MPEG audio frame sync.
	return len(head) >= 2 && head[0] == 0xff && head[1]&0xe0 == 0xe0
}

func isOGG(head []byte) bool {
	return len(head) >= 4 && bytes.Equal(head[:4], []byte("OggS"))
}

func isFLAC(head []byte) bool {
	return len(head) >= 4 && bytes.Equal(head[:4], []byte("fLaC"))
}

// isEBML matches the Matroska/WebM container header.
func isEBML(head []byte) bool {
	return len(head) >= 4 && bytes.Equal(head[:4], []byte{0x1a, 0x45, 0xdf, 0xa3})
}

func isQuickTime(head []byte) bool {
	return hasFtypBrand(head, "qt  ")
}

func isMP4(head []byte) bool {
	if len(head) < 12 {
		return false
	}
	return string(head[4:8]) == "ftyp"
}

func hasFtypBrand(head []byte, brand string) bool {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return false
	}
	return bytes.Contains(head[8:], []byte(brand))
}

// MimeTypeFromHTTP returns the declared content type stripped of parameters.
func MimeTypeFromHTTP(header http.Header) string {
	return NormalizeMIME(header.Get("Content-Type"))
}

// NormalizeMIME lowercases a content type and strips its parameters.
func NormalizeMIME(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
