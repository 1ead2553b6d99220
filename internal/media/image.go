// Package media stores book cover images in S3-compatible object storage.
package media

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// DefaultMaxImageBytes caps the decoded size of an uploaded image.
const DefaultMaxImageBytes = 5 << 20

var (
	// ErrInvalidImage is returned for payloads that are not base64 images.
	ErrInvalidImage = errors.New("invalid image")
	// ErrImageTooLarge is returned when the decoded image exceeds the limit.
	ErrImageTooLarge = errors.New("image too large")
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
}

// Ext returns the file extension for the image content type.
func (i Image) Ext() string {
	return extensions[i.ContentType]
}

// DecodeImage parses a data URI (data:image/png;base64,...) or a bare base64
// string. The content type is sniffed from the bytes; the declared type in a
// data URI is not trusted.
func DecodeImage(payload string, maxBytes int64) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	encoded := strings.TrimSpace(payload)
	if strings.HasPrefix(encoded, "data:") {
		meta, data, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return Image{}, ErrInvalidImage
		}
		encoded = data
	}
	encoded = strings.Join(strings.Fields(encoded), "")
	if encoded == "" {
		return Image{}, ErrInvalidImage
	}

	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > maxBytes+2 {
		return Image{}, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return Image{}, ErrInvalidImage
		}
	}
	if int64(len(data)) > maxBytes {
		return Image{}, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return Image{}, ErrInvalidImage
	}

	return Image{Data: data, ContentType: contentType}, nil
}
