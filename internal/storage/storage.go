package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyAsset      = errors.New("storage: asset is empty")
	ErrUnsupportedType = errors.New("storage: unsupported content type")
	ErrTooLarge        = errors.New("storage: asset exceeds size limit")
)

// Asset is an uploaded file on its way to a store.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

// AssetStore persists an asset and returns a URL the generation service can fetch.
type AssetStore interface {
	Upload(ctx context.Context, asset Asset) (string, error)
}

// Policy bounds what the upload endpoint accepts.
type Policy struct {
	AllowedTypes []string
	MaxBytes     int64
}

// Check rejects out-of-policy uploads. Content type parameters are ignored.
func (p Policy) Check(contentType string, size int64) error {
	if size <= 0 {
		return ErrEmptyAsset
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, size, p.MaxBytes)
	}
	if len(p.AllowedTypes) == 0 {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	for _, allowed := range p.AllowedTypes {
		if strings.EqualFold(mediaType, strings.TrimSpace(allowed)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
}

// CleanFileName NFC-normalizes a client supplied file name, drops any
// directory part and replaces characters that are awkward in URLs.
func CleanFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		name = ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), ".")
	if cleaned == "" {
		return "video"
	}
	return cleaned
}
