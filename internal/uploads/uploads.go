// Package uploads validates product images and stores them on local disk or
// in a MinIO bucket.
package uploads

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

// PublicPath is where disk-stored images are served from.
const PublicPath = "/public/uploads/"

const MaxGalleryImages = 10

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// Upload is a validated image ready to be stored under Name.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// ImageStore persists an upload and returns where it can be fetched. A
// location starting with "/" is relative to the serving host.
type ImageStore interface {
	Save(ctx context.Context, u Upload) (string, error)
}

// Extension returns the file extension for an accepted image content type.
func Extension(contentType string) (string, error) {
	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("invalid image type %q: %w", contentType, domain.ErrValidation)
	}
	return ext, nil
}

// FileName builds the stored name: spaces become dashes and a millisecond
// timestamp plus the type's extension are appended.
func FileName(original, ext string, now time.Time) string {
	base := strings.ReplaceAll(original, " ", "-")
	return base + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "." + ext
}

// FromFileHeader validates a multipart file. Nothing is read or written.
func FromFileHeader(fh *multipart.FileHeader, now time.Time) (Upload, error) {
	contentType := fh.Header.Get("Content-Type")
	ext, err := Extension(contentType)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		Name:        FileName(fh.Filename, ext, now),
		ContentType: contentType,
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}, nil
}

// PublicURL resolves a stored location against the request's scheme and host.
func PublicURL(r *http.Request, location string) string {
	if !strings.HasPrefix(location, "/") {
		return location
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host + location
}
