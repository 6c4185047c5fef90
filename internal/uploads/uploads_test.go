package uploads

import (
	"bytes"
	"context"
	"crypto/tls"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

func TestExtension(t *testing.T) {
	for contentType, want := range map[string]string{
		"image/png":  "png",
		"image/jpeg": "jpeg",
		"image/jpg":  "jpg",
		"IMAGE/PNG":  "png",
	} {
		got, err := Extension(contentType)
		require.NoError(t, err, contentType)
		assert.Equal(t, want, got)
	}

	for _, contentType := range []string{"image/gif", "application/pdf", ""} {
		_, err := Extension(contentType)
		assert.ErrorIs(t, err, domain.ErrValidation, contentType)
	}
}

func TestFileName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "my-new-phone.png-1700000000123.png", FileName("my new phone.png", "png", now))
}

func TestPublicURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	r.Host = "shop.example:3000"
	assert.Equal(t, "http://shop.example:3000/public/uploads/a.png", PublicURL(r, "/public/uploads/a.png"))

	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://shop.example:3000/public/uploads/a.png", PublicURL(r, "/public/uploads/a.png"))

	assert.Equal(t, "http://minio:9000/bucket/a.png", PublicURL(r, "http://minio:9000/bucket/a.png"))
}

func multipartFile(t *testing.T, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="image"; filename="` + name + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, r.ParseMultipartForm(1<<20))
	return r.MultipartForm.File["image"][0]
}

func TestDiskStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewDiskStore(dir)
	require.NoError(t, err)

	fh := multipartFile(t, "phone.png", "image/png", []byte("png-bytes"))
	u, err := FromFileHeader(fh, time.UnixMilli(42))
	require.NoError(t, err)
	assert.Equal(t, "phone.png-42.png", u.Name)

	location, err := s.Save(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "/public/uploads/phone.png-42.png", location)

	content, err := os.ReadFile(filepath.Join(dir, "phone.png-42.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))
}

func TestFromFileHeaderRejectsGIF(t *testing.T) {
	fh := multipartFile(t, "anim.gif", "image/gif", []byte("gif"))
	_, err := FromFileHeader(fh, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)
}
