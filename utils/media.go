package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImagesRoute is where stored uploads are served from.
const ImagesRoute = "/api/events/images/"

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrBadReference    = errors.New("invalid image reference")
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// MediaStore keeps uploaded event images on local disk under uuid names.
type MediaStore struct {
	dir     string
	baseURL string
}

func NewMediaStore(dir, publicBaseURL string) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &MediaStore{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Save copies r into the store and returns the reference to use as image_url.
func (m *MediaStore) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExts[ext] {
		return "", ErrUnsupportedType
	}
	ref := uuid.NewString() + ext

	f, err := os.OpenFile(filepath.Join(m.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	return ref, f.Close()
}

// Path resolves ref to a file inside the store. Anything that is not a bare
// file name with an image extension is rejected.
func (m *MediaStore) Path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") || strings.ContainsAny(ref, `/\`) {
		return "", ErrBadReference
	}
	if !imageExts[strings.ToLower(filepath.Ext(ref))] {
		return "", ErrBadReference
	}
	return filepath.Join(m.dir, ref), nil
}

// AbsoluteURL turns a stored reference into a URL the browser can load.
// Values that already are URLs are returned unchanged.
func (m *MediaStore) AbsoluteURL(ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "data:"):
		return ref
	case strings.HasPrefix(ref, ImagesRoute):
		return m.baseURL + ref
	default:
		return m.baseURL + ImagesRoute + strings.TrimPrefix(ref, "/")
	}
}
