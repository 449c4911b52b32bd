package voice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MediaStore persists generated audio files under a directory that the
// HTTP server exposes at /media.
type MediaStore struct {
	dir     string
	baseURL string
}

// NewMediaStore creates the media directory if needed. baseURL is the
// public prefix under which the directory is served.
func NewMediaStore(dir, baseURL string) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &MediaStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// SaveMP3 writes audio under a fresh random name and returns its public URL.
func (m *MediaStore) SaveMP3(audio []byte) (string, error) {
	filename := uuid.New().String() + ".mp3"
	if err := os.WriteFile(filepath.Join(m.dir, filename), audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return m.baseURL + "/" + filename, nil
}

// Dir returns the directory the server should mount at /media.
func (m *MediaStore) Dir() string { return m.dir }
