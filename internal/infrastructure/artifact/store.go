package artifact

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/railswap/railswap/pkg/errors"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".svg":  true,
	".gif":  true,
}

// Store persists ticket artifacts. References are content-addressed by PNR:
// one artifact per booking, later uploads for the same PNR are rejected at
// validation before this point.
type Store interface {
	Save(pnr, filename string, r io.Reader) (string, error)
	Open(ref string) (io.ReadCloser, error)
}

// Ref computes the content-addressed reference for a PNR and original
// filename, validating the extension without writing anything.
func Ref(pnr, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", pkgerrors.ErrInvalidArtifact
	}
	return pnr + ext, nil
}

// FileStore keeps artifacts on the local filesystem under a single directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes the artifact as <pnr><ext> and returns that reference.
func (s *FileStore) Save(pnr, filename string, r io.Reader) (string, error) {
	ref, err := Ref(pnr, filename)
	if err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write artifact file: %w", err)
	}

	slog.Info("artifact saved", "ref", ref)
	return ref, nil
}

func (s *FileStore) Open(ref string) (io.ReadCloser, error) {
	// References are generated server-side, but never trust them as paths.
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(ref)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: artifact %s", pkgerrors.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("open artifact file: %w", err)
	}
	return f, nil
}
