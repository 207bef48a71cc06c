package stock

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FileRemover deletes the file behind a photo reference.
type FileRemover interface {
	Remove(ref string) error
}

// AssetStore keeps product photos in a flat directory. References are
// bare file names, never paths.
type AssetStore struct {
	Dir string
	now func() time.Time
}

func NewAssetStore(dir string) *AssetStore {
	return &AssetStore{Dir: dir, now: time.Now}
}

// Save writes r under "<unix>_<name>" and returns the reference.
func (s *AssetStore) Save(name string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", errors.New("invalid photo file name")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create assets dir")
	}
	ref := fmt.Sprintf("%d_%s", s.now().Unix(), base)
	f, err := os.Create(filepath.Join(s.Dir, ref))
	if err != nil {
		return "", errors.Wrap(err, "create photo")
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", errors.Wrap(err, "write photo")
	}
	return ref, nil
}

// Path resolves a reference inside the store directory.
func (s *AssetStore) Path(ref string) string {
	return filepath.Join(s.Dir, filepath.Base(ref))
}

// Remove returns an error wrapping os.ErrNotExist when the file is gone.
func (s *AssetStore) Remove(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	return os.Remove(s.Path(ref))
}
