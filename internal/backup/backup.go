// Package backup snapshots the sqlite database file before schema
// initialization and keeps a bounded number of copies.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultRetention = 5
	timestampLayout  = "20060102_150405"
	backupExt        = ".bak"
)

type Manager struct {
	Dir       string
	Retention int
	now       func() time.Time
}

func NewManager(dir string, retention int) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{Dir: dir, Retention: retention, now: time.Now}
}

// Snapshot copies dbPath to "<dir>/<base>_<timestamp>.bak" and prunes old
// copies. A missing database file is not an error and yields "".
func (m *Manager) Snapshot(dbPath string) (string, error) {
	src, err := os.Open(dbPath)
	if os.IsNotExist(err) {
		zap.L().Debug("no database file to back up", zap.String("namespace", "backup"), zap.String("path", dbPath))
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "open database file")
	}
	defer src.Close()

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup dir")
	}

	target := m.targetName(dbPath)
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create backup file")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", errors.Wrap(err, "copy database file")
	}
	if err := dst.Close(); err != nil {
		os.Remove(target)
		return "", errors.Wrap(err, "close backup file")
	}
	zap.L().Info("database backup created", zap.String("namespace", "backup"), zap.String("file", target))

	if _, err := m.Prune(dbPath); err != nil {
		zap.L().Warn("backup rotation failed", zap.String("namespace", "backup"), zap.Error(err))
	}
	return target, nil
}

func (m *Manager) prefix(dbPath string) string {
	base := filepath.Base(dbPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_"
}

func (m *Manager) targetName(dbPath string) string {
	now := m.now()
	name := filepath.Join(m.Dir, m.prefix(dbPath)+now.Format(timestampLayout)+backupExt)
	if _, err := os.Stat(name); err == nil {
		name = filepath.Join(m.Dir, fmt.Sprintf("%s%s_%09d%s", m.prefix(dbPath), now.Format(timestampLayout), now.Nanosecond(), backupExt))
	}
	return name
}

// List returns the backups of dbPath, oldest first.
func (m *Manager) List(dbPath string) ([]string, error) {
	entries, err := os.ReadDir(m.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read backup dir")
	}
	prefix := m.prefix(dbPath)
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isBackupName(name, prefix) {
			continue
		}
		files = append(files, filepath.Join(m.Dir, name))
	}
	// the timestamp layout sorts lexically in time order
	sort.Strings(files)
	return files, nil
}

// isBackupName reports whether name is "<prefix><timestamp>.bak" or the
// same-second form "<prefix><timestamp>_<nanoseconds>.bak".
func isBackupName(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, backupExt) {
		return false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), backupExt)
	if len(rest) < len(timestampLayout) {
		return false
	}
	if _, err := time.Parse(timestampLayout, rest[:len(timestampLayout)]); err != nil {
		return false
	}
	suffix := rest[len(timestampLayout):]
	if suffix == "" {
		return true
	}
	if len(suffix) != 10 || suffix[0] != '_' {
		return false
	}
	for _, r := range suffix[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Prune deletes the oldest backups until at most Retention remain.
func (m *Manager) Prune(dbPath string) ([]string, error) {
	files, err := m.List(dbPath)
	if err != nil {
		return nil, err
	}
	var removed []string
	for len(files) > m.Retention {
		if err := os.Remove(files[0]); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, "remove backup %s", files[0])
		}
		zap.L().Info("old backup removed", zap.String("namespace", "backup"), zap.String("file", files[0]))
		removed = append(removed, files[0])
		files = files[1:]
	}
	return removed, nil
}
