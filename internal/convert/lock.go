// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// LockFile is the advisory lock a running batch holds inside its output
// directory.
const LockFile = ".pdf2txt.lock"

// dirLock marks an output directory as owned by one batch.
type dirLock struct {
	fl *flock.Flock
}

func lockDir(dir string) (*dirLock, error) {
	fl := flock.New(filepath.Join(dir, LockFile))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &dirLock{fl: fl}, nil
}

// release removes the lock file and drops the lock. The file is removed while
// still held so no other batch can lock the old inode. A nil lock is a no-op.
func (l *dirLock) release(log *logrus.Logger) {
	if l == nil {
		return
	}
	if err := os.Remove(l.fl.Path()); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to remove output directory lock file")
	}
	if err := l.fl.Unlock(); err != nil {
		log.WithError(err).Warn("Failed to release output directory lock")
	}
}
