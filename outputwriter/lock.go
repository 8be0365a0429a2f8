package outputwriter

import (
	"fmt"
	"os"
	"time"
)

// lock acquires the advisory lock file for w's output file, reclaiming it
// first if it is older than w.staleLockAge. It returns a function that
// releases the lock.
func (w *Writer) lock() (func(), error) {
	lockPath := w.path + ".lock"

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file %s: %w", lockPath, err)
		}

		info, statErr := os.Stat(lockPath)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				// The lock was released between our create attempt and the
				// stat; retry immediately.
				continue
			}
			return nil, fmt.Errorf("inspecting lock file %s: %w", lockPath, statErr)
		}

		if time.Since(info.ModTime()) > w.staleLockAge {
			if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reclaiming stale lock file %s: %w", lockPath, err)
			}
			continue
		}

		return nil, fmt.Errorf("output file %s is locked by another writer", w.path)
	}
}
