package metadata

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
)

// lockFileName is created inside the project data directory.
const lockFileName = ".finfluencer.lock"

// ErrLocked is returned when another process holds the project lock.
var ErrLocked = eris.New("metadata: project is locked by another run")

// Lock takes the single-writer lock for a project directory. The stores
// are read then overwritten whole, so concurrent runs against the same
// directory would lose updates. The returned func releases the lock.
func Lock(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "metadata: create %s", dir)
	}
	fl := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, eris.Wrap(err, "metadata: acquire lock")
	}
	if !locked {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}
