package diskcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// FSCache is a filesystem-backed Cache. Each key is hashed to a filename
// under root; a single lock file guards concurrent writers from the same
// process or across processes sharing the same cache root.
type FSCache struct {
	root     string
	lock     *flock.Flock
	lockWait time.Duration
}

// NewFSCache creates an FSCache rooted at dir, creating the directory if
// necessary.
func NewFSCache(dir string) (*FSCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache root %q: %v", ErrCache, dir, err)
	}
	return &FSCache{
		root:     dir,
		lock:     flock.New(filepath.Join(dir, ".lock")),
		lockWait: 5 * time.Second,
	}, nil
}

func (c *FSCache) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.root, hex.EncodeToString(sum[:]))
}

// Get implements Cache.
func (c *FSCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %q: %v", ErrCache, key, err)
	}
	return data, true, nil
}

// Put implements Cache. Writes are staged to a temp file and renamed so a
// concurrent reader never observes a partial write.
func (c *FSCache) Put(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()

	locked, err := c.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil || !locked {
		// Fall back to an unsynchronized write — losing the race here
		// just means one writer's value wins, which matches the
		// append-only-from-the-user's-perspective cache semantics.
		return c.writeFile(key, value)
	}
	defer c.lock.Unlock()

	return c.writeFile(key, value)
}

func (c *FSCache) writeFile(key string, value []byte) error {
	dest := c.pathFor(key)
	tmp := dest + fmt.Sprintf(".tmp-%d", time.Now().UnixNano())

	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrCache, key, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename %q: %v", ErrCache, key, err)
	}
	return nil
}

var _ Cache = (*FSCache)(nil)
