package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"carbide/internal/generics"
)

// diskCacheSchemaVersion invalidates stale payloads when the format
// changes. Increment on any DiskPayload change.
const diskCacheSchemaVersion uint16 = 1

// Digest is a SHA-256 content hash used as the cache key.
type Digest [sha256.Size]byte

// HashBytes hashes file content for cache addressing.
func HashBytes(b []byte) Digest {
	return sha256.Sum256(b)
}

// DiskCache stores instantiation records per source hash on disk.
// Safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// InstRecord is one instantiation as it goes to disk.
type InstRecord struct {
	Name    string
	Args    string
	Mangled string
	Class   bool
	Depth   int
}

// DiskPayload is the serialized result of one compilation.
type DiskPayload struct {
	Schema     uint16
	SourcePath string
	SourceHash Digest
	Records    []InstRecord
}

// PayloadFromRecords converts the engine's records into a disk payload.
func PayloadFromRecords(path string, hash Digest, records []generics.Record) *DiskPayload {
	payload := &DiskPayload{
		Schema:     diskCacheSchemaVersion,
		SourcePath: path,
		SourceHash: hash,
		Records:    make([]InstRecord, len(records)),
	}
	for i, r := range records {
		payload.Records[i] = InstRecord{
			Name:    r.Name,
			Args:    r.Args,
			Mangled: r.Mangled,
			Class:   r.Class,
			Depth:   r.Depth,
		}
	}
	return payload
}

// OpenDiskCache initializes the cache at the standard location:
// $XDG_CACHE_HOME/<app> or ~/.cache/<app>.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt initializes the cache at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "insts", hexKey+".mp")
}

// Put serializes a payload and replaces the cache entry atomically.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads a payload. A schema mismatch reads as a miss so stale entries
// simply regenerate.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p) // #nosec G304 -- path is derived from the hash
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close cache file: %v\n", closeErr)
		}
	}()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the whole cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
