package archive

import (
	"encoding/json"

	"github.com/peterbourgon/diskv"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// ErrNotFound is returned by Load for unknown run IDs.
var ErrNotFound = errors.New("archive: run not found")

// Store is an on-disk, gzip-compressed archive of search records.
type Store struct {
	d *diskv.Diskv
}

// Open returns a store rooted at dir. The directory is created on first write.
func Open(dir string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    blockTransform(2, 2),
			CacheSizeMax: 1024 * 1024,
			Compression:  diskv.NewGzipCompression(),
		}),
	}
}

// Save writes rec under its run ID, replacing an earlier record.
func (s *Store) Save(rec Record) error {
	if rec.RunID == "" {
		return errors.New("archive: record has no run id")
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "archive: encode")
	}

	return errors.Wrapf(s.d.Write(rec.RunID, b), "archive: write %s", rec.RunID)
}

// Load reads the record of a run.
func (s *Store) Load(runID string) (Record, error) {
	var rec Record

	if runID == "" || !s.d.Has(runID) {
		return rec, errors.Wrap(ErrNotFound, runID)
	}

	b, err := s.d.Read(runID)
	if err != nil {
		return rec, errors.Wrapf(err, "archive: read %s", runID)
	}

	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, errors.Wrapf(err, "archive: decode %s", runID)
	}

	return rec, nil
}

// Keys returns the stored run IDs in sorted order.
func (s *Store) Keys() []string {
	var keys []string
	for k := range s.d.Keys(nil) {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Erase removes the record of a run.
func (s *Store) Erase(runID string) error {
	if !s.d.Has(runID) {
		return errors.Wrap(ErrNotFound, runID)
	}

	return s.d.Erase(runID)
}

// blockTransform partitions keys into at most depth folders named after
// consecutive blocks of blockSize characters.
func blockTransform(blockSize, depth int) diskv.TransformFunction {
	return func(s string) []string {
		n := len(s) / blockSize
		if n > depth {
			n = depth
		}

		path := make([]string, n)
		for i := range path {
			path[i] = s[i*blockSize : (i+1)*blockSize]
		}

		return path
	}
}
