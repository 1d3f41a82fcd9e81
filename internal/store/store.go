// Package store keeps a whole model set in a single bbolt file. Each model is
// stored under its label as a zstd-compressed blob in the binary model
// format, next to a marker recording whether it is approximate. Writes are
// transactional, so a crash mid-write cannot corrupt committed models.
package store

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/shabbyrobe/chatdet"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketModels = []byte("models")
	bucketKinds  = []byte("kinds")
)

const (
	kindExact       = "exact"
	kindApproximate = "approximate"
)

// Store is a model set backed by bbolt.
type Store struct {
	db  *bolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (or creates) a store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketModels); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketKinds)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.dec.Close()
	_ = s.enc.Close()
	return s.db.Close()
}

// Put stores m under label, replacing any previous model.
func (s *Store) Put(label string, m *chatdet.Model) error {
	if label == "" {
		return fmt.Errorf("store: empty label")
	}
	raw, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	blob := s.enc.EncodeAll(raw, nil)

	kind := kindExact
	if _, ok := m.Approximate(); ok {
		kind = kindApproximate
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketModels).Put([]byte(label), blob); err != nil {
			return err
		}
		return tx.Bucket(bucketKinds).Put([]byte(label), []byte(kind))
	})
}

// Get loads the model stored under label. It returns nil, nil if there is
// none.
func (s *Store) Get(label string, opts ...chatdet.ModelOption) (*chatdet.Model, error) {
	var blob []byte
	var kind string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketModels).Get([]byte(label)); v != nil {
			blob = append([]byte(nil), v...)
		}
		kind = string(tx.Bucket(bucketKinds).Get([]byte(label)))
		return nil
	})
	if err != nil || blob == nil {
		return nil, err
	}
	return s.decode(label, kind, blob, opts)
}

func (s *Store) decode(label, kind string, blob []byte, opts []chatdet.ModelOption) (*chatdet.Model, error) {
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("store: decompress %q: %w", label, err)
	}

	var approximate bool
	switch kind {
	case kindExact:
	case kindApproximate:
		approximate = true
	default:
		return nil, fmt.Errorf("store: unknown model kind %q for %q", kind, label)
	}

	rdr := bytes.NewReader(raw)
	m, err := chatdet.ReadModel(rdr, approximate, opts...)
	if err != nil {
		return nil, fmt.Errorf("store: decode %q: %w", label, err)
	}
	if rdr.Len() > 0 {
		return nil, fmt.Errorf("store: decode %q: %d trailing bytes", label, rdr.Len())
	}
	return m, nil
}

// Labels returns every stored label, sorted.
func (s *Store) Labels() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketModels).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	sort.Strings(out)
	return out, err
}

// Delete removes the model stored under label, if any.
func (s *Store) Delete(label string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketModels).Delete([]byte(label)); err != nil {
			return err
		}
		return tx.Bucket(bucketKinds).Delete([]byte(label))
	})
}

// LoadAll loads every stored model, keyed by label.
func (s *Store) LoadAll(opts ...chatdet.ModelOption) (map[string]*chatdet.Model, error) {
	type entry struct {
		kind string
		blob []byte
	}
	entries := make(map[string]entry)

	err := s.db.View(func(tx *bolt.Tx) error {
		kinds := tx.Bucket(bucketKinds)
		return tx.Bucket(bucketModels).ForEach(func(k, v []byte) error {
			entries[string(k)] = entry{
				kind: string(kinds.Get(k)),
				blob: append([]byte(nil), v...),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	models := make(map[string]*chatdet.Model, len(entries))
	for label, e := range entries {
		m, err := s.decode(label, e.kind, e.blob, opts)
		if err != nil {
			return nil, err
		}
		models[label] = m
	}
	return models, nil
}
