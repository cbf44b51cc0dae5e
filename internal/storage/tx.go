package storage

import (
	"errors"
	"fmt"
	"github.com/vodarchive/collate/internal/record"
	bolt "go.etcd.io/bbolt"
)

// Tx is a view over the store buckets for the lifetime of one bbolt transaction. It must
// not be retained after the Update or View callback returns.
type Tx struct {
	videos *bolt.Bucket
	meta   *bolt.Bucket
}

func wrapTx(btx *bolt.Tx) *Tx {
	return &Tx{
		videos: btx.Bucket([]byte(videosBucket)),
		meta:   btx.Bucket([]byte(metaBucket)),
	}
}

// Get returns the record for id and whether it exists.
func (t *Tx) Get(id string) (*record.VideoRecord, bool, error) {
	b := t.videos.Get([]byte(id))
	if b == nil {
		return nil, false, nil
	}
	r, err := record.Decode(b)
	if err != nil {
		return nil, true, fmt.Errorf("record %q: %w", id, err)
	}
	return r, true, nil
}

// Put replaces the record for id.
func (t *Tx) Put(id string, r *record.VideoRecord) error {
	if id == "" {
		return errors.New("video id cannot be empty")
	}
	b, err := record.Encode(r)
	if err != nil {
		return err
	}
	return t.videos.Put([]byte(id), b)
}

// Merge reads the record for id (an empty one when absent), applies fn and writes the
// result back.
func (t *Tx) Merge(id string, fn func(r *record.VideoRecord) error) error {
	r, exists, err := t.Get(id)
	if err != nil {
		return err
	}
	if !exists {
		r = &record.VideoRecord{}
	}
	if err = fn(r); err != nil {
		return err
	}
	return t.Put(id, r)
}

// ForEach decodes every record and calls fn. Returning an error from fn stops the scan.
func (t *Tx) ForEach(fn func(id string, r *record.VideoRecord) error) error {
	return t.videos.ForEach(func(k, v []byte) error {
		r, err := record.Decode(v)
		if err != nil {
			return fmt.Errorf("record %q: %w", k, err)
		}
		return fn(string(k), r)
	})
}

// SetMeta stores an opaque store-level value.
func (t *Tx) SetMeta(key string, value []byte) error {
	return t.meta.Put([]byte(key), value)
}

// Meta returns a copy of the store-level value for key, or nil.
func (t *Tx) Meta(key string) []byte {
	v := t.meta.Get([]byte(key))
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}
