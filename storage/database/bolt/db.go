package boltrepos

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	userBucket       = []byte("users")
	noticeBucket     = []byte("notices")
	assignmentBucket = []byte("assignments")
	sessionBucket    = []byte("sessions")
)

// Open opens (or creates) the bolt file at path and makes sure every bucket exists.
func Open(path string, timeout time.Duration) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "opening bolt file %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{userBucket, noticeBucket, assignmentBucket, sessionBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func put(b *bolt.Bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	return b.Put([]byte(key), data)
}

// each decodes every record of b into a value made by newRec and passes it to fn.
func each(b *bolt.Bucket, newRec func() interface{}, fn func(rec interface{}) error) error {
	return b.ForEach(func(_, data []byte) error {
		rec := newRec()
		if err := json.Unmarshal(data, rec); err != nil {
			return errors.Wrap(err, "decoding record")
		}
		return fn(rec)
	})
}

// get decodes the record stored under key into v. It reports false when key is missing.
func get(b *bolt.Bucket, key string, v interface{}) (bool, error) {
	data := b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "decoding record")
	}
	return true, nil
}

// newerFirst orders by timestamp desc, then id desc.
func newerFirst(ti, tj time.Time, idi, idj string) bool {
	if ti.Equal(tj) {
		return idi > idj
	}
	return ti.After(tj)
}
