package session

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"mcap-navigator/viewer"
)

var sessionsBucket = []byte("sessions")

// BoltStore persists sessions in a bbolt file so expansion and selection
// survive a server restart.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the state database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Load(id string) (viewer.State, bool, error) {
	var (
		stored storedState
		found  bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sessionsBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		// data is only valid inside the transaction; decode it here.
		return stored.Deserialize(data)
	})
	if err != nil {
		return viewer.NewState(), false, fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return viewer.NewState(), false, nil
	}
	return stored.state(), true, nil
}

func (b *BoltStore) Save(id string, state viewer.State) error {
	data, err := toStored(state).Serialize()
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(id), data)
	})
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
