// /internal/storage/storage.go
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	commandHistoryLimit int = 200
	playHistoryLimit    int = 100
	schemaVersion       int = 1
)

var buckets = struct {
	Metadata []byte
	Commands []byte
	Plays    []byte
}{
	Metadata: []byte("__metadata__"),
	Commands: []byte("commands"),
	Plays:    []byte("plays"),
}

var versionKey = []byte("version")

// Storage persists command and play history per guild in a bbolt file.
// Each top-level bucket holds one nested bucket per guild keyed by a
// monotonically increasing sequence, so iteration order is insertion order.
type Storage struct {
	db           *bbolt.DB
	commandLimit int
	playLimit    int
}

func New(path string) (*Storage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		metadata, err := tx.CreateBucketIfNotExists(buckets.Metadata)
		if err != nil {
			return err
		}
		for _, name := range [][]byte{buckets.Commands, buckets.Plays} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		var version int
		if raw := metadata.Get(versionKey); raw != nil {
			if err := json.Unmarshal(raw, &version); err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
		}
		if version > schemaVersion {
			return fmt.Errorf("storage schema %d is newer than supported %d", version, schemaVersion)
		}

		raw, err := json.Marshal(schemaVersion)
		if err != nil {
			return err
		}
		return metadata.Put(versionKey, raw)
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db, commandLimit: commandHistoryLimit, playLimit: playHistoryLimit}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// appendCapped stores v in the guild's sub-bucket of top and drops the
// oldest rows beyond limit.
func (s *Storage) appendCapped(top []byte, guildID string, v any, limit int) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshalling record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		guild, err := tx.Bucket(top).CreateBucketIfNotExists([]byte(guildKey(guildID)))
		if err != nil {
			return err
		}

		seq, err := guild.NextSequence()
		if err != nil {
			return err
		}
		if err := guild.Put(itob(seq), data); err != nil {
			return err
		}

		return trim(guild, limit)
	})
}

// latest decodes up to limit newest rows for a guild, newest first.
func latest[T any](s *Storage, top []byte, guildID string, limit int) ([]T, error) {
	var out []T
	err := s.db.View(func(tx *bbolt.Tx) error {
		guild := tx.Bucket(top).Bucket([]byte(guildKey(guildID)))
		if guild == nil {
			return nil
		}

		c := guild.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec T
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("error unmarshalling record %d: %w", btoi(k), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func trim(b *bbolt.Bucket, limit int) error {
	if limit <= 0 {
		return nil
	}

	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}

	for _, k := range keys[:max(0, len(keys)-limit)] {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// guildKey maps DM invocations (no guild) to a shared bucket.
func guildKey(guildID string) string {
	if guildID == "" {
		return "@dm"
	}
	return guildID
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
