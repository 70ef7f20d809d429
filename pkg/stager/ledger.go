package stager

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ledgerBucket = []byte("staged")

// ledgerEntry records the state of an artifact the last time it was
// successfully staged, keyed by destination path.
type ledgerEntry struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	SHA256  string    `json:"sha256"`
}

// Ledger is a small bbolt-backed record of {size, modtime, sha256} for
// every artifact this process has staged, used by the optional
// --verify-staged audit path rather than the hot staging path.
type Ledger struct {
	db *bolt.DB
}

// OpenLedger opens (creating if necessary) the integrity ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("stager: open ledger %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ledgerBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("stager: init ledger bucket: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying bbolt database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores the current size/modtime/sha256 of dest.
func (l *Ledger) Record(dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return err
	}
	sum, err := sha256File(dest)
	if err != nil {
		return err
	}
	entry := ledgerEntry{Size: info.Size(), ModTime: info.ModTime(), SHA256: sum}
	buf, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ledgerBucket).Put([]byte(dest), buf)
	})
}

// Verify recomputes dest's SHA-256 and compares it against the recorded
// entry. Returns false (no error) if there is no recorded entry yet.
func (l *Ledger) Verify(dest string) (bool, error) {
	var raw []byte
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(ledgerBucket).Get([]byte(dest))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	var entry ledgerEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false, err
	}
	sum, err := sha256File(dest)
	if err != nil {
		return false, err
	}
	return sum == entry.SHA256, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
