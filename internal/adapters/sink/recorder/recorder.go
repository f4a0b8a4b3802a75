// Package recorder persists every distinct board snapshot into a bbolt
// database, one bucket per recording session.
package recorder

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/okian/balanceboard/internal/adapters/sink"
	"github.com/okian/balanceboard/internal/domain/model"
	"github.com/okian/balanceboard/pkg/logger"
	"github.com/okian/balanceboard/pkg/metrics"
)

const (
	name        = "recorder"
	openTimeout = time.Second
	seqKeyLen   = 8
)

// Recorder writes snapshots for a single session.
type Recorder struct {
	db      *bbolt.DB
	session string
	lastSeq uint64
	logger  logger.Logger
}

// Open opens (or creates) the database at path and starts a new session.
func Open(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpen, err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}

	r := &Recorder{
		db:      db,
		session: uuid.NewString(),
		logger:  logger.Get().Named("recorder"),
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(r.session))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create session: %w", ErrOpen, err)
	}

	r.logger.Info(context.Background(), "recording session started",
		logger.String("path", path),
		logger.String("session", r.session),
	)
	return r, nil
}

// Session returns the id of the session being written.
func (r *Recorder) Session() string { return r.session }

// Name implements sink.Sink.
func (r *Recorder) Name() string { return name }

// Poll implements sink.Sink. Each sequence number is stored once.
func (r *Recorder) Poll(_ context.Context, src sink.Source) error {
	snap, ok := src.Snapshot()
	if !ok || snap.Seq == r.lastSeq {
		return sink.ErrSkipped
	}
	if err := r.Write(snap); err != nil {
		return err
	}
	r.lastSeq = snap.Seq
	metrics.RecordSinkPublish(name)
	return nil
}

// Write stores snap in the current session keyed by its sequence number.
func (r *Recorder) Write(snap model.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", snap.Seq, err)
	}
	err = r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(r.session))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, r.session)
		}
		return b.Put(seqKey(snap.Seq), body)
	})
	if err != nil {
		return fmt.Errorf("store snapshot %d: %w", snap.Seq, err)
	}
	return nil
}

// Sessions lists the recorded session ids.
func (r *Recorder) Sessions() ([]string, error) {
	var out []string
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(n []byte, _ *bbolt.Bucket) error {
			out = append(out, string(n))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// Read returns every snapshot of a session in sequence order.
func (r *Recorder) Read(session string) ([]model.Snapshot, error) {
	var out []model.Snapshot
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(session))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, session)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var snap model.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return fmt.Errorf("decode snapshot %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close recording database: %w", err)
	}
	return nil
}

// seqKey encodes seq big-endian so cursor order is sequence order.
func seqKey(seq uint64) []byte {
	k := make([]byte, seqKeyLen)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
