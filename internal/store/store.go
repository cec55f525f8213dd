// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package store is the durable state store backing the sync pipeline.
//
// Three tables live in a single BadgerDB instance, addressed by key prefix:
//
//	channel:<userId>:<channelId>            channel records
//	channel_js:<joystreamChannelId>         secondary lookup -> primary key
//	channel_ref:<referrerId>:<channelId>    secondary lookup -> primary key
//	video:<channelId>:<videoId>             video records
//	video_state:<state>:<updatedAt>:<k>     state index -> primary key
//	whitelist:<handle>                      whitelist entries
//
// Writers on the same table serialize on a per-table critical section, and
// list reads take the same section for snapshot consistency. The state index
// is maintained in the same Badger transaction as the video record, so a
// failed put leaves both untouched.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// ErrNotFound is returned by point lookups when the record is absent.
var ErrNotFound = errors.New("store: not found")

const (
	channelKeyPrefix     = "channel:"
	channelJsKeyPrefix   = "channel_js:"
	channelRefKeyPrefix  = "channel_ref:"
	videoKeyPrefix       = "video:"
	videoStateKeyPrefix  = "video_state:"
	whitelistKeyPrefix   = "whitelist:"
)

// Store wraps BadgerDB with the table layout above.
type Store struct {
	db *badger.DB

	channelsMu  sync.Mutex
	videosMu    sync.Mutex
	whitelistMu sync.Mutex

	// now is swapped in tests for deterministic UpdatedAt stamps.
	now func() time.Time
}

// Open opens (or creates) the store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, model.WrapError(model.ErrNotConnected, "open state store", err)
	}
	return New(db), nil
}

// New wraps an already-open BadgerDB instance.
func New(db *badger.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func channelKey(userID, channelID string) []byte {
	return []byte(channelKeyPrefix + userID + ":" + channelID)
}

func videoKey(channelID, videoID string) []byte {
	return []byte(videoKeyPrefix + channelID + ":" + videoID)
}

// videoStateKey orders index entries by UpdatedAt within a state bucket.
// The zero-padded nanosecond timestamp keeps byte order chronological.
func videoStateKey(state model.VideoState, updatedAt time.Time, channelID, videoID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s:%s", videoStateKeyPrefix, state, updatedAt.UnixNano(), channelID, videoID))
}

// mapErr collapses Badger transport failures into the single NotConnected
// kind; absence and domain errors pass through unchanged.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	var de *model.Error
	if errors.As(err, &de) {
		return err
	}
	return model.WrapError(model.ErrNotConnected, op, err)
}

func getJSON[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var out T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}
