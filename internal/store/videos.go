// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// ErrIllegalTransition is returned when a write would move a video along an
// edge that does not exist in the lifecycle state machine.
var ErrIllegalTransition = errors.New("store: illegal video state transition")

// PutVideo upserts a video record and maintains the state-updatedAt index in
// the same transaction. CreatedAt of an existing record is preserved,
// UpdatedAt is stamped by the store, and the state change is validated
// against the lifecycle machine.
func (s *Store) PutVideo(v *model.Video) error {
	s.videosMu.Lock()
	defer s.videosMu.Unlock()
	return s.putVideoLocked(v)
}

func (s *Store) putVideoLocked(v *model.Video) error {
	now := s.now().UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		key := videoKey(v.ChannelID, v.ID)
		prev, err := getJSON[model.Video](txn, key)
		switch {
		case err == nil:
			if !prev.State.CanTransition(v.State) {
				return fmt.Errorf("%w: %s -> %s (%s/%s)", ErrIllegalTransition, prev.State, v.State, v.ChannelID, v.ID)
			}
			v.CreatedAt = prev.CreatedAt
			if err := txn.Delete(videoStateKey(prev.State, prev.UpdatedAt, prev.ChannelID, prev.ID)); err != nil {
				return err
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			if v.CreatedAt.IsZero() {
				v.CreatedAt = now
			}
		default:
			return err
		}
		v.UpdatedAt = now

		if err := setJSON(txn, key, v); err != nil {
			return err
		}
		return txn.Set(videoStateKey(v.State, v.UpdatedAt, v.ChannelID, v.ID), key)
	})
	return mapErr("put video", err)
}

// GetVideo is a point lookup by the (channelId, videoId) primary key.
func (s *Store) GetVideo(channelID, videoID string) (*model.Video, error) {
	var v *model.Video
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		v, err = getJSON[model.Video](txn, videoKey(channelID, videoID))
		return err
	})
	if err != nil {
		return nil, mapErr("get video", err)
	}
	return v, nil
}

// UpdateVideo re-reads the video under the videos critical section, applies
// mutate and writes the result back while still holding the section. This is
// the primitive every pipeline stage uses to commit a state transition: two
// concurrent writers of the same key observe serialized outcomes.
// The mutate callback must not perform external calls.
func (s *Store) UpdateVideo(channelID, videoID string, mutate func(*model.Video) error) (*model.Video, error) {
	s.videosMu.Lock()
	defer s.videosMu.Unlock()

	var v *model.Video
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		v, err = getJSON[model.Video](txn, videoKey(channelID, videoID))
		return err
	})
	if err != nil {
		return nil, mapErr("get video", err)
	}
	if err := mutate(v); err != nil {
		return nil, err
	}
	if err := s.putVideoLocked(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListVideosInState scans the state index in UpdatedAt order. limit <= 0
// means no limit; ascending is the natural index order.
func (s *Store) ListVideosInState(state model.VideoState, limit int, ascending bool) ([]*model.Video, error) {
	s.videosMu.Lock()
	defer s.videosMu.Unlock()

	var out []*model.Video
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = !ascending
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(videoStateKeyPrefix + string(state) + ":")
		seek := prefix
		if !ascending {
			// Reverse iteration seeks to the last key under the prefix.
			seek = append(append([]byte(nil), prefix...), 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var primary []byte
			if err := it.Item().Value(func(val []byte) error {
				primary = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			v, err := getJSON[model.Video](txn, primary)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, v)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapErr("list videos in state", err)
	}
	return out, nil
}

// VideosByChannel scans all videos tracked for one channel. Used by the
// poller to reconcile upstream removals.
func (s *Store) VideosByChannel(channelID string) ([]*model.Video, error) {
	s.videosMu.Lock()
	defer s.videosMu.Unlock()

	var out []*model.Video
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(videoKeyPrefix + channelID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v model.Video
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return err
			}
			vc := v
			out = append(out, &vc)
		}
		return nil
	})
	if err != nil {
		return nil, mapErr("videos by channel", err)
	}
	return out, nil
}

// CountVideosInState counts index entries without loading records.
func (s *Store) CountVideosInState(state model.VideoState) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(videoStateKeyPrefix + string(state) + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, mapErr("count videos in state", err)
}

// BatchPutVideos writes a batch best-effort and retries unprocessed items
// until the batch drains. Individual illegal transitions are dropped from
// the retry set; transport failures keep the remainder queued.
func (s *Store) BatchPutVideos(videos []*model.Video) error {
	pending := videos
	for len(pending) > 0 {
		var unprocessed []*model.Video
		var firstErr error
		for _, v := range pending {
			err := s.PutVideo(v)
			switch {
			case err == nil:
			case errors.Is(err, ErrIllegalTransition):
				// Permanently unwritable; retrying cannot help.
			case model.IsKind(err, model.ErrNotConnected):
				unprocessed = append(unprocessed, v)
				if firstErr == nil {
					firstErr = err
				}
			default:
				return err
			}
		}
		if len(unprocessed) == len(pending) {
			// No forward progress; surface the transport failure.
			return firstErr
		}
		pending = unprocessed
	}
	return nil
}
