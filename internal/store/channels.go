// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package store

import (
	"errors"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// PutChannel upserts a channel record. CreatedAt of an existing record is
// preserved and UpdatedAt is stamped by the store; the secondary lookups by
// Joystream channel id and by referrer are maintained in the same
// transaction.
func (s *Store) PutChannel(ch *model.Channel) error {
	s.channelsMu.Lock()
	defer s.channelsMu.Unlock()
	return s.putChannelLocked(ch)
}

func (s *Store) putChannelLocked(ch *model.Channel) error {
	now := s.now().UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		key := channelKey(ch.UserID, ch.ID)
		if prev, err := getJSON[model.Channel](txn, key); err == nil {
			ch.CreatedAt = prev.CreatedAt
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		} else if ch.CreatedAt.IsZero() {
			ch.CreatedAt = now
		}
		ch.UpdatedAt = now

		if err := setJSON(txn, key, ch); err != nil {
			return err
		}
		if ch.JoystreamChannelID != "" {
			jsKey := []byte(channelJsKeyPrefix + ch.JoystreamChannelID)
			if err := txn.Set(jsKey, key); err != nil {
				return err
			}
		}
		if ch.ReferrerChannelID != "" {
			refKey := []byte(channelRefKeyPrefix + ch.ReferrerChannelID + ":" + ch.ID)
			if err := txn.Set(refKey, key); err != nil {
				return err
			}
		}
		return nil
	})
	return mapErr("put channel", err)
}

// GetChannel is a point lookup by the (userId, channelId) primary key.
func (s *Store) GetChannel(userID, channelID string) (*model.Channel, error) {
	var ch *model.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ch, err = getJSON[model.Channel](txn, channelKey(userID, channelID))
		return err
	})
	if err != nil {
		return nil, mapErr("get channel", err)
	}
	return ch, nil
}

// GetChannelByID resolves a channel by its external id alone, scanning the
// channels table. Callers on hot paths carry the full primary key instead.
func (s *Store) GetChannelByID(channelID string) (*model.Channel, error) {
	channels, err := s.ListChannels()
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		if ch.ID == channelID {
			return ch, nil
		}
	}
	return nil, ErrNotFound
}

// GetChannelByJoystreamID follows the joystreamChannelId secondary lookup.
func (s *Store) GetChannelByJoystreamID(joystreamChannelID string) (*model.Channel, error) {
	var ch *model.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(channelJsKeyPrefix + joystreamChannelID))
		if err != nil {
			return err
		}
		var primary []byte
		if err := item.Value(func(val []byte) error {
			primary = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		ch, err = getJSON[model.Channel](txn, primary)
		return err
	})
	if err != nil {
		return nil, mapErr("get channel by joystream id", err)
	}
	return ch, nil
}

// ChannelsByReferrer lists channels referred by the given channel,
// createdAt ascending.
func (s *Store) ChannelsByReferrer(referrerChannelID string) ([]*model.Channel, error) {
	s.channelsMu.Lock()
	defer s.channelsMu.Unlock()

	var out []*model.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(channelRefKeyPrefix + referrerChannelID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var primary []byte
			if err := it.Item().Value(func(val []byte) error {
				primary = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			ch, err := getJSON[model.Channel](txn, primary)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, ch)
		}
		return nil
	})
	if err != nil {
		return nil, mapErr("channels by referrer", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListChannels returns a snapshot of every channel record. The channels
// critical section is held for the whole scan so concurrent writers cannot
// tear the snapshot.
func (s *Store) ListChannels() ([]*model.Channel, error) {
	s.channelsMu.Lock()
	defer s.channelsMu.Unlock()

	var out []*model.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(channelKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ch model.Channel
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ch)
			}); err != nil {
				return err
			}
			c := ch
			out = append(out, &c)
		}
		return nil
	})
	if err != nil {
		return nil, mapErr("list channels", err)
	}
	return out, nil
}

// UpdateChannel re-reads the channel under the channels critical section,
// applies mutate and writes the result back while still holding the section,
// so concurrent updates of the same channel observe serialized outcomes.
// The mutate callback must not perform external calls.
func (s *Store) UpdateChannel(userID, channelID string, mutate func(*model.Channel) error) (*model.Channel, error) {
	s.channelsMu.Lock()
	defer s.channelsMu.Unlock()

	ch, err := s.getChannelLocked(userID, channelID)
	if err != nil {
		return nil, err
	}
	if err := mutate(ch); err != nil {
		return nil, err
	}
	if err := s.putChannelLocked(ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *Store) getChannelLocked(userID, channelID string) (*model.Channel, error) {
	var ch *model.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ch, err = getJSON[model.Channel](txn, channelKey(userID, channelID))
		return err
	})
	if err != nil {
		return nil, mapErr("get channel", err)
	}
	return ch, nil
}

// PutWhitelistEntry records a channel handle admitted during onboarding.
func (s *Store) PutWhitelistEntry(e *model.WhitelistEntry) error {
	s.whitelistMu.Lock()
	defer s.whitelistMu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(whitelistKeyPrefix+strings.ToLower(e.Handle)), e)
	})
	return mapErr("put whitelist entry", err)
}

// GetWhitelistEntry looks up a handle; handles compare case-insensitively.
func (s *Store) GetWhitelistEntry(handle string) (*model.WhitelistEntry, error) {
	var e *model.WhitelistEntry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getJSON[model.WhitelistEntry](txn, []byte(whitelistKeyPrefix+strings.ToLower(handle)))
		return err
	})
	if err != nil {
		return nil, mapErr("get whitelist entry", err)
	}
	return e, nil
}

// DeleteWhitelistEntry removes a handle from the whitelist.
func (s *Store) DeleteWhitelistEntry(handle string) error {
	s.whitelistMu.Lock()
	defer s.whitelistMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(whitelistKeyPrefix + strings.ToLower(handle)))
	})
	return mapErr("delete whitelist entry", err)
}
