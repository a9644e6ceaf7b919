// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/models"
)

// BadgerStore implements Store on BadgerDB. All entities are serialized as
// JSON values; ordered iteration over key prefixes provides the range
// queries without a query engine.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty; we log open/close ourselves

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}

	logging.Info().Str("path", path).Msg("store opened")
	return &BadgerStore{db: db}, nil
}

// Close flushes and closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// put serializes v and writes it at key.
func (s *BadgerStore) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// get reads key and deserializes into v. Returns ErrNotFound for missing keys.
func (s *BadgerStore) get(key []byte, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// scan iterates all values under prefix in key order, deserializing each
// into a fresh T and passing it to fn. fn returning false stops the scan.
func scan[T any](s *BadgerStore, prefix []byte, fn func(*T) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			})
			if err != nil {
				return err
			}
			if !fn(&v) {
				return nil
			}
		}
		return nil
	})
}

func (s *BadgerStore) SaveChannel(_ context.Context, ch *models.Channel) error {
	return s.put(channelKey(ch.ID), ch)
}

func (s *BadgerStore) GetChannel(_ context.Context, id string) (*models.Channel, error) {
	var ch models.Channel
	if err := s.get(channelKey(id), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *BadgerStore) ListChannels(_ context.Context) ([]*models.Channel, error) {
	var out []*models.Channel
	err := scan(s, []byte(prefixChannel), func(ch *models.Channel) bool {
		out = append(out, ch)
		return true
	})
	return out, err
}

func (s *BadgerStore) SaveVideoRecord(_ context.Context, rec *models.VideoRecord) error {
	if err := s.put(videoKey(rec.ID), rec); err != nil {
		return err
	}
	// Index entry stores only the video ID; the record is the source of truth.
	return s.put(videoIdxKey(rec.ChannelID, rec.UploadedAt, rec.ID), rec.ID)
}

func (s *BadgerStore) GetVideoRecord(_ context.Context, id string) (*models.VideoRecord, error) {
	var rec models.VideoRecord
	if err := s.get(videoKey(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerStore) ListVideoRecords(ctx context.Context, channelID string, since time.Time, limit int) ([]*models.VideoRecord, error) {
	var ids []string
	err := scan(s, videoIdxPrefix(channelID), func(id *string) bool {
		ids = append(ids, *id)
		return true
	})
	if err != nil {
		return nil, err
	}

	var out []*models.VideoRecord
	for _, id := range ids {
		rec, err := s.GetVideoRecord(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // index entry outlived its record
			}
			return nil, err
		}
		if !since.IsZero() && rec.UploadedAt.Before(since) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *BadgerStore) SaveOutcome(_ context.Context, out *models.Outcome) error {
	return s.put(outcomeKey(out.VideoID, out.Offset), out)
}

func (s *BadgerStore) ListOutcomes(_ context.Context, videoID string) ([]*models.Outcome, error) {
	var out []*models.Outcome
	err := scan(s, outcomePrefix(videoID), func(o *models.Outcome) bool {
		out = append(out, o)
		return true
	})
	return out, err
}

func (s *BadgerStore) SaveArm(_ context.Context, arm *models.VariantArm) error {
	return s.put(armKey(arm.ChannelID, arm.ArmID), arm)
}

func (s *BadgerStore) ListArms(_ context.Context, channelID string) ([]*models.VariantArm, error) {
	var out []*models.VariantArm
	err := scan(s, armPrefix(channelID), func(a *models.VariantArm) bool {
		out = append(out, a)
		return true
	})
	return out, err
}

func (s *BadgerStore) SaveTopicDocument(_ context.Context, doc *models.TopicDocument) error {
	return s.put(topicKey(doc.ChannelID, doc.Topic), doc)
}

func (s *BadgerStore) GetTopicDocument(_ context.Context, channelID, topic string) (*models.TopicDocument, error) {
	var doc models.TopicDocument
	if err := s.get(topicKey(channelID, topic), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *BadgerStore) ListTopicDocuments(_ context.Context, channelID string) ([]*models.TopicDocument, error) {
	var out []*models.TopicDocument
	err := scan(s, topicPrefix(channelID), func(d *models.TopicDocument) bool {
		out = append(out, d)
		return true
	})
	return out, err
}

func (s *BadgerStore) SavePredictorState(_ context.Context, st *models.PredictorState) error {
	return s.put(predictorKey(st.ChannelID), st)
}

func (s *BadgerStore) GetPredictorState(_ context.Context, channelID string) (*models.PredictorState, error) {
	var st models.PredictorState
	if err := s.get(predictorKey(channelID), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *BadgerStore) SaveAdvisory(_ context.Context, adv *models.Advisory) error {
	return s.put(advisoryKey(adv.ChannelID, adv.CreatedAt, adv.VideoID), adv)
}

func (s *BadgerStore) ListAdvisories(_ context.Context, channelID string, limit int) ([]*models.Advisory, error) {
	var out []*models.Advisory
	err := scan(s, advisoryPrefix(channelID), func(a *models.Advisory) bool {
		out = append(out, a)
		return limit <= 0 || len(out) < limit
	})
	return out, err
}

var _ Store = (*BadgerStore)(nil)
