// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/shortforge/internal/models"
)

// MemoryStore implements Store in process memory. It backs tests and runs
// with an empty store.path; nothing survives a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	channels   map[string]models.Channel
	videos     map[string]models.VideoRecord
	outcomes   map[string][]models.Outcome            // video ID -> outcomes
	arms       map[string]map[string]models.VariantArm // channel -> arm ID -> arm
	topics     map[string]map[string]models.TopicDocument
	predictors map[string]models.PredictorState
	advisories map[string][]models.Advisory // channel -> advisories
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		channels:   make(map[string]models.Channel),
		videos:     make(map[string]models.VideoRecord),
		outcomes:   make(map[string][]models.Outcome),
		arms:       make(map[string]map[string]models.VariantArm),
		topics:     make(map[string]map[string]models.TopicDocument),
		predictors: make(map[string]models.PredictorState),
		advisories: make(map[string][]models.Advisory),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) SaveChannel(_ context.Context, ch *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[ch.ID] = *ch
	return nil
}

func (s *MemoryStore) GetChannel(_ context.Context, id string) (*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ch, nil
}

func (s *MemoryStore) ListChannels(_ context.Context) ([]*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Channel, 0, len(s.channels))
	for id := range s.channels {
		ch := s.channels[id]
		out = append(out, &ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveVideoRecord(_ context.Context, rec *models.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) GetVideoRecord(_ context.Context, id string) (*models.VideoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) ListVideoRecords(_ context.Context, channelID string, since time.Time, limit int) ([]*models.VideoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.VideoRecord
	for id := range s.videos {
		rec := s.videos[id]
		if rec.ChannelID != channelID {
			continue
		}
		if !since.IsZero() && rec.UploadedAt.Before(since) {
			continue
		}
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveOutcome(_ context.Context, out *models.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same (video, offset) overwrites, matching badger's key semantics.
	existing := s.outcomes[out.VideoID]
	for i := range existing {
		if existing[i].Offset == out.Offset {
			existing[i] = *out
			return nil
		}
	}
	s.outcomes[out.VideoID] = append(existing, *out)
	return nil
}

func (s *MemoryStore) ListOutcomes(_ context.Context, videoID string) ([]*models.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.outcomes[videoID]
	out := make([]*models.Outcome, len(stored))
	for i := range stored {
		o := stored[i]
		out[i] = &o
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out, nil
}

func (s *MemoryStore) SaveArm(_ context.Context, arm *models.VariantArm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.arms[arm.ChannelID]
	if !ok {
		byID = make(map[string]models.VariantArm)
		s.arms[arm.ChannelID] = byID
	}
	byID[arm.ArmID] = *arm
	return nil
}

func (s *MemoryStore) ListArms(_ context.Context, channelID string) ([]*models.VariantArm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.arms[channelID]
	out := make([]*models.VariantArm, 0, len(byID))
	for id := range byID {
		arm := byID[id]
		out = append(out, &arm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArmID < out[j].ArmID })
	return out, nil
}

func (s *MemoryStore) SaveTopicDocument(_ context.Context, doc *models.TopicDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byTopic, ok := s.topics[doc.ChannelID]
	if !ok {
		byTopic = make(map[string]models.TopicDocument)
		s.topics[doc.ChannelID] = byTopic
	}
	byTopic[doc.Topic] = *doc
	return nil
}

func (s *MemoryStore) GetTopicDocument(_ context.Context, channelID, topic string) (*models.TopicDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.topics[channelID][topic]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *MemoryStore) ListTopicDocuments(_ context.Context, channelID string) ([]*models.TopicDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byTopic := s.topics[channelID]
	out := make([]*models.TopicDocument, 0, len(byTopic))
	for topic := range byTopic {
		doc := byTopic[topic]
		out = append(out, &doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}

func (s *MemoryStore) SavePredictorState(_ context.Context, st *models.PredictorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictors[st.ChannelID] = *st
	return nil
}

func (s *MemoryStore) GetPredictorState(_ context.Context, channelID string) (*models.PredictorState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.predictors[channelID]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

func (s *MemoryStore) SaveAdvisory(_ context.Context, adv *models.Advisory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advisories[adv.ChannelID] = append(s.advisories[adv.ChannelID], *adv)
	return nil
}

func (s *MemoryStore) ListAdvisories(_ context.Context, channelID string, limit int) ([]*models.Advisory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.advisories[channelID]
	out := make([]*models.Advisory, 0, len(stored))
	for i := range stored {
		adv := stored[i]
		out = append(out, &adv)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
