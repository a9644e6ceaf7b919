// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shortforge/internal/brain"
	"github.com/tomtom215/shortforge/internal/daemon"
	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/models"
	"github.com/tomtom215/shortforge/internal/store"
)

// recentAdvisories bounds how many monitor advisories status shows per
// channel.
const recentAdvisories = 10

// channelStatusView joins the scheduler view of a channel with its
// learning state and recent recovery advisories.
type channelStatusView struct {
	daemon.ChannelStatus
	Learning   brain.ChannelReport `json:"learning"`
	Advisories []*models.Advisory  `json:"advisories,omitempty"`
}

type statusResponse struct {
	Channels []channelStatusView `json:"channels"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.sched.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	resp := statusResponse{Channels: make([]channelStatusView, 0, len(statuses))}
	for _, st := range statuses {
		advisories, err := s.advisories.ListAdvisories(r.Context(), st.ID, recentAdvisories)
		if err != nil {
			logging.Logger().Warn().Err(err).Str("channel", st.ID).Msg("listing advisories for status")
		}
		resp.Channels = append(resp.Channels, channelStatusView{
			ChannelStatus: st,
			Learning:      s.reporter.Report(r.Context(), st.ID),
			Advisories:    advisories,
		})
	}
	writeSuccess(w, resp)
}

// handleTick runs one forced scheduling pass, ignoring cadence. The pass
// starts productions asynchronously; the response does not wait for them.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	s.sched.Tick(r.Context(), true)
	writeSuccess(w, map[string]string{"tick": "started"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sched.Pause(r.Context(), id); err != nil {
		writeChannelError(w, id, err)
		return
	}
	writeSuccess(w, map[string]string{"channel": id, "state": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sched.Resume(r.Context(), id); err != nil {
		writeChannelError(w, id, err)
		return
	}
	writeSuccess(w, map[string]string{"channel": id, "state": "active"})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	logging.Logger().Info().Msg("shutdown requested via admin api")
	writeSuccess(w, map[string]string{"shutdown": "initiated"})
	if s.shutdown != nil {
		go s.shutdown()
	}
}

func writeChannelError(w http.ResponseWriter, channelID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "unknown channel "+channelID)
		return
	}
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
}
