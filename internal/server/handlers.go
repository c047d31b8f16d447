package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foliowatch/foliowatch/internal/modules/holdings"
	"github.com/foliowatch/foliowatch/internal/sync"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListHoldings returns all holdings for an owner.
// GET /api/owners/{ownerID}/holdings
func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	list, err := s.deps.Holdings.List(ownerID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleCreateHolding creates a holding for an owner.
// POST /api/owners/{ownerID}/holdings
func (s *Server) handleCreateHolding(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	var input holdings.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	input.OwnerID = ownerID

	h, err := s.deps.Holdings.Create(input)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, h)
}

// handleGetHolding returns one holding.
// GET /api/owners/{ownerID}/holdings/{holdingID}
func (s *Server) handleGetHolding(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	holdingID := chi.URLParam(r, "holdingID")

	h, err := s.deps.Holdings.Get(ownerID, holdingID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if h == nil {
		s.writeError(w, http.StatusNotFound, errors.New("holding not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

// handleUpdateHolding applies owner edits to a holding.
// PUT /api/owners/{ownerID}/holdings/{holdingID}
func (s *Server) handleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	holdingID := chi.URLParam(r, "holdingID")

	var input holdings.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	h, err := s.deps.Holdings.Update(ownerID, holdingID, input)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if h == nil {
		s.writeError(w, http.StatusNotFound, errors.New("holding not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

// handleDeleteHolding removes a holding.
// DELETE /api/owners/{ownerID}/holdings/{holdingID}
func (s *Server) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	holdingID := chi.URLParam(r, "holdingID")

	deleted, err := s.deps.Holdings.Delete(ownerID, holdingID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		s.writeError(w, http.StatusNotFound, errors.New("holding not found"))
		return
	}

	// When the last holding goes, drop the owner's pass feedback too.
	// The centralized job no longer visits this owner, so it would never
	// be replaced.
	remaining, err := s.deps.Holdings.List(ownerID)
	if err == nil && len(remaining) == 0 {
		s.deps.Feedback.Forget(ownerID)
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRefreshHolding fetches and reconciles one holding immediately.
// Unlike pass failures, a fetch error here surfaces inline to the caller.
// POST /api/owners/{ownerID}/holdings/{holdingID}/refresh
func (s *Server) handleRefreshHolding(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	holdingID := chi.URLParam(r, "holdingID")

	hs, err := s.deps.Engine.RefreshOne(r.Context(), ownerID, holdingID)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	if hs == nil {
		s.writeError(w, http.StatusNotFound, errors.New("holding not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, hs)
}

// handleRunSync triggers a sync pass for one owner.
// POST /api/owners/{ownerID}/sync/run
func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	// A started pass always runs to completion; a client disconnect must
	// not leave a half-reconciled batch behind
	result, err := s.deps.Engine.RunPass(context.WithoutCancel(r.Context()), ownerID)
	if errors.Is(err, sync.ErrPassInProgress) {
		s.writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "skipped",
			"message": "a sync pass is already running for this owner",
		})
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.deps.Feedback.Publish(ownerID, result.Holdings)
	if _, err := s.deps.Snapshots.MaybeSnapshotToday(ownerID); err != nil {
		s.log.Error().Err(err).Str("owner_id", ownerID).Msg("Snapshot after manual sync failed")
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleSyncFeedback returns the owner's latest pass outcome.
// GET /api/owners/{ownerID}/sync/feedback
func (s *Server) handleSyncFeedback(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	fb, ok := s.deps.Feedback.Get(ownerID)
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("no sync pass has run for this owner yet"))
		return
	}
	s.writeJSON(w, http.StatusOK, fb)
}

// handleListSnapshots returns the owner's snapshot history.
// GET /api/owners/{ownerID}/snapshots
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	list, err := s.deps.Snapshots.List(ownerID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleGetSettings returns the owner's settings.
// GET /api/owners/{ownerID}/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	all, err := s.deps.Settings.GetAll(ownerID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"settings":                all,
		"alert_threshold_percent": s.deps.Settings.AlertThreshold(ownerID),
	})
}

// handleSetAlertThreshold stores the owner's alert threshold override.
// PUT /api/owners/{ownerID}/settings/alert-threshold
func (s *Server) handleSetAlertThreshold(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	var body struct {
		ThresholdPercent float64 `json:"threshold_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.ThresholdPercent < 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("threshold_percent must be >= 0"))
		return
	}

	if err := s.deps.Settings.SetAlertThreshold(ownerID, body.ThresholdPercent); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]float64{
		"alert_threshold_percent": body.ThresholdPercent,
	})
}

// handleTriggerPriceSync runs the centralized all-owners job immediately.
// POST /api/jobs/price-sync
func (s *Server) handleTriggerPriceSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.SyncJob == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("price sync job not registered"))
		return
	}

	s.log.Info().Msg("Manual price sync triggered")
	if err := s.deps.Scheduler.RunNow(s.deps.SyncJob); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Price sync completed",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
