package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/internal/usecase"
	"go.uber.org/zap"
)

type recordRankRequest struct {
	CustomerID   string `json:"customerId"`
	SlotSequence int    `json:"slotSequence"`
	Keyword      string `json:"keyword"`
	LinkURL      string `json:"linkUrl"`
	Platform     string `json:"platform"`
	CurrentRank  *int   `json:"currentRank"`
}

type recordRankResponse struct {
	CustomerID    string    `json:"customerId"`
	SlotSequence  int       `json:"slotSequence"`
	CurrentRank   *int      `json:"currentRank"`
	StartRank     *int      `json:"startRank"`
	RankChange    int       `json:"rankChange"`
	StartRankDiff int       `json:"startRankDiff"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// handleRecordRank ingests one externally resolved rank observation.
func (s *Server) handleRecordRank(w http.ResponseWriter, r *http.Request) {
	var req recordRankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CustomerID == "" || req.SlotSequence <= 0 {
		s.respondWithError(w, http.StatusBadRequest, "customerId and slotSequence are required")
		return
	}
	if req.CurrentRank != nil && *req.CurrentRank <= 0 {
		s.respondWithError(w, http.StatusBadRequest, "currentRank must be positive when present")
		return
	}

	obs, entry, err := s.recorder.RecordObservation(r.Context(), usecase.Observation{
		CustomerID:   req.CustomerID,
		SlotSequence: req.SlotSequence,
		Keyword:      req.Keyword,
		LinkURL:      req.LinkURL,
		Platform:     entity.Platform(req.Platform),
		Rank:         req.CurrentRank,
	})
	if err != nil {
		s.logger.Error("failed to record rank observation", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not record observation")
		return
	}

	s.respondWithJSON(w, http.StatusOK, recordRankResponse{
		CustomerID:    obs.CustomerID,
		SlotSequence:  obs.SlotSequence,
		CurrentRank:   obs.CurrentRank,
		StartRank:     obs.StartRank,
		RankChange:    entry.RankChange,
		StartRankDiff: entry.StartRankDiff,
		UpdatedAt:     obs.UpdatedAt,
	})
}

type historyEntryResponse struct {
	ChangeDate    time.Time `json:"changeDate"`
	Rank          *int      `json:"rank"`
	RankChange    int       `json:"rankChange"`
	StartRankDiff int       `json:"startRankDiff"`
}

// handleRankHistory returns the recorded rank series for one slot, oldest
// first.
func (s *Server) handleRankHistory(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		s.respondWithError(w, http.StatusBadRequest, "customerId query parameter is required")
		return
	}
	slotSequence, err := strconv.Atoi(r.URL.Query().Get("slotSequence"))
	if err != nil || slotSequence <= 0 {
		s.respondWithError(w, http.StatusBadRequest, "slotSequence must be a positive integer")
		return
	}

	entries, err := s.recorder.History(r.Context(), customerID, slotSequence)
	if err != nil {
		s.logger.Error("failed to load rank history", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not retrieve history")
		return
	}

	history := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		history = append(history, historyEntryResponse{
			ChangeDate:    e.ObservedAt,
			Rank:          e.Rank,
			RankChange:    e.RankChange,
			StartRankDiff: e.StartRankDiff,
		})
	}

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"customerId":   customerID,
		"slotSequence": slotSequence,
		"history":      history,
	})
}

// handleCooldownStatus reports the authoritative remaining lock time for an
// operator. Clients cache the answer but must treat this as the truth.
func (s *Server) handleCooldownStatus(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		s.respondWithError(w, http.StatusBadRequest, "username query parameter is required")
		return
	}

	remaining, err := s.gate.Remaining(r.Context(), username)
	if err != nil {
		s.logger.Error("failed to query cooldown", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not query cooldown")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cooldownRemaining": int(remaining.Seconds()),
	})
}

type rankUpdateRequest struct {
	Username string  `json:"username"`
	Platform string  `json:"platform"`
	SlotIDs  []int64 `json:"slotIds"`
}

// handleRankUpdate is the manual refresh trigger: gate, then enqueue one
// tracking task per selected slot.
func (s *Server) handleRankUpdate(w http.ResponseWriter, r *http.Request) {
	var req rankUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Platform == "" {
		s.respondWithError(w, http.StatusBadRequest, "username and platform are required")
		return
	}

	result, err := s.trigger.Trigger(r.Context(), req.Username, entity.Platform(req.Platform), req.SlotIDs)
	if err != nil {
		if errors.Is(err, usecase.ErrNoTrackedSlots) {
			s.respondWithError(w, http.StatusNotFound, "No tracked slots for this platform")
			return
		}
		s.logger.Error("manual refresh failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not trigger refresh")
		return
	}

	if !result.Accepted {
		s.respondWithJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"accepted":          false,
			"cooldownRemaining": int(result.Remaining.Seconds()),
		})
		return
	}

	s.respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted": true,
		"count":    result.Count,
	})
}

type trafficSchedulerRequest struct {
	Action string `json:"action"`
}

// handleTrafficScheduler lets an external scheduler drive the traffic
// simulator in addition to the built-in cron.
func (s *Server) handleTrafficScheduler(w http.ResponseWriter, r *http.Request) {
	var req trafficSchedulerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		updated int
		err     error
	)
	switch req.Action {
	case "increment":
		updated, err = s.traffic.Tick(r.Context())
	case "daily_reset":
		updated, err = s.traffic.DailyReset(r.Context())
	default:
		s.respondWithError(w, http.StatusBadRequest, "action must be 'increment' or 'daily_reset'")
		return
	}
	if err != nil {
		s.logger.Error("traffic scheduler action failed",
			zap.String("action", req.Action),
			zap.Error(err),
		)
		s.respondWithError(w, http.StatusInternalServerError, "Traffic update failed")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"action":  req.Action,
		"updated": updated,
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.pgStore.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if err := s.redisStore.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	if healthStatus["postgres"] != "healthy" || healthStatus["redis"] != "healthy" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}

	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
