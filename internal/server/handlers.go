package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/cache"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/quota"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/search"
	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

const maxBodyBytes = 64 << 10

type scrapeRequest struct {
	Keyword      string `json:"keyword"`
	Location     string `json:"location"`
	Category     string `json:"category"`
	Scope        string `json:"scope"`
	SubArea      string `json:"subArea"`
	UserID       string `json:"userId"`
	ForceRefresh bool   `json:"forceRefresh"`
}

type scrapeResponse struct {
	Success   bool         `json:"success"`
	Cached    bool         `json:"cached"`
	Results   []model.Lead `json:"results"`
	Count     int          `json:"count"`
	Duration  int64        `json:"duration"` // milliseconds
	APICalls  int          `json:"apiCalls"`
	Remaining *int64       `json:"remainingCredits,omitempty"`
	RequestID string       `json:"requestId"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg, RequestID: RequestID(r.Context())})
}

func (s *Server) requireSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(SecretHeader)
		if s.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing or invalid "+SecretHeader+" header")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(zap.String("request_id", RequestID(r.Context())))

	var body scrapeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be a JSON object")
		return
	}

	scope, err := model.ParseScope(body.Scope)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	category := body.Category
	if category == "" {
		category = model.CategoryCustom
	}
	req, err := model.NewSearchRequest(body.Keyword, category, body.Location, scope, body.SubArea)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// A user with nothing left may still read the cache but never triggers
	// live provider calls.
	balance, err := s.accountant.Balance(r.Context(), body.UserID)
	if err != nil {
		log.Error("reading credits", zap.String("user_id", body.UserID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "billing_failed", "could not read credit balance")
		return
	}
	opts := search.Options{
		ForceRefresh: body.ForceRefresh,
		CacheOnly:    balance != quota.Unmetered && balance <= 0,
	}

	resp, err := s.searcher.Search(r.Context(), req, opts)
	if err != nil {
		var verr *model.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		case errors.Is(err, search.ErrNotCached):
			writeError(w, r, http.StatusPaymentRequired, "insufficient_credits", "not enough credits for this search")
			return
		}
		log.Error("scrape failed", zap.String("keyword", req.Keyword), zap.String("location", req.Location), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "scrape_failed", err.Error())
		return
	}

	out := scrapeResponse{
		Success:   true,
		Cached:    resp.Cached,
		Results:   resp.Results,
		Count:     len(resp.Results),
		Duration:  resp.Duration.Milliseconds(),
		APICalls:  resp.APICalls,
		RequestID: RequestID(r.Context()),
	}

	if resp.APICalls > 0 {
		remaining, err := s.accountant.Debit(r.Context(), body.UserID, resp.APICalls)
		switch {
		case errors.Is(err, quota.ErrInsufficientCredits):
			// The user could not pay for this fetch, so its results must not
			// come back later as a free cache hit.
			if err := s.searcher.ClearCache(r.Context(), req.Keyword, req.Location); err != nil && !errors.Is(err, cache.ErrNotFound) {
				log.Warn("expiring unpaid results", zap.String("keyword", req.Keyword), zap.String("location", req.Location), zap.Error(err))
			}
			writeError(w, r, http.StatusPaymentRequired, "insufficient_credits", "not enough credits for this search")
			return
		case err != nil:
			log.Error("debiting credits", zap.String("user_id", body.UserID), zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, "billing_failed", "could not record search cost")
			return
		case remaining != quota.Unmetered:
			out.Remaining = &remaining
		}
	}

	writeJSON(w, http.StatusOK, out)
}

type healthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Provider string `json:"provider"`
	Time     string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	h := healthResponse{
		Status:   "ok",
		Store:    "connected",
		Provider: s.searcher.Provider(),
		Time:     time.Now().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err := s.searcher.Ping(ctx); err != nil {
		s.log.Warn("store unreachable", zap.Error(err))
		h.Status = "degraded"
		h.Store = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}
