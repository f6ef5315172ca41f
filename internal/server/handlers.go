package server

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"gamestats/internal/session"
	"gamestats/internal/stats"

	"golang.org/x/text/language"
)

type newPlayerRequest struct {
	Referrer   string `json:"referrer" validate:"max=512"`
	Language   string `json:"language" validate:"max=64"`
	ScreenSize string `json:"screenSize" validate:"max=32"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=64"`
}

type levelRequest struct {
	SessionID    string `json:"sessionId" validate:"required,max=64"`
	Level        int    `json:"level" validate:"required,min=1,max=10"`
	AttemptCount int    `json:"attemptCount" validate:"min=0"`
}

type playerRecordRequest struct {
	SessionID   string `json:"sessionId" validate:"required,max=64"`
	PlayerName  string `json:"playerName" validate:"max=32"`
	Level       int    `json:"level" validate:"required,min=1,max=10"`
	Deaths      int    `json:"deaths" validate:"min=0"`
	IsCompleted bool   `json:"isCompleted"`
}

type gameCompleteRequest struct {
	SessionID   string      `json:"sessionId" validate:"required,max=64"`
	PlayerName  string      `json:"playerName" validate:"required,max=32"`
	TotalDeaths int         `json:"totalDeaths" validate:"min=0"`
	LevelDeaths map[int]int `json:"levelDeaths" validate:"max=10,dive,keys,min=1,max=10,endkeys,min=0"`
	CompletedAt *time.Time  `json:"completedAt"`
}

func (s *Server) handleNewPlayer(w http.ResponseWriter, r *http.Request) {
	var req newPlayerRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	lang := req.Language
	if lang == "" {
		lang = preferredLanguage(r.Header.Get("Accept-Language"))
	}

	id, err := s.Stats.RecordNewPlayer(r.Context(), session.Meta{
		UserAgent:  r.UserAgent(),
		IPAddress:  clientIP(r),
		Referrer:   req.Referrer,
		Language:   lang,
		ScreenSize: req.ScreenSize,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response{Success: true, SessionID: id, Message: "new player recorded"})
}

func (s *Server) handleGameStart(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Stats.RecordGameStart(r.Context(), req.SessionID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "game start recorded")
}

func (s *Server) handleLevelAttempt(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Stats.RecordLevelAttempt(r.Context(), req.SessionID, req.Level, req.AttemptCount); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "level attempt recorded")
}

func (s *Server) handleLevelComplete(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Stats.RecordLevelComplete(r.Context(), req.SessionID, req.Level, req.AttemptCount); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "level completion recorded")
}

func (s *Server) handleKeyCollected(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Stats.RecordKeyCollected(r.Context(), req.SessionID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "key collection recorded")
}

func (s *Server) handleCEOPromotion(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Stats.RecordCEOPromotion(r.Context(), req.SessionID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "CEO promotion recorded")
}

func (s *Server) handlePlayerRecord(w http.ResponseWriter, r *http.Request) {
	var req playerRecordRequest
	if !s.decode(w, r, &req) {
		return
	}
	_, err := s.Stats.UpdatePlayerProgress(r.Context(), req.SessionID, req.PlayerName, req.Level, req.Deaths, req.IsCompleted)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "player record updated")
}

func (s *Server) handleGameComplete(w http.ResponseWriter, r *http.Request) {
	var req gameCompleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	gc := stats.GameCompletion{
		SessionID:   req.SessionID,
		PlayerName:  req.PlayerName,
		TotalDeaths: req.TotalDeaths,
		LevelDeaths: req.LevelDeaths,
	}
	if req.CompletedAt != nil {
		gc.CompletedAt = *req.CompletedAt
	}
	if _, err := s.Stats.RecordGameComplete(r.Context(), gc); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "game completion recorded")
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	view, err := s.Stats.GetLeaderboard(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response{Success: true, Data: view.Board, Degraded: view.Degraded})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"database":  s.Stats.Mode(),
		"state":     s.Stats.State(),
	})
}

// clientIP is the request's remote host; RealIP has already applied
// forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// preferredLanguage returns the first tag of an Accept-Language header.
func preferredLanguage(header string) string {
	if header == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}
