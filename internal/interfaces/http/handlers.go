package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/streakrun/internal/aggregate"
	"github.com/sawpanic/streakrun/internal/data/ingest"
	"github.com/sawpanic/streakrun/internal/streak"
	"github.com/sawpanic/streakrun/internal/trends"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Events    int       `json:"events"`
}

// SummaryResponse is returned by /summary.
type SummaryResponse struct {
	RunID     string              `json:"run_id"`
	Input     string              `json:"input"`
	Ingest    ingest.Stats        `json:"ingest"`
	FirstDate time.Time           `json:"first_date"`
	LastDate  time.Time           `json:"last_date"`
	Totals    []aggregate.Summary `json:"totals"`
	Summaries []aggregate.Summary `json:"summaries"`
}

// EventsResponse is returned by /events.
type EventsResponse struct {
	Count  int            `json:"count"`
	Events []streak.Event `json:"events"`
}

// StreaksResponse is returned by /streaks.
type StreaksResponse struct {
	Active []streak.ActiveStreak `json:"active_streaks"`
	Open   []streak.OpenWindow   `json:"open_windows"`
}

// TrendsResponse is returned by /trends.
type TrendsResponse struct {
	Trends []trends.Trend `json:"trends"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		RunID:     s.run.RunID,
		StartedAt: s.run.StartedAt,
		Events:    len(s.run.Events),
	})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SummaryResponse{
		RunID:     s.run.RunID,
		Input:     s.run.Input,
		Ingest:    s.run.Ingest,
		FirstDate: s.run.FirstDate,
		LastDate:  s.run.LastDate,
		Totals:    s.run.Totals,
		Summaries: s.run.Summaries,
	})
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	system, team := q.Get("system"), q.Get("team")

	year := 0
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		year = y
	}

	events := make([]streak.Event, 0)
	for _, ev := range s.run.Events {
		if system != "" && ev.System != system {
			continue
		}
		if team != "" && ev.Team != team {
			continue
		}
		if year != 0 && ev.Year != year {
			continue
		}
		events = append(events, ev)
	}
	writeJSON(w, http.StatusOK, EventsResponse{Count: len(events), Events: events})
}

func (s *Server) streaks(w http.ResponseWriter, r *http.Request) {
	resp := StreaksResponse{
		Active: s.run.ActiveStreaks,
		Open:   s.run.OpenWindows,
	}
	if resp.Active == nil {
		resp.Active = []streak.ActiveStreak{}
	}
	if resp.Open == nil {
		resp.Open = []streak.OpenWindow{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) trends(w http.ResponseWriter, r *http.Request) {
	resp := TrendsResponse{Trends: s.run.Trends}
	if resp.Trends == nil {
		resp.Trends = []trends.Trend{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, http.StatusNotFound, "not found: "+r.URL.Path)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: status})
}
