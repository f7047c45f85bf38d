package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/eivindh/finnscan/internal/config"
	"github.com/eivindh/finnscan/internal/history"
	"github.com/eivindh/finnscan/internal/report"
	"github.com/eivindh/finnscan/internal/scan"
	"github.com/eivindh/finnscan/internal/storage"
	"github.com/eivindh/finnscan/internal/types"
)

const maxProfilesBody = 1 << 20 // 1 MiB

// jobView is one history entry flattened for the dashboard.
type jobView struct {
	types.Listing
	AnalyzedDate string `json:"analyzed_date"`
}

// handleListJobs returns the analyzed-jobs history, optionally filtered by
// profile, sorted by analysis date then score, newest and best first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	hist, err := history.Load(r.Context(), s.blob)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	profileFilter := r.URL.Query().Get("profile")

	jobs := []jobView{}
	for profileID, entries := range hist.All() {
		if profileFilter != "" && profileID != profileFilter {
			continue
		}
		for id, e := range entries {
			jobs = append(jobs, jobView{
				Listing: types.Listing{
					ID:        id,
					ProfileID: profileID,
					Title:     e.Title,
					Company:   e.Company,
					Location:  e.Location,
					URL:       e.URL,
					Score:     e.Score,
					Rationale: e.Rationale,
					Status:    string(e.Status),
				},
				AnalyzedDate: e.AnalyzedDate,
			})
		}
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].AnalyzedDate != jobs[j].AnalyzedDate {
			return jobs[i].AnalyzedDate > jobs[j].AnalyzedDate
		}
		return jobs[i].Score > jobs[j].Score
	})

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// handleListReports returns the reports index, date descending.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	raw, err := s.blob.Get(r.Context(), storage.KeyReportsIndex)
	if err == storage.ErrNotFound {
		s.jsonResponse(w, http.StatusOK, []any{})
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load reports index")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		log.Printf("Error writing reports index: %v", err)
	}
}

// handleGetReport serves one rendered markdown report.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if _, err := report.ParseFilenameDate(filename); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid report filename")
		return
	}

	content, err := s.blob.Get(r.Context(), storage.ReportPrefix+filename)
	if err == storage.ErrNotFound {
		s.errorResponse(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		log.Printf("Error writing report: %v", err)
	}
}

// handleGetProfiles returns the raw profiles config, or an empty object
// when none is uploaded yet.
func (s *Server) handleGetProfiles(w http.ResponseWriter, r *http.Request) {
	raw, err := s.blob.Get(r.Context(), storage.KeyProfiles)
	if err == storage.ErrNotFound {
		s.jsonResponse(w, http.StatusOK, map[string]any{})
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load profiles")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		log.Printf("Error writing profiles: %v", err)
	}
}

// handlePutProfiles validates and replaces the profiles config, refreshing
// the dashboard metadata mirror.
func (s *Server) handlePutProfiles(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProfilesBody))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	profiles, err := config.ParseProfiles(body)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			s.errorResponse(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "invalid profiles format")
		return
	}

	if err := s.blob.Put(r.Context(), storage.KeyProfiles, profiles.Raw()); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to save profiles")
		return
	}
	if err := scan.WriteProfilesMeta(r.Context(), s.blob, profiles); err != nil {
		log.Printf("Error writing profiles metadata: %v", err)
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Profiles saved successfully"})
}

// handleListNotifications returns notifications, unread first.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items, err := s.notify.List(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	unread, err := s.notify.UnreadCount(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"notifications": items,
		"unread":        unread,
	})
}

// handleMarkNotificationRead marks one notification read.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notify.MarkRead(r.Context(), r.PathValue("id")); err != nil {
		s.errorResponse(w, http.StatusNotFound, "notification not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Notification marked read"})
}

// handleMarkAllNotificationsRead marks every notification read.
func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notify.MarkAllRead(r.Context()); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to update notifications")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "All notifications marked read"})
}

// handleListRuns returns the bounded run history, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.logbook.History(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load run history")
		return
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

// handleCurrentRun returns the live run log.
func (s *Server) handleCurrentRun(w http.ResponseWriter, r *http.Request) {
	runLog, err := s.logbook.Current(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load run log")
		return
	}
	if runLog == nil {
		s.errorResponse(w, http.StatusNotFound, "no runs yet")
		return
	}
	s.jsonResponse(w, http.StatusOK, runLog)
}

// handleTriggerScan starts a manual scan in the background. A second
// trigger while one is active gets 409.
func (s *Server) handleTriggerScan(w http.ResponseWriter, _ *http.Request) {
	if !s.runGuard.TryAcquire(1) {
		s.errorResponse(w, http.StatusConflict, "a scan is already running")
		return
	}

	start := s.now()
	go func() {
		defer s.runGuard.Release(1)
		if _, err := s.runner.RunAt(context.Background(), scan.SourceManual, start); err != nil {
			log.Printf("Manual scan failed: %v", err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, map[string]string{
		"message": "Scan started",
		"run_id":  start.Format(scan.RunIDFormat),
	})
}
