// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/sessions"

	"github.com/danielhkuo/pb-portal/middleware"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/rubric"
	"github.com/danielhkuo/pb-portal/store"
)

type ResultsHandler struct {
	base
}

func NewResultsHandler(st store.Store, ss *sessions.CookieStore) *ResultsHandler {
	return &ResultsHandler{base{st: st, sessions: ss}}
}

// compute builds the aggregated results table for the applications the
// caller may see. Admins see every area; committee members see their
// own area plus Cross-Area.
func (h *ResultsHandler) compute(r *http.Request, u models.User, threshold int) ([]models.AppResult, error) {
	areaFilter := ""
	if u.Role == models.RoleCommittee {
		areaFilter = u.Area
	} else if q := r.URL.Query().Get("area"); q != "" {
		areaFilter = q
	}

	apps, err := h.st.GetApplications(r.Context(), areaFilter)
	if err != nil {
		return nil, err
	}
	scores, err := h.st.GetScores(r.Context())
	if err != nil {
		return nil, err
	}

	byApp := make(map[string][]models.Score)
	for _, s := range scores {
		byApp[s.AppID] = append(byApp[s.AppID], s)
	}

	results := make([]models.AppResult, 0, len(apps))
	for _, app := range apps {
		res := models.AppResult{
			AppID:           app.ID,
			Ref:             app.Ref,
			ProjectTitle:    app.ProjectTitle,
			Area:            app.Area,
			Status:          app.Status,
			AmountRequested: app.AmountRequested,
			Scorers:         []models.ScorerResult{},
		}

		var sum float64
		for _, s := range byApp[app.ID] {
			name := s.ScorerName
			if name == "" {
				name = "Unknown"
			}
			res.Scorers = append(res.Scorers, models.ScorerResult{
				ScorerID:   s.ScorerID,
				ScorerName: name,
				Total:      s.Total,
				IsFinal:    s.IsFinal,
			})
			sum += s.Total
		}
		sort.Slice(res.Scorers, func(i, j int) bool {
			return res.Scorers[i].ScorerName < res.Scorers[j].ScorerName
		})

		res.ScorerCount = len(res.Scorers)
		if res.ScorerCount > 0 {
			res.Average = sum / float64(res.ScorerCount)
		}
		res.Band = rubric.Band(res.Average, threshold)
		results = append(results, res)
	}

	// Highest-scoring first; ties break on reference for a stable table.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Average != results[j].Average {
			return results[i].Average > results[j].Average
		}
		return results[i].Ref < results[j].Ref
	})
	return results, nil
}

func parseThreshold(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return rubric.DefaultThreshold, nil
	}
	t, err := strconv.Atoi(raw)
	if err != nil || t < 0 || t > 100 {
		return 0, fmt.Errorf("threshold must be a whole number between 0 and 100")
	}
	return t, nil
}

// Get handles GET /results?threshold=&area=
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireRole(w, r, models.RoleCommittee, models.RoleAdmin)
	if !ok {
		return
	}
	threshold, err := parseThreshold(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.compute(r, u, threshold)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Threshold: threshold,
		Results:   results,
	})
}

// Export handles GET /results/export: the same table as Get, rendered
// as a CSV download for the decision-day paperwork.
func (h *ResultsHandler) Export(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireRole(w, r, models.RoleCommittee, models.RoleAdmin)
	if !ok {
		return
	}
	threshold, err := parseThreshold(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.compute(r, u, threshold)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Ref", "Project", "Area", "Status", "Amount Requested", "Scorers", "Average", "Band"})
	for _, res := range results {
		_ = cw.Write([]string{
			res.Ref,
			res.ProjectTitle,
			res.Area,
			res.Status,
			"£" + humanize.CommafWithDigits(res.AmountRequested, 2),
			strconv.Itoa(res.ScorerCount),
			strconv.FormatFloat(res.Average, 'f', 1, 64),
			res.Band,
		})
	}
	cw.Flush()
}
