package handler

import (
	"net/http"
	"strconv"

	"github.com/go-waitlist-api/internal/application/ranking"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/transport/http/middleware"
)

// StatsHandler serves the personal dashboard and the public leaderboard.
type StatsHandler struct {
	svc ranking.Service
}

func NewStatsHandler(svc ranking.Service) *StatsHandler { return &StatsHandler{svc: svc} }

func (h *StatsHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	st, err := h.svc.Stats(r.Context(), p.Email)
	if err != nil {
		writeServiceError(w, r, err, map[error]string{domain.ErrNotFound: "Email not found or not verified."})
		return
	}
	writeJSON(w, http.StatusOK, MyStatsEnvelope{
		RefCode:        st.RefCode,
		Position:       st.Position,
		TotalReferrals: st.TotalReferrals,
		Points:         st.Points,
		CurrentRank:    st.CurrentRank,
	})
}

// Leaderboard accepts ?limit=; missing or invalid means the configured maximum.
func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
