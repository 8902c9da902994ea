package handler

import (
	"encoding/json"
	"net/http"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	RefCode string `json:"refCode,omitempty"`
}

// FinalizeEnvelope is returned by the finalize endpoint.
type FinalizeEnvelope struct {
	Success bool   `json:"success"`
	State   string `json:"state"`
}

// WaitStatusEnvelope is the poll target for waiting tabs.
type WaitStatusEnvelope struct {
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// LookupStatsEnvelope is the OTP lookup view of an entrant's stats.
type LookupStatsEnvelope struct {
	RefCode        string `json:"refCode"`
	CurrentRank    int    `json:"currentRank"`
	TotalReferrals int    `json:"totalReferrals"`
	Points         int    `json:"points"`
}

// MyStatsEnvelope is the dashboard view of an entrant's stats.
type MyStatsEnvelope struct {
	RefCode        string `json:"refCode"`
	Position       int    `json:"position"`
	TotalReferrals int    `json:"totalReferrals"`
	Points         int    `json:"points"`
	CurrentRank    int    `json:"currentRank"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
