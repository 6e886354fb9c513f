package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// OtpEnvelope is the wire envelope for the OTP endpoint. Rejections carry only
// the user-facing reason; verify successes additionally carry the grant token.
type OtpEnvelope struct {
	OK          bool       `json:"ok"`
	Reason      string     `json:"reason,omitempty"`
	AccessToken string     `json:"access_token,omitempty"`
	Email       string     `json:"email,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// MessageEnvelope is the generic response wrapper for non-OTP endpoints.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

func writeRejection(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, OtpEnvelope{OK: false, Reason: reason})
}
