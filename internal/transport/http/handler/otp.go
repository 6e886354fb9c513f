package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/share-gate-api/internal/application/otp"
	"github.com/share-gate-api/internal/domain"
)

// OtpHandler serves the single OTP endpoint. The request body carries an
// action discriminator selecting between the send and verify flows.
type OtpHandler struct {
	svc otp.Service
}

func NewOtpHandler(svc otp.Service) *OtpHandler {
	return &OtpHandler{svc: svc}
}

type otpRequest struct {
	Email     string `json:"email"`
	ShareType string `json:"share_type"`
	ShareID   string `json:"share_id"`
	Action    string `json:"action"`
	Code      string `json:"otp_code"`
}

func (h *OtpHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRejection(w, http.StatusBadRequest, domain.ReasonInvalidParams)
		return
	}

	switch req.Action {
	case "send":
		if err := h.svc.Send(r.Context(), otp.SendRequest{
			Email:     req.Email,
			ShareType: req.ShareType,
			ShareID:   req.ShareID,
		}); err != nil {
			writeRejection(w, http.StatusBadRequest, domain.UserReason(err))
			return
		}
		writeJSON(w, http.StatusOK, OtpEnvelope{OK: true})

	case "verify":
		grant, err := h.svc.Verify(r.Context(), otp.VerifyRequest{
			Email:     req.Email,
			ShareType: req.ShareType,
			ShareID:   req.ShareID,
			Code:      req.Code,
		})
		if err != nil {
			// Wrong or expired codes are a normal part of the flow and answer
			// 200 with ok=false, like the reference UI expects. Everything
			// else is a rejection.
			if errors.Is(err, domain.ErrInvalidCode) || errors.Is(err, domain.ErrCodeExpired) {
				writeRejection(w, http.StatusOK, domain.UserReason(err))
				return
			}
			writeRejection(w, http.StatusBadRequest, domain.UserReason(err))
			return
		}
		writeJSON(w, http.StatusOK, OtpEnvelope{
			OK:          true,
			AccessToken: grant.AccessToken,
			Email:       grant.Email,
			ExpiresAt:   &grant.ExpiresAt,
		})

	default:
		writeRejection(w, http.StatusBadRequest, domain.ReasonInvalidAction)
	}
}
