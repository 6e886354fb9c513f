package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/share-gate-api/internal/domain"
)

// Client talks to the share gate API and keeps the proof cache current.
type Client struct {
	baseURL string
	http    *http.Client
	gate    *Gate
}

func New(baseURL string, gate *Gate) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		gate:    gate,
	}
}

// Gate exposes the session gate backing this client.
func (c *Client) Gate() *Gate { return c.gate }

type otpRequest struct {
	Email     string `json:"email"`
	ShareType string `json:"share_type"`
	ShareID   string `json:"share_id"`
	Action    string `json:"action"`
	Code      string `json:"otp_code,omitempty"`
}

type otpResponse struct {
	OK          bool      `json:"ok"`
	Reason      string    `json:"reason"`
	AccessToken string    `json:"access_token"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SendCode requests a one-time code for the tuple, emailed to email.
func (c *Client) SendCode(ctx context.Context, email string, shareType domain.ShareType, shareID string) error {
	_, err := c.post(ctx, otpRequest{
		Email:     email,
		ShareType: string(shareType),
		ShareID:   shareID,
		Action:    "send",
	})
	return err
}

// VerifyCode submits a received code. On success the grant is cached so the
// gate admits subsequent navigations until it expires.
func (c *Client) VerifyCode(ctx context.Context, email string, shareType domain.ShareType, shareID, code string) (*AccessProof, error) {
	resp, err := c.post(ctx, otpRequest{
		Email:     email,
		ShareType: string(shareType),
		ShareID:   shareID,
		Action:    "verify",
		Code:      code,
	})
	if err != nil {
		return nil, err
	}
	proof := AccessProof{
		Token:     resp.AccessToken,
		Email:     resp.Email,
		ExpiresAt: resp.ExpiresAt,
	}
	if err := c.gate.Store(shareType, shareID, proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

func (c *Client) post(ctx context.Context, body otpRequest) (*otpResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/otp", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call otp endpoint: %w", err)
	}
	defer httpResp.Body.Close()

	var resp otpResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode otp response: %w", err)
	}
	if !resp.OK {
		if resp.Reason == "" {
			resp.Reason = domain.ReasonSomethingWrong
		}
		return nil, errors.New(resp.Reason)
	}
	return &resp, nil
}
