package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/share-gate-api/internal/domain"
	"github.com/share-gate-api/internal/pkg/id"
	"github.com/share-gate-api/internal/pkg/otpcode"
	"github.com/share-gate-api/internal/pkg/validate"
)

// SendRequest asks for a code to be emailed for one share tuple.
type SendRequest struct {
	Email     string `json:"email"`
	ShareType string `json:"share_type"`
	ShareID   string `json:"share_id"`
}

// VerifyRequest submits a received code for the same tuple.
type VerifyRequest struct {
	Email     string `json:"email"`
	ShareType string `json:"share_type"`
	ShareID   string `json:"share_id"`
	Code      string `json:"otp_code"`
}

// OtpStore is the slice of the persistence layer the service needs.
type OtpStore interface {
	Put(ctx context.Context, rec *domain.OtpRecord) error
	InvalidateOutstanding(ctx context.Context, email string, shareType domain.ShareType, shareID string) error
	FindActive(ctx context.Context, email string, shareType domain.ShareType, shareID, code string) (*domain.OtpRecord, error)
	MarkUsed(ctx context.Context, otpID string) error
}

// Mailer dispatches the code to the requester.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

// GrantSigner issues the server-checkable token returned on verification success.
type GrantSigner interface {
	Sign(email string, shareType domain.ShareType, shareID string) (string, time.Time, error)
}

// RateLimiter gates issuance per requester identity.
type RateLimiter interface {
	Allow(ctx context.Context, email string) bool
}

type Service interface {
	Send(ctx context.Context, req SendRequest) error
	Verify(ctx context.Context, req VerifyRequest) (*domain.AccessGrant, error)
}

type ServiceDeps struct {
	Otps    OtpStore
	Mailer  Mailer
	Signer  GrantSigner
	Limiter RateLimiter
	OtpTTL  time.Duration
	// Now overrides the clock; nil means time.Now. Tests use it to cross expiry.
	Now func() time.Time
}

type service struct {
	otps    OtpStore
	mailer  Mailer
	signer  GrantSigner
	limiter RateLimiter
	otpTTL  time.Duration
	now     func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ttl := deps.OtpTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &service{
		otps:    deps.Otps,
		mailer:  deps.Mailer,
		signer:  deps.Signer,
		limiter: deps.Limiter,
		otpTTL:  ttl,
		now:     now,
	}
}

// otpRecordTTL is how long rows linger before DynamoDB TTL collects them.
// Must exceed the rate window, or window counts would lose rows early.
const otpRecordTTL = 24 * time.Hour

func (s *service) Send(ctx context.Context, req SendRequest) error {
	email, shareType, err := s.checkInputs(req.Email, req.ShareType, req.ShareID)
	if err != nil {
		return err
	}

	if !s.limiter.Allow(ctx, email) {
		slog.Info("otp issuance rate limited", "email", email)
		return &domain.UserError{Reason: domain.ReasonTooManyAttempts, Err: domain.ErrRateLimited}
	}

	code, err := otpcode.New()
	if err != nil {
		slog.Error("otp code generation failed", "err", err)
		return &domain.UserError{Reason: domain.ReasonCouldNotCreate, Err: err}
	}

	now := s.now()
	rec := &domain.OtpRecord{
		OtpID:     id.New(),
		Email:     email,
		ShareType: shareType,
		ShareID:   req.ShareID,
		Code:      code,
		ExpiresAt: now.Add(s.otpTTL).Unix(),
		Used:      false,
		CreatedAt: now.UTC().Format(time.RFC3339),
		TTL:       now.Add(otpRecordTTL).Unix(),
	}

	// Invalidate must land before the insert so at most one unused code
	// exists per tuple.
	if err := s.otps.InvalidateOutstanding(ctx, email, shareType, req.ShareID); err != nil {
		slog.Error("invalidate outstanding otps failed", "email", email, "share_id", req.ShareID, "err", err)
		return &domain.UserError{Reason: domain.ReasonCouldNotCreate, Err: fmt.Errorf("%v: %w", err, domain.ErrPersistence)}
	}
	if err := s.otps.Put(ctx, rec); err != nil {
		slog.Error("create otp record failed", "email", email, "share_id", req.ShareID, "err", err)
		return &domain.UserError{Reason: domain.ReasonCouldNotCreate, Err: fmt.Errorf("%v: %w", err, domain.ErrPersistence)}
	}

	// The stored record is the source of truth. A dispatch failure leaves it
	// in place; the next send re-issues cleanly and the caller may retry.
	if err := s.mailer.SendEmail(email, mailSubject, mailBody(code, s.otpTTL)); err != nil {
		slog.Error("otp email dispatch failed", "email", email, "err", err)
		return &domain.UserError{Reason: domain.ReasonCouldNotSend, Err: fmt.Errorf("%v: %w", err, domain.ErrDispatch)}
	}

	slog.Info("otp sent", "email", email, "share_type", shareType, "share_id", req.ShareID)
	return nil
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*domain.AccessGrant, error) {
	email, shareType, err := s.checkInputs(req.Email, req.ShareType, req.ShareID)
	if err != nil {
		return nil, err
	}
	if validate.Var(req.Code, "required,len=6,numeric") != nil {
		return nil, &domain.UserError{Reason: domain.ReasonInvalidParams, Err: domain.ErrValidation}
	}

	rec, err := s.otps.FindActive(ctx, email, shareType, req.ShareID, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Same answer whether the code never existed, was consumed, or
			// belongs to another tuple.
			slog.Info("invalid otp attempt", "email", email, "share_id", req.ShareID)
			return nil, &domain.UserError{Reason: domain.ReasonInvalidCode, Err: domain.ErrInvalidCode}
		}
		slog.Error("otp lookup failed", "email", email, "err", err)
		return nil, &domain.UserError{Reason: domain.ReasonSomethingWrong, Err: fmt.Errorf("%v: %w", err, domain.ErrPersistence)}
	}

	if rec.Expired(s.now()) {
		slog.Info("expired otp attempt", "email", email, "share_id", req.ShareID)
		return nil, &domain.UserError{Reason: domain.ReasonCodeExpired, Err: domain.ErrCodeExpired}
	}

	if err := s.otps.MarkUsed(ctx, rec.OtpID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A concurrent verification won the conditional update.
			slog.Info("otp consumed concurrently", "email", email, "otp_id", rec.OtpID)
			return nil, &domain.UserError{Reason: domain.ReasonInvalidCode, Err: domain.ErrInvalidCode}
		}
		slog.Error("mark otp used failed", "otp_id", rec.OtpID, "err", err)
		return nil, &domain.UserError{Reason: domain.ReasonSomethingWrong, Err: fmt.Errorf("%v: %w", err, domain.ErrPersistence)}
	}

	token, expiresAt, err := s.signer.Sign(email, shareType, req.ShareID)
	if err != nil {
		slog.Error("grant token signing failed", "email", email, "err", err)
		return nil, &domain.UserError{Reason: domain.ReasonSomethingWrong, Err: err}
	}

	slog.Info("otp verified", "email", email, "share_type", shareType, "share_id", req.ShareID)
	return &domain.AccessGrant{AccessToken: token, Email: email, ExpiresAt: expiresAt}, nil
}

// checkInputs normalizes the email and validates the tuple. Bounds mirror the
// wire contract: email ≤254 in local@domain shape, share_id ≤50, share_type
// one of the known kinds (which also keeps it ≤20).
func (s *service) checkInputs(email, shareType, shareID string) (string, domain.ShareType, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if validate.Var(email, "required,email,max=254") != nil {
		return "", "", &domain.UserError{Reason: domain.ReasonInvalidEmail, Err: domain.ErrValidation}
	}
	st := domain.ShareType(shareType)
	if !st.Valid() {
		return "", "", &domain.UserError{Reason: domain.ReasonInvalidParams, Err: domain.ErrValidation}
	}
	if validate.Var(shareID, "required,max=50") != nil {
		return "", "", &domain.UserError{Reason: domain.ReasonInvalidParams, Err: domain.ErrValidation}
	}
	return email, st, nil
}

const mailSubject = "Din adgangskode til delte materialer"

func mailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(`<h2>Her er din adgangskode</h2>
<p>Hej! Din engangskode til at få adgang: <b style="font-size:20px">%s</b></p>
<p>Koden virker kun én gang og udløber om %d minutter.</p>
<p>- Materialedeling</p>`, code, int(ttl.Minutes()))
}
