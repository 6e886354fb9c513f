package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/share-gate-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockOtpStore struct{ mock.Mock }

func (m *mockOtpStore) Put(ctx context.Context, rec *domain.OtpRecord) error {
	return m.Called(ctx, rec).Error(0)
}
func (m *mockOtpStore) InvalidateOutstanding(ctx context.Context, email string, shareType domain.ShareType, shareID string) error {
	return m.Called(ctx, email, shareType, shareID).Error(0)
}
func (m *mockOtpStore) FindActive(ctx context.Context, email string, shareType domain.ShareType, shareID, code string) (*domain.OtpRecord, error) {
	args := m.Called(ctx, email, shareType, shareID, code)
	if rec, _ := args.Get(0).(*domain.OtpRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOtpStore) MarkUsed(ctx context.Context, otpID string) error {
	return m.Called(ctx, otpID).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, htmlBody string) error {
	return m.Called(to, subject, htmlBody).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(email string, shareType domain.ShareType, shareID string) (string, time.Time, error) {
	args := m.Called(email, shareType, shareID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type staticLimiter bool

func (l staticLimiter) Allow(context.Context, string) bool { return bool(l) }

// --- builder ---

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store OtpStore, mailer Mailer, signer GrantSigner, limiter RateLimiter) Service {
	return NewService(ServiceDeps{
		Otps:    store,
		Mailer:  mailer,
		Signer:  signer,
		Limiter: limiter,
		OtpTTL:  5 * time.Minute,
		Now:     func() time.Time { return testNow },
	})
}

// --- Send ---

func TestSend_IssuesAndEmailsCode(t *testing.T) {
	store := &mockOtpStore{}
	mailer := &mockMailer{}

	var created *domain.OtpRecord
	store.On("InvalidateOutstanding", mock.Anything, "user@test.dk", domain.ShareTypeFile, "abc123").Return(nil)
	store.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.OtpRecord)
	}).Return(nil)
	mailer.On("SendEmail", "user@test.dk", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, mailer, nil, staticLimiter(true))
	err := svc.Send(context.Background(), SendRequest{
		Email:     "  User@Test.DK ", // normalization: trimmed, lowercased
		ShareType: "file",
		ShareID:   "abc123",
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, "user@test.dk", created.Email)
	assert.Equal(t, domain.ShareTypeFile, created.ShareType)
	assert.Equal(t, "abc123", created.ShareID)
	assert.Len(t, created.Code, 6)
	assert.False(t, created.Used)
	assert.Equal(t, testNow.Add(5*time.Minute).Unix(), created.ExpiresAt)

	// The email must carry the exact persisted code.
	htmlBody := mailer.Calls[0].Arguments.String(2)
	assert.Contains(t, htmlBody, created.Code)
	assert.Contains(t, htmlBody, "5 minutter")
	store.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestSend_InvalidatesBeforeCreating(t *testing.T) {
	store := &mockOtpStore{}
	mailer := &mockMailer{}

	invalidated := false
	store.On("InvalidateOutstanding", mock.Anything, "a@b.dk", domain.ShareTypeFolder, "f1").Run(func(mock.Arguments) {
		invalidated = true
	}).Return(nil)
	store.On("Put", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		assert.True(t, invalidated, "Put ran before InvalidateOutstanding")
	}).Return(nil)
	mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, mailer, nil, staticLimiter(true))
	err := svc.Send(context.Background(), SendRequest{Email: "a@b.dk", ShareType: "folder", ShareID: "f1"})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSend_RejectsMalformedEmail(t *testing.T) {
	svc := newTestService(&mockOtpStore{}, &mockMailer{}, nil, staticLimiter(true))

	for _, email := range []string{"", "no-at-sign", "a b@c.dk", strings.Repeat("x", 250) + "@a.dk"} {
		err := svc.Send(context.Background(), SendRequest{Email: email, ShareType: "file", ShareID: "abc"})
		require.Error(t, err, "email %q accepted", email)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.ReasonInvalidEmail, domain.UserReason(err))
	}
}

func TestSend_RejectsBadTuple(t *testing.T) {
	svc := newTestService(&mockOtpStore{}, &mockMailer{}, nil, staticLimiter(true))

	cases := []SendRequest{
		{Email: "a@b.dk", ShareType: "document", ShareID: "abc"}, // unknown type
		{Email: "a@b.dk", ShareType: "", ShareID: "abc"},
		{Email: "a@b.dk", ShareType: "file", ShareID: ""},
		{Email: "a@b.dk", ShareType: "file", ShareID: strings.Repeat("x", 51)},
	}
	for _, req := range cases {
		err := svc.Send(context.Background(), req)
		require.Error(t, err, "request %+v accepted", req)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.ReasonInvalidParams, domain.UserReason(err))
	}
}

func TestSend_RateLimited(t *testing.T) {
	store := &mockOtpStore{}
	svc := newTestService(store, &mockMailer{}, nil, staticLimiter(false))

	err := svc.Send(context.Background(), SendRequest{Email: "a@b.dk", ShareType: "file", ShareID: "abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, domain.ReasonTooManyAttempts, domain.UserReason(err))
	// Denial has no side effects.
	store.AssertNotCalled(t, "InvalidateOutstanding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSend_PersistenceFailureSkipsEmail(t *testing.T) {
	store := &mockOtpStore{}
	mailer := &mockMailer{}
	store.On("InvalidateOutstanding", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	svc := newTestService(store, mailer, nil, staticLimiter(true))
	err := svc.Send(context.Background(), SendRequest{Email: "a@b.dk", ShareType: "file", ShareID: "abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, domain.ReasonCouldNotCreate, domain.UserReason(err))
	mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_DispatchFailureIsRetryable(t *testing.T) {
	store := &mockOtpStore{}
	mailer := &mockMailer{}
	store.On("InvalidateOutstanding", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Put", mock.Anything, mock.Anything).Return(nil)
	mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp refused"))

	svc := newTestService(store, mailer, nil, staticLimiter(true))
	err := svc.Send(context.Background(), SendRequest{Email: "a@b.dk", ShareType: "file", ShareID: "abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDispatch)
	assert.Equal(t, domain.ReasonCouldNotSend, domain.UserReason(err))
}

// --- Verify ---

func activeRecord() *domain.OtpRecord {
	return &domain.OtpRecord{
		OtpID:     "01TESTULID",
		Email:     "user@test.dk",
		ShareType: domain.ShareTypeFile,
		ShareID:   "abc123",
		Code:      "123456",
		ExpiresAt: testNow.Add(2 * time.Minute).Unix(),
		CreatedAt: testNow.Add(-3 * time.Minute).UTC().Format(time.RFC3339),
	}
}

func TestVerify_SuccessReturnsGrant(t *testing.T) {
	store := &mockOtpStore{}
	signer := &mockSigner{}
	rec := activeRecord()
	expiresAt := testNow.Add(30 * time.Minute)

	store.On("FindActive", mock.Anything, "user@test.dk", domain.ShareTypeFile, "abc123", "123456").Return(rec, nil)
	store.On("MarkUsed", mock.Anything, "01TESTULID").Return(nil)
	signer.On("Sign", "user@test.dk", domain.ShareTypeFile, "abc123").Return("signed-token", expiresAt, nil)

	svc := newTestService(store, &mockMailer{}, signer, staticLimiter(true))
	grant, err := svc.Verify(context.Background(), VerifyRequest{
		Email: "User@test.dk", ShareType: "file", ShareID: "abc123", Code: "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "signed-token", grant.AccessToken)
	assert.Equal(t, "user@test.dk", grant.Email)
	assert.Equal(t, expiresAt, grant.ExpiresAt)
	store.AssertExpectations(t)
}

func TestVerify_UnknownCodeIsUniformlyInvalid(t *testing.T) {
	store := &mockOtpStore{}
	store.On("FindActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("active otp: %w", domain.ErrNotFound))

	svc := newTestService(store, &mockMailer{}, &mockSigner{}, staticLimiter(true))
	_, err := svc.Verify(context.Background(), VerifyRequest{
		Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: "654321",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	assert.Equal(t, domain.ReasonInvalidCode, domain.UserReason(err))
	store.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything)
}

func TestVerify_ExpiredCodeIsDistinguishable(t *testing.T) {
	store := &mockOtpStore{}
	rec := activeRecord()
	rec.ExpiresAt = testNow.Add(-time.Second).Unix()
	store.On("FindActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(rec, nil)

	svc := newTestService(store, &mockMailer{}, &mockSigner{}, staticLimiter(true))
	_, err := svc.Verify(context.Background(), VerifyRequest{
		Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: "123456",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
	assert.Equal(t, domain.ReasonCodeExpired, domain.UserReason(err))
	store.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything)
}

func TestVerify_LostMarkUsedRaceIsInvalid(t *testing.T) {
	store := &mockOtpStore{}
	store.On("FindActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(activeRecord(), nil)
	store.On("MarkUsed", mock.Anything, "01TESTULID").Return(fmt.Errorf("otp already used: %w", domain.ErrNotFound))

	svc := newTestService(store, &mockMailer{}, &mockSigner{}, staticLimiter(true))
	_, err := svc.Verify(context.Background(), VerifyRequest{
		Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: "123456",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestVerify_RejectsBadCodeShape(t *testing.T) {
	svc := newTestService(&mockOtpStore{}, &mockMailer{}, &mockSigner{}, staticLimiter(true))

	for _, code := range []string{"", "12345", "1234567", "12a456", "12 456"} {
		_, err := svc.Verify(context.Background(), VerifyRequest{
			Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: code,
		})
		require.Error(t, err, "code %q accepted", code)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

// --- end-to-end against an in-memory store ---

// memStore implements OtpStore with the same atomicity the DynamoDB repo
// provides: MarkUsed is a conditional flip that only one caller can win.
type memStore struct {
	mu   sync.Mutex
	recs map[string]*domain.OtpRecord
}

func newMemStore() *memStore { return &memStore{recs: make(map[string]*domain.OtpRecord)} }

func (s *memStore) Put(_ context.Context, rec *domain.OtpRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.recs[rec.OtpID] = &cp
	return nil
}

func (s *memStore) InvalidateOutstanding(_ context.Context, email string, shareType domain.ShareType, shareID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.recs {
		if !r.Used && r.Email == email && r.ShareType == shareType && r.ShareID == shareID {
			delete(s.recs, id)
		}
	}
	return nil
}

func (s *memStore) FindActive(_ context.Context, email string, shareType domain.ShareType, shareID, code string) (*domain.OtpRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if !r.Used && r.Email == email && r.ShareType == shareType && r.ShareID == shareID && r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("active otp: %w", domain.ErrNotFound)
}

func (s *memStore) MarkUsed(_ context.Context, otpID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[otpID]
	if !ok || r.Used {
		return fmt.Errorf("otp already used: %w", domain.ErrNotFound)
	}
	r.Used = true
	return nil
}

func (s *memStore) unusedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recs {
		if !r.Used {
			n++
		}
	}
	return n
}

// codeCapturingMailer records the last code it was asked to deliver.
type codeCapturingMailer struct {
	mu   sync.Mutex
	code string
}

func (m *codeCapturingMailer) SendEmail(_, _, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i+6 <= len(htmlBody); i++ {
		if isSixDigits(htmlBody[i : i+6]) {
			m.code = htmlBody[i : i+6]
			return nil
		}
	}
	return nil
}

func isSixDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) == 6
}

type staticSigner struct{}

func (staticSigner) Sign(string, domain.ShareType, string) (string, time.Time, error) {
	return "grant-token", testNow.Add(30 * time.Minute), nil
}

func TestRoundTrip_SendThenVerify(t *testing.T) {
	store := newMemStore()
	mailer := &codeCapturingMailer{}
	svc := newTestService(store, mailer, staticSigner{}, staticLimiter(true))
	ctx := context.Background()

	req := SendRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123"}
	require.NoError(t, svc.Send(ctx, req))
	require.True(t, isSixDigits(mailer.code), "no code reached the mailer")

	// A near-miss code fails with the uniform message.
	wrong := "000000"
	if mailer.code == wrong {
		wrong = "000001"
	}
	_, err := svc.Verify(ctx, VerifyRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: wrong})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	// The delivered code succeeds once...
	grant, err := svc.Verify(ctx, VerifyRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: mailer.code})
	require.NoError(t, err)
	assert.Equal(t, "grant-token", grant.AccessToken)

	// ...and never again, even before expiry.
	_, err = svc.Verify(ctx, VerifyRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: mailer.code})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestReissue_LeavesSingleOutstandingCode(t *testing.T) {
	store := newMemStore()
	mailer := &codeCapturingMailer{}
	svc := newTestService(store, mailer, staticSigner{}, staticLimiter(true))
	ctx := context.Background()

	req := SendRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123"}
	require.NoError(t, svc.Send(ctx, req))
	first := mailer.code
	require.NoError(t, svc.Send(ctx, req))

	assert.Equal(t, 1, store.unusedCount())
	// The replaced code no longer verifies.
	_, err := svc.Verify(ctx, VerifyRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: first})
	if first != mailer.code {
		assert.ErrorIs(t, err, domain.ErrInvalidCode)
	}
}

func TestVerify_ExpiryCrossedBetweenSendAndVerify(t *testing.T) {
	store := newMemStore()
	mailer := &codeCapturingMailer{}
	svc := newTestService(store, mailer, staticSigner{}, staticLimiter(true))
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, SendRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123"}))

	// Same store, clock moved past the 5-minute validity.
	late := NewService(ServiceDeps{
		Otps: store, Mailer: mailer, Signer: staticSigner{}, Limiter: staticLimiter(true),
		OtpTTL: 5 * time.Minute,
		Now:    func() time.Time { return testNow.Add(6 * time.Minute) },
	})
	_, err := late.Verify(ctx, VerifyRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: mailer.code})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
	assert.Equal(t, domain.ReasonCodeExpired, domain.UserReason(err))
}

func TestVerify_ConcurrentAttemptsYieldOneSuccess(t *testing.T) {
	store := newMemStore()
	mailer := &codeCapturingMailer{}
	svc := newTestService(store, mailer, staticSigner{}, staticLimiter(true))
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, SendRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123"}))

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(ctx, VerifyRequest{Email: "user@test.dk", ShareType: "file", ShareID: "abc123", Code: mailer.code})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, invalid := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInvalidCode):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent verification may win")
	assert.Equal(t, attempts-1, invalid)
}
