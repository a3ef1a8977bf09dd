package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gstmate/internal/models"
	"gstmate/internal/repositories"
	"gstmate/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOtpService struct {
	mock.Mock
}

func (m *MockOtpService) Issue(ctx context.Context, email, purpose string) (int, error) {
	args := m.Called(ctx, email, purpose)
	return args.Int(0), args.Error(1)
}

func (m *MockOtpService) Verify(ctx context.Context, email, code, purpose string) error {
	args := m.Called(ctx, email, code, purpose)
	return args.Error(0)
}

func (m *MockOtpService) Consume(ctx context.Context, db repositories.Database, email, purpose string) error {
	args := m.Called(ctx, db, email, purpose)
	return args.Error(0)
}

func (m *MockOtpService) PurgeExpired(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func postJSON(e *echo.Echo, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestOtpRequest_Success(t *testing.T) {
	e := echo.New()
	otpSvc := &MockOtpService{}
	otpSvc.On("Issue", mock.Anything, "a@b.com", models.OtpPurposeIdentity).Return(60, nil)
	h := NewOtpHandlers(otpSvc)

	c, rec := postJSON(e, "/api/otp/request", `{"email":"a@b.com","type":"identity"}`)
	assert.NoError(t, h.Request(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 60, body["nextRetryIn"])
}

func TestOtpRequest_RateLimited(t *testing.T) {
	e := echo.New()
	otpSvc := &MockOtpService{}
	otpSvc.On("Issue", mock.Anything, "a@b.com", models.OtpPurposeIdentity).
		Return(0, &services.RateLimitedError{RetryAfter: 45})
	h := NewOtpHandlers(otpSvc)

	c, rec := postJSON(e, "/api/otp/request", `{"email":"a@b.com","type":"identity"}`)
	assert.NoError(t, h.Request(c))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 45, body["retryAfter"])
	assert.NotEmpty(t, body["error"])
}

func TestOtpRequest_UnknownType(t *testing.T) {
	e := echo.New()
	h := NewOtpHandlers(&MockOtpService{})

	c, _ := postJSON(e, "/api/otp/request", `{"email":"a@b.com","type":"magic"}`)
	err := h.Request(c)

	var httpErr *echo.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestOtpVerify_WrongCode(t *testing.T) {
	e := echo.New()
	otpSvc := &MockOtpService{}
	otpSvc.On("Verify", mock.Anything, "a@b.com", "000000", models.OtpPurposeIdentity).
		Return(services.ErrOtpNotFound)
	h := NewOtpHandlers(otpSvc)

	c, _ := postJSON(e, "/api/otp/verify", `{"email":"a@b.com","otp":"000000","type":"identity"}`)
	err := h.Verify(c)

	var httpErr *echo.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestOtpVerify_Success(t *testing.T) {
	e := echo.New()
	otpSvc := &MockOtpService{}
	otpSvc.On("Verify", mock.Anything, "a@b.com", "123456", models.OtpPurposeIdentity).Return(nil)
	h := NewOtpHandlers(otpSvc)

	c, rec := postJSON(e, "/api/otp/verify", `{"email":"a@b.com","otp":"123456","type":"identity"}`)
	assert.NoError(t, h.Verify(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
