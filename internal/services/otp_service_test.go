package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gstmate/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockOtpRepository struct {
	mock.Mock
}

func (m *MockOtpRepository) Get(ctx context.Context, email, purpose string) (*models.OtpCode, error) {
	args := m.Called(ctx, email, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OtpCode), args.Error(1)
}

func (m *MockOtpRepository) Upsert(ctx context.Context, otp *models.OtpCode) error {
	args := m.Called(ctx, otp)
	return args.Error(0)
}

func (m *MockOtpRepository) Find(ctx context.Context, email, code, purpose string) (*models.OtpCode, error) {
	args := m.Called(ctx, email, code, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OtpCode), args.Error(1)
}

func (m *MockOtpRepository) Delete(ctx context.Context, email, purpose string) error {
	args := m.Called(ctx, email, purpose)
	return args.Error(0)
}

func (m *MockOtpRepository) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendOTP(ctx context.Context, recipient, purpose, code string) error {
	args := m.Called(ctx, recipient, purpose, code)
	return args.Error(0)
}

type OtpServiceTestSuite struct {
	suite.Suite
	mockRepo   *MockOtpRepository
	mockMailer *MockMailer
	service    *otpService
	now        time.Time
	ctx        context.Context
}

func (suite *OtpServiceTestSuite) SetupTest() {
	suite.mockRepo = &MockOtpRepository{}
	suite.mockMailer = &MockMailer{}
	suite.now = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	suite.service = &otpService{
		otpRepo: suite.mockRepo,
		mailer:  suite.mockMailer,
		now:     func() time.Time { return suite.now },
	}
	suite.ctx = context.Background()

	suite.mockRepo.Test(suite.T())
	suite.mockMailer.Test(suite.T())
}

func TestOtpServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OtpServiceTestSuite))
}

func (suite *OtpServiceTestSuite) TestIssue_FirstRequest() {
	suite.mockRepo.On("Get", suite.ctx, "a@b.com", models.OtpPurposeIdentity).
		Return(nil, pgx.ErrNoRows)
	suite.mockRepo.On("Upsert", suite.ctx, mock.MatchedBy(func(otp *models.OtpCode) bool {
		return otp.Email == "a@b.com" &&
			otp.Purpose == models.OtpPurposeIdentity &&
			len(otp.Code) == 6 &&
			otp.AttemptCount == 1 &&
			otp.ExpiresAt.Equal(suite.now.Add(10*time.Minute))
	})).Return(nil)
	suite.mockMailer.On("SendOTP", suite.ctx, "a@b.com", models.OtpPurposeIdentity, mock.Anything).
		Return(nil)

	nextRetryIn, err := suite.service.Issue(suite.ctx, "a@b.com", models.OtpPurposeIdentity)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 60, nextRetryIn)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *OtpServiceTestSuite) TestIssue_InsideBackoffWindow() {
	existing := &models.OtpCode{
		Email:        "a@b.com",
		Purpose:      models.OtpPurposeIdentity,
		AttemptCount: 1,
		LastSentAt:   suite.now.Add(-30 * time.Second),
	}
	suite.mockRepo.On("Get", suite.ctx, "a@b.com", models.OtpPurposeIdentity).
		Return(existing, nil)

	_, err := suite.service.Issue(suite.ctx, "a@b.com", models.OtpPurposeIdentity)

	var rateLimited *RateLimitedError
	assert.ErrorAs(suite.T(), err, &rateLimited)
	assert.Equal(suite.T(), 30, rateLimited.RetryAfter)
	suite.mockRepo.AssertNotCalled(suite.T(), "Upsert", mock.Anything, mock.Anything)
}

func (suite *OtpServiceTestSuite) TestIssue_ReissueAfterFirstWindow() {
	existing := &models.OtpCode{
		Email:        "a@b.com",
		Purpose:      models.OtpPurposeIdentity,
		AttemptCount: 1,
		LastSentAt:   suite.now.Add(-61 * time.Second),
	}
	suite.mockRepo.On("Get", suite.ctx, "a@b.com", models.OtpPurposeIdentity).
		Return(existing, nil)
	suite.mockRepo.On("Upsert", suite.ctx, mock.MatchedBy(func(otp *models.OtpCode) bool {
		return otp.AttemptCount == 2
	})).Return(nil)
	suite.mockMailer.On("SendOTP", suite.ctx, "a@b.com", models.OtpPurposeIdentity, mock.Anything).
		Return(nil)

	nextRetryIn, err := suite.service.Issue(suite.ctx, "a@b.com", models.OtpPurposeIdentity)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 120, nextRetryIn)
}

func (suite *OtpServiceTestSuite) TestIssue_AfterBackoffWindowEscalates() {
	existing := &models.OtpCode{
		Email:        "a@b.com",
		Purpose:      models.OtpPurposeIdentity,
		AttemptCount: 2,
		LastSentAt:   suite.now.Add(-121 * time.Second),
	}
	suite.mockRepo.On("Get", suite.ctx, "a@b.com", models.OtpPurposeIdentity).
		Return(existing, nil)
	suite.mockRepo.On("Upsert", suite.ctx, mock.MatchedBy(func(otp *models.OtpCode) bool {
		return otp.AttemptCount == 3
	})).Return(nil)
	suite.mockMailer.On("SendOTP", suite.ctx, "a@b.com", models.OtpPurposeIdentity, mock.Anything).
		Return(nil)

	nextRetryIn, err := suite.service.Issue(suite.ctx, "a@b.com", models.OtpPurposeIdentity)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 300, nextRetryIn)
}

func (suite *OtpServiceTestSuite) TestIssue_BackoffClampsAtLast() {
	existing := &models.OtpCode{
		Email:        "a@b.com",
		Purpose:      models.OtpPurposeIdentity,
		AttemptCount: 9,
		LastSentAt:   suite.now.Add(-1799 * time.Second),
	}
	suite.mockRepo.On("Get", suite.ctx, "a@b.com", models.OtpPurposeIdentity).
		Return(existing, nil)

	_, err := suite.service.Issue(suite.ctx, "a@b.com", models.OtpPurposeIdentity)

	var rateLimited *RateLimitedError
	assert.ErrorAs(suite.T(), err, &rateLimited)
	assert.Equal(suite.T(), 1, rateLimited.RetryAfter)
}

func (suite *OtpServiceTestSuite) TestIssue_MailFailureIsNotFatal() {
	suite.mockRepo.On("Get", suite.ctx, "a@b.com", models.OtpPurposeIdentity).
		Return(nil, pgx.ErrNoRows)
	suite.mockRepo.On("Upsert", suite.ctx, mock.Anything).Return(nil)
	suite.mockMailer.On("SendOTP", suite.ctx, "a@b.com", models.OtpPurposeIdentity, mock.Anything).
		Return(errors.New("relay unreachable"))

	_, err := suite.service.Issue(suite.ctx, "a@b.com", models.OtpPurposeIdentity)
	assert.NoError(suite.T(), err)
}

func (suite *OtpServiceTestSuite) TestVerify_Success() {
	suite.mockRepo.On("Find", suite.ctx, "a@b.com", "123456", models.OtpPurposeIdentity).
		Return(&models.OtpCode{
			Email:     "a@b.com",
			Code:      "123456",
			ExpiresAt: suite.now.Add(5 * time.Minute),
		}, nil)

	err := suite.service.Verify(suite.ctx, "a@b.com", "123456", models.OtpPurposeIdentity)
	assert.NoError(suite.T(), err)
}

func (suite *OtpServiceTestSuite) TestVerify_WrongCode() {
	suite.mockRepo.On("Find", suite.ctx, "a@b.com", "000000", models.OtpPurposeIdentity).
		Return(nil, pgx.ErrNoRows)

	err := suite.service.Verify(suite.ctx, "a@b.com", "000000", models.OtpPurposeIdentity)
	assert.ErrorIs(suite.T(), err, ErrOtpNotFound)
}

func (suite *OtpServiceTestSuite) TestVerify_Expired() {
	suite.mockRepo.On("Find", suite.ctx, "a@b.com", "123456", models.OtpPurposeIdentity).
		Return(&models.OtpCode{
			Email:     "a@b.com",
			Code:      "123456",
			ExpiresAt: suite.now.Add(-time.Second),
		}, nil)

	err := suite.service.Verify(suite.ctx, "a@b.com", "123456", models.OtpPurposeIdentity)
	assert.ErrorIs(suite.T(), err, ErrOtpExpired)
}

func (suite *OtpServiceTestSuite) TestVerify_DoesNotConsume() {
	suite.mockRepo.On("Find", suite.ctx, "a@b.com", "123456", models.OtpPurposeIdentity).
		Return(&models.OtpCode{
			Email:     "a@b.com",
			Code:      "123456",
			ExpiresAt: suite.now.Add(5 * time.Minute),
		}, nil).Twice()

	assert.NoError(suite.T(), suite.service.Verify(suite.ctx, "a@b.com", "123456", models.OtpPurposeIdentity))
	assert.NoError(suite.T(), suite.service.Verify(suite.ctx, "a@b.com", "123456", models.OtpPurposeIdentity))
	suite.mockRepo.AssertNotCalled(suite.T(), "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequiredWait(t *testing.T) {
	assert.Equal(t, 60, requiredWait(1))
	assert.Equal(t, 120, requiredWait(2))
	assert.Equal(t, 300, requiredWait(3))
	assert.Equal(t, 600, requiredWait(4))
	assert.Equal(t, 1800, requiredWait(5))
	assert.Equal(t, 1800, requiredWait(10))
}
