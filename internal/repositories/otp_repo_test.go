package repositories

import (
	"context"
	"testing"
	"time"

	"gstmate/internal/models"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type OtpRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    OtpRepository
	context context.Context
}

func (suite *OtpRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewOtpRepo(mock)
	suite.context = context.Background()
}

func (suite *OtpRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestOtpRepoTestSuite(t *testing.T) {
	suite.Run(t, new(OtpRepoTestSuite))
}

func (suite *OtpRepoTestSuite) TestUpsert_ReplacesExistingCode() {
	now := time.Now()
	otp := &models.OtpCode{
		Email:        "a@b.com",
		Purpose:      models.OtpPurposeIdentity,
		Code:         "123456",
		ExpiresAt:    now.Add(10 * time.Minute),
		AttemptCount: 2,
		LastSentAt:   now,
	}

	suite.mock.ExpectExec(`INSERT INTO otp_codes .+ ON CONFLICT \(email, purpose\) DO UPDATE`).
		WithArgs(otp.Email, otp.Purpose, otp.Code, otp.ExpiresAt, otp.AttemptCount, otp.LastSentAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Upsert(suite.context, otp)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *OtpRepoTestSuite) TestFind_ExactTripleMatch() {
	now := time.Now()
	suite.mock.ExpectQuery(`SELECT .+ FROM otp_codes WHERE email = \$1 AND code = \$2 AND purpose = \$3`).
		WithArgs("a@b.com", "123456", models.OtpPurposeIdentity).
		WillReturnRows(pgxmock.NewRows([]string{"email", "purpose", "code", "expires_at", "attempt_count", "last_sent_at"}).
			AddRow("a@b.com", models.OtpPurposeIdentity, "123456", now.Add(5*time.Minute), 1, now))

	otp, err := suite.repo.Find(suite.context, "a@b.com", "123456", models.OtpPurposeIdentity)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "123456", otp.Code)
}

func (suite *OtpRepoTestSuite) TestFind_NoMatch() {
	suite.mock.ExpectQuery(`SELECT .+ FROM otp_codes`).
		WithArgs("a@b.com", "000000", models.OtpPurposeIdentity).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.Find(suite.context, "a@b.com", "000000", models.OtpPurposeIdentity)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
}

func (suite *OtpRepoTestSuite) TestPurgeExpired_KeepsGracePeriod() {
	suite.mock.ExpectExec(`DELETE FROM otp_codes WHERE expires_at < NOW\(\) - INTERVAL '1 hour'`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	purged, err := suite.repo.PurgeExpired(suite.context)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), purged)
}
