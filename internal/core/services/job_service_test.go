package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
	"github.com/stemtide/stemtide_backend/internal/core/domain"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/core/services"
)

// --- Mock JobRepository (based on JobService usage) ---
type MockJobRepository struct {
	mock.Mock
	CreateJobWithDebitFn func(ctx context.Context, job domain.Job, debit domain.CreditTransaction) (*domain.CreditTransaction, error)
	FindJobByIDFn        func(ctx context.Context, jobID string) (*domain.Job, error)
}

func (m *MockJobRepository) CreateJobWithDebit(ctx context.Context, job domain.Job, debit domain.CreditTransaction) (*domain.CreditTransaction, error) {
	if m.CreateJobWithDebitFn != nil {
		return m.CreateJobWithDebitFn(ctx, job, debit)
	}
	args := m.Called(ctx, job, debit)
	var txn *domain.CreditTransaction
	if args.Get(0) != nil {
		txn = args.Get(0).(*domain.CreditTransaction)
	}
	return txn, args.Error(1)
}

func (m *MockJobRepository) FindJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if m.FindJobByIDFn != nil {
		return m.FindJobByIDFn(ctx, jobID)
	}
	args := m.Called(ctx, jobID)
	var job *domain.Job
	if args.Get(0) != nil {
		job = args.Get(0).(*domain.Job)
	}
	return job, args.Error(1)
}

func (m *MockJobRepository) ListJobsByUserID(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Job, *string, error) {
	args := m.Called(ctx, userID, limit, nextToken)
	var jobs []domain.Job
	if args.Get(0) != nil {
		jobs = args.Get(0).([]domain.Job)
	}
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	return jobs, next, args.Error(2)
}

func (m *MockJobRepository) MarkJobStarted(ctx context.Context, jobID string, now time.Time) error {
	args := m.Called(ctx, jobID, now)
	return args.Error(0)
}

func (m *MockJobRepository) MarkJobCompleted(ctx context.Context, jobID string, resultKey string, now time.Time) error {
	args := m.Called(ctx, jobID, resultKey, now)
	return args.Error(0)
}

func (m *MockJobRepository) MarkJobFailedWithRefund(ctx context.Context, jobID string, errorMessage string, now time.Time) error {
	args := m.Called(ctx, jobID, errorMessage, now)
	return args.Error(0)
}

func (m *MockJobRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	var tx pgx.Tx
	if args.Get(0) != nil {
		tx = args.Get(0).(pgx.Tx)
	}
	return tx, args.Error(1)
}

func (m *MockJobRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockJobRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Test Suite ---
type JobServiceTestSuite struct {
	suite.Suite
	mockJobRepo *MockJobRepository
	service     portssvc.JobSvcFacade
}

func (suite *JobServiceTestSuite) SetupTest() {
	suite.mockJobRepo = new(MockJobRepository)
	suite.service = services.NewJobService(suite.mockJobRepo, services.JobCosts{
		Separation:    decimal.RequireFromString("1.0"),
		Transcription: decimal.RequireFromString("1.0"),
	})
}

// --- CreateJob Tests ---

func (suite *JobServiceTestSuite) TestCreateJob_SeparationDefaults() {
	ctx := context.Background()
	userID := uuid.NewString()

	suite.mockJobRepo.CreateJobWithDebitFn = func(ctx context.Context, job domain.Job, debit domain.CreditTransaction) (*domain.CreditTransaction, error) {
		suite.Equal(domain.JobPending, job.Status)
		suite.Equal(domain.ModelHTDemucs, job.Options.Model)
		suite.Equal(domain.FormatMP3, job.Options.OutputFormat)
		suite.True(job.Cost.Equal(decimal.RequireFromString("1.0")))
		suite.True(debit.Amount.Equal(decimal.RequireFromString("-1.0")))
		suite.Require().NotNil(debit.JobID)
		suite.Equal(job.JobID, *debit.JobID, "debit entry must reference the job it pays for")
		applied := debit
		applied.BalanceAfter = decimal.RequireFromString("2.0")
		return &applied, nil
	}

	job, err := suite.service.CreateJob(ctx, userID, "song.mp3", "uploads/song.mp3", domain.JobOptions{
		JobType: domain.JobTypeSeparation,
	})

	suite.Require().NoError(err)
	suite.Require().NotNil(job)
	suite.Equal(domain.JobPending, job.Status)
	suite.NotEmpty(job.JobID)
}

func (suite *JobServiceTestSuite) TestCreateJob_InsufficientCredits() {
	ctx := context.Background()

	suite.mockJobRepo.On("CreateJobWithDebit", ctx, mock.AnythingOfType("domain.Job"), mock.AnythingOfType("domain.CreditTransaction")).
		Return(nil, apperrors.ErrInsufficientCredits).Once()

	job, err := suite.service.CreateJob(ctx, uuid.NewString(), "song.mp3", "uploads/song.mp3", domain.JobOptions{
		JobType: domain.JobTypeSeparation,
	})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInsufficientCredits)
	suite.Nil(job)
}

func (suite *JobServiceTestSuite) TestCreateJob_TranscriptionWithLyricsFormat() {
	ctx := context.Background()

	suite.mockJobRepo.CreateJobWithDebitFn = func(ctx context.Context, job domain.Job, debit domain.CreditTransaction) (*domain.CreditTransaction, error) {
		suite.Equal(domain.TranscriptionLyrics, job.Options.TranscriptionType)
		suite.Equal(domain.TranscriptionLRC, job.Options.TranscriptionFormat)
		applied := debit
		return &applied, nil
	}

	job, err := suite.service.CreateJob(ctx, uuid.NewString(), "song.mp3", "uploads/song.mp3", domain.JobOptions{
		JobType:             domain.JobTypeTranscription,
		TranscriptionType:   domain.TranscriptionLyrics,
		TranscriptionFormat: domain.TranscriptionLRC,
	})

	suite.Require().NoError(err)
	suite.Require().NotNil(job)
}

func (suite *JobServiceTestSuite) TestCreateJob_RejectsAudioFormatForTranscription() {
	ctx := context.Background()

	job, err := suite.service.CreateJob(ctx, uuid.NewString(), "song.mp3", "uploads/song.mp3", domain.JobOptions{
		JobType:             domain.JobTypeTranscription,
		TranscriptionFormat: domain.TranscriptionFormat("wav"),
	})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(job)
	suite.mockJobRepo.AssertNotCalled(suite.T(), "CreateJobWithDebit", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JobServiceTestSuite) TestCreateJob_RequiresFilename() {
	ctx := context.Background()

	job, err := suite.service.CreateJob(ctx, uuid.NewString(), "", "uploads/x", domain.JobOptions{
		JobType: domain.JobTypeSeparation,
	})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(job)
}

// --- Transition Tests ---

func (suite *JobServiceTestSuite) TestMarkStarted_Success() {
	ctx := context.Background()
	jobID := uuid.NewString()

	suite.mockJobRepo.On("MarkJobStarted", ctx, jobID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.MarkStarted(ctx, jobID)

	suite.Require().NoError(err)
	suite.mockJobRepo.AssertExpectations(suite.T())
}

func (suite *JobServiceTestSuite) TestMarkStarted_InvalidTransition() {
	ctx := context.Background()
	jobID := uuid.NewString()

	suite.mockJobRepo.On("MarkJobStarted", ctx, jobID, mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrInvalidTransition).Once()

	err := suite.service.MarkStarted(ctx, jobID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *JobServiceTestSuite) TestMarkCompleted_RequiresResultKey() {
	ctx := context.Background()

	err := suite.service.MarkCompleted(ctx, uuid.NewString(), "")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockJobRepo.AssertNotCalled(suite.T(), "MarkJobCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JobServiceTestSuite) TestMarkCompleted_Success() {
	ctx := context.Background()
	jobID := uuid.NewString()

	suite.mockJobRepo.On("MarkJobCompleted", ctx, jobID, "results/"+jobID+".zip", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.MarkCompleted(ctx, jobID, "results/"+jobID+".zip")

	suite.Require().NoError(err)
	suite.mockJobRepo.AssertExpectations(suite.T())
}

func (suite *JobServiceTestSuite) TestMarkFailed_RefundsThroughRepository() {
	ctx := context.Background()
	jobID := uuid.NewString()

	suite.mockJobRepo.On("MarkJobFailedWithRefund", ctx, jobID, "engine crashed", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.MarkFailed(ctx, jobID, "engine crashed")

	suite.Require().NoError(err)
	suite.mockJobRepo.AssertExpectations(suite.T())
}

// --- GetJob Tests ---

func (suite *JobServiceTestSuite) TestGetJob_OwnerSeesJob() {
	ctx := context.Background()
	userID := uuid.NewString()
	jobID := uuid.NewString()
	stored := &domain.Job{JobID: jobID, UserID: userID, Status: domain.JobCompleted}

	suite.mockJobRepo.On("FindJobByID", ctx, jobID).Return(stored, nil).Once()

	job, err := suite.service.GetJob(ctx, jobID, userID)

	suite.Require().NoError(err)
	suite.Equal(stored, job)
}

func (suite *JobServiceTestSuite) TestGetJob_ForeignJobLooksNonexistent() {
	ctx := context.Background()
	jobID := uuid.NewString()
	stored := &domain.Job{JobID: jobID, UserID: uuid.NewString(), Status: domain.JobCompleted}

	suite.mockJobRepo.On("FindJobByID", ctx, jobID).Return(stored, nil).Once()

	job, err := suite.service.GetJob(ctx, jobID, uuid.NewString())

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(job)
}

func (suite *JobServiceTestSuite) TestGetJob_NotFound() {
	ctx := context.Background()
	jobID := uuid.NewString()

	suite.mockJobRepo.On("FindJobByID", ctx, jobID).Return(nil, apperrors.ErrNotFound).Once()

	job, err := suite.service.GetJob(ctx, jobID, uuid.NewString())

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(job)
}

func TestJobServiceTestSuite(t *testing.T) {
	suite.Run(t, new(JobServiceTestSuite))
}
