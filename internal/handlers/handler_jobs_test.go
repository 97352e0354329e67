package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
	"github.com/stemtide/stemtide_backend/internal/core/domain"
	"github.com/stemtide/stemtide_backend/internal/core/ports"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/dto"
	"github.com/stemtide/stemtide_backend/internal/handlers"
	"github.com/stemtide/stemtide_backend/internal/middleware"
	"github.com/stemtide/stemtide_backend/internal/utils"
)

// --- Mock JobService ---
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) CreateJob(ctx context.Context, userID, filename, objectKey string, opts domain.JobOptions) (*domain.Job, error) {
	args := m.Called(ctx, userID, filename, objectKey, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobService) MarkStarted(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockJobService) MarkCompleted(ctx context.Context, jobID string, resultKey string) error {
	args := m.Called(ctx, jobID, resultKey)
	return args.Error(0)
}

func (m *MockJobService) MarkFailed(ctx context.Context, jobID string, errorMessage string) error {
	args := m.Called(ctx, jobID, errorMessage)
	return args.Error(0)
}

func (m *MockJobService) GetJob(ctx context.Context, jobID, requestingUserID string) (*domain.Job, error) {
	args := m.Called(ctx, jobID, requestingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobService) ListJobs(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Job, *string, error) {
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

var _ portssvc.JobSvcFacade = (*MockJobService)(nil)

// --- Mock ObjectStorage ---
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (*url.URL, error) {
	args := m.Called(ctx, key, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

func (m *MockObjectStorage) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var _ ports.ObjectStorage = (*MockObjectStorage)(nil)

// --- Mock JobPublisher ---
type MockJobPublisher struct {
	mock.Mock
}

func (m *MockJobPublisher) PublishJobQueued(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockJobPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ ports.JobPublisher = (*MockJobPublisher)(nil)

// --- Test Suite ---
type JobsHandlerTestSuite struct {
	suite.Suite
	router         *gin.Engine
	mockJobService *MockJobService
	mockStorage    *MockObjectStorage
	mockPublisher  *MockJobPublisher
	jwtSecret      string
	userID         string
}

func (suite *JobsHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.userID = uuid.NewString()

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret))

	suite.mockJobService = new(MockJobService)
	suite.mockStorage = new(MockObjectStorage)
	suite.mockPublisher = new(MockJobPublisher)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterJobsRoutes(v1, suite.mockJobService, suite.mockStorage, suite.mockPublisher)
}

func (suite *JobsHandlerTestSuite) authHeader() string {
	token, err := utils.GenerateJWT(suite.userID, suite.jwtSecret, time.Hour, "test")
	suite.Require().NoError(err)
	return "Bearer " + token
}

func (suite *JobsHandlerTestSuite) multipartUpload(fields map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "song.mp3")
	suite.Require().NoError(err)
	_, err = fw.Write([]byte("fake audio bytes"))
	suite.Require().NoError(err)
	for k, v := range fields {
		suite.Require().NoError(mw.WriteField(k, v))
	}
	suite.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", suite.authHeader())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Upload ---

func (suite *JobsHandlerTestSuite) TestUpload_Success() {
	jobID := uuid.NewString()
	job := &domain.Job{
		JobID:    jobID,
		UserID:   suite.userID,
		Filename: "song.mp3",
		Options: domain.JobOptions{
			JobType:      domain.JobTypeSeparation,
			Model:        domain.ModelHTDemucs,
			OutputFormat: domain.FormatMP3,
		},
		Status:    domain.JobPending,
		Cost:      decimal.RequireFromString("1.0"),
		CreatedAt: time.Now().UTC(),
	}

	suite.mockStorage.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, int64(16), mock.AnythingOfType("string")).
		Return(nil).Once()
	suite.mockJobService.On("CreateJob", mock.Anything, suite.userID, "song.mp3", mock.AnythingOfType("string"), mock.AnythingOfType("domain.JobOptions")).
		Return(job, nil).Once()
	suite.mockPublisher.On("PublishJobQueued", mock.Anything, jobID).Return(nil).Once()

	w := suite.multipartUpload(map[string]string{"job_type": "separation"})

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.JobResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(jobID, resp.JobID)
	suite.Equal("pending", resp.Status)
	suite.mockJobService.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *JobsHandlerTestSuite) TestUpload_InsufficientCredits() {
	suite.mockStorage.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.AnythingOfType("int64"), mock.AnythingOfType("string")).
		Return(nil).Once()
	suite.mockJobService.On("CreateJob", mock.Anything, suite.userID, "song.mp3", mock.AnythingOfType("string"), mock.AnythingOfType("domain.JobOptions")).
		Return(nil, fmt.Errorf("create job: %w", apperrors.ErrInsufficientCredits)).Once()
	// The orphaned upload gets cleaned up
	suite.mockStorage.On("Remove", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()

	w := suite.multipartUpload(nil)

	suite.Equal(http.StatusPaymentRequired, w.Code)
	suite.mockStorage.AssertExpectations(suite.T())
	suite.mockPublisher.AssertNotCalled(suite.T(), "PublishJobQueued", mock.Anything, mock.Anything)
}

func (suite *JobsHandlerTestSuite) TestUpload_MissingFile() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", nil)
	req.Header.Set("Authorization", suite.authHeader())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
}

// --- Status ---

func (suite *JobsHandlerTestSuite) TestStatus_CompletedIncludesDownloadURL() {
	jobID := uuid.NewString()
	job := &domain.Job{
		JobID:     jobID,
		UserID:    suite.userID,
		Filename:  "song.mp3",
		ResultKey: "results/" + jobID + ".zip",
		Options:   domain.JobOptions{JobType: domain.JobTypeSeparation},
		Status:    domain.JobCompleted,
		Cost:      decimal.RequireFromString("1.0"),
	}
	signed, _ := url.Parse("https://storage.example.com/results/" + jobID + ".zip?sig=abc")

	suite.mockJobService.On("GetJob", mock.Anything, jobID, suite.userID).Return(job, nil).Once()
	suite.mockStorage.On("PresignedGetURL", mock.Anything, job.ResultKey, mock.AnythingOfType("time.Duration")).
		Return(signed, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/"+jobID, nil)
	req.Header.Set("Authorization", suite.authHeader())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.JobResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("completed", resp.Status)
	suite.Equal(signed.String(), resp.DownloadURL)
}

func (suite *JobsHandlerTestSuite) TestStatus_ForeignJobIs404() {
	jobID := uuid.NewString()

	suite.mockJobService.On("GetJob", mock.Anything, jobID, suite.userID).
		Return(nil, apperrors.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/"+jobID, nil)
	req.Header.Set("Authorization", suite.authHeader())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
}

// --- Download ---

func (suite *JobsHandlerTestSuite) TestDownload_RedirectsToPresignedURL() {
	jobID := uuid.NewString()
	job := &domain.Job{
		JobID:     jobID,
		UserID:    suite.userID,
		ResultKey: "results/" + jobID + ".zip",
		Status:    domain.JobCompleted,
	}
	signed, _ := url.Parse("https://storage.example.com/results/" + jobID + ".zip?sig=abc")

	suite.mockJobService.On("GetJob", mock.Anything, jobID, suite.userID).Return(job, nil).Once()
	suite.mockStorage.On("PresignedGetURL", mock.Anything, job.ResultKey, mock.AnythingOfType("time.Duration")).
		Return(signed, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/"+jobID, nil)
	req.Header.Set("Authorization", suite.authHeader())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusFound, w.Code)
	suite.Equal(signed.String(), w.Header().Get("Location"))
}

func (suite *JobsHandlerTestSuite) TestDownload_PendingJobNotAvailable() {
	jobID := uuid.NewString()
	job := &domain.Job{JobID: jobID, UserID: suite.userID, Status: domain.JobPending}

	suite.mockJobService.On("GetJob", mock.Anything, jobID, suite.userID).Return(job, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/"+jobID, nil)
	req.Header.Set("Authorization", suite.authHeader())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockStorage.AssertNotCalled(suite.T(), "PresignedGetURL", mock.Anything, mock.Anything, mock.Anything)
}

// --- List ---

func (suite *JobsHandlerTestSuite) TestList_Success() {
	jobs := []domain.Job{
		{JobID: uuid.NewString(), UserID: suite.userID, Status: domain.JobCompleted, CreatedAt: time.Now().UTC()},
		{JobID: uuid.NewString(), UserID: suite.userID, Status: domain.JobPending, CreatedAt: time.Now().UTC()},
	}

	suite.mockJobService.On("ListJobs", mock.Anything, suite.userID, 20, (*string)(nil)).
		Return(jobs, nil, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.Header.Set("Authorization", suite.authHeader())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListJobsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Jobs, 2)
	suite.Nil(resp.NextToken)
}

func TestJobsHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(JobsHandlerTestSuite))
}
