package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
	"github.com/stemtide/stemtide_backend/internal/core/ports"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/dto"
	"github.com/stemtide/stemtide_backend/internal/middleware"
)

// maxUploadBytes caps the accepted audio payload at 100 MiB.
const maxUploadBytes = 100 << 20

// downloadURLExpiry is how long a presigned result URL stays valid.
const downloadURLExpiry = 15 * time.Minute

// JobsHandler handles job submission, status, and result download.
type JobsHandler struct {
	jobService portssvc.JobSvcFacade
	storage    ports.ObjectStorage
	publisher  ports.JobPublisher
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(js portssvc.JobSvcFacade, storage ports.ObjectStorage, publisher ports.JobPublisher) *JobsHandler {
	return &JobsHandler{
		jobService: js,
		storage:    storage,
		publisher:  publisher,
	}
}

// RegisterJobsRoutes sets up the job lifecycle routes.
func RegisterJobsRoutes(rg *gin.RouterGroup, jobService portssvc.JobSvcFacade, storage ports.ObjectStorage, publisher ports.JobPublisher) {
	h := NewJobsHandler(jobService, storage, publisher)

	rg.POST("/upload", h.Upload)
	rg.GET("/status/:job_id", h.Status)
	rg.GET("/download/:job_id", h.Download)
	rg.GET("/jobs", h.List)
}

// Upload accepts an audio file plus job options, stores the payload, debits
// the job cost, and queues the job for processing.
func (h *JobsHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var form dto.CreateJobForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Audio file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File exceeds the 100MB upload limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read upload"})
		return
	}
	defer file.Close()

	filename := filepath.Base(fileHeader.Filename)
	objectKey := fmt.Sprintf("uploads/%s/%s", uuid.NewString(), filename)
	contentType := fileHeader.Header.Get("Content-Type")

	if err := h.storage.Put(c.Request.Context(), objectKey, file, fileHeader.Size, contentType); err != nil {
		logger.Error("Failed to store uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to store upload"})
		return
	}

	job, err := h.jobService.CreateJob(c.Request.Context(), userID, filename, objectKey, form.Options())
	if err != nil {
		// The payload is orphaned without a job row; clean it up.
		if rmErr := h.storage.Remove(c.Request.Context(), objectKey); rmErr != nil {
			logger.Warn("Failed to remove orphaned upload", slog.String("object_key", objectKey), slog.String("error", rmErr.Error()))
		}
		respondError(c, err, "Failed to create job")
		return
	}

	if err := h.publisher.PublishJobQueued(c.Request.Context(), job.JobID); err != nil {
		logger.Error("Failed to enqueue job", slog.String("job_id", job.JobID), slog.String("error", err.Error()))
		// The debit already committed; fail the job so the cost is refunded.
		if failErr := h.jobService.MarkFailed(c.Request.Context(), job.JobID, "failed to enqueue job"); failErr != nil {
			logger.Error("Failed to fail unqueued job", slog.String("job_id", job.JobID), slog.String("error", failErr.Error()))
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to queue job"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToJobResponse(job, ""))
}

// Status returns the job's current state. Completed jobs include a presigned
// download URL.
func (h *JobsHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("job_id"), userID)
	if err != nil {
		respondError(c, err, "Failed to load job")
		return
	}

	downloadURL := ""
	if job.Status == domain.JobCompleted && job.ResultKey != "" {
		u, err := h.storage.PresignedGetURL(c.Request.Context(), job.ResultKey, downloadURLExpiry)
		if err != nil {
			middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to presign result URL",
				slog.String("job_id", job.JobID), slog.String("error", err.Error()))
		} else {
			downloadURL = u.String()
		}
	}
	c.JSON(http.StatusOK, dto.ToJobResponse(job, downloadURL))
}

// Download redirects to a presigned URL for the job's result object.
func (h *JobsHandler) Download(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("job_id"), userID)
	if err != nil {
		respondError(c, err, "Failed to load job")
		return
	}
	if job.Status != domain.JobCompleted || job.ResultKey == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Job result is not available"})
		return
	}

	u, err := h.storage.PresignedGetURL(c.Request.Context(), job.ResultKey, downloadURLExpiry)
	if err != nil {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Failed to presign result URL",
			slog.String("job_id", job.JobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate download link"})
		return
	}
	c.Redirect(http.StatusFound, u.String())
}

// List returns a newest-first page of the user's jobs.
func (h *JobsHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	var params dto.ListJobsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	jobs, nextToken, err := h.jobService.ListJobs(c.Request.Context(), userID, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, err, "Failed to list jobs")
		return
	}
	c.JSON(http.StatusOK, dto.ToListJobsResponse(jobs, nextToken))
}
