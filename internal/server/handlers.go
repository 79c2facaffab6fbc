package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raphaelgruber/beethoven-go/internal/models"
	"github.com/raphaelgruber/beethoven-go/internal/service"
)

const maxListLimit = 1000

type errorResponse struct {
	Error string `json:"error"`
}

// createRecordingRequest is the JSON body of POST /api/recordings.
type createRecordingRequest struct {
	ClientID     string `json:"client_id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeRole string `json:"employee_role"`
	AudioPath    string `json:"audio_path"`
}

type settingRequest struct {
	Value *string `json:"value"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleCreateRecording(c *gin.Context) {
	var req service.IngestRequest

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
		file, err := c.FormFile("audio")
		if err != nil {
			s.respondError(c, fmt.Errorf("%w: audio file: %w", service.ErrValidation, err))
			return
		}
		f, err := file.Open()
		if err != nil {
			s.respondError(c, fmt.Errorf("open upload: %w", err))
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			s.respondError(c, fmt.Errorf("read upload: %w", err))
			return
		}
		req = service.IngestRequest{
			ClientID:     c.PostForm("client_id"),
			EmployeeID:   c.PostForm("employee_id"),
			EmployeeRole: models.EmployeeRole(c.PostForm("employee_role")),
			AudioPath:    c.PostForm("audio_path"),
			Audio:        data,
			Filename:     file.Filename,
			ContentType:  file.Header.Get("Content-Type"),
		}
	} else {
		var body createRecordingRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			s.respondError(c, fmt.Errorf("%w: invalid JSON body: %v", service.ErrValidation, err))
			return
		}
		req = service.IngestRequest{
			ClientID:     body.ClientID,
			EmployeeID:   body.EmployeeID,
			EmployeeRole: models.EmployeeRole(body.EmployeeRole),
			AudioPath:    body.AudioPath,
		}
	}

	rec, err := s.recordings.Ingest(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, rec)
}

func (s *Server) handleListRecordings(c *gin.Context) {
	var filter models.RecordingFilter
	if st := c.Query("status"); st != "" {
		status := models.RecordingStatus(st)
		filter.Status = &status
	}
	if emp := c.Query("employee_id"); emp != "" {
		filter.EmployeeID = &emp
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			s.respondError(c, fmt.Errorf("%w: limit must be a positive integer", service.ErrValidation))
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	recs, err := s.recordings.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if recs == nil {
		recs = []models.Recording{}
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) handleGetRecording(c *gin.Context) {
	rec, err := s.recordings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleRecordingStatus(c *gin.Context) {
	view, err := s.recordings.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleListSettings(c *gin.Context) {
	settings, err := s.settings.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if settings == nil {
		settings = []models.Setting{}
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleGetSetting(c *gin.Context) {
	setting, err := s.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (s *Server) handlePutSetting(c *gin.Context) {
	var body settingRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Value == nil {
		s.respondError(c, fmt.Errorf("%w: body must be {\"value\": \"...\"}", service.ErrValidation))
		return
	}
	setting, err := s.settings.Set(c.Request.Context(), c.Param("key"), *body.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("setting updated", "key", setting.Key, "value_len", len(setting.Value))
	c.JSON(http.StatusOK, setting)
}

// respondError maps service errors to HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRecordingNotFound), errors.Is(err, service.ErrSettingNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAudioUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
