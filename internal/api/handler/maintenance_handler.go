package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/dto"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/service"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/database"
	pkgerrors "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/errors"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// MaintenanceHandler admin triggers and dashboards for the maintenance pipelines
type MaintenanceHandler struct {
	calendarSvc   service.CalendarService
	cleanupSvc    service.NotificationCleanupService
	reminderSvc   service.ReminderService
	statisticsSvc service.StatisticsService
	runs          service.RunReporter
	exportSvc     service.ExportService
	feedSvc       service.DeadlineFeedService
}

// NewMaintenanceHandler creates a MaintenanceHandler.
func NewMaintenanceHandler(svc *service.Service) *MaintenanceHandler {
	return &MaintenanceHandler{
		calendarSvc:   svc.Calendar,
		cleanupSvc:    svc.Cleanup,
		reminderSvc:   svc.Reminder,
		statisticsSvc: svc.Statistics,
		runs:          svc.Runs,
		exportSvc:     svc.Export,
		feedSvc:       svc.DeadlineFeed,
	}
}

// RunCalendar POST /api/v1/maintenance/calendar/run
func (h *MaintenanceHandler) RunCalendar(c *gin.Context) {
	result, err := h.calendarSvc.Run(runContext(c))
	h.respondRun(c, result, err)
}

// RunReminders POST /api/v1/maintenance/reminders/run
func (h *MaintenanceHandler) RunReminders(c *gin.Context) {
	result, err := h.reminderSvc.Run(runContext(c))
	h.respondRun(c, result, err)
}

// Cleanup POST /api/v1/maintenance/cleanup
func (h *MaintenanceHandler) Cleanup(c *gin.Context) {
	result, err := h.cleanupSvc.Clean(runContext(c))
	h.respondRun(c, result, err)
}

// Statistics GET /api/v1/maintenance/statistics
func (h *MaintenanceHandler) Statistics(c *gin.Context) {
	stats, err := h.statisticsSvc.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		h.handleStorageError(c, err)
		return
	}
	response.OK(c, stats)
}

// ListRuns GET /api/v1/maintenance/runs?pipeline=&limit=
func (h *MaintenanceHandler) ListRuns(c *gin.Context) {
	var q dto.RunListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 20001, "invalid query parameters")
		return
	}

	runs, err := h.runs.Recent(c.Request.Context(), q.Pipeline, q.Limit)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, service.ErrNoRunHistory) {
			response.ServiceUnavailable(c, 20005, "run history unavailable")
			return
		}
		h.handleStorageError(c, err)
		return
	}
	response.OK(c, gin.H{"list": runs})
}

// ExportRuns GET /api/v1/maintenance/runs/export?pipeline=&limit=
func (h *MaintenanceHandler) ExportRuns(c *gin.Context) {
	var q dto.RunListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 20001, "invalid query parameters")
		return
	}

	buf, filename, err := h.exportSvc.ExportRuns(c.Request.Context(), q.Pipeline, q.Limit)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, service.ErrExportNoRuns):
			response.NotFound(c, 20006, "no run reports to export")
		case errors.Is(err, service.ErrNoRunHistory):
			response.ServiceUnavailable(c, 20005, "run history unavailable")
		default:
			response.InternalError(c)
		}
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// DeadlineFeed GET /api/v1/maintenance/deadlines.ics
func (h *MaintenanceHandler) DeadlineFeed(c *gin.Context) {
	feed, err := h.feedSvc.Feed(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		h.handleStorageError(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=deadlines.ics")
	c.Data(http.StatusOK, icsContentType, feed)
}

// runContext detaches a triggered run from the request: a client that disconnects must
// not roll back a calendar run or abort emails for reminders already ledgered.
func runContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// respondRun maps a pipeline result to HTTP. A run that finished with item failures is
// 202 so dashboards can tell it apart from a clean one.
func (h *MaintenanceHandler) respondRun(c *gin.Context, result *dto.RunResultResponse, err error) {
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, pkgerrors.ErrStorageUnavailable):
			response.ServiceUnavailable(c, 20002, "storage unavailable")
		case errors.Is(err, service.ErrCalendarRolledBack):
			details := ""
			if result != nil {
				details = "run_id=" + result.RunID
			}
			response.ErrorWithDetails(c, http.StatusInternalServerError, 20003, "calendar run rolled back", details)
		default:
			response.InternalError(c)
		}
		return
	}

	switch model.RunStatus(result.Status) {
	case model.RunSkipped:
		c.JSON(http.StatusConflict, response.Response{Code: 20004, Message: "another run holds the lease", Data: result})
	case model.RunPartial:
		response.Accepted(c, result)
	default:
		response.OK(c, result)
	}
}

func (h *MaintenanceHandler) handleStorageError(c *gin.Context, err error) {
	if database.IsUnavailable(err) {
		response.ServiceUnavailable(c, 20002, "storage unavailable")
		return
	}
	response.InternalError(c)
}
