package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"buildingops/internal/maintenance"
)

type scheduleHandler struct {
	svc MaintenanceService
	log *slog.Logger
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pathID parses the :id segment; a malformed id aborts the request.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return uuid.UUID{}, false
	}
	return id, true
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func parseTimeOfDay(s string) (*maintenance.TimeOfDay, error) {
	if s == "" {
		return nil, nil
	}
	t, err := maintenance.ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *scheduleHandler) create(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		badRequest(c, "invalid assetId")
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		badRequest(c, "invalid startDate")
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		badRequest(c, "invalid endDate")
		return
	}
	startTime, err := parseTimeOfDay(req.StartTime)
	if err != nil {
		badRequest(c, "invalid startTime")
		return
	}
	endTime, err := parseTimeOfDay(req.EndTime)
	if err != nil {
		badRequest(c, "invalid endTime")
		return
	}

	in := maintenance.CreateInput{
		AssetID:            assetID,
		StartDate:          startDate,
		EndDate:            endDate,
		StartTime:          startTime,
		EndTime:            endTime,
		ReminderDays:       req.ReminderDays,
		Description:        req.Description,
		RecurrenceType:     req.RecurrenceType,
		RecurrenceInterval: req.RecurrenceInterval,
	}
	if actor, ok := actorOf(c); ok {
		in.CreatedBy = &actor
	}

	sched, err := h.svc.CreateSchedule(c.Request.Context(), tenantOf(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toScheduleResponse(sched))
}

func (h *scheduleHandler) search(c *gin.Context) {
	var f maintenance.ScheduleFilter
	f.Term = c.Query("q")

	if raw := c.Query("assetId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid assetId")
			return
		}
		f.AssetID = &id
	}
	if raw := c.Query("status"); raw != "" {
		st, err := maintenance.ParseStatus(raw)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		f.Status = st
	}
	if raw := c.Query("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			badRequest(c, "invalid from date")
			return
		}
		f.StartDateFrom = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			badRequest(c, "invalid to date")
			return
		}
		f.StartDateTo = &t
	}

	scheds, err := h.svc.SearchSchedules(c.Request.Context(), tenantOf(c), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]scheduleResponse, len(scheds))
	for i, s := range scheds {
		out[i] = toScheduleResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

func (h *scheduleHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sched, err := h.svc.GetSchedule(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(sched))
}

func (h *scheduleHandler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	in := maintenance.UpdateInput{
		ReminderDays:       req.ReminderDays,
		Description:        req.Description,
		RecurrenceType:     req.RecurrenceType,
		RecurrenceInterval: req.RecurrenceInterval,
		CompletionNotes:    req.CompletionNotes,
	}
	if actor, ok := actorOf(c); ok {
		in.Actor = actor
	}

	if req.AssetID != nil {
		assetID, err := uuid.Parse(*req.AssetID)
		if err != nil {
			badRequest(c, "invalid assetId")
			return
		}
		in.AssetID = &assetID
	}
	if req.StartDate != nil {
		t, err := parseDate(*req.StartDate)
		if err != nil {
			badRequest(c, "invalid startDate")
			return
		}
		in.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := parseDate(*req.EndDate)
		if err != nil {
			badRequest(c, "invalid endDate")
			return
		}
		in.EndDate = &t
	}
	if req.StartTime != nil {
		tod, err := parseTimeOfDay(*req.StartTime)
		if err != nil {
			badRequest(c, "invalid startTime")
			return
		}
		in.StartTime = tod
	}
	if req.EndTime != nil {
		tod, err := parseTimeOfDay(*req.EndTime)
		if err != nil {
			badRequest(c, "invalid endTime")
			return
		}
		in.EndTime = tod
	}
	if req.Status != nil {
		st, err := maintenance.ParseStatus(*req.Status)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		in.Status = &st
	}
	if req.ActualEnd != nil {
		t, err := time.Parse(time.RFC3339, *req.ActualEnd)
		if err != nil {
			badRequest(c, "invalid actualEnd, want RFC 3339")
			return
		}
		in.ActualEnd = &t
	}

	sched, err := h.svc.UpdateSchedule(c.Request.Context(), tenantOf(c), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(sched))
}

func (h *scheduleHandler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteSchedule(c.Request.Context(), tenantOf(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *scheduleHandler) historyBySchedule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	hs, err := h.svc.HistoriesBySchedule(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]historyResponse, len(hs))
	for i, rec := range hs {
		out[i] = toHistoryResponse(rec)
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (h *scheduleHandler) historyByAsset(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	hs, err := h.svc.HistoriesByAsset(c.Request.Context(), tenantOf(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]historyResponse, len(hs))
	for i, rec := range hs {
		out[i] = toHistoryResponse(rec)
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}
