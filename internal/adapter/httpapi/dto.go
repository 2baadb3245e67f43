package httpapi

import (
	"time"

	"buildingops/internal/maintenance"
)

const dateLayout = "2006-01-02"

type createScheduleRequest struct {
	AssetID   string `json:"assetId" binding:"required,uuid"`
	StartDate string `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" binding:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" binding:"omitempty"`
	EndTime   string `json:"endTime" binding:"omitempty"`

	ReminderDays       int    `json:"reminderDays" binding:"omitempty,min=0,max=365"`
	Description        string `json:"description" binding:"omitempty,max=2000"`
	RecurrenceType     string `json:"recurrenceType" binding:"omitempty,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	RecurrenceInterval int    `json:"recurrenceInterval" binding:"omitempty,min=1,max=365"`
}

type updateScheduleRequest struct {
	AssetID   *string `json:"assetId" binding:"omitempty,uuid"`
	StartDate *string `json:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"endDate" binding:"omitempty,datetime=2006-01-02"`
	StartTime *string `json:"startTime" binding:"omitempty"`
	EndTime   *string `json:"endTime" binding:"omitempty"`

	ReminderDays       *int    `json:"reminderDays" binding:"omitempty,min=0,max=365"`
	Description        *string `json:"description" binding:"omitempty,max=2000"`
	RecurrenceType     *string `json:"recurrenceType" binding:"omitempty,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	RecurrenceInterval *int    `json:"recurrenceInterval" binding:"omitempty,min=1,max=365"`

	Status          *string `json:"status" binding:"omitempty"`
	ActualEnd       *string `json:"actualEnd" binding:"omitempty"`
	CompletionNotes string  `json:"completionNotes" binding:"omitempty,max=2000"`
}

type scheduleResponse struct {
	ID        string  `json:"id"`
	AssetID   string  `json:"assetId"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	StartTime *string `json:"startTime,omitempty"`
	EndTime   *string `json:"endTime,omitempty"`

	Status             string `json:"status"`
	ReminderDays       int    `json:"reminderDays"`
	Description        string `json:"description,omitempty"`
	RecurrenceType     string `json:"recurrenceType,omitempty"`
	RecurrenceInterval int    `json:"recurrenceInterval,omitempty"`

	ScheduledStart *string    `json:"scheduledStart,omitempty"`
	ScheduledEnd   *string    `json:"scheduledEnd,omitempty"`
	ActualStart    *time.Time `json:"actualStart,omitempty"`
	ActualEnd      *time.Time `json:"actualEnd,omitempty"`

	CompletionNotes string     `json:"completionNotes,omitempty"`
	CompletedBy     *string    `json:"completedBy,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func toScheduleResponse(s *maintenance.Schedule) scheduleResponse {
	resp := scheduleResponse{
		ID:                 s.ID.String(),
		AssetID:            s.AssetID.String(),
		StartDate:          s.Window.StartDate.Format(dateLayout),
		EndDate:            s.Window.EndDate.Format(dateLayout),
		Status:             string(s.Status),
		ReminderDays:       s.ReminderDays,
		Description:        s.Description,
		RecurrenceType:     s.RecurrenceType,
		RecurrenceInterval: s.RecurrenceInterval,
		ActualStart:        s.ActualStart,
		ActualEnd:          s.ActualEnd,
		CompletionNotes:    s.CompletionNotes,
		CompletedAt:        s.CompletedAt,
		CreatedAt:          s.CreatedAt,
	}
	if s.Window.StartTime != nil {
		v := s.Window.StartTime.String()
		resp.StartTime = &v
	}
	if s.Window.EndTime != nil {
		v := s.Window.EndTime.String()
		resp.EndTime = &v
	}
	if s.ScheduledStart != nil {
		v := s.ScheduledStart.Format(dateLayout)
		resp.ScheduledStart = &v
	}
	if s.ScheduledEnd != nil {
		v := s.ScheduledEnd.Format(dateLayout)
		resp.ScheduledEnd = &v
	}
	if s.CompletedBy != nil {
		v := s.CompletedBy.String()
		resp.CompletedBy = &v
	}
	return resp
}

type historyResponse struct {
	ID         string    `json:"id"`
	AssetID    string    `json:"assetId"`
	ScheduleID string    `json:"scheduleId"`
	ActionDate time.Time `json:"actionDate"`
	Action     string    `json:"action"`
	Notes      string    `json:"notes,omitempty"`

	ScheduledStart *string    `json:"scheduledStart,omitempty"`
	ScheduledEnd   *string    `json:"scheduledEnd,omitempty"`
	ActualStart    *time.Time `json:"actualStart,omitempty"`
	ActualEnd      *time.Time `json:"actualEnd,omitempty"`

	CompletionStatus string  `json:"completionStatus"`
	DaysDifference   int     `json:"daysDifference"`
	NextDueDate      *string `json:"nextDueDate,omitempty"`
	PerformedBy      *string `json:"performedBy,omitempty"`
}

func toHistoryResponse(h *maintenance.History) historyResponse {
	resp := historyResponse{
		ID:               h.ID.String(),
		AssetID:          h.AssetID.String(),
		ScheduleID:       h.ScheduleID.String(),
		ActionDate:       h.ActionDate,
		Action:           h.Action,
		Notes:            h.Notes,
		ActualStart:      h.ActualStart,
		ActualEnd:        h.ActualEnd,
		CompletionStatus: string(h.CompletionStatus),
		DaysDifference:   h.DaysDifference,
	}
	if h.ScheduledStart != nil {
		v := h.ScheduledStart.Format(dateLayout)
		resp.ScheduledStart = &v
	}
	if h.ScheduledEnd != nil {
		v := h.ScheduledEnd.Format(dateLayout)
		resp.ScheduledEnd = &v
	}
	if h.NextDueDate != nil {
		v := h.NextDueDate.Format(dateLayout)
		resp.NextDueDate = &v
	}
	if h.PerformedBy != nil {
		v := h.PerformedBy.String()
		resp.PerformedBy = &v
	}
	return resp
}
