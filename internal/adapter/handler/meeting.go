package handler

import (
	stdErrors "errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-agent/errors"
	dto "github.com/johnquangdev/meeting-agent/internal/adapter/dto/meeting"
	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
	"github.com/johnquangdev/meeting-agent/internal/usecase/meeting"
)

// Meeting exposes the transcript import pipeline over HTTP
type Meeting struct {
	service meeting.Service
	logger  *zap.Logger
}

// NewMeetingHandler creates a meeting handler
func NewMeetingHandler(service meeting.Service, logger *zap.Logger) *Meeting {
	return &Meeting{service: service, logger: logger}
}

// Process runs a transcript through extraction, persistence and notification
func (h *Meeting) Process(c echo.Context) error {
	var req dto.ProcessRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	attendees := make([]meeting.Attendee, 0, len(req.Attendees))
	for _, a := range req.Attendees {
		attendees = append(attendees, meeting.Attendee{Name: a.Name, Email: a.Email})
	}

	res, err := h.service.ProcessTranscript(c.Request().Context(), meeting.ProcessRequest{
		Title:      req.Title,
		Date:       req.Date,
		Transcript: req.Transcript,
		Attendees:  attendees,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, dto.ProcessResponse{
		MeetingID:  res.MeetingID,
		Minutes:    res.Minutes,
		Actions:    dto.ToActionItemResponses(res.Actions),
		CardsSent:  res.CardsSent,
		ArchiveURL: res.ArchiveURL,
	})
}

// Import persists pre-extracted action items
func (h *Meeting) Import(c echo.Context) error {
	var req dto.ImportRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	items := make([]*entities.ActionItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, &entities.ActionItem{
			ID:         it.ID,
			Task:       it.Task,
			Owner:      it.Owner,
			OwnerEmail: it.OwnerEmail,
			DueDate:    it.Deadline,
			Priority:   entities.NormalizePriority(it.Priority),
		})
	}

	res, err := h.service.ImportActions(c.Request().Context(), meeting.ImportRequest{
		MeetingID: req.MeetingID,
		Title:     req.Title,
		Notify:    req.Notify,
		Items:     items,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, dto.ProcessResponse{
		MeetingID: res.MeetingID,
		Actions:   dto.ToActionItemResponses(res.Actions),
		CardsSent: res.CardsSent,
	})
}

// Summary returns stored minutes and action items for a meeting
func (h *Meeting) Summary(c echo.Context) error {
	meetingID := c.Param("id")
	if meetingID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("missing meeting id"))
	}

	summary, items, err := h.service.GetSummary(c.Request().Context(), meetingID)
	if err != nil {
		if stdErrors.Is(err, entities.ErrSummaryNotFound) {
			return HandleError(h.logger, c, errors.ErrNotFound("meeting summary"))
		}
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, dto.SummaryResponse{
		MeetingID:  summary.MeetingID,
		Title:      summary.Title,
		Date:       summary.MeetingDate,
		Minutes:    summary.Minutes,
		ArchiveURL: summary.ArchiveURL,
		Actions:    dto.ToActionItemResponses(items),
	})
}
