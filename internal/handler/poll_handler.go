package handler

import (
	"context"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/mireiacv/citalert/internal/model"
)

// TickRunner runs one poll cycle.
type TickRunner interface {
	RunTick(ctx context.Context) error
}

// PollHandler exposes the tick trigger for the external scheduler.
type PollHandler struct {
	poller TickRunner
}

func NewPollHandler(poller TickRunner) *PollHandler {
	return &PollHandler{poller: poller}
}

// Trigger godoc
// @Summary Run one poll tick
// @Description Probes every watched topic and notifies subscribers of newly available slots. Invoked by the external scheduler.
// @Tags Poll
// @Security BearerAuth
// @Success 204 "tick completed"
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /poll [post]
func (h *PollHandler) Trigger(c *gin.Context) {
	if err := h.poller.RunTick(c.Request.Context()); err != nil {
		sentry.CaptureException(err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Tick failed", Message: err.Error()})
		return
	}
	// Empty success body whether or not anything was notified.
	c.Status(http.StatusNoContent)
}
