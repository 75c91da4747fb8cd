package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mireiacv/citalert/internal/model"
)

// TopicReader reads the denormalized per-topic counters.
type TopicReader interface {
	Counters(ctx context.Context, topic model.Topic) (model.TopicCounters, error)
}

// TopicHandler exposes topic counters, used by the web client to show how
// many notifications a topic has delivered.
type TopicHandler struct {
	topics TopicReader
}

func NewTopicHandler(topics TopicReader) *TopicHandler {
	return &TopicHandler{topics: topics}
}

// Counters godoc
// @Summary Read a topic's counters
// @Tags Topics
// @Produce json
// @Param topic path string true "Topic key (serviceId_locationId)"
// @Success 200 {object} model.TopicCounters
// @Failure 500 {object} model.ErrorResponse
// @Router /topics/{topic}/counters [get]
func (h *TopicHandler) Counters(c *gin.Context) {
	counters, err := h.topics.Counters(c.Request.Context(), model.Topic(c.Param("topic")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Reading topic counters failed"})
		return
	}
	c.JSON(http.StatusOK, counters)
}
