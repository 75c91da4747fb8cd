package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mireiacv/citalert/internal/model"
)

// SubscriptionStore is the slice of the repository the HTTP API needs.
type SubscriptionStore interface {
	Subscribe(ctx context.Context, token string, topic model.Topic) (string, error)
	Unsubscribe(ctx context.Context, topic model.Topic, subscriptionID string) error
	SubscriptionsForToken(ctx context.Context, token string) (map[model.Topic]string, error)
}

// SubscriptionHandler handles the device-facing subscription endpoints.
type SubscriptionHandler struct {
	store SubscriptionStore
}

func NewSubscriptionHandler(store SubscriptionStore) *SubscriptionHandler {
	return &SubscriptionHandler{store: store}
}

// Subscribe godoc
// @Summary Subscribe a device to a topic
// @Description Creates a watch binding the device token to a (service, location) topic. Subscribing twice returns the existing watch.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param body body model.SubscribeRequest true "Device token and topic"
// @Success 201 {object} model.SubscribeResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req model.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	id, err := h.store.Subscribe(c.Request.Context(), req.Token, model.Topic(req.Topic))
	if err != nil {
		if errors.Is(err, model.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Subscribe failed"})
		return
	}

	c.JSON(http.StatusCreated, model.SubscribeResponse{ID: id})
}

// Unsubscribe godoc
// @Summary Remove a device's watch on a topic
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription id"
// @Param topic query string true "Topic the subscription watches"
// @Success 204 "watch removed"
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /subscriptions/{id} [delete]
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	topic := model.Topic(c.Query("topic"))
	if topic == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Missing topic"})
		return
	}

	err := h.store.Unsubscribe(c.Request.Context(), topic, c.Param("id"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Subscription not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Unsubscribe failed"})
		return
	}

	c.Status(http.StatusNoContent)
}

// List godoc
// @Summary List a device's subscriptions
// @Description Maps each topic the device watches to its subscription id. Unknown tokens get an empty map.
// @Tags Subscriptions
// @Produce json
// @Param token query string true "Device token"
// @Success 200 {object} model.SubscriptionsResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Missing token"})
		return
	}

	subs, err := h.store.SubscriptionsForToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Listing subscriptions failed"})
		return
	}
	if subs == nil {
		subs = map[model.Topic]string{}
	}

	c.JSON(http.StatusOK, model.SubscriptionsResponse{Subscriptions: subs})
}
