package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/mireiacv/citalert/internal/model"
)

// BookingCatalog is the read-only slice of the booking site client the
// catalog endpoints proxy.
type BookingCatalog interface {
	Services(ctx context.Context) ([]model.Service, error)
	Locations(ctx context.Context, serviceID string) ([]model.Location, error)
	OpenDates(ctx context.Context, serviceID, locationID string) ([]string, error)
}

// CatalogHandler proxies the booking site's service/location catalog so the
// web client never talks to the municipal API directly.
type CatalogHandler struct {
	booking BookingCatalog
}

func NewCatalogHandler(booking BookingCatalog) *CatalogHandler {
	return &CatalogHandler{booking: booking}
}

// Services godoc
// @Summary List bookable services
// @Tags Catalog
// @Produce json
// @Success 200 {array} model.Service
// @Failure 502 {object} model.ErrorResponse
// @Router /services [get]
func (h *CatalogHandler) Services(c *gin.Context) {
	services, err := h.booking.Services(c.Request.Context())
	if err != nil {
		sentry.CaptureException(err)
		c.JSON(http.StatusBadGateway, model.ErrorResponse{Error: "Booking site unavailable"})
		return
	}
	c.JSON(http.StatusOK, services)
}

// Locations godoc
// @Summary List a service's locations with their open appointment dates
// @Tags Catalog
// @Produce json
// @Param id path string true "Service id"
// @Success 200 {array} model.Location
// @Failure 502 {object} model.ErrorResponse
// @Router /services/{id}/locations [get]
func (h *CatalogHandler) Locations(c *gin.Context) {
	serviceID := c.Param("id")

	locations, err := h.booking.Locations(c.Request.Context(), serviceID)
	if err != nil {
		sentry.CaptureException(err)
		c.JSON(http.StatusBadGateway, model.ErrorResponse{Error: "Booking site unavailable"})
		return
	}

	// Fetch each location's open dates concurrently; a failed lookup just
	// leaves that location's list empty.
	var wg sync.WaitGroup
	for i := range locations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dates, err := h.booking.OpenDates(c.Request.Context(), serviceID, locations[i].ID)
			if err != nil {
				return
			}
			locations[i].Appointments = dates
		}()
	}
	wg.Wait()

	c.JSON(http.StatusOK, locations)
}
