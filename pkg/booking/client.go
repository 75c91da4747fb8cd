// Package booking talks to the municipal appointment booking site.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mireiacv/citalert/internal/model"
)

// Client issues read-only calls against the booking site's public API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a booking site client. The timeout applies per request
// on top of whatever deadline the caller's context carries.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type serviceResponse struct {
	ID   string `json:"id_servicio"`
	Name string `json:"nombre"`
}

type locationResponse struct {
	ID      string `json:"id_centro"`
	Name    string `json:"nombre"`
	Address string `json:"direccion"`
}

type locationsResponse struct {
	Centers []locationResponse `json:"centros"`
}

type calendarResponse struct {
	Days []string `json:"dias"`
}

// HasAppointments probes whether the topic's (service, location) pair has at
// least one open slot right now. Any transport error, non-2xx status or
// malformed body resolves to false: a failed probe must never notify anyone,
// and the next tick retries it anyway.
func (c *Client) HasAppointments(ctx context.Context, topic model.Topic) bool {
	serviceID, locationID := topic.Split()

	dates, err := c.OpenDates(ctx, serviceID, locationID)
	if err != nil {
		return false
	}
	return len(dates) > 0
}

// OpenDates returns the appointment dates currently open for a service at a
// location.
func (c *Client) OpenDates(ctx context.Context, serviceID, locationID string) ([]string, error) {
	url := fmt.Sprintf("%s/citaPrevia/disponible/centro/%s/servicio/%s/calendario", c.baseURL, locationID, serviceID)

	var calendar calendarResponse
	if err := c.getJSON(ctx, url, &calendar); err != nil {
		return nil, err
	}
	return calendar.Days, nil
}

// Services returns the bookable services the site currently offers.
func (c *Client) Services(ctx context.Context) ([]model.Service, error) {
	url := c.baseURL + "/citaPrevia/servicios/disponibles/"

	var raw []serviceResponse
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	services := make([]model.Service, 0, len(raw))
	for _, svc := range raw {
		services = append(services, model.Service{ID: svc.ID, Name: svc.Name})
	}
	return services, nil
}

// Locations returns the centers offering a service.
func (c *Client) Locations(ctx context.Context, serviceID string) ([]model.Location, error) {
	url := fmt.Sprintf("%s/citaPrevia/centros/servicio/disponible/%s", c.baseURL, serviceID)

	// The upstream wraps the center list in a single-element array.
	var raw []locationsResponse
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	locations := make([]model.Location, 0, len(raw[0].Centers))
	for _, center := range raw[0].Centers {
		locations = append(locations, model.Location{ID: center.ID, Name: center.Name})
	}
	return locations, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling booking site: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("booking site returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding booking site response: %w", err)
	}
	return nil
}
