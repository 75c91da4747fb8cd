package booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mireiacv/citalert/internal/model"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 2*time.Second), srv
}

func TestHasAppointmentsOpenSlots(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/citaPrevia/disponible/centro/12/servicio/5/calendario", r.URL.Path)
		w.Write([]byte(`{"dias": ["2026-09-01", "2026-09-03"]}`))
	})
	defer srv.Close()

	assert.True(t, client.HasAppointments(context.Background(), model.Topic("5_12")))
}

func TestHasAppointmentsFailClosed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "empty date list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"dias": []}`))
			},
		},
		{
			name: "missing field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
		},
		{
			name: "upstream error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>maintenance</html>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(tt.handler)
			defer srv.Close()

			assert.False(t, client.HasAppointments(context.Background(), model.Topic("5_12")))
		})
	}
}

func TestHasAppointmentsTimeout(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"dias": ["2026-09-01"]}`))
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.False(t, client.HasAppointments(ctx, model.Topic("5_12")))
}

func TestServices(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/citaPrevia/servicios/disponibles/", r.URL.Path)
		w.Write([]byte(`[{"id_servicio": "5", "nombre": "Empadronamiento"}, {"id_servicio": "7", "nombre": "Registro"}]`))
	})
	defer srv.Close()

	services, err := client.Services(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Service{
		{ID: "5", Name: "Empadronamiento"},
		{ID: "7", Name: "Registro"},
	}, services)
}

func TestServicesUpstreamError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.Services(context.Background())
	assert.Error(t, err)
}

func TestLocations(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/citaPrevia/centros/servicio/disponible/5", r.URL.Path)
		w.Write([]byte(`[{"centros": [{"id_centro": "12", "nombre": "Centro Norte", "direccion": "C/ Mayor 1"}]}]`))
	})
	defer srv.Close()

	locations, err := client.Locations(context.Background(), "5")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "12", locations[0].ID)
	assert.Equal(t, "Centro Norte", locations[0].Name)
}

func TestLocationsEmptyWrapper(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	defer srv.Close()

	locations, err := client.Locations(context.Background(), "5")
	require.NoError(t, err)
	assert.Empty(t, locations)
}
