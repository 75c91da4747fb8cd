package model

// Service is an upstream bookable service. The name is cosmetic and only
// appears in notification text.
type Service struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location is an upstream center offering a service, plus the appointment
// dates currently open there (empty when none or when the lookup failed).
type Location struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Appointments []string `json:"appointments,omitempty"`
}
