package handlers

import (
	"time"

	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/schedule"
)

// LoginResponse is the response for a successful login. The token is also
// set as a cookie; terminals without cookies send it as a Bearer header.
type LoginResponse struct {
	Token string       `json:"token"`
	Actor models.Actor `json:"actor"`
}

// ScheduleResponse describes the draw schedule and what can be sold now
type ScheduleResponse struct {
	Now             time.Time       `json:"now"`
	Date            string          `json:"date"`
	Timezone        string          `json:"timezone"`
	BlackoutMinutes int             `json:"blackout_minutes"`
	Slots           []schedule.Slot `json:"slots"`
	Closed          []string        `json:"closed"`
	Target          string          `json:"target"`
}

// HealthResponse is the response for the liveness probe
type HealthResponse struct {
	Status string `json:"status"`
}
