package handler

import "github.com/swaaagray/CvSU-SAOMS-sub006/internal/service"

// Handler aggregates every handler
type Handler struct {
	Maintenance *MaintenanceHandler
	Health      *HealthHandler
}

// NewHandler builds the aggregate. pinger backs /health.
func NewHandler(svc *service.Service, pinger Pinger) *Handler {
	return &Handler{
		Maintenance: NewMaintenanceHandler(svc),
		Health:      NewHealthHandler(pinger),
	}
}
