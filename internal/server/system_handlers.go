package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHealthResponse is the detailed health report for ops dashboards.
type SystemHealthResponse struct {
	Status     string  `json:"status"` // "ok" or "degraded"
	Database   string  `json:"database"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
	CheckedAt  string  `json:"checked_at"`
}

// handleSystemHealth reports database reachability and host resource usage.
// GET /api/system/health
func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	resp := SystemHealthResponse{
		Status:    "ok",
		Database:  "ok",
		CheckedAt: time.Now().Format(time.RFC3339),
	}

	if err := s.deps.DB.HealthCheck(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Database health check failed")
		resp.Status = "degraded"
		resp.Database = err.Error()
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	} else if err != nil {
		s.log.Debug().Err(err).Msg("CPU usage unavailable")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.RAMPercent = vm.UsedPercent
	} else {
		s.log.Debug().Err(err).Msg("Memory usage unavailable")
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}
