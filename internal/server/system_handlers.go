package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/wardenlabs/warden/internal/database"
	"github.com/wardenlabs/warden/internal/events"
	"github.com/wardenlabs/warden/internal/reliability"
	"github.com/wardenlabs/warden/pkg/logger"
)

// SystemHandlers handles system monitoring and operations endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	databases []*database.DB
	eventHub  *events.Hub
	backup    *reliability.BackupService // nil when backups are disabled
	startedAt time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(databases []*database.DB, eventHub *events.Hub, backup *reliability.BackupService, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:       logger.Component(log, "system_handlers"),
		databases: databases,
		eventHub:  eventHub,
		backup:    backup,
		startedAt: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	Databases     []DatabaseHealth `json:"databases"`
	Subscribers   int              `json:"event_subscribers"`
}

// DatabaseHealth reports one database's reachability and size.
type DatabaseHealth struct {
	Name      string  `json:"name"`
	Reachable bool    `json:"reachable"`
	SizeMB    float64 `json:"size_mb"`
}

// HandleHealth reports process and database health.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Subscribers:   h.eventHub.SubscriberCount(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		response.MemoryPercent = vm.UsedPercent
	}

	for _, db := range h.databases {
		health := DatabaseHealth{Name: db.Name()}

		if err := db.Conn().PingContext(r.Context()); err == nil {
			health.Reachable = true
		} else {
			response.Status = "degraded"
		}
		if info, err := os.Stat(db.Path()); err == nil {
			health.SizeMB = float64(info.Size()) / 1024 / 1024
		}

		response.Databases = append(response.Databases, health)
	}

	status := http.StatusOK
	if response.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response)
}

// HandleTriggerBackup runs a backup immediately.
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "backups are not configured",
		})
		return
	}

	h.log.Info().Msg("Manual backup triggered")

	if err := h.backup.CreateAndUploadBackup(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Backup created and uploaded",
	})
}

// HandleListBackups lists the stored backup archives.
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "backups are not configured",
		})
		return
	}

	backups, err := h.backup.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, backups)
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
