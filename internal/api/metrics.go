package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/opencasa/casa-core/internal/pipeline"
)

// SystemMetrics is the GET /metrics payload.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	Pipeline      pipeline.Snapshot `json:"pipeline"`
	WebSocket     WSMetrics         `json:"websocket"`
	MQTT          MQTTMetrics       `json:"mqtt"`
	Mappings      MappingMetrics    `json:"mappings"`
	Database      DatabaseMetrics   `json:"database"`
}

// RuntimeMetrics holds Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

type MappingMetrics struct {
	Cached int `json:"cached"`
}

// DatabaseMetrics holds connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func runtimeMetrics() RuntimeMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	const mb = 1024 * 1024
	return RuntimeMetrics{
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: float64(ms.Alloc) / mb,
		MemoryTotalMB: float64(ms.TotalAlloc) / mb,
		NumGC:         ms.NumGC,
	}
}

// handleMetrics reports runtime, pipeline and connectivity statistics
// in one document. Optional subsystems report zero values when absent.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime:       runtimeMetrics(),
		Pipeline:      s.pipe.Metrics().Snapshot(),
		Mappings:      MappingMetrics{Cached: s.mappings.Count()},
	}

	if s.hub != nil {
		m.WebSocket.ConnectedClients = s.hub.ClientCount()
	}
	if s.mqtt != nil {
		m.MQTT.Connected = s.mqtt.IsConnected()
	}
	if s.db != nil {
		stats := s.db.Stats()
		m.Database = DatabaseMetrics{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, m)
}
