package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jcalder/ledgerlens/internal/events"
	"github.com/jcalder/ledgerlens/internal/monitor"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// handleSnapshots returns the latest checked snapshot for every pairing.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"snapshots": s.monitor.Snapshots(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	snapshot, ok := s.monitor.Snapshot(key)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no snapshot for pairing "+key)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"snapshot": snapshot,
	})
}

// handleRefreshAll triggers an immediate poll of every pairing. The poll runs
// in the background; clients follow progress on the event feed.
func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.monitor.RefreshAll(ctx)
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"status":  "refresh started",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := s.monitor.Refresh(r.Context(), key); err != nil {
		if err == monitor.ErrUnknownKey {
			s.writeError(w, http.StatusNotFound, "unknown pairing "+key)
			return
		}
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	snapshot, _ := s.monitor.Snapshot(key)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"snapshot": snapshot,
	})
}

// handleCacheClear empties every cached response. Used when the operator
// switches company datasets, where stale cross-company data is worse than a
// cold cache.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.client.InvalidateCache(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.bus.EmitTyped(events.CacheCleared, "server", &events.CacheClearedData{
		Reason: "manual clear",
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  "cache cleared",
	})
}

// handleSystem reports process resource usage.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	cpuAvg := 0.0
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	} else if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	}

	memPercent := 0.0
	if memStat, err := mem.VirtualMemory(); err == nil {
		memPercent = memStat.UsedPercent
	} else {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"cpu_percent": cpuAvg,
		"mem_percent": memPercent,
		"pairings":    len(s.monitor.Keys()),
	})
}
