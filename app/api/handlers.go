package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gin-gonic/gin"

	"github.com/jkaae/kinogram/app/database"
	"github.com/jkaae/kinogram/app/program"
	"github.com/jkaae/kinogram/app/tasks"
)

func NewHandler(runner tasks.ProgramRunner, snapshotRepo database.SnapshotRepository,
	scheduler tasks.TaskSchedulerInterface, snapshotTTL time.Duration) *Handler {
	return &Handler{
		runner:       runner,
		snapshotRepo: snapshotRepo,
		scheduler:    scheduler,
		snapshotTTL:  snapshotTTL,
	}
}

// GetProgram serves the program for an explicit date window. Both bounds
// are required; the open-ended mode lives on /program/upcoming.
func (h *Handler) GetProgram(c *gin.Context) {
	window, ok := h.requestedWindow(c)
	if !ok {
		return
	}
	h.serveWindow(c, window)
}

// GetUpcoming serves everything from today onward.
func (h *Handler) GetUpcoming(c *gin.Context) {
	window, err := program.NewWindow(time.Now(), time.Time{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build window"})
		return
	}
	h.serveWindow(c, window)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if h.snapshotRepo != nil {
		if count, err := h.snapshotRepo.GetSnapshotCount(); err == nil {
			health["snapshots"] = count
		}
	}
	health["background_refresh"] = h.scheduler != nil

	c.JSON(http.StatusOK, health)
}

// APIRefreshProgram enqueues a background refresh for the requested window
// instead of blocking the caller on a full crawl.
func (h *Handler) APIRefreshProgram(c *gin.Context) {
	if h.scheduler == nil || h.snapshotRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Background refresh is not enabled"})
		return
	}

	window, ok := h.requestedWindow(c)
	if !ok {
		return
	}

	refreshTask := tasks.NewRefreshProgramTask(window, h.runner, h.snapshotRepo)
	if err := h.scheduler.EnqueueTask(refreshTask); err != nil {
		slog.Error("Error enqueueing refresh task", "window", window.Key(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"window":  window.Key(),
		"task": gin.H{
			"id":   refreshTask.ID,
			"type": refreshTask.Type,
		},
	})
}

// requestedWindow parses the from/to query parameters. Both are required;
// replies with 400 and returns false when either is missing or the pair
// does not form a valid window.
func (h *Handler) requestedWindow(c *gin.Context) (program.Window, bool) {
	from, ok := h.requiredDate(c, "from")
	if !ok {
		return program.Window{}, false
	}
	to, ok := h.requiredDate(c, "to")
	if !ok {
		return program.Window{}, false
	}

	window, err := program.NewWindow(from, to)
	if err != nil {
		if errors.Is(err, program.ErrBadRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "End date precedes start date"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build window"})
		}
		return program.Window{}, false
	}

	return window, true
}

func (h *Handler) requiredDate(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing '" + name + "' date"})
		return time.Time{}, false
	}
	parsed, err := dateparse.ParseIn(raw, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unparseable '" + name + "' date", "value": raw})
		return time.Time{}, false
	}
	return parsed, true
}

func (h *Handler) serveWindow(c *gin.Context, window program.Window) {
	key := window.Key()

	if h.snapshotRepo != nil {
		snapshot, err := h.snapshotRepo.GetSnapshot(key)
		if err != nil {
			slog.Error("Database error", "operation", "get_snapshot", "window", key, "error", err)
		} else if snapshot != nil && snapshot.Fresh(h.snapshotTTL, time.Now().UTC()) {
			c.Header("X-Program-Generated-At", snapshot.GeneratedAt.Format(time.RFC3339))
			c.Data(http.StatusOK, "application/json; charset=utf-8", snapshot.Payload)
			return
		}
	}

	prog, err := h.runner.Run(c.Request.Context(), window)
	if err != nil {
		slog.Error("Program extraction failed", "window", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Program extraction failed"})
		return
	}

	data, err := json.Marshal(prog.Payload())
	if err != nil {
		slog.Error("Payload serialization failed", "window", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payload serialization failed"})
		return
	}

	if h.snapshotRepo != nil {
		err := h.snapshotRepo.UpsertSnapshot(database.Snapshot{
			Key:         key,
			WindowFrom:  window.From,
			WindowTo:    window.To,
			Payload:     data,
			GeneratedAt: time.Now().UTC(),
		})
		if err != nil {
			slog.Error("Database error", "operation", "upsert_snapshot", "window", key, "error", err)
		}
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
