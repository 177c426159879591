package dashboard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gpml/i18nsync/internal/reconcile"
	"github.com/gpml/i18nsync/internal/record"
)

// Counter reports record statistics. *store.DB implements it.
type Counter interface {
	CountByKind(ctx context.Context) (map[record.Kind]int, error)
	CountByLanguage(ctx context.Context) (map[string]int, error)
}

// Handler formats sync events as dashboard messages.
// It bridges between the reconcilers and the WebSocket server and is safe
// for concurrent use by several daemons.
type Handler struct {
	server  *Server
	counter Counter
	logger  *log.Logger

	mu       sync.Mutex
	failures map[string]bool // paths currently failing
}

// NewHandler creates a new event handler connected to a dashboard server.
// counter may be nil, in which case stats only report failures.
func NewHandler(server *Server, counter Counter, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	h := &Handler{
		server:   server,
		counter:  counter,
		logger:   logger,
		failures: make(map[string]bool),
	}
	server.SetWelcome(h.statsMessage)
	return h
}

// OnRecordCreated handles record creation or replacement
func (h *Handler) OnRecordCreated(r *record.Record) {
	h.send(MessageTypeRecordUpdate, RecordUpdateData{
		ID:        r.ID,
		Action:    "created",
		Kind:      r.Kind.String(),
		Namespace: r.Namespace,
		Key:       r.Key,
		Language:  r.Language,
		Value:     r.Value,
	})
}

// OnRecordDeleted handles record withdrawal
func (h *Handler) OnRecordDeleted(id string) {
	h.send(MessageTypeRecordUpdate, RecordUpdateData{
		ID:     id,
		Action: "deleted",
	})
}

// OnFullSync handles full sync completion events
func (h *Handler) OnFullSync(namespace string, summary reconcile.Summary, duration time.Duration) {
	h.logger.Printf("Sync complete: %s: %d files (%d created, %d deleted, %d failed) in %v",
		namespace, summary.Files, summary.Created, summary.Deleted, len(summary.Failures), duration)

	h.mu.Lock()
	for _, f := range summary.Failures {
		h.failures[f.Path] = true
	}
	h.mu.Unlock()

	h.send(MessageTypeSyncComplete, SyncCompleteData{
		Namespace: namespace,
		Files:     summary.Files,
		Created:   summary.Created,
		Deleted:   summary.Deleted,
		Unchanged: summary.Unchanged,
		Failed:    len(summary.Failures),
		Duration:  duration,
	})
	h.broadcastStats()
}

// OnFileSynced handles a completed pass over one file
func (h *Handler) OnFileSynced(namespace string, res reconcile.Result, err error) {
	h.mu.Lock()
	if err == nil {
		delete(h.failures, res.Path)
	}
	h.mu.Unlock()

	if res.Created == 0 && res.Deleted == 0 {
		return
	}

	failed := 0
	if err != nil {
		failed = 1
	}
	h.send(MessageTypeSyncComplete, SyncCompleteData{
		Namespace: namespace,
		Path:      res.Path,
		Files:     1,
		Created:   res.Created,
		Deleted:   res.Deleted,
		Unchanged: res.Unchanged,
		Failed:    failed,
	})
	h.broadcastStats()
}

// OnFailure handles per-file failures
func (h *Handler) OnFailure(f *reconcile.Failure) {
	h.mu.Lock()
	h.failures[f.Path] = true
	h.mu.Unlock()

	h.send(MessageTypeFailure, FailureData{
		Path:    f.Path,
		Kind:    string(f.Kind),
		Details: f.Details,
	})
}

// Stats computes the current statistics.
func (h *Handler) Stats(ctx context.Context) StatsData {
	stats := StatsData{
		ByKind:     make(map[string]int),
		ByLanguage: make(map[string]int),
	}

	h.mu.Lock()
	stats.Failures = len(h.failures)
	h.mu.Unlock()

	if h.counter == nil {
		return stats
	}

	byKind, err := h.counter.CountByKind(ctx)
	if err != nil {
		h.logger.Printf("Failed to count records: %v", err)
		return stats
	}
	for kind, n := range byKind {
		stats.ByKind[kind.String()] = n
		stats.Total += n
	}

	byLang, err := h.counter.CountByLanguage(ctx)
	if err != nil {
		h.logger.Printf("Failed to count translations: %v", err)
		return stats
	}
	stats.ByLanguage = byLang
	return stats
}

func (h *Handler) statsMessage() Message {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := NewMessage(MessageTypeStats, h.Stats(ctx))
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
	}
	return msg
}

// broadcastStats sends current statistics to all clients
func (h *Handler) broadcastStats() {
	h.server.Broadcast(h.statsMessage())
}

func (h *Handler) send(typ MessageType, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(msg)
}
