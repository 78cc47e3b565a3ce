package listener

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/config"
	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/logging"
)

// TopicJobReady is the only event topic the listener reacts to.
const TopicJobReady = "job:ready"

// JobEvent is the payload the host posts when a job becomes ready.
type JobEvent struct {
	Topic     string            `json:"topic"`
	Operation string            `json:"operation"`
	Context   domain.JobContext `json:"context"`
}

// Launcher starts a job in the background.
type Launcher interface {
	Launch(jc domain.JobContext)
}

// JobEventHandler launches jobs for ready events whose operation matches.
type JobEventHandler struct {
	launcher  Launcher
	operation *regexp.Regexp
	logger    *zap.SugaredLogger
}

// NewJobEventHandler builds the handler. A nil operation matcher falls back to
// the default federate pattern.
func NewJobEventHandler(launcher Launcher, operation *regexp.Regexp, logger *zap.SugaredLogger) *JobEventHandler {
	if operation == nil {
		operation = regexp.MustCompile(config.DefaultOperationPattern)
	}
	return &JobEventHandler{launcher: launcher, operation: operation, logger: logging.OrNop(logger)}
}

func (h *JobEventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event JobEvent
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(&event); err != nil {
		http.Error(w, "invalid event payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if event.Topic != TopicJobReady || !h.operation.MatchString(event.Operation) {
		h.logger.Debugw("ignoring event", "topic", event.Topic, "operation", event.Operation)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if strings.TrimSpace(event.Context.JobID) == "" {
		http.Error(w, "context.jobId is required", http.StatusBadRequest)
		return
	}

	h.launcher.Launch(event.Context)
	w.WriteHeader(http.StatusAccepted)
}
