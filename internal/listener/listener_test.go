package listener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/ingestion"
)

type recordingLauncher struct {
	mu       sync.Mutex
	launched []domain.JobContext
}

func (l *recordingLauncher) Launch(jc domain.JobContext) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched = append(l.launched, jc)
}

type stubImporter struct{}

func (stubImporter) Import(ctx context.Context, req ingestion.ImportRequest) (ingestion.Summary, error) {
	return ingestion.Summary{}, nil
}

func (stubImporter) Revalidate(ctx context.Context, sheetID string) (ingestion.Summary, error) {
	return ingestion.Summary{SheetID: sheetID}, nil
}

func postEvent(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestJobEventHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		launched bool
	}{
		{
			name:     "matching operation",
			body:     `{"topic":"job:ready","operation":"federate","context":{"jobId":"job-1","workbookId":"wb-1","spaceId":"sp-1"}}`,
			status:   http.StatusAccepted,
			launched: true,
		},
		{
			name:     "suffixed operation",
			body:     `{"topic":"job:ready","operation":"federate-payroll","context":{"jobId":"job-2","spaceId":"sp-1"}}`,
			status:   http.StatusAccepted,
			launched: true,
		},
		{
			name:   "other operation",
			body:   `{"topic":"job:ready","operation":"export","context":{"jobId":"job-3"}}`,
			status: http.StatusNoContent,
		},
		{
			name:   "other topic",
			body:   `{"topic":"job:completed","operation":"federate","context":{"jobId":"job-4"}}`,
			status: http.StatusNoContent,
		},
		{
			name:   "missing job id",
			body:   `{"topic":"job:ready","operation":"federate","context":{}}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed payload",
			body:   `{"topic":`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher := &recordingLauncher{}
			handler := NewJobEventHandler(launcher, nil, nil)

			rec := postEvent(t, handler, tt.body)

			assert.Equal(t, tt.status, rec.Code)
			if tt.launched {
				require.Len(t, launcher.launched, 1)
				assert.NotEmpty(t, launcher.launched[0].JobID)
			} else {
				assert.Empty(t, launcher.launched)
			}
		})
	}
}

func TestJobEventHandlerPassesContext(t *testing.T) {
	launcher := &recordingLauncher{}
	handler := NewJobEventHandler(launcher, nil, nil)

	rec := postEvent(t, handler, `{"topic":"job:ready","operation":"federate","context":{"jobId":"job-1","workbookId":"wb-1","spaceId":"sp-1"}}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []domain.JobContext{{JobID: "job-1", WorkbookID: "wb-1", SpaceID: "sp-1"}}, launcher.launched)
}

func TestServerRoutes(t *testing.T) {
	launcher := &recordingLauncher{}
	server := NewServer(Options{
		Addr:           ":0",
		AllowedOrigins: []string{"http://localhost:3000"},
		Launcher:       launcher,
		Importer:       stubImporter{},
	})
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = postEvent(t, handler, `{"topic":"job:ready","operation":"federate","context":{"jobId":"job-1"}}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, launcher.launched, 1)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revalidate?sheetId=s1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	preflight := httptest.NewRequest(http.MethodOptions, "/events", nil)
	preflight.Header.Set("Origin", "http://localhost:3000")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerWithoutImporterHasNoImportRoute(t *testing.T) {
	server := NewServer(Options{Launcher: &recordingLauncher{}})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	server := NewServer(Options{Addr: "127.0.0.1:0", Launcher: &recordingLauncher{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, server.Run(ctx))
}
