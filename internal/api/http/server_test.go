package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/memwatch/internal/api/http/handlers"
	apiconfig "github.com/weisyn/memwatch/internal/config/api"
	"github.com/weisyn/memwatch/internal/core/diagnostics"
	"github.com/weisyn/memwatch/internal/core/feature"
	metricsimpl "github.com/weisyn/memwatch/internal/core/infrastructure/metrics"
	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
)

// stubService 记录调用的门面替身
type stubService struct {
	features   []feature.Status
	pressure   types.SystemPressureSnapshot
	leaks      []types.LeakPattern
	exportPath string
	exportErr  error
	forced     []string
	sleeps     int
	resumes    int
}

func (s *stubService) Enable(_ context.Context, name string) error {
	for i := range s.features {
		if s.features[i].Name == name {
			s.features[i].Enabled = true
			return nil
		}
	}
	return feature.ErrUnknownFeature
}

func (s *stubService) Disable(name string) error {
	for i := range s.features {
		if s.features[i].Name == name {
			s.features[i].Enabled = false
			return nil
		}
	}
	return feature.ErrUnknownFeature
}

func (s *stubService) Features() []feature.Status            { return s.features }
func (s *stubService) AttachTarget(host.Target) error        { return nil }
func (s *stubService) DetachTarget(string) bool              { return false }
func (s *stubService) Targets() []telemetry.TargetState      { return nil }
func (s *stubService) GetDetectedLeaks() []types.LeakPattern { return s.leaks }
func (s *stubService) GetPressureHistory() []types.SystemPressureSnapshot {
	return []types.SystemPressureSnapshot{s.pressure}
}
func (s *stubService) GetRemediationHistory() []types.RemediationEvent { return nil }
func (s *stubService) GetCurrentSystemPressure() types.SystemPressureSnapshot {
	return s.pressure
}
func (s *stubService) GeneratePerformanceReport() types.PerformanceReport {
	return types.PerformanceReport{Score: 88}
}

func (s *stubService) ForceRemediation(_ context.Context, id string) (types.RemediationEvent, error) {
	if id != "tab" {
		return types.RemediationEvent{}, remediation.ErrUnknownTarget
	}
	s.forced = append(s.forced, id)
	return types.RemediationEvent{TargetID: id, Reason: types.ReasonManual}, nil
}

func (s *stubService) ExportDiagnostics(path string) (string, error) {
	if s.exportErr != nil {
		return "", s.exportErr
	}
	if path == "" {
		path = s.exportPath
	}
	return path, nil
}

func (s *stubService) RecoveryState(string) ([]byte, bool)    { return nil, false }
func (s *stubService) HostStats() diagnostics.HostStats       { return diagnostics.HostStats{HeapAlloc: 1} }
func (s *stubService) Footprint() []metrics.ModuleMemoryStats { return nil }
func (s *stubService) NotifySleep()                           { s.sleeps++ }
func (s *stubService) NotifyResume()                          { s.resumes++ }
func (s *stubService) ReleaseHostMemory() (before, after diagnostics.HostStats) {
	return diagnostics.HostStats{HeapAlloc: 2}, diagnostics.HostStats{HeapAlloc: 1}
}

func newTestServer(t *testing.T, mutate func(*apiconfig.HTTPConfig)) (*Server, *stubService) {
	t.Helper()
	cfg := apiconfig.New(nil).GetOptions().HTTP
	cfg.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}
	svc := &stubService{
		features:   []feature.Status{{Name: "memory-telemetry", Enabled: true}, {Name: "idle-cleanup"}},
		pressure:   types.SystemPressureSnapshot{PressureLevel: types.PressureMedium, PercentUsed: 60},
		leaks:      []types.LeakPattern{{TargetID: "tab", Type: types.LeakSteadyGrowth, Confidence: 0.9}},
		exportPath: "/tmp/dump.json",
	}
	return NewServer(cfg, svc, metricsimpl.NewRecorder().Registry(), nil), svc
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var decoded map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestReadEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)

	t.Run("健康检查", func(t *testing.T) {
		w, body := do(t, s, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", body["status"])
		assert.EqualValues(t, 1, body["features_enabled"])
		assert.EqualValues(t, 2, body["features_total"])
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("压力与泄漏", func(t *testing.T) {
		w, body := do(t, s, http.MethodGet, "/debug/memory/pressure", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "medium", data["pressure_level"])

		w, body = do(t, s, http.MethodGet, "/debug/memory/leaks", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, body["data"], 1)
	})

	t.Run("文本报告", func(t *testing.T) {
		w, _ := do(t, s, http.MethodGet, "/debug/memory/report?format=text", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "88/100")
	})

	t.Run("Prometheus指标", func(t *testing.T) {
		do(t, s, http.MethodGet, "/health", "")
		w, _ := do(t, s, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "memwatch_api_requests_total")
	})

	t.Run("控制端点默认注册", func(t *testing.T) {
		w, _ := do(t, s, http.MethodPost, "/debug/memory/sleep", "")
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}

func TestControlEndpoints(t *testing.T) {
	t.Run("强制修复", func(t *testing.T) {
		s, svc := newTestServer(t, nil)
		w, body := do(t, s, http.MethodPost, "/debug/memory/remediate/tab", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "manual", body["data"].(map[string]any)["reason"])
		assert.Equal(t, []string{"tab"}, svc.forced)

		w, body = do(t, s, http.MethodPost, "/debug/memory/remediate/missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, handlers.ErrorCodeNotFound, body["error"].(map[string]any)["code"])
	})

	t.Run("导出", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		w, body := do(t, s, http.MethodPost, "/debug/memory/export", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "/tmp/dump.json", body["data"].(map[string]any)["path"])

		w, body = do(t, s, http.MethodPost, "/debug/memory/export", `{"path":"/tmp/x.json.sz"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "/tmp/x.json.sz", body["data"].(map[string]any)["path"])

		w, _ = do(t, s, http.MethodPost, "/debug/memory/export", `{bad`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("切换功能", func(t *testing.T) {
		s, svc := newTestServer(t, nil)
		w, _ := do(t, s, http.MethodPost, "/debug/memory/features/idle-cleanup/enable", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, svc.features[1].Enabled)

		w, _ = do(t, s, http.MethodPost, "/debug/memory/features/turbo/disable", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("休眠与唤醒", func(t *testing.T) {
		s, svc := newTestServer(t, nil)
		do(t, s, http.MethodPost, "/debug/memory/sleep", "")
		do(t, s, http.MethodPost, "/debug/memory/resume", "")
		assert.Equal(t, 1, svc.sleeps)
		assert.Equal(t, 1, svc.resumes)
	})

	t.Run("关闭控制后不注册", func(t *testing.T) {
		s, svc := newTestServer(t, func(c *apiconfig.HTTPConfig) { c.EnableControl = false })
		w, _ := do(t, s, http.MethodPost, "/debug/memory/remediate/tab", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, svc.forced)
	})

	t.Run("关闭指标后不暴露", func(t *testing.T) {
		s, _ := newTestServer(t, func(c *apiconfig.HTTPConfig) { c.EnableMetrics = false })
		w, _ := do(t, s, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServerStartStop(t *testing.T) {
	s, _ := newTestServer(t, func(c *apiconfig.HTTPConfig) { c.Port = 0 })
	require.NoError(t, s.Start())
	addr := s.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Stop(ctx))
}
