package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/gen/probe"
	"github.com/rowanvale/copysmith/server/handlers"
	"github.com/rowanvale/copysmith/server/mocks"
)

func getAvailability(t *testing.T, session *mocks.MockSessionChecker, monitor *probe.Monitor) map[string]interface{} {
	t.Helper()
	prober := probe.NewProber(session, zap.NewNop())
	handler := handlers.NewAvailabilityHandler(prober, monitor, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/availability", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var reply map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	return reply
}

func TestAvailabilityUp(t *testing.T) {
	reply := getAvailability(t, &mocks.MockSessionChecker{}, nil)
	assert.Equal(t, true, reply["available"])
	assert.Equal(t, "remote-function", reply["method"])
}

func TestAvailabilityDown(t *testing.T) {
	session := &mocks.MockSessionChecker{CheckFunc: func(ctx context.Context) error {
		return fmt.Errorf("unreachable")
	}}
	reply := getAvailability(t, session, nil)
	assert.Equal(t, false, reply["available"])
	assert.Equal(t, "none", reply["method"])
}

func TestAvailabilityIncludesMonitorState(t *testing.T) {
	session := &mocks.MockSessionChecker{}
	prober := probe.NewProber(session, zap.NewNop())
	monitor := probe.NewMonitor(prober, probe.MonitorConfig{}, zap.NewNop(), nil)

	reply := getAvailability(t, session, monitor)
	assert.Equal(t, "closed", reply["health"])
}
