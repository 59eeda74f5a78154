package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueAdmitsWithinLimit(t *testing.T) {
	qm := NewQueueMiddleware(QueueConfig{InitialSize: 5})
	handler := qm.Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/generate", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, qm.GetQueueSize(), "entry removed after completion")
	assert.Equal(t, int32(0), qm.GetProcessing())
}

func TestQueueRejectsWhenFull(t *testing.T) {
	qm := NewQueueMiddleware(QueueConfig{InitialSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	handler := qm.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}()
	<-started

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	close(release)
	wg.Wait()
}

func TestQueueSetMaxSize(t *testing.T) {
	qm := NewQueueMiddleware(QueueConfig{InitialSize: 1})
	qm.SetMaxSize(100)
	assert.Equal(t, int64(100), qm.GetMaxSize())
}

func TestQueueShutdownWhenIdle(t *testing.T) {
	qm := NewQueueMiddleware(QueueConfig{InitialSize: 5})
	assert.NoError(t, qm.Shutdown(context.Background()))
}
