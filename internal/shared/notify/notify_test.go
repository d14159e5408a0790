package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Deliver(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if s.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (s *captureSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 16, 2, time.Second)
	sink := &captureSink{}
	d.Register(sink)
	d.Start()

	d.Publish(
		New(RequisitionApproved, "1_P-42", nil, map[string]interface{}{"batch_id": "1_P-42"}),
		New(POApproved, "CIMPO-2603-0001", nil, nil),
	)

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, sink.len())

	// publishing after close is dropped, not a panic
	d.Publish(New(InwardRecorded, "x", nil, nil))
}

func TestDispatcherSinkFailureDoesNotStopOthers(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 4, 1, time.Second)
	bad := &captureSink{fail: true}
	d.Register(bad)
	good := NewLogSink(zap.NewNop())
	d.Register(good)
	d.Start()
	d.Publish(New(MasterVerified, "1_P-1", nil, nil))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 1, bad.len())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 1, 1, time.Second)
	// no workers started, queue holds exactly one
	d.Publish(New(POCreated, "a", nil, nil), New(POCreated, "b", nil, nil))
	assert.Equal(t, 1, len(d.queue))
}

func TestPendingFlush(t *testing.T) {
	var p Pending
	rec := &Recorder{}
	p.Flush(rec)
	assert.Empty(t, rec.Events())

	p.Add(New(ItemRequestApproved, "r1", nil, nil))
	p.Add(New(ItemRequestApproved, "r2", nil, nil))
	p.Flush(rec)
	assert.Equal(t, 2, rec.Count(ItemRequestApproved))
	assert.Equal(t, 0, p.Len())
}

func TestWebhookSinkRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var e Event
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		assert.Equal(t, POApproved, e.Type)
		if n < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, "tok", 2, time.Second)
	s.backoff = time.Millisecond
	err := s.Deliver(context.Background(), New(POApproved, "CIMPO-2603-0001", []string{"vendor@acme.test"}, nil))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWebhookSinkGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, "", 1, time.Second)
	s.backoff = time.Millisecond
	err := s.Deliver(context.Background(), New(PORejected, "x", nil, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
