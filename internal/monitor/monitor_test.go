package monitor

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/hub"
	"github.com/openvehicletools/can-tracer/internal/logging"
	"github.com/openvehicletools/can-tracer/internal/metrics"
	"github.com/openvehicletools/can-tracer/internal/tracer"
)

func sampleSnapshot() tracer.Snapshot {
	return tracer.Snapshot{
		State:  tracer.Connected,
		Driver: "fake",
		Baud:   500000,
		Mask:   0x7FF,
		Filter: 0x201,
		Entries: []can.Frame{
			can.New(0x201, []byte{0xDE, 0xAD}, false),
			can.New(0x18DAF110, []byte{0x01}, true),
		},
		Activity: []uint32{3, 1},
		MaxRate:  10,
		TotalRx:  4,
	}
}

func TestStateFrom(t *testing.T) {
	st := StateFrom(sampleSnapshot())
	if st.State != "connected" || st.Driver != "fake" || st.Baud != 500000 {
		t.Fatalf("header: %+v", st)
	}
	if st.Mask != "000007FF" || st.Filter != "00000201" {
		t.Fatalf("filter rendering: mask=%q filter=%q", st.Mask, st.Filter)
	}
	if len(st.Entries) != 2 {
		t.Fatalf("entries: %+v", st.Entries)
	}
	if e := st.Entries[0]; e.ID != "201" || e.Data != "DEAD" || e.Len != 2 || e.Extended {
		t.Fatalf("standard entry: %+v", e)
	}
	if e := st.Entries[1]; e.ID != "18DAF110" || !e.Extended {
		t.Fatalf("extended entry: %+v", e)
	}
}

func TestStateFromZero(t *testing.T) {
	st := StateFrom(tracer.Snapshot{})
	if st.State != "disconnected" {
		t.Fatalf("state = %q", st.State)
	}
	if st.Entries == nil || st.Activity == nil {
		t.Fatal("empty collections must render as [], not null")
	}
	if st.Taken != "" {
		t.Fatalf("taken = %q for a never-ticked state", st.Taken)
	}
}

func newTestServer(t *testing.T, h *hub.Hub) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(WithHub(h), WithLogger(logging.Nop()))
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(b)
}

func TestStateEndpoint(t *testing.T) {
	h := hub.New()
	h.Publish(sampleSnapshot())
	_, ts := newTestServer(t, h)
	code, body := getBody(t, ts.URL+"/api/state")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var st State
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode: %v\n%s", err, body)
	}
	if st.Driver != "fake" || len(st.Entries) != 2 || st.TotalRx != 4 {
		t.Fatalf("state: %+v", st)
	}
}

func TestStateEndpointBeforeFirstTick(t *testing.T) {
	_, ts := newTestServer(t, hub.New())
	code, body := getBody(t, ts.URL+"/api/state")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var st State
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode: %v\n%s", err, body)
	}
	if st.State != "disconnected" || len(st.Entries) != 0 {
		t.Fatalf("state before first tick: %+v", st)
	}
}

func TestReadyEndpoint(t *testing.T) {
	var ready atomic.Bool
	ready.Store(true)
	metrics.SetReadinessFunc(ready.Load)
	defer metrics.SetReadinessFunc(nil)

	_, ts := newTestServer(t, hub.New())
	code, body := getBody(t, ts.URL+"/ready")
	if code != http.StatusOK || body != "ready\n" {
		t.Fatalf("ready: code=%d body=%q", code, body)
	}
	ready.Store(false)
	code, body = getBody(t, ts.URL+"/ready")
	if code != http.StatusServiceUnavailable || body != "not ready\n" {
		t.Fatalf("not ready: code=%d body=%q", code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, hub.New())
	code, body := getBody(t, ts.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(body, "tracer_ticks_total") {
		t.Fatal("tracer collectors missing from exposition")
	}
}

func TestStreamEndpoint(t *testing.T) {
	h := hub.New()
	_, ts := newTestServer(t, h)
	resp, err := http.Get(ts.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// Wait for the handler goroutine to attach its consumer.
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream consumer never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.Publish(sampleSnapshot())
	h.Publish(sampleSnapshot())

	sc := bufio.NewScanner(resp.Body)
	for i := 0; i < 2; i++ {
		if !sc.Scan() {
			t.Fatalf("stream ended after %d lines: %v", i, sc.Err())
		}
		var st State
		if err := json.Unmarshal(sc.Bytes(), &st); err != nil {
			t.Fatalf("line %d: %v\n%s", i, err, sc.Text())
		}
		if st.State != "connected" {
			t.Fatalf("line %d state = %q", i, st.State)
		}
	}
}

func TestServeLifecycle(t *testing.T) {
	metrics.SetReadinessFunc(func() bool { return true })
	defer metrics.SetReadinessFunc(nil)

	s := NewServer(WithListenAddr("127.0.0.1:0"), WithHub(hub.New()), WithLogger(logging.Nop()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server never became ready")
	}
	if code, _ := getBody(t, "http://"+s.Addr()+"/ready"); code != http.StatusOK {
		t.Fatalf("ready status = %d", code)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop on context cancel")
	}
}
