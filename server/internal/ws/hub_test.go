package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/samplerate/pkg/estimate"
	"github.com/obsidianstack/samplerate/pkg/form"
	"github.com/obsidianstack/samplerate/server/internal/metrics"
	wsHub "github.com/obsidianstack/samplerate/server/internal/ws"
)

// --- helpers ----------------------------------------------------------------

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cancel function.
func startHub(t *testing.T) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub, err := wsHub.New(estimate.DefaultCeiling(), metrics.New())
	if err != nil {
		t.Fatalf("ws.New: %v", err)
	}
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one envelope from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return m
}

// readSnapshot reads one message and requires it to be an estimate event.
func readSnapshot(t *testing.T, conn *websocket.Conn) form.Snapshot {
	t.Helper()
	m := readMessage(t, conn)
	if m.Event != wsHub.EventEstimate || m.Data == nil {
		t.Fatalf("event: got %q (data %v), want estimate", m.Event, m.Data)
	}
	return *m.Data
}

func send(t *testing.T, conn *websocket.Conn, field, value string) {
	t.Helper()
	if err := conn.WriteJSON(wsHub.Request{Field: field, Value: value}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesInitialState(t *testing.T) {
	wsURL, _, _ := startHub(t)
	conn := dial(t, wsURL)

	snap := readSnapshot(t, conn)
	if snap.Result.EstimatedPerDay != 0 || snap.Result.SampleRate != 1 {
		t.Errorf("initial result: got %+v", snap.Result)
	}
	if snap.Result.EffectiveCeiling != 13824000 {
		t.Errorf("effective_ceiling: got %d, want 13824000", snap.Result.EffectiveCeiling)
	}
	if snap.Message != "" {
		t.Errorf("message: got %q, want empty", snap.Message)
	}
}

func TestHub_FieldChanges_Recompute(t *testing.T) {
	wsURL, _, _ := startHub(t)
	conn := dial(t, wsURL)
	readSnapshot(t, conn)

	send(t, conn, form.FieldTransactionsPerSession, "1000")
	snap := readSnapshot(t, conn)
	if snap.TransactionsPerSession != "1000" || snap.Result.EstimatedPerDay != 0 {
		t.Errorf("after t=1000: got %+v", snap)
	}

	send(t, conn, form.FieldSessionsPerDay, "50000")
	snap = readSnapshot(t, conn)
	if !snap.Result.SamplingRequired {
		t.Fatal("sampling_required: got false, want true")
	}
	if snap.SamplePercent != "27.648%" {
		t.Errorf("sample_percent: got %q, want 27.648%%", snap.SamplePercent)
	}
	if len(snap.Hints) == 0 || snap.Hints[0].Key != "sampling_required" {
		t.Errorf("hints: got %+v", snap.Hints)
	}
}

func TestHub_InvalidInput_KeepsValues(t *testing.T) {
	wsURL, _, _ := startHub(t)
	conn := dial(t, wsURL)
	readSnapshot(t, conn)

	send(t, conn, form.FieldTransactionsPerSession, "10")
	readSnapshot(t, conn)
	send(t, conn, form.FieldSessionsPerDay, "5000")
	readSnapshot(t, conn)

	send(t, conn, form.FieldTransactionsPerSession, "12a")
	snap := readSnapshot(t, conn)
	if snap.Message != estimate.InvalidIntegerMessage {
		t.Errorf("message: got %q, want %q", snap.Message, estimate.InvalidIntegerMessage)
	}
	if snap.TransactionsPerSession != "10" || snap.Result.EstimatedPerDay != 50000 {
		t.Errorf("values changed after invalid input: %+v", snap)
	}

	// The next valid change clears the message.
	send(t, conn, form.FieldTransactionsPerSession, "20")
	snap = readSnapshot(t, conn)
	if snap.Message != "" || snap.Result.EstimatedPerDay != 100000 {
		t.Errorf("after valid input: got message %q, estimate %d", snap.Message, snap.Result.EstimatedPerDay)
	}
}

func TestHub_PresetSelection(t *testing.T) {
	wsURL, _, _ := startHub(t)
	conn := dial(t, wsURL)
	readSnapshot(t, conn)

	send(t, conn, form.FieldEventsPerSecond, "1000")
	snap := readSnapshot(t, conn)
	if snap.Ceiling.EventsPerSecond != 1000 || snap.Result.EffectiveCeiling != 69120000 {
		t.Errorf("after eps=1000: ceiling %+v, effective %d", snap.Ceiling, snap.Result.EffectiveCeiling)
	}

	send(t, conn, form.FieldEventsPerSecond, "300")
	snap = readSnapshot(t, conn)
	if !strings.HasPrefix(snap.Message, "Choose one of the presets") {
		t.Errorf("message: got %q", snap.Message)
	}
	if snap.Ceiling.EventsPerSecond != 1000 {
		t.Errorf("ceiling changed after rejected preset: %+v", snap.Ceiling)
	}
}

func TestHub_ErrorEvents(t *testing.T) {
	wsURL, _, _ := startHub(t)
	conn := dial(t, wsURL)
	readSnapshot(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := readMessage(t, conn)
	if m.Event != wsHub.EventError || m.Error != "malformed request" {
		t.Errorf("malformed: got %+v", m)
	}

	send(t, conn, "colour", "blue")
	m = readMessage(t, conn)
	if m.Event != wsHub.EventError || !strings.Contains(m.Error, "colour") {
		t.Errorf("unknown field: got %+v", m)
	}
}

func TestHub_ClientsAreIndependent(t *testing.T) {
	wsURL, _, _ := startHub(t)
	a := dial(t, wsURL)
	b := dial(t, wsURL)
	readSnapshot(t, a)
	readSnapshot(t, b)

	send(t, a, form.FieldTransactionsPerSession, "7")
	readSnapshot(t, a)

	send(t, b, form.FieldSessionsPerDay, "3")
	snap := readSnapshot(t, b)
	if snap.TransactionsPerSession != "" || snap.Result.EstimatedPerDay != 0 {
		t.Errorf("client b saw client a's input: %+v", snap)
	}
}

func TestHub_SetCeiling_PushesToAllClients(t *testing.T) {
	wsURL, hub, _ := startHub(t)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readSnapshot(t, conns[i])
	}
	send(t, conns[0], form.FieldTransactionsPerSession, "10")
	readSnapshot(t, conns[0])
	send(t, conns[0], form.FieldSessionsPerDay, "200")
	readSnapshot(t, conns[0])

	if err := hub.SetCeiling(estimate.Ceiling{DailyCap: 1000, SafetyMargin: 1}); err != nil {
		t.Fatalf("SetCeiling: %v", err)
	}

	for i, conn := range conns {
		snap := readSnapshot(t, conn)
		if snap.Result.EffectiveCeiling != 1000 {
			t.Errorf("client %d: effective_ceiling got %d, want 1000", i, snap.Result.EffectiveCeiling)
		}
	}

	// Forms created after the reload start from the new ceiling too.
	late := dial(t, wsURL)
	if snap := readSnapshot(t, late); snap.Ceiling.DailyCap != 1000 {
		t.Errorf("late client ceiling: got %+v", snap.Ceiling)
	}
}

func TestHub_SetCeiling_RejectsInvalid(t *testing.T) {
	_, hub, _ := startHub(t)
	if err := hub.SetCeiling(estimate.Ceiling{SafetyMargin: 3}); err == nil {
		t.Fatal("SetCeiling: want error for margin 3")
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _ := startHub(t)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readSnapshot(t, conns[i]) // registered before the first message is sent
	}
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}

	conns[0].Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.Count(); n != 2 {
		t.Errorf("Count after disconnect: got %d, want 2", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t)

	conn := dial(t, wsURL)
	readSnapshot(t, conn)

	cancel() // signal shutdown

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("ReadMessage after cancel: want close error")
	}
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub, err := wsHub.New(estimate.DefaultCeiling(), nil)
	if err != nil {
		t.Fatalf("ws.New: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers → 400
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
