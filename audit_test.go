package authgate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func collectEvents(t *testing.T, sink *ChannelSink, want int) []AuditEvent {
	t.Helper()

	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("got %d events, want %d", len(events), want)
		}
	}
	return events
}

func TestAuditLoginEvents(t *testing.T) {
	up := newMockUserProvider()
	engine, _, _ := newTestEngine(t, up)
	seedUser(t, engine, up, "alice@example.com", "correct-horse-battery", false)

	sink := NewChannelSink(16)
	engine.audit = newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)
	defer engine.Close()

	ctx := WithClientIP(context.Background(), "203.0.113.9")

	if _, err := engine.Login(ctx, "alice@example.com", "wrong-password-1", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login err = %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery", ""); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	events := collectEvents(t, sink, 2)

	failure := events[0]
	if failure.EventType != "login_failure" || failure.Success {
		t.Fatalf("first event = %+v", failure)
	}
	if failure.Error != "invalid_credentials" {
		t.Fatalf("failure error code = %q", failure.Error)
	}
	if failure.IP != "203.0.113.9" {
		t.Fatalf("failure ip = %q", failure.IP)
	}
	if failure.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("failure metadata = %v", failure.Metadata)
	}

	success := events[1]
	if success.EventType != "login_success" || !success.Success {
		t.Fatalf("second event = %+v", success)
	}
	if success.UserID == "" || success.SessionID == "" {
		t.Fatalf("success event missing ids: %+v", success)
	}
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := blockingSink{release: block}

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the dispatcher, second fills the buffer, the
	// rest must be dropped without blocking.
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "x"})
	}
	close(block)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s.release
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "drain"})
	}
	d.Close()

	for i := 0; i < 3; i++ {
		select {
		case <-sink.Events():
		default:
			t.Fatalf("event %d not delivered before Close returned", i)
		}
	}

	// Emit after close is a no-op, not a panic.
	d.Emit(context.Background(), AuditEvent{EventType: "late"})
}

func TestAuditDisabledDispatcherIsNil(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatal("disabled audit must not start a dispatcher")
	}

	// A nil dispatcher is safe to use.
	var d *auditDispatcher
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher dropped count")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: "a", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: "b", UserID: "u1"})

	scanner := bufio.NewScanner(&buf)
	var types []string
	for scanner.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line does not decode: %v", err)
		}
		types = append(types, ev.EventType)
	}
	if len(types) != 2 || types[0] != "a" || types[1] != "b" {
		t.Fatalf("decoded event types = %v", types)
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{ErrInvalidCredentials, "invalid_credentials"},
		{ErrEmailExists, "duplicate"},
		{ErrRefreshInvalid, "invalid_token"},
		{ErrTokenInvalid, "invalid_token"},
		{ErrSessionNotFound, "session_not_found"},
		{ErrSessionExpired, "session_expired"},
		{ErrPasswordPolicy, "password_policy"},
		{ErrVerificationInvalid, "verification_invalid"},
		{ErrSessionCreationFailed, "backend_unavailable"},
		{errors.New("anything else"), "internal_error"},
		{nil, ""},
	}

	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
