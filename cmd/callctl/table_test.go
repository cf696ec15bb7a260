package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/thereayou/talk-signaling/pkg/signaling"
)

func TestRenderPeers(t *testing.T) {
	var buf bytes.Buffer
	renderPeers(&buf, []signaling.Peer{
		{UserID: "alice", SessionID: "S1", LastPing: 1},
		{SessionID: "S2", LastPing: 2},
	})

	out := buf.String()
	for _, want := range []string{"alice", "(guest)", "S1", "S2", "Total"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintEvent_CallLeftEnds(t *testing.T) {
	var buf bytes.Buffer
	if printEvent(&buf, signaling.Event{Kind: signaling.EventUsersInRoom}) {
		t.Fatalf("roster update ended the call")
	}
	if !printEvent(&buf, signaling.Event{Kind: signaling.EventCallLeft, Reason: "ping failed"}) {
		t.Fatalf("callLeft did not end the call")
	}
	if !strings.Contains(buf.String(), "ping failed") {
		t.Fatalf("reason not printed: %s", buf.String())
	}
}

func TestShort(t *testing.T) {
	if got := short("abc"); got != "abc" {
		t.Fatalf("short=%q, want abc", got)
	}
	if got := short(strings.Repeat("x", 40)); got != strings.Repeat("x", 12)+"…" {
		t.Fatalf("short=%q", got)
	}
}
