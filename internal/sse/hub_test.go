package sse

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/chalkboard-backend/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubBroadcastOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	client := hub.NewSSEClient()
	hub.AddChannel(client, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventLessonCreated, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventLessonGenerationProgress, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, client.Outbound, time.Second)
	gotSecond := recvMessage(t, client.Outbound, time.Second)
	if gotFirst.Event != SSEEventLessonCreated {
		t.Fatalf("first event: want=%s got=%s", SSEEventLessonCreated, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventLessonGenerationProgress {
		t.Fatalf("second event: want=%s got=%s", SSEEventLessonGenerationProgress, gotSecond.Event)
	}
}

func TestSSEHubCloseAndReconnect(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	clientA := hub.NewSSEClient()
	hub.AddChannel(clientA, channel)
	hub.CloseClient(clientA)

	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient()
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventLessonGenerationDone})
	got := recvMessage(t, clientB.Outbound, time.Second)
	if got.Event != SSEEventLessonGenerationDone {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventLessonGenerationDone, got.Event)
	}
}

func TestSSEHubIgnoresUnknownChannel(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient()
	hub.AddChannel(client, "lesson-a")

	hub.Broadcast(SSEMessage{Channel: "lesson-b", Event: SSEEventLessonGenerationProgress})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("unexpected message on unrelated channel: %#v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
