package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan RunStartedEvent, 1)

	unsub := bus.Subscribe(func(e RunStartedEvent) {
		received <- e
	})
	defer unsub()

	event := RunStartedEvent{
		RunID:     "run-001",
		InputPath: "/videos/input.mp4",
		Codec:     "h264",
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.RunID != event.RunID {
		t.Errorf("Expected run_id %s, got %s", event.RunID, got.RunID)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan RunFinishedEvent, 1)
	received2 := make(chan RunFinishedEvent, 1)

	unsub1 := bus.Subscribe(func(e RunFinishedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e RunFinishedEvent) {
		received2 <- e
	})
	defer unsub2()

	event := RunFinishedEvent{
		RunID:   "run-001",
		Outcome: "success",
	}
	bus.Publish(event)

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan RunProgressEvent, 1)

	unsub := bus.Subscribe(func(e RunProgressEvent) {
		received <- e
	})

	bus.Publish(RunProgressEvent{RunID: "run-001", Percent: 10})
	<-received

	unsub()

	bus.Publish(RunProgressEvent{RunID: "run-001", Percent: 20})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	progressReceived := make(chan bool, 1)
	finishedReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ RunProgressEvent) {
		progressReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ RunFinishedEvent) {
		finishedReceived <- true
	})
	defer unsub2()

	// Publish RunProgressEvent
	bus.Publish(RunProgressEvent{RunID: "run-001", Percent: 50})
	<-progressReceived

	select {
	case <-finishedReceived:
		t.Fatal("Finished subscriber should NOT have received RunProgressEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	// Publish RunFinishedEvent
	bus.Publish(RunFinishedEvent{RunID: "run-001", Outcome: "success"})
	<-finishedReceived

	select {
	case <-progressReceived:
		t.Fatal("Progress subscriber should NOT have received RunFinishedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ RunProgressEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(RunProgressEvent{
					RunID:   "run-001",
					Percent: 50,
				})
			}
		}()
	}

	wg.Wait()

	// Read all expected events
	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"RunStarted", RunStartedEvent{RunID: "run-001"}},
		{"RunProgress", RunProgressEvent{RunID: "run-001", Percent: 1}},
		{"RunStateChanged", RunStateChangedEvent{RunID: "run-001", State: "encoding_video"}},
		{"RunFinished", RunFinishedEvent{RunID: "run-001", Outcome: "success"}},
		{"LogEntry", LogEntryEvent{Seq: 1, Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case RunStartedEvent:
				unsub = bus.Subscribe(func(e RunStartedEvent) { received <- e })
			case RunProgressEvent:
				unsub = bus.Subscribe(func(e RunProgressEvent) { received <- e })
			case RunStateChangedEvent:
				unsub = bus.Subscribe(func(e RunStateChangedEvent) { received <- e })
			case RunFinishedEvent:
				unsub = bus.Subscribe(func(e RunFinishedEvent) { received <- e })
			case LogEntryEvent:
				unsub = bus.Subscribe(func(e LogEntryEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestEventJSONSerialization(t *testing.T) {
	tests := []struct {
		name  string
		event any
	}{
		{
			"RunStartedEvent",
			RunStartedEvent{
				RunID:     "run-001",
				InputPath: "/videos/input.mp4",
				Codec:     "h265",
				Timestamp: "2025-01-27T10:30:00Z",
			},
		},
		{
			"RunStateChangedEvent",
			RunStateChangedEvent{
				RunID:     "run-001",
				State:     "negotiating_video_encoder",
				Detail:    "libx265",
				Timestamp: "2025-01-27T10:30:00Z",
			},
		},
		{
			"RunFinishedEvent",
			RunFinishedEvent{
				RunID:     "run-001",
				Outcome:   "cancelled",
				Timestamp: "2025-01-27T10:30:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			var result map[string]any
			if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
				t.Fatalf("Failed to unmarshal: %v", unmarshalErr)
			}

			if len(result) == 0 {
				t.Fatal("Unmarshaled to empty object")
			}
		})
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[RunProgressEvent](bus, ch)
	defer unsub()

	event := RunProgressEvent{
		RunID:   "run-001",
		Percent: 42,
	}
	bus.Publish(event)

	received := <-ch
	progressEvent, ok := received.(RunProgressEvent)
	if !ok {
		t.Fatalf("Expected RunProgressEvent, got %T", received)
	}
	if progressEvent.Percent != event.Percent {
		t.Errorf("Expected percent %d, got %d", event.Percent, progressEvent.Percent)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[RunFinishedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(RunFinishedEvent{RunID: "run-001", Outcome: "success"})
		done <- true
	}()

	<-done // Should complete without blocking
}
