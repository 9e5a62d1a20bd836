package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/alharthydev/compresspro/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for run lifecycle, progress and state changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"run-started":       events.RunStartedEvent{},
		"run-progress":      events.RunProgressEvent{},
		"run-state-changed": events.RunStateChangedEvent{},
		"run-status":        events.RunStatusEvent{},
		"run-finished":      events.RunFinishedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Create event channel for this connection
		eventCh := make(chan any, 10)

		// Subscribe to all run event types using the event bus
		unsubscribers := []func(){
			events.SubscribeToChannel[events.RunStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RunProgressEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RunStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RunStatusEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RunFinishedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Send the current run state first so late subscribers catch up
		if st, ok := s.manager.Latest(); ok {
			if err := send.Data(events.RunStateChangedEvent{
				RunID:     st.RunID,
				State:     string(st.State),
				Detail:    st.Encoder,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		// Keep connection alive and forward events
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					// Connection failed, clean up and exit
					return
				}
			}
		}
	})
}
