package events

// Event type constants for kelindar/event.
const (
	TypeRunStarted uint32 = iota + 1
	TypeRunProgress
	TypeRunStateChanged
	TypeRunStatus
	TypeRunFinished
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// RunStartedEvent is published when a compression run begins.
type RunStartedEvent struct {
	RunID     string `json:"run_id" example:"run-001" doc:"Run identifier"`
	InputPath string `json:"input_path" example:"/videos/input.mp4" doc:"Source file path"`
	Codec     string `json:"codec" example:"h264" doc:"Target codec family"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RunStartedEvent.
func (e RunStartedEvent) Type() uint32 { return TypeRunStarted }

// RunProgressEvent carries periodic progress updates during encoding.
type RunProgressEvent struct {
	RunID   string `json:"run_id" example:"run-001" doc:"Run identifier"`
	Percent int    `json:"percent" example:"42" doc:"Completion percentage, 0 to 100"`
	Frames  int64  `json:"frames" example:"1260" doc:"Video frames processed so far"`
}

// Type returns the event type identifier for RunProgressEvent.
func (e RunProgressEvent) Type() uint32 { return TypeRunProgress }

// RunStateChangedEvent is published on every pipeline state transition.
type RunStateChangedEvent struct {
	RunID     string `json:"run_id" example:"run-001" doc:"Run identifier"`
	State     string `json:"state" example:"encoding_video" doc:"New pipeline state"`
	Detail    string `json:"detail,omitempty" example:"libx264" doc:"State detail, such as the negotiated encoder"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RunStateChangedEvent.
func (e RunStateChangedEvent) Type() uint32 { return TypeRunStateChanged }

// RunStatusEvent carries a human-readable status message during a run,
// such as encoder attempts and periodic frame counts.
type RunStatusEvent struct {
	RunID     string `json:"run_id" example:"run-001" doc:"Run identifier"`
	Message   string `json:"message" example:"Processed 300/900 frames" doc:"Status message"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RunStatusEvent.
func (e RunStatusEvent) Type() uint32 { return TypeRunStatus }

// RunFinishedEvent is published exactly once when a run reaches a terminal
// outcome.
type RunFinishedEvent struct {
	RunID      string `json:"run_id" example:"run-001" doc:"Run identifier"`
	Outcome    string `json:"outcome" example:"success" doc:"Terminal outcome: success, cancelled, or failed"`
	Encoder    string `json:"encoder,omitempty" example:"libx264" doc:"Video encoder that served the run"`
	OutputPath string `json:"output_path,omitempty" example:"/videos/output.mp4" doc:"Destination file path"`
	Error      string `json:"error,omitempty" doc:"Failure description when the outcome is failed"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RunFinishedEvent.
func (e RunFinishedEvent) Type() uint32 { return TypeRunFinished }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"pipeline" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
