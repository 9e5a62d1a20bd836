package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Capability models
type CapabilitiesData struct {
	NVENC        bool     `json:"nvenc" example:"false" doc:"NVIDIA NVENC encoders available"`
	QSV          bool     `json:"qsv" example:"false" doc:"Intel Quick Sync encoders available"`
	VAAPI        bool     `json:"vaapi" example:"true" doc:"VAAPI encoders available"`
	VideoToolbox bool     `json:"videotoolbox" example:"false" doc:"Apple VideoToolbox encoders available"`
	Codecs       []string `json:"codecs" example:"[\"h264\",\"h265\"]" doc:"Codec families with at least one usable encoder"`
	Encoders     []string `json:"encoders" doc:"Concrete video encoder identifiers"`
	Count        int      `json:"count" example:"6" doc:"Number of usable video encoders"`
}

type CapabilitiesResponse struct {
	Body CapabilitiesData
}

// Compression run models
type CompressRequestData struct {
	InputPath  string `json:"input_path" minLength:"1" example:"/videos/input.mp4" doc:"Source file path"`
	OutputPath string `json:"output_path" minLength:"1" example:"/videos/output.mp4" doc:"Destination file path"`

	Codec       string `json:"codec,omitempty" enum:"h264,h265,vp9,av1" example:"h264" doc:"Target codec family"`
	QualityMode string `json:"quality_mode,omitempty" enum:"crf,bitrate" example:"crf" doc:"Quality control mode"`
	CRF         int    `json:"crf,omitempty" minimum:"0" maximum:"51" example:"23" doc:"Constant rate factor (crf mode)"`
	Bitrate     string `json:"bitrate,omitempty" example:"2M" doc:"Target video bitrate (bitrate mode)"`

	Resolution   string `json:"resolution,omitempty" enum:"original,1080p,720p,480p" example:"original" doc:"Output resolution preset"`
	FPS          string `json:"fps,omitempty" enum:"original,24,30,60" example:"original" doc:"Output frame rate preset"`
	Acceleration string `json:"acceleration,omitempty" enum:"auto,nvenc,qsv,vaapi,cpu" example:"auto" doc:"Hardware acceleration preference"`
	Preset       string `json:"preset,omitempty" enum:"ultrafast,fast,medium,slow,veryslow" example:"medium" doc:"Encoder speed preset"`

	AudioCodec   string `json:"audio_codec,omitempty" example:"aac" doc:"Audio encoder name"`
	AudioBitrate string `json:"audio_bitrate,omitempty" example:"128K" doc:"Audio bitrate"`
	Threads      int    `json:"threads,omitempty" minimum:"0" example:"0" doc:"Encoder thread count, 0 for framework default"`
}

type CompressRequest struct {
	Body CompressRequestData
}

type RunData struct {
	RunID      string `json:"run_id" example:"run-1" doc:"Run identifier"`
	State      string `json:"state" example:"encoding_video" doc:"Current pipeline state"`
	Percent    int    `json:"percent" example:"42" doc:"Completion percentage, 0 to 100"`
	Frames     int64  `json:"frames" example:"1260" doc:"Video frames processed"`
	Outcome    string `json:"outcome,omitempty" example:"success" doc:"Terminal outcome once the run is done"`
	Encoder    string `json:"encoder,omitempty" example:"libx264" doc:"Video encoder serving the run"`
	Error      string `json:"error,omitempty" doc:"Failure description when the outcome is failed"`
	InputPath  string `json:"input_path" example:"/videos/input.mp4" doc:"Source file path"`
	OutputPath string `json:"output_path" example:"/videos/output.mp4" doc:"Destination file path"`
	Done       bool   `json:"done" example:"false" doc:"Whether the run reached a terminal outcome"`
}

type RunResponse struct {
	Body RunData
}

type CancelRequestData struct {
	RunID string `json:"run_id,omitempty" example:"run-1" doc:"Run to cancel, defaults to the active run"`
}

type CancelRequest struct {
	Body CancelRequestData
}

type CancelData struct {
	RunID   string `json:"run_id" example:"run-1" doc:"Run the cancellation was delivered to"`
	Message string `json:"message" example:"Cancellation requested" doc:"Status message"`
}

type CancelResponse struct {
	Body CancelData
}

// Settings models
type SettingsData struct {
	Codec        string `json:"codec" example:"h264" doc:"Target codec family"`
	QualityMode  string `json:"quality_mode" example:"crf" doc:"Quality control mode"`
	CRF          int    `json:"crf" example:"23" doc:"Constant rate factor"`
	Bitrate      string `json:"bitrate" example:"1M" doc:"Target video bitrate"`
	Resolution   string `json:"resolution" example:"original" doc:"Output resolution preset"`
	FPS          string `json:"fps" example:"original" doc:"Output frame rate preset"`
	Acceleration string `json:"acceleration" example:"auto" doc:"Hardware acceleration preference"`
	Preset       string `json:"preset" example:"medium" doc:"Encoder speed preset"`
	AudioCodec   string `json:"audio_codec" example:"aac" doc:"Audio encoder name"`
	AudioBitrate string `json:"audio_bitrate" example:"128K" doc:"Audio bitrate"`
	Threads      int    `json:"threads" example:"0" doc:"Encoder thread count"`
}

type SettingsResponse struct {
	Body SettingsData
}

// Log models
type LogHistoryData struct {
	Entries []LogEntryData `json:"entries" doc:"Buffered log entries, oldest first"`
	Count   int            `json:"count" example:"120" doc:"Number of entries returned"`
}

type LogEntryData struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"pipeline" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogHistoryResponse struct {
	Body LogHistoryData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go version used to build"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Error models
type ErrorData struct {
	Error   string `json:"error" example:"Bad Request" doc:"Error type"`
	Message string `json:"message" example:"Invalid input" doc:"Error message"`
}

type ErrorResponse struct {
	Body ErrorData
}
