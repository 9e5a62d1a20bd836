package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/alharthydev/compresspro/internal/api/models"
	"github.com/alharthydev/compresspro/internal/runs"
	"github.com/alharthydev/compresspro/internal/settings"
)

// buildSettings overlays the request on the last-used defaults. Fields the
// client omits keep their stored values.
func (s *Server) buildSettings(req models.CompressRequestData) (settings.CompressionSettings, error) {
	base := settings.Default()
	if s.store != nil {
		base = s.store.Load()
	}

	base.InputPath = req.InputPath
	base.OutputPath = req.OutputPath

	if req.Codec != "" {
		c, err := settings.ParseCodec(req.Codec)
		if err != nil {
			return base, err
		}
		base.Codec = c
	}
	if req.QualityMode != "" {
		m, err := settings.ParseQualityMode(req.QualityMode)
		if err != nil {
			return base, err
		}
		base.QualityMode = m
	}
	if req.CRF != 0 {
		base.CRF = req.CRF
	}
	if req.Bitrate != "" {
		base.Bitrate = req.Bitrate
	}
	if req.Resolution != "" {
		r, err := settings.ParseResolution(req.Resolution)
		if err != nil {
			return base, err
		}
		base.Resolution = r
	}
	if req.FPS != "" {
		f, err := settings.ParseFrameRate(req.FPS)
		if err != nil {
			return base, err
		}
		base.FPS = f
	}
	if req.Acceleration != "" {
		a, err := settings.ParseAcceleration(req.Acceleration)
		if err != nil {
			return base, err
		}
		base.Acceleration = a
	}
	if req.Preset != "" {
		p, err := settings.ParsePreset(req.Preset)
		if err != nil {
			return base, err
		}
		base.Preset = p
	}
	if req.AudioCodec != "" {
		base.AudioCodec = req.AudioCodec
	}
	if req.AudioBitrate != "" {
		base.AudioBitrate = req.AudioBitrate
	}
	if req.Threads != 0 {
		base.Threads = req.Threads
	}

	return base, nil
}

func statusToRunData(st runs.Status) models.RunData {
	return models.RunData{
		RunID:      st.RunID,
		State:      string(st.State),
		Percent:    st.Percent,
		Frames:     st.Frames,
		Outcome:    string(st.Outcome),
		Encoder:    st.Encoder,
		Error:      st.Error,
		InputPath:  st.InputPath,
		OutputPath: st.OutputPath,
		Done:       st.Done(),
	}
}

// registerCompressRoutes registers run start, status and cancel endpoints.
func (s *Server) registerCompressRoutes() {
	// Start a compression run
	huma.Register(s.api, huma.Operation{
		OperationID: "start-compression",
		Method:      http.MethodPost,
		Path:        "/api/compress",
		Summary:     "Start Compression",
		Description: "Validate settings and start a compression run. Only one run executes at a time.",
		Tags:        []string{"compress"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 409, 500},
	}, func(ctx context.Context, input *models.CompressRequest) (*models.RunResponse, error) {
		cfg, err := s.buildSettings(input.Body)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid compression settings", err)
		}

		runID, err := s.manager.Start(cfg)
		if err != nil {
			if errors.Is(err, runs.ErrRunActive) {
				return nil, huma.Error409Conflict("A compression run is already active")
			}
			return nil, huma.Error400BadRequest("Could not start compression run", err)
		}

		st, err := s.manager.Status(runID)
		if err != nil {
			return nil, huma.Error500InternalServerError("Run started but status unavailable", err)
		}
		return &models.RunResponse{Body: statusToRunData(st)}, nil
	})

	// Run status
	huma.Register(s.api, huma.Operation{
		OperationID: "get-compression-status",
		Method:      http.MethodGet,
		Path:        "/api/compress/status",
		Summary:     "Compression Status",
		Description: "Get the status of a run. Without run_id, reports the most recent run.",
		Tags:        []string{"compress"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *struct {
		RunID string `query:"run_id" example:"run-1" doc:"Run identifier, defaults to the most recent run"`
	}) (*models.RunResponse, error) {
		if input.RunID != "" {
			st, err := s.manager.Status(input.RunID)
			if err != nil {
				return nil, huma.Error404NotFound("Unknown run: " + input.RunID)
			}
			return &models.RunResponse{Body: statusToRunData(st)}, nil
		}

		st, ok := s.manager.Latest()
		if !ok {
			return nil, huma.Error404NotFound("No compression run has been started")
		}
		return &models.RunResponse{Body: statusToRunData(st)}, nil
	})

	// Cancel a run
	huma.Register(s.api, huma.Operation{
		OperationID: "cancel-compression",
		Method:      http.MethodPost,
		Path:        "/api/compress/cancel",
		Summary:     "Cancel Compression",
		Description: "Request cancellation of a run. Without run_id, cancels the active run.",
		Tags:        []string{"compress"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *models.CancelRequest) (*models.CancelResponse, error) {
		runID := input.Body.RunID
		if runID == "" {
			st, ok := s.manager.Active()
			if !ok {
				return nil, huma.Error404NotFound("No active compression run")
			}
			runID = st.RunID
		}

		if err := s.manager.Cancel(runID); err != nil {
			return nil, huma.Error404NotFound("Unknown run: " + runID)
		}

		return &models.CancelResponse{
			Body: models.CancelData{
				RunID:   runID,
				Message: "Cancellation requested",
			},
		}, nil
	})
}
