package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/alharthydev/compresspro/internal/api/models"
	"github.com/alharthydev/compresspro/internal/settings"
)

func settingsToData(cfg settings.CompressionSettings) models.SettingsData {
	return models.SettingsData{
		Codec:        string(cfg.Codec),
		QualityMode:  string(cfg.QualityMode),
		CRF:          cfg.CRF,
		Bitrate:      cfg.Bitrate,
		Resolution:   string(cfg.Resolution),
		FPS:          string(cfg.FPS),
		Acceleration: string(cfg.Acceleration),
		Preset:       string(cfg.Preset),
		AudioCodec:   cfg.AudioCodec,
		AudioBitrate: cfg.AudioBitrate,
		Threads:      cfg.Threads,
	}
}

// registerSettingsRoutes registers the last-used settings endpoint. The
// store only changes after a successful run, so this is what a front end
// should pre-fill its form with.
func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Last-Used Settings",
		Description: "Get the settings of the last successful run, falling back to defaults",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SettingsResponse, error) {
		cfg := settings.Default()
		if s.store != nil {
			cfg = s.store.Load()
		}
		return &models.SettingsResponse{Body: settingsToData(cfg)}, nil
	})
}
