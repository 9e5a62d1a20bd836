package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"
	"github.com/alharthydev/compresspro/internal/api/models"
	"github.com/alharthydev/compresspro/internal/settings"
)

// capabilitiesData condenses the detection snapshot for API responses.
func (s *Server) capabilitiesData() models.CapabilitiesData {
	encoders := s.snapshot.Encoders()
	sort.Strings(encoders)

	codecs := []string{}
	for _, c := range []settings.Codec{settings.CodecH264, settings.CodecH265, settings.CodecVP9, settings.CodecAV1} {
		if s.snapshot.SupportsCodec(c) {
			codecs = append(codecs, string(c))
		}
	}

	return models.CapabilitiesData{
		NVENC:        s.snapshot.NVENC,
		QSV:          s.snapshot.QSV,
		VAAPI:        s.snapshot.VAAPI,
		VideoToolbox: s.snapshot.VideoToolbox,
		Codecs:       codecs,
		Encoders:     encoders,
		Count:        len(encoders),
	}
}

// registerCapabilityRoutes registers the encoder capability endpoint.
func (s *Server) registerCapabilityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/capabilities",
		Summary:     "Capabilities",
		Description: "Report detected hardware accelerators and usable video encoders",
		Tags:        []string{"capabilities"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.CapabilitiesResponse, error) {
		return &models.CapabilitiesResponse{Body: s.capabilitiesData()}, nil
	})
}
