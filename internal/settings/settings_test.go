package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeTempInput creates a small file to act as an existing input path.
func writeTempInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(path, []byte("not a real video"), 0o644); err != nil {
		t.Fatalf("failed to create temp input: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	input := writeTempInput(t)

	valid := Default()
	valid.InputPath = input
	valid.OutputPath = filepath.Join(t.TempDir(), "out.mp4")

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*CompressionSettings)
	}{
		{"missing input", func(s *CompressionSettings) { s.InputPath = "" }},
		{"missing output", func(s *CompressionSettings) { s.OutputPath = "" }},
		{"crf too high", func(s *CompressionSettings) { s.CRF = 52 }},
		{"crf negative", func(s *CompressionSettings) { s.CRF = -1 }},
		{"bad codec", func(s *CompressionSettings) { s.Codec = "mpeg2" }},
		{"bad quality mode", func(s *CompressionSettings) { s.QualityMode = "vbr" }},
		{"bad bitrate", func(s *CompressionSettings) {
			s.QualityMode = QualityBitrate
			s.Bitrate = "lots"
		}},
		{"zero bitrate", func(s *CompressionSettings) {
			s.QualityMode = QualityBitrate
			s.Bitrate = "0"
		}},
		{"bad resolution", func(s *CompressionSettings) { s.Resolution = "8k" }},
		{"bad fps", func(s *CompressionSettings) { s.FPS = "144" }},
		{"bad acceleration", func(s *CompressionSettings) { s.Acceleration = "cuda" }},
		{"bad preset", func(s *CompressionSettings) { s.Preset = "turbo" }},
		{"missing audio codec", func(s *CompressionSettings) { s.AudioCodec = "" }},
		{"bad audio bitrate", func(s *CompressionSettings) { s.AudioBitrate = "loud" }},
		{"negative threads", func(s *CompressionSettings) { s.Threads = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestValidateMissingInputFile(t *testing.T) {
	s := Default()
	s.InputPath = filepath.Join(t.TempDir(), "does-not-exist.mp4")
	s.OutputPath = "out.mp4"

	err := s.Validate()
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
	if !errors.Is(err, ErrInputNotFound) {
		t.Errorf("expected ErrInputNotFound, got: %v", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	store := NewStore(path)

	cfg := Default()
	cfg.Codec = CodecH265
	cfg.QualityMode = QualityBitrate
	cfg.Bitrate = "2.5M"
	cfg.Resolution = Resolution720p
	cfg.FPS = FPS60
	cfg.Preset = PresetSlow
	cfg.Threads = 4
	cfg.InputPath = "/tmp/in.mp4"
	cfg.OutputPath = "/tmp/out.mp4"

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := store.Load()
	if loaded.Codec != CodecH265 {
		t.Errorf("codec = %q, expected h265", loaded.Codec)
	}
	if loaded.QualityMode != QualityBitrate || loaded.Bitrate != "2.5M" {
		t.Errorf("quality = %q/%q, expected bitrate/2.5M", loaded.QualityMode, loaded.Bitrate)
	}
	if loaded.Resolution != Resolution720p || loaded.FPS != FPS60 {
		t.Errorf("resolution/fps = %q/%q, expected 720p/60", loaded.Resolution, loaded.FPS)
	}
	if loaded.Threads != 4 {
		t.Errorf("threads = %d, expected 4", loaded.Threads)
	}

	// Paths are per-run and must not be restored as defaults.
	if loaded.InputPath != "" || loaded.OutputPath != "" {
		t.Errorf("paths should not persist, got %q/%q", loaded.InputPath, loaded.OutputPath)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.toml"))
	got := store.Load()
	if got != Default() {
		t.Errorf("missing file should yield defaults, got %+v", got)
	}
}

func TestStoreLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("{{{ not toml"), 0o644); err != nil {
		t.Fatalf("failed to write malformed file: %v", err)
	}

	store := NewStore(path)
	got := store.Load()
	if got != Default() {
		t.Errorf("malformed file should yield defaults, got %+v", got)
	}
}

func TestStoreLoadUnknownValuesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := "codec = \"mpeg2\"\nresolution = \"8k\"\ncrf_value = 31\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}

	got := NewStore(path).Load()
	if got.Codec != Default().Codec {
		t.Errorf("unknown codec should keep default, got %q", got.Codec)
	}
	if got.Resolution != Default().Resolution {
		t.Errorf("unknown resolution should keep default, got %q", got.Resolution)
	}
	if got.CRF != 31 {
		t.Errorf("valid crf should load, got %d", got.CRF)
	}
}
