package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/alharthydev/compresspro/cmd"
	"github.com/alharthydev/compresspro/internal/api"
	"github.com/alharthydev/compresspro/internal/capability"
	"github.com/alharthydev/compresspro/internal/config"
	"github.com/alharthydev/compresspro/internal/events"
	"github.com/alharthydev/compresspro/internal/logging"
	"github.com/alharthydev/compresspro/internal/media/ffmpegcli"
	"github.com/alharthydev/compresspro/internal/metrics"
	"github.com/alharthydev/compresspro/internal/runs"
	"github.com/alharthydev/compresspro/internal/settings"
	"github.com/alharthydev/compresspro/internal/updater"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Settings store
	SettingsFile string `help:"Last-used settings file" default:"" toml:"settings.file" env:"SETTINGS_FILE"`

	// Media framework settings
	FFmpegPath  string `help:"Path to the ffmpeg binary" default:"ffmpeg" toml:"media.ffmpeg_path" env:"FFMPEG_PATH"`
	FFprobePath string `help:"Path to the ffprobe binary" default:"ffprobe" toml:"media.ffprobe_path" env:"FFPROBE_PATH"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Update settings
	UpdateEnabled    bool   `help:"Enable the self-update service" default:"true" toml:"update.enabled" env:"UPDATE_ENABLED"`
	UpdateRepository string `help:"GitHub repository slug for updates" default:"alharthydev/compresspro" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Include prereleases when updating" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingPipeline   string `help:"Pipeline logging level" default:"info" toml:"logging.pipeline" env:"LOGGING_PIPELINE"`
	LoggingCapability string `help:"Capability detection logging level" default:"info" toml:"logging.capability" env:"LOGGING_CAPABILITY"`
	LoggingFFmpeg     string `help:"FFmpeg adapter logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingUpdater    string `help:"Updater logging level" default:"info" toml:"logging.updater" env:"LOGGING_UPDATER"`
}

func main() {
	// Create Huma CLI
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"pipeline":   opts.LoggingPipeline,
				"capability": opts.LoggingCapability,
				"ffmpeg":     opts.LoggingFFmpeg,
				"api":        opts.LoggingAPI,
				"updater":    opts.LoggingUpdater,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Relay every log entry onto the bus for SSE subscribers
		var logSeq atomic.Uint64
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        logSeq.Add(1),
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Probe encoder availability once at startup
		detectCtx, cancelDetect := context.WithTimeout(context.Background(), 10*time.Second)
		snapshot := capability.Detect(detectCtx, capability.ExecProber{FFmpegPath: opts.FFmpegPath},
			logging.GetLogger("capability"))
		cancelDetect()
		if snapshot.Empty() {
			logger.Warn("No video encoders detected, compression runs will fail until ffmpeg is available")
		}

		// Media framework
		framework := ffmpegcli.New(logging.GetLogger("ffmpeg"),
			ffmpegcli.WithFFmpegPath(opts.FFmpegPath),
			ffmpegcli.WithFFprobePath(opts.FFprobePath),
		)

		// Settings store holds the last successfully used values
		settingsPath := opts.SettingsFile
		if settingsPath == "" {
			settingsPath = settings.DefaultStorePath()
		}
		store := settings.NewStore(settingsPath)

		// Run manager
		manager := runs.NewManager(framework, snapshot, eventBus, store, logging.GetLogger("pipeline"))

		// Self-update service
		var updateService updater.Service
		if opts.UpdateEnabled {
			svc, err := updater.NewService(&updater.Options{
				Repository: opts.UpdateRepository,
				Prerelease: opts.UpdatePrerelease,
			})
			if err != nil {
				logger.Warn("Update service unavailable", "error", err)
			} else {
				updateService = svc
			}
		}

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Manager:           manager,
			EventBus:          eventBus,
			Snapshot:          snapshot,
			SettingsStore:     store,
			PrometheusHandler: metrics.Handler(),
			UpdateService:     updateService,
		})

		// Watch the settings document so external edits are picked up
		settingsLoader := func(path string) (settings.CompressionSettings, error) {
			return settings.NewStore(path).Load(), nil
		}
		watcher := config.NewConfigWatcher(
			settingsPath,
			settingsLoader,
			logger,
			config.WithDebounce[settings.CompressionSettings](1500*time.Millisecond),
		)
		watcher.OnReload(func(cfg settings.CompressionSettings) {
			logger.Info("Settings document changed on disk",
				"codec", cfg.Codec, "quality_mode", cfg.QualityMode, "resolution", cfg.Resolution)
		})

		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Settings watcher disabled", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Cancel any active run and wait for its worker
			manager.Shutdown()

			_ = watcher.Stop()
		})
	})

	// Add compress command
	cli.Root().AddCommand(cmd.CreateCompressCmd())

	// Add detect-encoders command
	cli.Root().AddCommand(cmd.CreateDetectEncodersCmd())

	// Add update command
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	// Run the CLI
	cli.Run()
}
