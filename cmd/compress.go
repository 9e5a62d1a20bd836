package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alharthydev/compresspro/internal/capability"
	"github.com/alharthydev/compresspro/internal/events"
	"github.com/alharthydev/compresspro/internal/logging"
	"github.com/alharthydev/compresspro/internal/media/ffmpegcli"
	"github.com/alharthydev/compresspro/internal/runs"
	"github.com/alharthydev/compresspro/internal/settings"
)

// detectTimeout bounds the encoder probe at startup.
const detectTimeout = 10 * time.Second

// CreateCompressCmd creates the compress command.
func CreateCompressCmd() *cobra.Command {
	var (
		input        string
		output       string
		codec        string
		qualityMode  string
		crf          int
		bitrate      string
		resolution   string
		fps          string
		acceleration string
		preset       string
		audioCodec   string
		audioBitrate string
		threads      int
		settingsFile string
		ffmpegPath   string
		ffprobePath  string
		logJSON      bool
		noSave       bool
	)

	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Compress a video file",
		Long: `Transcodes the input file into a compressed output using the best ` +
			`available encoder for the chosen codec. Omitted flags fall back to the ` +
			`last successfully used settings.`,
		Run: func(cmd *cobra.Command, _ []string) {
			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("compress")

			store := settings.NewStore(settingsFile)
			cfg := store.Load()
			cfg.InputPath = input
			cfg.OutputPath = output
			if err := applyFlagOverrides(cmd, &cfg, codec, qualityMode, crf, bitrate,
				resolution, fps, acceleration, preset, audioCodec, audioBitrate, threads); err != nil {
				logger.Error("Invalid flag value", "error", err)
				os.Exit(1)
			}

			detectCtx, cancelDetect := context.WithTimeout(context.Background(), detectTimeout)
			snap := capability.Detect(detectCtx, capability.ExecProber{FFmpegPath: ffmpegPath}, logging.GetLogger("capability"))
			cancelDetect()

			framework := ffmpegcli.New(logging.GetLogger("ffmpeg"),
				ffmpegcli.WithFFmpegPath(ffmpegPath),
				ffmpegcli.WithFFprobePath(ffprobePath),
			)

			bus := events.New()
			var saver runs.SettingsSaver
			if !noSave {
				saver = store
			}
			mgr := runs.NewManager(framework, snap, bus, saver, logging.GetLogger("pipeline"))

			finished := make(chan events.RunFinishedEvent, 1)
			bus.Subscribe(func(e events.RunFinishedEvent) {
				select {
				case finished <- e:
				default:
				}
			})
			var lastPercent atomic.Int64
			bus.Subscribe(func(e events.RunProgressEvent) {
				lastPercent.Store(int64(e.Percent))
			})
			bus.Subscribe(func(e events.RunStatusEvent) {
				logger.Info(e.Message, "percent", lastPercent.Load())
			})

			runID, err := mgr.Start(cfg)
			if err != nil {
				logger.Error("Could not start compression", "error", err)
				os.Exit(1)
			}
			logger.Info("Compression started", "run_id", runID, "input", cfg.InputPath, "output", cfg.OutputPath)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			var result events.RunFinishedEvent
			select {
			case result = <-finished:
			case sig := <-sigCh:
				logger.Info("Received signal, cancelling run", "signal", sig.String())
				_ = mgr.Cancel(runID)
				select {
				case result = <-finished:
				case <-time.After(runs.ShutdownWait):
					logger.Error("Run did not stop in time")
					os.Exit(1)
				}
			}

			switch result.Outcome {
			case "success":
				logger.Info("Compression finished", "encoder", result.Encoder, "output", result.OutputPath)
			case "cancelled":
				logger.Info("Compression cancelled")
				os.Exit(130)
			default:
				logger.Error("Compression failed", "error", result.Error)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input video file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output video file")
	cmd.Flags().StringVar(&codec, "codec", "", "Target codec family (h264, h265, vp9, av1)")
	cmd.Flags().StringVar(&qualityMode, "quality-mode", "", "Quality control mode (crf, bitrate)")
	cmd.Flags().IntVar(&crf, "crf", 23, "Constant rate factor, 0-51")
	cmd.Flags().StringVar(&bitrate, "bitrate", "", "Target video bitrate (e.g. 2M)")
	cmd.Flags().StringVar(&resolution, "resolution", "", "Output resolution (original, 1080p, 720p, 480p)")
	cmd.Flags().StringVar(&fps, "fps", "", "Output frame rate (original, 24, 30, 60)")
	cmd.Flags().StringVar(&acceleration, "acceleration", "", "Hardware acceleration preference (auto, nvenc, qsv, vaapi, cpu)")
	cmd.Flags().StringVar(&preset, "preset", "", "Encoder speed preset")
	cmd.Flags().StringVar(&audioCodec, "audio-codec", "", "Audio encoder name")
	cmd.Flags().StringVar(&audioBitrate, "audio-bitrate", "", "Audio bitrate (e.g. 128K)")
	cmd.Flags().IntVar(&threads, "threads", 0, "Encoder thread count, 0 for framework default")
	cmd.Flags().StringVar(&settingsFile, "settings", settings.DefaultStorePath(), "Path to the last-used settings file")
	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	cmd.Flags().StringVar(&ffprobePath, "ffprobe", "ffprobe", "Path to the ffprobe binary")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not persist settings after a successful run")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// applyFlagOverrides overlays explicitly provided flags on the stored
// settings. Unset flags keep the stored values.
func applyFlagOverrides(cmd *cobra.Command, cfg *settings.CompressionSettings,
	codec, qualityMode string, crf int, bitrate, resolution, fps, acceleration,
	preset, audioCodec, audioBitrate string, threads int) error {

	if codec != "" {
		c, err := settings.ParseCodec(codec)
		if err != nil {
			return err
		}
		cfg.Codec = c
	}
	if qualityMode != "" {
		m, err := settings.ParseQualityMode(qualityMode)
		if err != nil {
			return err
		}
		cfg.QualityMode = m
	}
	if cmd.Flags().Changed("crf") {
		cfg.CRF = crf
	}
	if bitrate != "" {
		cfg.Bitrate = bitrate
	}
	if resolution != "" {
		r, err := settings.ParseResolution(resolution)
		if err != nil {
			return err
		}
		cfg.Resolution = r
	}
	if fps != "" {
		f, err := settings.ParseFrameRate(fps)
		if err != nil {
			return err
		}
		cfg.FPS = f
	}
	if acceleration != "" {
		a, err := settings.ParseAcceleration(acceleration)
		if err != nil {
			return err
		}
		cfg.Acceleration = a
	}
	if preset != "" {
		p, err := settings.ParsePreset(preset)
		if err != nil {
			return err
		}
		cfg.Preset = p
	}
	if audioCodec != "" {
		cfg.AudioCodec = audioCodec
	}
	if audioBitrate != "" {
		cfg.AudioBitrate = audioBitrate
	}
	if cmd.Flags().Changed("threads") {
		cfg.Threads = threads
	}
	return nil
}
