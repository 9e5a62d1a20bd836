package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/alharthydev/compresspro/internal/capability"
	"github.com/alharthydev/compresspro/internal/logging"
	"github.com/alharthydev/compresspro/internal/settings"
)

// CreateDetectEncodersCmd creates the detect-encoders command.
func CreateDetectEncodersCmd() *cobra.Command {
	var (
		ffmpegPath string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "detect-encoders",
		Short: "Detect available video encoders",
		Long: `Probes the installed ffmpeg for usable video encoders and reports ` +
			`which hardware accelerators and codec families are available.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("capability")

			ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
			defer cancel()
			snap := capability.Detect(ctx, capability.ExecProber{FFmpegPath: ffmpegPath}, logger)

			encoders := snap.Encoders()
			sort.Strings(encoders)

			codecs := []string{}
			for _, c := range []settings.Codec{settings.CodecH264, settings.CodecH265, settings.CodecVP9, settings.CodecAV1} {
				if snap.SupportsCodec(c) {
					codecs = append(codecs, string(c))
				}
			}

			if jsonOut {
				out := struct {
					NVENC        bool     `json:"nvenc"`
					QSV          bool     `json:"qsv"`
					VAAPI        bool     `json:"vaapi"`
					VideoToolbox bool     `json:"videotoolbox"`
					Codecs       []string `json:"codecs"`
					Encoders     []string `json:"encoders"`
				}{snap.NVENC, snap.QSV, snap.VAAPI, snap.VideoToolbox, codecs, encoders}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(out)
				return
			}

			if snap.Empty() {
				fmt.Println("No video encoders detected. Is ffmpeg installed?")
				os.Exit(1)
			}

			fmt.Println("Hardware accelerators:")
			fmt.Printf("  nvenc:        %v\n", snap.NVENC)
			fmt.Printf("  qsv:          %v\n", snap.QSV)
			fmt.Printf("  vaapi:        %v\n", snap.VAAPI)
			fmt.Printf("  videotoolbox: %v\n", snap.VideoToolbox)
			fmt.Println("Codec families:")
			for _, c := range codecs {
				fmt.Printf("  %s\n", c)
			}
			fmt.Printf("Video encoders (%d):\n", len(encoders))
			for _, name := range encoders {
				fmt.Printf("  %s\n", name)
			}
		},
	}

	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")

	return cmd
}
