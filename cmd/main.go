package main

import (
	"fmt"
	"os"

	"github.com/acentior/hw-video-writer/internal/config"
	"github.com/acentior/hw-video-writer/internal/logger"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// v holds defaults, HVW_* environment variables and bound flags.
var v = config.New()

var rootCmd = &cobra.Command{
	Use:   "hvw",
	Short: "hvw - hardware video writer",
	Long: `hvw records BGR frames into raw H.264, HEVC or MPEG-2 elementary streams
through a hardware style encode session.

Settings come from flags, HVW_* environment variables and an optional .env
file, in that order of precedence.

Examples:
  hvw encode -o out.h264 --frames 300      # 10s of color bars at 30fps
  hvw encode --fourcc HEVC --source camera # record the camera to out.h264
  hvw inspect out.h264                     # count NAL units and pictures
  hvw codecs                               # list fourcc codes and backends`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			return err
		}
		if err := logger.Initialize(v.GetBool("log.json"), v.GetString("log.level")); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("log-json", false, "log as JSON")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	mustBind(v, map[string]string{
		"log.json":  "log-json",
		"log.level": "log-level",
	}, flags)

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(codecsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
