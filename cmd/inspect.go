package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/acentior/hw-video-writer/internal/bitstream"
	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Count the units and pictures of an elementary stream",
	Long: `Count the units and pictures of an elementary stream.

The codec is taken from --fourcc, or else from the file extension:
.h264 .264 .avc for H.264, .h265 .265 .hevc for HEVC, .m2v .mpg .mpeg2 for MPEG-2.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("fourcc", "", "codec fourcc of the stream")
}

var extCodecs = map[string]mfx.CodecID{
	".h264":  mfx.CodecAVC,
	".264":   mfx.CodecAVC,
	".avc":   mfx.CodecAVC,
	".h265":  mfx.CodecHEVC,
	".265":   mfx.CodecHEVC,
	".hevc":  mfx.CodecHEVC,
	".m2v":   mfx.CodecMPEG2,
	".mpg":   mfx.CodecMPEG2,
	".mpeg2": mfx.CodecMPEG2,
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	codec, err := streamCodec(cmd, path)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open stream")
	}
	defer file.Close()

	rep, err := bitstream.Inspect(codec, file)
	if err != nil {
		return errors.Wrapf(err, "inspect %s", path)
	}
	cmd.Println(rep.String())
	return nil
}

func streamCodec(cmd *cobra.Command, path string) (mfx.CodecID, error) {
	if name, _ := cmd.Flags().GetString("fourcc"); name != "" {
		cc, err := mfx.ParseFourCC(strings.ToUpper(name))
		if err != nil {
			return 0, err
		}
		codec, ok := mfx.CodecIDFromFourCC(cc)
		if !ok {
			return 0, errors.WithHintf(errors.Newf("unsupported fourcc %s", cc),
				"supported fourcc codes: %v", mfx.SupportedFourCCs())
		}
		return codec, nil
	}
	codec, ok := extCodecs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return 0, errors.WithHint(errors.Newf("can't tell the codec of %s", path), "pass --fourcc")
	}
	return codec, nil
}
