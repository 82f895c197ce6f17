package main

import (
	"github.com/acentior/hw-video-writer/internal/encoders"
	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/spf13/cobra"
)

var codecsCmd = &cobra.Command{
	Use:   "codecs",
	Short: "List accepted fourcc codes and encoder backends",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("fourcc codes:")
		for _, cc := range mfx.SupportedFourCCs() {
			codec, _ := mfx.CodecIDFromFourCC(cc)
			cmd.Printf("  %-6s %s\n", cc, codec)
		}
		cmd.Println("backends:")
		for _, name := range encoders.NewService().Names() {
			cmd.Printf("  %s\n", name)
		}
	},
}
