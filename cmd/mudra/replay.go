package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/replay"
)

var (
	replayOutput     string
	replayFrameLimit int
)

var replayCmd = &cobra.Command{
	Use:   "replay <file.jsonl>",
	Short: "Feed a recorded detection log through a session and write the export files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collectCfg := cfg.CollectConfig()
		if cmd.Flags().Changed("frame-limit") {
			collectCfg.FrameLimit = replayFrameLimit
		}
		return runReplay(cmd, args[0], collectCfg)
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", "exports", "Directory for the export files")
	replayCmd.Flags().IntVarP(&replayFrameLimit, "frame-limit", "n", 0, "Expected frames per take (overrides session.frame_limit)")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, path string, collectCfg collect.Config) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions64(info.Size(),
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
	)

	session := collect.NewSession(collectCfg)
	stats, err := replay.RunFile(cmd.Context(), session, path, func(n int) {
		bar.Add(n)
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}

	bundle := session.Export()
	written, err := replay.WriteBundle(replayOutput, bundle)
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d frames recorded of %d, %d takes\n", stats.Recorded, stats.Frames, stats.Takes)
	for _, line := range session.Log() {
		fmt.Fprintln(out, "  "+line)
	}
	for _, p := range written {
		fmt.Fprintln(out, p)
	}
	return nil
}
