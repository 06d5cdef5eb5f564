package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"papyrus/internal/game"
	"papyrus/internal/version"
)

type versionPayload struct {
	Tool string `json:"tool"`
	version.Info
	Games []string `json:"games"`
}

var supportedGames = []game.Variant{game.SkyrimLE, game.SkyrimSE, game.Fallout4}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show papyrus build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		full, err := cmd.Flags().GetBool("full")
		if err != nil {
			return fmt.Errorf("failed to get full flag: %w", err)
		}
		if _, err := resolveSettings(cmd); err != nil {
			return err
		}

		switch strings.ToLower(format) {
		case "pretty":
			renderVersionPretty(cmd.OutOrStdout(), full)
			return nil
		case "json":
			payload := versionPayload{Tool: "papyrus", Info: version.Current()}
			for _, v := range supportedGames {
				payload.Games = append(payload.Games, v.String())
			}
			return renderJSON(cmd.OutOrStdout(), payload)
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().Bool("full", false, "include commit, build date and supported games")
}

func renderVersionPretty(out io.Writer, full bool) {
	fmt.Fprintf(out, "papyrus %s\n", version.Banner())
	if !full {
		return
	}
	info := version.Current()
	fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(info.GitCommit))
	fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(info.BuildDate))
	names := make([]string, len(supportedGames))
	for i, v := range supportedGames {
		names[i] = v.String()
	}
	fmt.Fprintf(out, "games:  %s\n", strings.Join(names, ", "))
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
