package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nadzzz/soundofsilence/internal/message"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var scriptPath string
	var outPath string
	var format string
	var voice string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a script to an audio file without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// The HTTP section is irrelevant offline.
			offline := *cfg
			offline.Transports.HTTP.Enabled = false
			if err := offline.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			text, err := readScript(cmd.InOrStdin(), scriptPath)
			if err != nil {
				return err
			}

			p, err := newPipeline(&offline)
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.renderer.Render(cmd.Context(), &message.GenerateRequest{
				Script:     text,
				Voice:      voice,
				Format:     format,
				ReceivedAt: time.Now(),
			})
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outPath)
			if target == "" {
				target = result.Filename
			}
			if err := os.WriteFile(target, result.Audio, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d segments, %.1fs)\n",
				target, result.ContentType, result.Segments, result.Duration.Seconds())
			return nil
		},
	}

	cmd.Flags().StringVarP(&scriptPath, "script", "s", "-", "Script file, or - for stdin")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (defaults to the configured filename)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format override (opus, wav)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice override")
	return cmd
}

func readScript(stdin io.Reader, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read script from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}
