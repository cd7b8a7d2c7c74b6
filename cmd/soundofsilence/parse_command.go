package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nadzzz/soundofsilence/internal/script"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var scriptPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Show how a script splits into spoken chunks and pauses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			text, err := readScript(cmd.InOrStdin(), scriptPath)
			if err != nil {
				return err
			}

			instructions, err := script.Parser{MaxPause: cfg.Script.MaxPause}.Parse(text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(instructions)
			}
			for i, in := range instructions {
				fmt.Fprintf(out, "%2d  %-8v %s\n", i+1, in.PauseAfter, in.Text)
			}
			fmt.Fprintf(out, "%d segments, %v of pauses\n", len(instructions), script.TotalPause(instructions))
			return nil
		},
	}

	cmd.Flags().StringVarP(&scriptPath, "script", "s", "-", "Script file, or - for stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print instructions as JSON")
	return cmd
}
