package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/chunkr/internal/output"
	"github.com/tanq16/chunkr/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean OUTPUT",
		Short: "Remove leftover chunk files and the assembly manifest of a download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := utils.CleanFunction(args[0])
			for _, name := range removed {
				output.PrintDetail(fmt.Sprintf("  %s %s", output.StyleSymbols["bullet"], name))
			}
			if err != nil {
				return fmt.Errorf("cleaning %s: %w", args[0], err)
			}
			if len(removed) == 0 {
				output.PrintInfo(fmt.Sprintf("Nothing to clean for %s", args[0]))
				return nil
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d temporary file(s) for %s", len(removed), args[0]))
			return nil
		},
	}
}
