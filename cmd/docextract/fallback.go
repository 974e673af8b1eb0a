package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newFallbackCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fallback <ref>",
		Short: "Extract an invoice through the fallback strategy chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.cfg, root.logger)
			if err != nil {
				return err
			}
			blob, err := a.loader.Open(ctx, args[0])
			if err != nil {
				return err
			}
			outcome, runErr := a.chain.Run(ctx, blob)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(outcome); err != nil {
				return err
			}
			return runErr
		},
	}
}
