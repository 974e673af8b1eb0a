package main

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/validator"
)

func newValidateCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <typed-document.json>",
		Short: "Re-run the validator on a stored typed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "reading %s", args[0])
			}
			var doc domain.TypedDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return errors.Wrapf(err, "decoding %s", args[0])
			}
			res := validator.NewEngine(nil).Validate(&doc)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
