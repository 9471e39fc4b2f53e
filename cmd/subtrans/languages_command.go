package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subtrans/internal/language"
	"subtrans/pkg/contract"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([][]string, 0, 8)
			for _, code := range language.Codes() {
				rows = append(rows, []string{code, language.DisplayName(contract.Lang(code))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Code", "Language"}, rows))
			return nil
		},
	}
}
