package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subtrans/pkg/contract"
	"subtrans/pkg/registry"
)

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List translation backends and their resource needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			variants := []struct {
				kind   string
				tier   contract.Tier
				target contract.Lang
				role   string
			}{
				{"nllb", contract.TierStandard, "", "primary (standard)"},
				{"nllb", contract.TierLarge, "", "primary (large)"},
				{"m2m100", contract.TierStandard, "", "fallback"},
				// marian 权重按目标语言选定，此处以 fr 为代表列出
				{"marian", contract.TierStandard, "fr", "memory constrained (per language)"},
			}
			rows := make([][]string, 0, len(variants))
			for _, v := range variants {
				b, err := registry.BackendFor(v.kind, registry.BackendOptions{Tier: v.tier, Target: v.target})
				if err != nil {
					return err
				}
				spec := b.Spec()
				rows = append(rows, []string{
					spec.Model,
					v.role,
					fmt.Sprintf("%.0f GB", spec.RequiredDiskGB),
					fmt.Sprintf("%.0f GB", spec.RequiredMemGB),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Model", "Role", "Disk", "GPU memory"}, rows, 3, 4))
			return nil
		},
	}
}
