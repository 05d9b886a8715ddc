package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ghostbuild/internal/itemmap"
)

func newItemsCommand(c *cli) *cobra.Command {
	var lang, out string
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Download the Data Dragon item map for a language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lang == "" {
				lang = c.cfg.Defaults.Lang
			}
			reg := itemmap.NewRegistry(c.cfg.ItemMap.BaseURL, logger("itemmap"))
			if err := reg.Load(cmd.Context(), lang); err != nil {
				return err
			}
			path, err := reg.Save(out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[ok] %d items (%s, %s) -> %s\n", reg.Len(), reg.Version(), lang, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Data Dragon language, e.g. zh_TW (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "data/items", "Output directory")
	return cmd
}
