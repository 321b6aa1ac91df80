package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errCatalogFlag = errors.New("--catalog cannot be combined with commands that write the database")

func newSeedCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo recipes into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.catalogPath != "" {
				return errCatalogFlag
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			seeded, err := s.catalog.SeedDemo(ctx)
			if err != nil {
				return err
			}
			if seeded == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog already populated; nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d demo recipes\n", seeded)
			return nil
		},
	}
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Add the recipes of a JSON or CSV file to the database in one transaction",
		Example: `  nutriplan-optimize import recipes.csv
  # CSV header: title,protein,fat,carbohydrate,calories[,id,fiber,...]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.catalogPath != "" {
				return errCatalogFlag
			}
			cmds, err := loadCatalogFile(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			imported, err := s.catalog.ImportRecipes(ctx, cmds)
			if err != nil {
				return err
			}
			s.log.Info("Catalog import finished", zap.String("file", args[0]), zap.Int("imported", imported))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d recipes\n", imported)
			return nil
		},
	}
}
