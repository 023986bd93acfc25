package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticketdesk/internal/persistence"
)

func newMigrateCommand(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema",
		Long: `Apply the embedded SQL migrations to POSTGRES_DSN. Every migration is
idempotent, so running it again is safe. Only the postgres store driver needs it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				names, err := persistence.MigrationNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintf(out, "  %s\n", name)
				}
				return nil
			}

			ctx := cmd.Context()
			pg, err := persistence.NewPostgres(ctx, a.cfg.Postgres, a.logger)
			if err != nil {
				return fmt.Errorf("failed to connect postgres: %w", err)
			}
			defer pg.Close()

			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), a.logger); err != nil {
				return err
			}
			fmt.Fprintln(out, "Migrations applied.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list embedded migrations without connecting")
	return cmd
}
