package cli

import (
	"fmt"
	"io"

	"viktor/internal/database"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables and indexes",
		Long: `Create every table, foreign key and unique index the data layer relies on.

Existing tables are left untouched, so running it against a store created by
an older release only adds what is missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			var tables []string
			for _, m := range database.PersistentModels() {
				if t, ok := m.(interface{ TableName() string }); ok {
					tables = append(tables, t.TableName())
				}
			}

			return emit(cmd.OutOrStdout(), rootOpts.Format, map[string]any{"tables": tables}, func(w io.Writer) {
				fmt.Fprintf(w, "schema ready (%d tables)\n", len(tables))
			})
		},
	}
}
