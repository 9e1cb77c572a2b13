package cli

import (
	"fmt"
	"io"

	"viktor/internal/seed"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// NewSeedAdminCommand creates the seed-admin command.
func NewSeedAdminCommand(rootOpts *RootOptions) *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Insert the bootstrap admin user",
		Long: `Insert the admin user named by ADMIN_USERNAME / ADMIN_EMAIL with a
bcrypt hash of ADMIN_PASSWORD. Nothing is written if the user already exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			created, err := seed.Admin(cmd.Context(), rt.Store, seed.AdminOptions{
				Username: rt.Config.AdminUsername,
				Email:    rt.Config.AdminEmail,
				Password: rt.Config.AdminPassword,
				Cost:     cost,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to seed admin", err)
			}

			result := map[string]any{"username": rt.Config.AdminUsername, "created": created}
			return emit(cmd.OutOrStdout(), rootOpts.Format, result, func(w io.Writer) {
				if created {
					fmt.Fprintf(w, "admin user %q inserted\n", rt.Config.AdminUsername)
				} else {
					fmt.Fprintf(w, "admin user %q already exists, skipping\n", rt.Config.AdminUsername)
				}
			})
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost for the admin password")
	return cmd
}

// NewSeedDemoCommand creates the seed-demo command.
func NewSeedDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := seed.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Fill the store with fake users, posts and conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			if rt.Config.IsProduction() {
				return NewExitError(ExitCommandError, "refusing to seed demo data in production")
			}

			sum, err := seed.Demo(cmd.Context(), seed.Services{
				Users: rt.Users,
				Posts: rt.Posts,
				Chat:  rt.Chat,
			}, opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "demo seeding failed", err)
			}

			return emit(cmd.OutOrStdout(), rootOpts.Format, sum, func(w io.Writer) {
				fmt.Fprintf(w, "seeded %s\n", sum)
			})
		},
	}

	cmd.Flags().IntVar(&opts.NumUsers, "users", opts.NumUsers, "number of users")
	cmd.Flags().IntVar(&opts.NumPosts, "posts", opts.NumPosts, "number of posts")
	cmd.Flags().IntVar(&opts.CommentsPerPost, "comments", opts.CommentsPerPost, "comments per post")
	cmd.Flags().IntVar(&opts.MaxLikesPerPost, "max-likes", opts.MaxLikesPerPost, "maximum likes per post")
	cmd.Flags().IntVar(&opts.Conversations, "conversations", opts.Conversations, "number of conversations to message in")
	cmd.Flags().IntVar(&opts.MessagesPerConv, "messages", opts.MessagesPerConv, "messages per conversation")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}
