package cli

import (
	"fmt"
	"io"

	"viktor/internal/models"

	"github.com/spf13/cobra"
)

// StatsResult is the output of the stats command.
type StatsResult struct {
	Users         int64                 `json:"users"`
	Posts         int64                 `json:"posts"`
	Comments      int64                 `json:"comments"`
	Likes         int64                 `json:"likes"`
	Conversations int64                 `json:"conversations"`
	Messages      int64                 `json:"messages"`
	Drift         []models.CounterDrift `json:"drift"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts and check denormalized counters",
		Long: `Print row counts per table and list every post whose likesCount or
commentsCount disagrees with its like or comment rows. Exits 1 when any
drift is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := rootOpts.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			res := StatsResult{Drift: []models.CounterDrift{}}
			counts := []struct {
				model any
				dst   *int64
			}{
				{&models.User{}, &res.Users},
				{&models.Post{}, &res.Posts},
				{&models.Comment{}, &res.Comments},
				{&models.Like{}, &res.Likes},
				{&models.Conversation{}, &res.Conversations},
				{&models.Message{}, &res.Messages},
			}
			for _, c := range counts {
				if err := rt.Store.DB(ctx).Model(c.model).Count(c.dst).Error; err != nil {
					return WrapExitError(ExitCommandError, "failed to count rows", err)
				}
			}

			drift, err := rt.PostRepo.CounterDrift(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to check counters", err)
			}
			res.Drift = append(res.Drift, drift...)

			if err := emit(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) {
				fmt.Fprintf(w, "users=%d posts=%d comments=%d likes=%d conversations=%d messages=%d\n",
					res.Users, res.Posts, res.Comments, res.Likes, res.Conversations, res.Messages)
				if len(res.Drift) == 0 {
					fmt.Fprintln(w, "counters consistent")
					return
				}
				for _, d := range res.Drift {
					fmt.Fprintf(w, "post %d: likesCount=%d likes=%d commentsCount=%d comments=%d\n",
						d.PostID, d.LikesCount, d.LikeRows, d.CommentsCount, d.CommentRows)
				}
			}); err != nil {
				return err
			}

			if len(res.Drift) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d post(s) with counter drift", len(res.Drift)))
			}
			return nil
		},
	}
}
