package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// Options configures demo data generation.
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	MaxLikesPerPost int
	Conversations   int
	MessagesPerConv int
	// Seed makes the generated content reproducible; zero picks a random seed.
	Seed int64
}

// DefaultOptions returns a small but lively demo data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:        10,
		NumPosts:        25,
		CommentsPerPost: 3,
		MaxLikesPerPost: 6,
		Conversations:   8,
		MessagesPerConv: 4,
	}
}

// Services are the operations demo seeding drives. Going through them keeps
// every counter consistent with the rows they summarize.
type Services struct {
	Users *service.UserService
	Posts *service.PostService
	Chat  *service.ChatService
}

// Summary counts what Demo wrote.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	Messages int
}

func (s Summary) String() string {
	return fmt.Sprintf("users=%d posts=%d comments=%d likes=%d messages=%d",
		s.Users, s.Posts, s.Comments, s.Likes, s.Messages)
}

// Demo fills the store with fake users, posts, comments, likes and
// conversations.
func Demo(ctx context.Context, svc Services, opts Options) (*Summary, error) {
	if opts.NumUsers < 2 {
		return nil, models.NewValidationError("Demo seeding needs at least two users")
	}
	faker := gofakeit.New(opts.Seed)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	sum := &Summary{}
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(faker.FirstName()), i+1)
		u, err := svc.Users.Register(ctx, username, username+"@example.com", string(hash))
		if err != nil {
			return sum, fmt.Errorf("create user %s: %w", username, err)
		}
		users = append(users, u)
		sum.Users++
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := users[faker.Number(0, len(users)-1)]
		post, err := svc.Posts.CreatePost(ctx, author.ID, faker.Sentence(faker.Number(3, 8)), faker.Paragraph(1, 3, 12, "\n\n"))
		if err != nil {
			return sum, fmt.Errorf("create post: %w", err)
		}
		sum.Posts++

		for c := 0; c < opts.CommentsPerPost; c++ {
			commenter := users[faker.Number(0, len(users)-1)]
			if _, err := svc.Posts.RecordComment(ctx, post.ID, commenter.ID, faker.Sentence(faker.Number(4, 14))); err != nil {
				return sum, fmt.Errorf("record comment: %w", err)
			}
			sum.Comments++
		}

		likes := 0
		if opts.MaxLikesPerPost > 0 {
			likes = faker.Number(0, min(opts.MaxLikesPerPost, len(users)))
		}
		for _, idx := range pick(faker, len(users), likes) {
			if _, err := svc.Posts.ToggleLike(ctx, post.ID, users[idx].ID); err != nil {
				return sum, fmt.Errorf("toggle like: %w", err)
			}
			sum.Likes++
		}
	}

	for i := 0; i < opts.Conversations; i++ {
		pair := pick(faker, len(users), 2)
		a, b := users[pair[0]], users[pair[1]]
		for m := 0; m < opts.MessagesPerConv; m++ {
			from, to := a, b
			if m%2 == 1 {
				from, to = b, a
			}
			if _, err := svc.Chat.SendTo(ctx, from.ID, to.ID, faker.Sentence(faker.Number(2, 12))); err != nil {
				return sum, fmt.Errorf("send message: %w", err)
			}
			sum.Messages++
		}
	}

	observability.GlobalLogger.InfoContext(ctx, "demo data seeded", slog.String("summary", sum.String()))
	return sum, nil
}

// pick returns k distinct indexes from [0, n).
func pick(faker *gofakeit.Faker, n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k > n {
		k = n
	}
	for i := 0; i < k; i++ {
		j := faker.Number(i, n-1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
