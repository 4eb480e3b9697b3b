package usecase

import (
	"context"
	"fmt"
	"strings"

	"DailyDigest/internal/domain"
)

// BriefingResult is a built briefing together with its storage outcome.
type BriefingResult struct {
	Briefing domain.Briefing
	// Key is empty when the briefing was not persisted.
	Key     string
	Emailed bool
}

// Register stores the user (replacing any previous interests) and builds a first briefing.
func (p *Pipeline) Register(ctx context.Context, email string, interests []domain.Interest) (BriefingResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return BriefingResult{}, fmt.Errorf("email is required: %w", domain.ErrInvalidInput)
	}

	user := domain.User{Email: email, Interests: interests}
	if err := p.users.Put(ctx, user); err != nil {
		return BriefingResult{}, fmt.Errorf("register %s: %w", email, err)
	}
	p.logger.Info("user registered", "email", email, "interests", len(interests))

	return p.briefingFor(ctx, user)
}

// GetBriefing builds the current briefing of a registered user.
func (p *Pipeline) GetBriefing(ctx context.Context, email string) (BriefingResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return BriefingResult{}, fmt.Errorf("email is required: %w", domain.ErrInvalidInput)
	}

	user, err := p.users.Get(ctx, email)
	if err != nil {
		return BriefingResult{}, err
	}
	return p.briefingFor(ctx, user)
}

// GetBriefingByKey returns exactly the briefing persisted under key.
func (p *Pipeline) GetBriefingByKey(ctx context.Context, key string) (domain.Briefing, error) {
	if strings.TrimSpace(key) == "" {
		return domain.Briefing{}, fmt.Errorf("briefing key is required: %w", domain.ErrInvalidInput)
	}
	return p.briefings.Get(ctx, key)
}

// SendBriefing emails an already built briefing without a chat link.
func (p *Pipeline) SendBriefing(ctx context.Context, email string, briefing domain.Briefing) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || briefing.IsZero() {
		return false, fmt.Errorf("email and briefing are required: %w", domain.ErrInvalidInput)
	}
	return p.dispatcher.Deliver(ctx, domain.User{Email: email}, briefing, ""), nil
}

func (p *Pipeline) briefingFor(ctx context.Context, user domain.User) (BriefingResult, error) {
	if len(user.Interests) == 0 {
		return BriefingResult{Briefing: domain.NewBriefing(user.Email, p.now())}, nil
	}

	recent, err := p.articles.Recent(ctx, p.window)
	if err != nil {
		return BriefingResult{}, fmt.Errorf("load recent articles: %w", err)
	}
	return p.BuildBriefing(ctx, user, recent), nil
}

// BuildBriefing classifies recent articles against the user's topics,
// summarizes every topic with at least one match, persists the result, and
// emails it. Only the in-memory briefing is guaranteed: persistence and
// delivery failures are logged and reflected in the result.
func (p *Pipeline) BuildBriefing(ctx context.Context, user domain.User, recent []domain.Article) BriefingResult {
	if len(user.Interests) == 0 || len(recent) == 0 {
		return BriefingResult{Briefing: domain.NewBriefing(user.Email, p.now())}
	}

	topics := user.Topics()
	matches := p.classifier.ClassifyAll(ctx, topics, recent)
	p.logger.Debug("matches computed", "email", user.Email, "topics", len(topics), "matched_topics", len(matches))

	briefing := domain.NewBriefing(user.Email, p.now())
	for ti, topic := range topics {
		indices := matches[ti]
		if len(indices) == 0 {
			continue
		}

		refs := make([]domain.ArticleRef, 0, len(indices))
		for _, ai := range indices {
			refs = append(refs, domain.RefFor(recent[ai]))
		}

		briefing.Topics = append(briefing.Topics, domain.TopicBriefing{
			Title:    topic,
			Summary:  p.summarizer.Summarize(ctx, topic, refs),
			Articles: refs,
		})
	}
	// Assembly time is taken after the oracle work completes.
	briefing.GeneratedAt = p.now()
	briefing.Date = domain.FormatBriefingDate(briefing.GeneratedAt)

	result := BriefingResult{Briefing: briefing}
	key, err := p.briefings.Save(ctx, briefing)
	if err != nil {
		p.metrics.BriefingBuilt(false)
		p.logger.Error("briefing not persisted", "email", user.Email, "error", err)
		return result
	}
	p.metrics.BriefingBuilt(true)
	p.logger.Info("briefing saved", "email", user.Email, "key", key, "topics", len(briefing.Topics))

	result.Key = key
	result.Emailed = p.dispatcher.Deliver(ctx, user, briefing, key)
	return result
}
