package usecase

import (
	"context"
	"fmt"
	"strings"

	"DailyDigest/internal/domain"
)

// NotifyReport summarizes a notification sweep.
type NotifyReport struct {
	RecentArticles int `json:"recentArticles"`
	UsersScanned   int `json:"usersScanned"`
	UsersNotified  int `json:"usersNotified"`
}

// NotifyRecent matches recent articles against one user (email set) or every
// user and publishes a plain-text digest for each user with matches.
func (p *Pipeline) NotifyRecent(ctx context.Context, email string) (NotifyReport, error) {
	var users []domain.User
	if email = strings.TrimSpace(email); email != "" {
		user, err := p.users.Get(ctx, email)
		if err != nil {
			return NotifyReport{}, err
		}
		users = []domain.User{user}
	}

	recent, err := p.articles.Recent(ctx, p.window)
	if err != nil {
		return NotifyReport{}, fmt.Errorf("load recent articles: %w", err)
	}
	report := NotifyReport{RecentArticles: len(recent)}
	if len(recent) == 0 {
		return report, nil
	}

	if users == nil {
		users, err = p.users.List(ctx)
		if err != nil {
			return report, fmt.Errorf("list users: %w", err)
		}
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.UsersScanned++

		var relevant []domain.Article
		for _, article := range recent {
			match, err := p.classifier.ClassifyOne(ctx, user.Interests, article)
			if err != nil {
				p.logger.Warn("sweep classification failed", "email", user.Email, "url", article.URL, "error", err)
				continue
			}
			if match {
				relevant = append(relevant, article)
			}
		}
		if len(relevant) == 0 {
			continue
		}

		if p.publish(ctx, sweepDigest(user.Email, relevant)) {
			report.UsersNotified++
		}
	}

	p.logger.Info("notify sweep done", "recent", report.RecentArticles, "scanned", report.UsersScanned, "notified", report.UsersNotified)
	return report, nil
}

func sweepDigest(email string, articles []domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Digest for %s\n\n", email)
	for i, article := range articles {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "• %s\n  %s", article.Title, article.URL)
	}
	return b.String()
}
