package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"DailyDigest/internal/app"
	"DailyDigest/internal/domain"
)

var (
	flagTitle     string
	flagContent   string
	flagURL       string
	flagEmail     string
	flagKey       string
	flagInterests []string
	flagJSON      bool
)

func init() {
	ingestCmd.Flags().StringVar(&flagURL, "url", "", "article URL")
	ingestCmd.Flags().StringVar(&flagTitle, "title", "", "article title")
	ingestCmd.Flags().StringVar(&flagContent, "content", "", "article body text")
	_ = ingestCmd.MarkFlagRequired("url")

	registerCmd.Flags().StringVar(&flagEmail, "email", "", "recipient email")
	registerCmd.Flags().StringArrayVar(&flagInterests, "interest", nil, `interest as "topic" or "topic: explanation" (repeatable)`)
	registerCmd.Flags().BoolVar(&flagJSON, "json", false, "print the briefing as JSON")
	_ = registerCmd.MarkFlagRequired("email")

	briefingCmd.Flags().StringVar(&flagEmail, "email", "", "build the current briefing for this user")
	briefingCmd.Flags().StringVar(&flagKey, "key", "", "print a stored briefing by key")
	briefingCmd.Flags().BoolVar(&flagJSON, "json", false, "print the briefing as JSON")
	briefingCmd.MarkFlagsOneRequired("email", "key")
	briefingCmd.MarkFlagsMutuallyExclusive("email", "key")

	notifyCmd.Flags().StringVar(&flagEmail, "email", "", "limit the sweep to one user")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the feed poller",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, func(a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a single article",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.Application) error {
			result, err := a.Pipeline().IngestArticle(cmd.Context(), flagTitle, flagContent, flagURL)
			if err != nil {
				return err
			}
			status := "stored"
			if !result.Created {
				status = "already known"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status, result.Article.URL)
			if result.RoutedTo != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "routed to %s\n", result.RoutedTo)
			}
			return nil
		})
	},
}

var ingestFeedCmd = &cobra.Command{
	Use:   "ingest-feed <feed-url>...",
	Short: "Fetch feeds and ingest their items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.Application) error {
			for _, feedURL := range args {
				report, err := a.Pipeline().IngestFeed(cmd.Context(), feedURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: fetched %d, ingested %d, skipped %d, failed %d\n",
					feedURL, report.Fetched, report.Ingested, report.Skipped, report.Failed)
			}
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a user's interests and print the first briefing",
	RunE: func(cmd *cobra.Command, args []string) error {
		interests, err := parseInterests(flagInterests)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app.Application) error {
			result, err := a.Pipeline().Register(cmd.Context(), flagEmail, interests)
			if err != nil {
				return err
			}
			return printBriefing(cmd, result.Briefing, result.Key)
		})
	},
}

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Build a user's briefing or show a stored one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.Application) error {
			if flagKey != "" {
				briefing, err := a.Pipeline().GetBriefingByKey(cmd.Context(), flagKey)
				if err != nil {
					return err
				}
				return printBriefing(cmd, briefing, flagKey)
			}

			result, err := a.Pipeline().GetBriefing(cmd.Context(), flagEmail)
			if err != nil {
				return err
			}
			return printBriefing(cmd, result.Briefing, result.Key)
		})
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send plain-text digests of recent matches to the notification channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.Application) error {
			report, err := a.Pipeline().NotifyRecent(cmd.Context(), flagEmail)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recent articles %d, users scanned %d, users notified %d\n",
				report.RecentArticles, report.UsersScanned, report.UsersNotified)
			return nil
		})
	},
}

// parseInterests turns "topic: explanation" flags into interests.
func parseInterests(values []string) ([]domain.Interest, error) {
	interests := make([]domain.Interest, 0, len(values))
	for _, value := range values {
		topic, explanation, _ := strings.Cut(value, ":")
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return nil, fmt.Errorf("interest %q has no topic", value)
		}
		interests = append(interests, domain.Interest{
			Topic:       topic,
			Explanation: strings.TrimSpace(explanation),
		})
	}
	return interests, nil
}

func printBriefing(cmd *cobra.Command, briefing domain.Briefing, key string) error {
	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(briefing)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderBriefing(briefing, key))
	return nil
}
