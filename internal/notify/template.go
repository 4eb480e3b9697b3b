package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"DailyDigest/internal/domain"
)

var emailTemplate = template.Must(template.New("briefing").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Daily Digest - {{.Date}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="text-align: center; margin-bottom: 30px; padding-bottom: 20px; border-bottom: 2px solid #2d6cdf;">
    <h1 style="color: #2d6cdf; margin: 0; font-size: 28px;">Daily Digest</h1>
    <p style="color: #666; margin: 5px 0 0 0; font-size: 16px;">{{.Date}}</p>
  </div>
{{- if .ChatURL}}
  <div style="text-align: center; margin-bottom: 30px; padding: 20px; background: #667eea; border-radius: 12px;">
    <h2 style="color: white; margin: 0 0 15px 0; font-size: 24px;">Talk with AI about your briefing</h2>
    <p style="color: #f0f0ff; margin: 0 0 20px 0; font-size: 16px;">Have questions about today's news? Continue the conversation about this exact briefing.</p>
    <a href="{{.ChatURL}}" style="display: inline-block; background-color: #ffffff; color: #667eea; padding: 12px 30px; border-radius: 25px; text-decoration: none; font-weight: bold;">Start AI Chat</a>
  </div>
{{- end}}
  <p style="color: #555; font-size: 16px;">Here's your personalized news briefing based on your interests:</p>
{{- range .Topics}}
  <div style="margin-bottom: 30px; padding: 20px; background-color: #f8f9fa; border-radius: 8px;">
    <h2 style="color: #2d6cdf; margin-top: 0; font-size: 20px;">{{.Title}}</h2>
    <p style="color: #555; line-height: 1.6;">{{.Summary}}</p>
  {{- if .Articles}}
    <h3 style="color: #333; font-size: 16px;">Related Articles:</h3>
    <ul style="list-style: none; padding: 0; margin: 0;">
    {{- range .Articles}}
      <li style="margin-bottom: 8px;"><a href="{{.URL}}" style="color: #2d6cdf; text-decoration: none; font-weight: 500;">{{.Title}}</a> <span style="color: #888; font-size: 14px;">({{.Source}})</span></li>
    {{- end}}
    </ul>
  {{- end}}
  </div>
{{- else}}
  <p style="color: #666; font-style: italic;">No new articles matching your interests were found today.</p>
{{- end}}
  <div style="margin-top: 40px; padding-top: 20px; border-top: 1px solid #eee; text-align: center;">
    <p style="color: #888; font-size: 14px; margin: 0;">This briefing was automatically generated by Daily Digest.</p>
  </div>
</body>
</html>
`))

type emailView struct {
	Date    string
	ChatURL string
	Topics  []domain.TopicBriefing
}

// RenderHTML renders the briefing as a self-contained HTML document. When key
// is set, a call-to-action linking to {baseURL}/briefing?id={key} is included.
func RenderHTML(briefing domain.Briefing, key, baseURL string) (string, error) {
	view := emailView{Date: briefing.Date, Topics: briefing.Topics}
	if key != "" {
		view.ChatURL = ChatURL(baseURL, key)
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render briefing email: %w", err)
	}
	return buf.String(), nil
}

// ChatURL builds the link that reopens the persisted briefing in the chat page.
func ChatURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + "/briefing?id=" + url.QueryEscape(key)
}

// Subject returns the email subject for a briefing.
func Subject(briefing domain.Briefing) string {
	return "Your Daily Digest - " + briefing.Date
}
