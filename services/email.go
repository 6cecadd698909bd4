package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"strings"
	texttemplate "text/template"

	"sustain_score_app_go/config"
	"sustain_score_app_go/models"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("[EMAIL] Sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details to console in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (test mode, not sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// SendEmailAsync sends a copy of email from a goroutine
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	go func(cfg *config.Config, email *Email) {
		if err := SendEmail(cfg, email); err != nil {
			log.Printf("[EMAIL] Error sending async email: %v", err)
		}
	}(cfg, emailCopy)
}

// Notifier announces saved assessments
type Notifier interface {
	ProjectSaved(p *models.Project, created bool)
}

// EmailNotifier mails NOTIFY_EMAILS whenever a project record is written
type EmailNotifier struct {
	cfg *config.Config
}

// NewEmailNotifier returns nil when no recipients are configured
func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	if cfg == nil || len(cfg.NotifyEmails) == 0 {
		return nil
	}
	return &EmailNotifier{cfg: cfg}
}

// ProjectSaved sends the notification without blocking the caller
func (n *EmailNotifier) ProjectSaved(p *models.Project, created bool) {
	email, err := BuildAssessmentSavedEmail(n.cfg.NotifyEmails, n.cfg.AppURL, p, created)
	if err != nil {
		log.Printf("[EMAIL] Failed to build assessment email for %s: %v", p.Reference, err)
		return
	}
	SendEmailAsync(n.cfg, email)
}

type assessmentEmailData struct {
	Verb    string
	Project *models.Project
	Score   string
	Link    string
}

var assessmentHTML = template.Must(template.New("assessment_saved.html").Parse(
	`<p>The assessment <strong>{{.Project.Reference}}</strong> was {{.Verb}}.</p>
<table>
<tr><td>Project</td><td>{{.Project.ProjectNumber}} {{.Project.ProjectName}}</td></tr>
<tr><td>Stage</td><td>{{.Project.ProjectStage}}</td></tr>
<tr><td>Owner</td><td>{{.Project.ProjectOwner}}</td></tr>
<tr><td>Total score</td><td>{{.Score}}</td></tr>
</table>
<p><a href="{{.Link}}">Open project</a></p>`))

var assessmentText = texttemplate.Must(texttemplate.New("assessment_saved.txt").Parse(
	`The assessment {{.Project.Reference}} was {{.Verb}}.

Project: {{.Project.ProjectNumber}} {{.Project.ProjectName}}
Stage: {{.Project.ProjectStage}}
Owner: {{.Project.ProjectOwner}}
Total score: {{.Score}}

{{.Link}}
`))

// BuildAssessmentSavedEmail renders the notification for a saved project
func BuildAssessmentSavedEmail(to []string, appURL string, p *models.Project, created bool) (*Email, error) {
	data := assessmentEmailData{
		Verb:    "updated",
		Project: p,
		Score:   fmt.Sprintf("%.2f", p.TotalScore),
		Link:    strings.TrimRight(appURL, "/") + "/api/projects/" + p.ID,
	}
	if created {
		data.Verb = "created"
	}

	var html, text bytes.Buffer
	if err := assessmentHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}
	if err := assessmentText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}

	return &Email{
		To:       append([]string{}, to...),
		Subject:  fmt.Sprintf("Sustainability assessment %s: %s", data.Verb, p.Reference),
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}
