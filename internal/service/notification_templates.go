package service

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/noah-isme/placement-engine/internal/models"
)

// TemplateKey selects a message template.
type TemplateKey struct {
	Type    models.NotificationEventType
	Outcome models.NotificationOutcome
}

// MessageTemplate is the source of one template variant. Subject is a
// text/template, HTMLBody an html/template, WhatsApp the provider template name.
type MessageTemplate struct {
	Subject  string
	HTMLBody string
	WhatsApp string
}

// TemplateData parameterises every template.
type TemplateData struct {
	StudentName string
	Company     string
	Role        string
	Comment     string
	RoundLabel  string
	DeadLine    string
}

// RenderedMessage is a template rendered for one recipient.
type RenderedMessage struct {
	Subject          string
	HTMLBody         string
	WhatsAppTemplate string
	WhatsAppParams   []string
}

type compiledTemplate struct {
	subject  *texttemplate.Template
	body     *htmltemplate.Template
	whatsapp string
}

// TemplateSet holds the compiled templates keyed by (event type, outcome).
type TemplateSet struct {
	templates map[TemplateKey]compiledTemplate
}

// NewTemplateSet compiles the definitions.
func NewTemplateSet(defs map[TemplateKey]MessageTemplate) (*TemplateSet, error) {
	set := &TemplateSet{templates: make(map[TemplateKey]compiledTemplate, len(defs))}
	for key, def := range defs {
		name := fmt.Sprintf("%s.%s", key.Type, key.Outcome)
		subject, err := texttemplate.New(name + ".subject").Option("missingkey=error").Parse(def.Subject)
		if err != nil {
			return nil, fmt.Errorf("parse subject %s: %w", name, err)
		}
		body, err := htmltemplate.New(name + ".body").Option("missingkey=error").Parse(def.HTMLBody)
		if err != nil {
			return nil, fmt.Errorf("parse body %s: %w", name, err)
		}
		set.templates[key] = compiledTemplate{subject: subject, body: body, whatsapp: def.WhatsApp}
	}
	return set, nil
}

// Render renders the template selected by key.
func (t *TemplateSet) Render(key TemplateKey, data TemplateData) (RenderedMessage, error) {
	tpl, ok := t.templates[key]
	if !ok {
		return RenderedMessage{}, fmt.Errorf("no template for %s/%s", key.Type, key.Outcome)
	}
	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return RenderedMessage{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return RenderedMessage{}, fmt.Errorf("render body: %w", err)
	}
	return RenderedMessage{
		Subject:          subject.String(),
		HTMLBody:         body.String(),
		WhatsAppTemplate: tpl.whatsapp,
		WhatsAppParams:   whatsappParams(key, data),
	}, nil
}

// whatsappParams orders the body parameters expected by the provider templates.
// Empty values are replaced because the provider rejects blank parameters.
func whatsappParams(key TemplateKey, data TemplateData) []string {
	params := []string{data.StudentName, data.Company, data.Role}
	switch key.Type {
	case models.EventJobPosted:
		params = append(params, data.DeadLine)
	case models.EventRoundRecorded:
		params = append(params, data.RoundLabel, data.Comment)
	default:
		params = append(params, data.Comment)
	}
	for i, p := range params {
		if p == "" {
			params[i] = "-"
		}
	}
	return params
}

// DefaultTemplates returns the built-in template variants.
func DefaultTemplates() map[TemplateKey]MessageTemplate {
	return map[TemplateKey]MessageTemplate{
		{models.EventJobPosted, models.OutcomeEligible}: {
			Subject:  "New opening: {{.Role}} at {{.Company}}",
			HTMLBody: `<p>Hi {{.StudentName}},</p><p>You are eligible for <b>{{.Role}}</b> at <b>{{.Company}}</b>. Apply before {{.DeadLine}}.</p>`,
			WhatsApp: "job_posted",
		},
		{models.EventShortlistPublished, models.OutcomeSelected}: {
			Subject:  "Shortlisted: {{.Role}} at {{.Company}}",
			HTMLBody: `<p>Hi {{.StudentName}},</p><p>You have been shortlisted for <b>{{.Role}}</b> at <b>{{.Company}}</b>.</p>{{if .Comment}}<p>{{.Comment}}</p>{{end}}`,
			WhatsApp: "shortlist_selected",
		},
		{models.EventShortlistPublished, models.OutcomeRejected}: {
			Subject:  "Application update: {{.Role}} at {{.Company}}",
			HTMLBody: `<p>Hi {{.StudentName}},</p><p>Your application for <b>{{.Role}}</b> at <b>{{.Company}}</b> was not shortlisted.</p>{{if .Comment}}<p>{{.Comment}}</p>{{end}}`,
			WhatsApp: "shortlist_rejected",
		},
		{models.EventRoundRecorded, models.OutcomeSelected}: {
			Subject:  "Cleared {{.RoundLabel}}: {{.Role}} at {{.Company}}",
			HTMLBody: `<p>Hi {{.StudentName}},</p><p>You cleared the {{.RoundLabel}} round for <b>{{.Role}}</b> at <b>{{.Company}}</b>.</p>{{if .Comment}}<p>{{.Comment}}</p>{{end}}`,
			WhatsApp: "round_selected",
		},
		{models.EventRoundRecorded, models.OutcomeRejected}: {
			Subject:  "Interview update: {{.Role}} at {{.Company}}",
			HTMLBody: `<p>Hi {{.StudentName}},</p><p>You did not clear the {{.RoundLabel}} round for <b>{{.Role}}</b> at <b>{{.Company}}</b>.</p>{{if .Comment}}<p>{{.Comment}}</p>{{end}}`,
			WhatsApp: "round_rejected",
		},
		{models.EventOfferFinalised, models.OutcomeSelected}: {
			Subject:  "Offer: {{.Role}} at {{.Company}}",
			HTMLBody: `<p>Congratulations {{.StudentName}},</p><p>You have been selected for <b>{{.Role}}</b> at <b>{{.Company}}</b>. Your offer letter is attached.</p>{{if .Comment}}<p>{{.Comment}}</p>{{end}}`,
			WhatsApp: "offer_finalised",
		},
	}
}
