package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/models"
)

// DefaultLocale is used when a task does not carry one.
const DefaultLocale = "en-GB"

// Built-in templates, used when no override is stored in the database.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateAgencyInquiry: {
		TemplateID: TemplateAgencyInquiry,
		Locale:     DefaultLocale,
		Subject:    "New Inquiry from {{.name}} - Foster Care Directory UK",
		Body: `You have received a new enquiry for {{.agency_name}} through Foster Care Directory UK.

Name: {{.name}}
Email: {{.email}}
{{if .phone}}Phone: {{.phone}}
{{end}}
Message:
{{.message}}

Reply to this email to contact {{.name}} directly.`,
	},
	TemplateGeneralInquiry: {
		TemplateID: TemplateGeneralInquiry,
		Locale:     DefaultLocale,
		Subject:    "General Inquiry from {{.name}} - Foster Care Directory UK",
		Body: `A visitor has sent a general enquiry.

Name: {{.name}}
Email: {{.email}}
{{if .phone}}Phone: {{.phone}}
{{end}}
Message:
{{.message}}`,
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error
}

type emailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(database *mongo.Database) IEmailTemplateService {
	return &emailTemplateService{db: database}
}

// GetTemplate returns the stored template for templateID/locale, falling back to the built-in one.
func (s *emailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	var tmpl models.EmailTemplate
	err := s.db.Collection(db.EmailTemplatesCollection).FindOne(ctx, bson.M{"template_id": templateID, "locale": locale}).Decode(&tmpl)
	if err == nil {
		return &tmpl, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	if def, ok := defaultEmailTemplates[templateID]; ok {
		return &def, nil
	}
	return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
}

// SaveTemplate upserts a template override.
func (s *emailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	if _, _, err := RenderTemplate(tmpl, map[string]interface{}{}); err != nil {
		return fmt.Errorf("template does not parse: %w", err)
	}
	tmpl.GenIDIfEmpty()
	filter := bson.M{"template_id": tmpl.TemplateID, "locale": tmpl.Locale}
	update := bson.M{
		"$set":         bson.M{"subject": tmpl.Subject, "body": tmpl.Body},
		"$setOnInsert": bson.M{"_id": tmpl.ID},
	}
	if _, err := s.db.Collection(db.EmailTemplatesCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

// RenderTemplate executes the subject and body of tmpl against data. Values are
// rendered as text and missing keys render as empty strings.
func RenderTemplate(tmpl *models.EmailTemplate, data map[string]interface{}) (string, string, error) {
	fields := make(map[string]string, len(data))
	for k, v := range data {
		if v != nil {
			fields[k] = fmt.Sprint(v)
		}
	}
	render := func(name, text string) (string, error) {
		t, err := template.New(name).Option("missingkey=zero").Parse(text)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, fields); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	subject, err := render("subject", tmpl.Subject)
	if err != nil {
		return "", "", fmt.Errorf("render subject of %s: %w", tmpl.TemplateID, err)
	}
	body, err := render("body", tmpl.Body)
	if err != nil {
		return "", "", fmt.Errorf("render body of %s: %w", tmpl.TemplateID, err)
	}
	return subject, body, nil
}
