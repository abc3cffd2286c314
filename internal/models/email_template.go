package models

// EmailTemplate defines the structure for email templates stored in the DB.
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string `bson:"template_id" json:"template_id"` // e.g., "agency_inquiry"
	Locale     string `bson:"locale" json:"locale"`           // e.g., "en-GB"
	Subject    string `bson:"subject" json:"subject"`         // text/template
	Body       string `bson:"body" json:"body"`               // text/template
}
