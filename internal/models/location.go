package models

import "time"

// LocationLevel is the depth of a taxonomy node.
type LocationLevel string

const (
	LocationLevelCountry LocationLevel = "country"
	LocationLevelRegion  LocationLevel = "region"
	LocationLevelCity    LocationLevel = "city"
)

// LocationNode is one entry of the Country -> Region -> City taxonomy.
type LocationNode struct {
	Name          string         `yaml:"name" json:"name"`
	Slug          string         `yaml:"slug" json:"slug"`
	Level         LocationLevel  `yaml:"-" json:"level"`
	CanonicalSlug string         `yaml:"-" json:"canonical_slug"`
	Country       string         `yaml:"-" json:"country,omitempty"`
	Region        string         `yaml:"-" json:"region,omitempty"`
	Regions       []LocationNode `yaml:"regions,omitempty" json:"regions,omitempty"`
	Cities        []LocationNode `yaml:"cities,omitempty" json:"cities,omitempty"`
}

// LocationSummary is a node without its children.
type LocationSummary struct {
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Level         LocationLevel `json:"level"`
	CanonicalSlug string        `json:"canonical_slug"`
	Country       string        `json:"country,omitempty"`
	Region        string        `json:"region,omitempty"`
}

type FAQ struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

type Resource struct {
	Title string `bson:"title" json:"title"`
	URL   string `bson:"url" json:"url"`
}

type ContentSection struct {
	Heading string `bson:"heading" json:"heading"`
	Body    string `bson:"body" json:"body"`
}

// LocationContent is the landing page document for one location node.
type LocationContent struct {
	CanonicalSlug   string           `bson:"_id" json:"canonical_slug"`
	Title           string           `bson:"title" json:"title"`
	H1              string           `bson:"h1" json:"h1"`
	Description     string           `bson:"description" json:"description"`
	MetaTitle       string           `bson:"meta_title" json:"meta_title"`
	MetaDescription string           `bson:"meta_description" json:"meta_description"`
	HeroText        string           `bson:"hero_text" json:"hero_text"`
	IntroText       string           `bson:"intro_text" json:"intro_text"`
	FAQs            []FAQ            `bson:"faqs" json:"faqs"`
	Resources       []Resource       `bson:"resources" json:"resources"`
	Sections        []ContentSection `bson:"sections,omitempty" json:"sections,omitempty"`
	UpdatedAt       *time.Time       `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ResolvedLocation is the result of resolving a slug path.
type ResolvedLocation struct {
	Node      LocationSummary  `json:"node"`
	Content   *LocationContent `json:"content"`
	IsDefault bool             `json:"is_default"`
}
