package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xeipuuv/gojsonschema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/cache"
	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/utils"
)

//go:embed data/locations.yaml
var locationSeed []byte

// ILocationService resolves location slug paths to taxonomy nodes and landing page content.
type ILocationService interface {
	Resolve(ctx context.Context, country, region, city string) (*models.ResolvedLocation, error)
	Tree() []models.LocationNode
	UpsertContent(ctx context.Context, canonicalSlug string, content models.LocationContent) (*models.LocationContent, error)
}

// Taxonomy is the immutable Country -> Region -> City tree.
type Taxonomy struct {
	prefix    string
	countries []models.LocationNode
	byKey     map[string]*models.LocationNode
}

// LoadTaxonomy parses a YAML seed and computes levels and canonical slugs.
// Slugs must be unique among siblings, and a city slug may not repeat
// within its country so that it can be addressed directly under it.
func LoadTaxonomy(raw []byte, prefix string) (*Taxonomy, error) {
	var seed struct {
		Countries []models.LocationNode `yaml:"countries"`
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse location seed: %w", err)
	}
	t := &Taxonomy{
		prefix:    strings.Trim(prefix, "/"),
		countries: seed.Countries,
		byKey:     make(map[string]*models.LocationNode),
	}
	for ci := range t.countries {
		country := &t.countries[ci]
		if err := t.index(country, models.LocationLevelCountry, "", ""); err != nil {
			return nil, err
		}
		citySlugs := make(map[string]bool)
		for ri := range country.Regions {
			region := &country.Regions[ri]
			if err := t.index(region, models.LocationLevelRegion, country.Slug, ""); err != nil {
				return nil, err
			}
			for xi := range region.Cities {
				city := &region.Cities[xi]
				if err := t.index(city, models.LocationLevelCity, country.Slug, region.Slug); err != nil {
					return nil, err
				}
				if citySlugs[city.Slug] {
					return nil, fmt.Errorf("city slug %q appears twice in %s", city.Slug, country.Slug)
				}
				citySlugs[city.Slug] = true
			}
		}
		for ri := range country.Regions {
			if citySlugs[country.Regions[ri].Slug] {
				return nil, fmt.Errorf("slug %q is both a region and a city in %s", country.Regions[ri].Slug, country.Slug)
			}
		}
	}
	return t, nil
}

func (t *Taxonomy) index(n *models.LocationNode, level models.LocationLevel, country, region string) error {
	n.Slug = utils.NormalizeSlug(n.Slug)
	if n.Slug == "" || strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("location %q at level %s needs a name and a slug", n.Name, level)
	}
	n.Level = level
	n.Country = country
	n.Region = region

	parts := []string{t.prefix}
	for _, p := range []string{country, region, n.Slug} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	n.CanonicalSlug = "/" + strings.Join(parts, "/")
	if _, dup := t.byKey[n.CanonicalSlug]; dup {
		return fmt.Errorf("duplicate location %s", n.CanonicalSlug)
	}
	t.byKey[n.CanonicalSlug] = n
	return nil
}

// Countries returns the top level of the tree.
func (t *Taxonomy) Countries() []models.LocationNode {
	return t.countries
}

// Lookup finds a node by canonical slug.
func (t *Taxonomy) Lookup(canonicalSlug string) (*models.LocationNode, bool) {
	n, ok := t.byKey["/"+strings.Trim(strings.ToLower(canonicalSlug), "/")]
	return n, ok
}

// Find walks the tree. A city may be addressed directly under its country,
// in which case region holds the city slug and city is empty.
func (t *Taxonomy) Find(country, region, city string) (*models.LocationNode, error) {
	country, region, city = utils.NormalizeSlug(country), utils.NormalizeSlug(region), utils.NormalizeSlug(city)
	if country == "" {
		return nil, apperr.Validation("country is required")
	}
	if region == "" && city != "" {
		return nil, apperr.Validation("region is required when city is given")
	}

	var c *models.LocationNode
	for i := range t.countries {
		if t.countries[i].Slug == country {
			c = &t.countries[i]
			break
		}
	}
	if c == nil {
		return nil, apperr.NotFound("Location")
	}
	if region == "" {
		return c, nil
	}

	for ri := range c.Regions {
		r := &c.Regions[ri]
		if r.Slug != region {
			continue
		}
		if city == "" {
			return r, nil
		}
		for xi := range r.Cities {
			if r.Cities[xi].Slug == city {
				return &r.Cities[xi], nil
			}
		}
		return nil, apperr.NotFound("Location")
	}

	if city == "" {
		for ri := range c.Regions {
			for xi := range c.Regions[ri].Cities {
				if c.Regions[ri].Cities[xi].Slug == region {
					return &c.Regions[ri].Cities[xi], nil
				}
			}
		}
	}
	return nil, apperr.NotFound("Location")
}

func summarize(n *models.LocationNode) models.LocationSummary {
	return models.LocationSummary{
		Name:          n.Name,
		Slug:          n.Slug,
		Level:         n.Level,
		CanonicalSlug: n.CanonicalSlug,
		Country:       n.Country,
		Region:        n.Region,
	}
}

// DefaultLocationContent synthesises landing page content from the leaf slug.
// It depends only on its input.
func DefaultLocationContent(canonicalSlug string) *models.LocationContent {
	leaf := canonicalSlug
	if i := strings.LastIndex(strings.TrimRight(canonicalSlug, "/"), "/"); i >= 0 {
		leaf = canonicalSlug[i+1:]
	}
	place := utils.TitleFromSlug(leaf)
	return &models.LocationContent{
		CanonicalSlug:   canonicalSlug,
		Title:           "Foster Agencies in " + place,
		H1:              "Find the Best Foster Agencies in " + place,
		Description:     "Discover top-rated foster agencies in " + place + ". Get support and guidance for your fostering journey.",
		MetaTitle:       "Foster Agencies in " + place + " | UK Foster Care Directory",
		MetaDescription: "Find accredited foster agencies in " + place + ". Expert support and guidance for prospective foster carers.",
		HeroText:        "Find the perfect foster agency in " + place,
		IntroText:       "Welcome to our directory of foster agencies in " + place + ". We've compiled a list of accredited and trusted agencies to help you start your fostering journey.",
		FAQs: []models.FAQ{
			{
				Question: "How do I become a foster carer?",
				Answer:   "Becoming a foster carer involves several steps including an application, assessments, training, and approval process. Contact your local foster agency to begin your journey.",
			},
			{
				Question: "What are the requirements to be a foster carer?",
				Answer:   "Requirements vary by agency but typically include being over 21, having a spare room, passing background checks, and completing training programs.",
			},
			{
				Question: "How long does the fostering process take?",
				Answer:   "The process typically takes 4-6 months from initial enquiry to approval, depending on your circumstances and the agency.",
			},
		},
		Resources: []models.Resource{
			{Title: "Gov.uk - Fostering", URL: "https://www.gov.uk/fostering"},
			{Title: "Fostering Network", URL: "https://www.thefosteringnetwork.org.uk"},
		},
	}
}

const locationContentSchema = `{
  "type": "object",
  "required": ["title", "h1", "meta_title", "meta_description"],
  "properties": {
    "title":            {"type": "string", "minLength": 1, "maxLength": 200},
    "h1":               {"type": "string", "minLength": 1, "maxLength": 200},
    "description":      {"type": "string"},
    "meta_title":       {"type": "string", "minLength": 1, "maxLength": 120},
    "meta_description": {"type": "string", "minLength": 1, "maxLength": 320},
    "hero_text":        {"type": "string"},
    "intro_text":       {"type": "string"},
    "faqs": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["question", "answer"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "answer":   {"type": "string", "minLength": 1}
        }
      }
    },
    "resources": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["title", "url"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "url":   {"type": "string", "pattern": "^https?://"}
        }
      }
    },
    "sections": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["heading"],
        "properties": {
          "heading": {"type": "string", "minLength": 1},
          "body":    {"type": "string"}
        }
      }
    }
  }
}`

var contentSchema = gojsonschema.NewStringLoader(locationContentSchema)

// ValidateLocationContent checks a content document against the landing page schema.
func ValidateLocationContent(content models.LocationContent) error {
	result, err := gojsonschema.Validate(contentSchema, gojsonschema.NewGoLoader(content))
	if err != nil {
		return fmt.Errorf("failed to validate location content: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	ve := apperr.Validation("Invalid location content")
	ve.Details = strings.Join(msgs, "; ")
	return ve
}

type locationService struct {
	db       *mongo.Database
	taxonomy *Taxonomy
	cache    *cache.JSONCache
}

// NewLocationService loads the embedded taxonomy. rdb may be nil, which disables caching.
func NewLocationService(database *mongo.Database, cfg *config.Config, rdb redis.Cmdable) (ILocationService, error) {
	taxonomy, err := LoadTaxonomy(locationSeed, cfg.LocationSlugPrefix)
	if err != nil {
		return nil, err
	}
	return NewLocationServiceWithTaxonomy(database, taxonomy, cache.NewJSONCache(rdb, "location", cfg.LocationCacheTTL)), nil
}

// NewLocationServiceWithTaxonomy builds the service from an already loaded tree.
func NewLocationServiceWithTaxonomy(database *mongo.Database, taxonomy *Taxonomy, c *cache.JSONCache) ILocationService {
	return &locationService{db: database, taxonomy: taxonomy, cache: c}
}

func (s *locationService) Tree() []models.LocationNode {
	return s.taxonomy.Countries()
}

func (s *locationService) Resolve(ctx context.Context, country, region, city string) (*models.ResolvedLocation, error) {
	node, err := s.taxonomy.Find(country, region, city)
	if err != nil {
		return nil, err
	}

	var resolved models.ResolvedLocation
	if s.cache.Get(ctx, node.CanonicalSlug, &resolved) {
		return &resolved, nil
	}

	resolved = models.ResolvedLocation{Node: summarize(node)}
	var content models.LocationContent
	err = s.db.Collection(db.LocationContentCollection).FindOne(ctx, bson.M{"_id": node.CanonicalSlug}).Decode(&content)
	switch {
	case err == nil:
		resolved.Content = &content
	case errors.Is(err, mongo.ErrNoDocuments):
		resolved.Content = DefaultLocationContent(node.CanonicalSlug)
		resolved.IsDefault = true
	default:
		return nil, fmt.Errorf("error loading content for %s: %w", node.CanonicalSlug, err)
	}

	s.cache.Set(ctx, node.CanonicalSlug, resolved)
	return &resolved, nil
}

// UpsertContent replaces the stored content of a node and evicts its cache entry.
func (s *locationService) UpsertContent(ctx context.Context, canonicalSlug string, content models.LocationContent) (*models.LocationContent, error) {
	node, ok := s.taxonomy.Lookup(canonicalSlug)
	if !ok {
		return nil, apperr.NotFound("Location")
	}
	if err := ValidateLocationContent(content); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	content.CanonicalSlug = node.CanonicalSlug
	content.UpdatedAt = &now

	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(db.LocationContentCollection).ReplaceOne(ctx, bson.M{"_id": node.CanonicalSlug}, content, opts); err != nil {
		return nil, fmt.Errorf("failed to save content for %s: %w", node.CanonicalSlug, err)
	}
	s.cache.Delete(ctx, node.CanonicalSlug)
	return &content, nil
}
