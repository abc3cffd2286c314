package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/utils"
)

// ICMSService manages the Page -> Section -> Field content tree.
type ICMSService interface {
	CreatePage(ctx context.Context, page *models.Page) (*models.Page, error)
	ListPages(ctx context.Context, pageType string) ([]models.Page, error)
	GetPageTree(ctx context.Context, idOrSlug string) (*models.PageTree, error)
	DeletePage(ctx context.Context, id string) error

	CreateSection(ctx context.Context, section *models.Section) (*models.Section, error)
	ListSections(ctx context.Context, pageID string) ([]models.Section, error)
	DeleteSection(ctx context.Context, id string) error

	CreateField(ctx context.Context, field *models.Field) (*models.Field, error)
	ListFields(ctx context.Context, sectionID string) ([]models.Field, error)
	UpdateFieldValue(ctx context.Context, id string, raw interface{}) (*models.Field, error)
	DeleteField(ctx context.Context, id string) error
}

type cmsService struct {
	db *mongo.Database

	txMu      sync.Mutex
	txChecked bool
	txEnabled bool
}

// NewCMSService creates a new CMSService.
func NewCMSService(database *mongo.Database) ICMSService {
	return &cmsService{db: database}
}

func (s *cmsService) pages() *mongo.Collection    { return s.db.Collection(db.PagesCollection) }
func (s *cmsService) sections() *mongo.Collection { return s.db.Collection(db.SectionsCollection) }
func (s *cmsService) fields() *mongo.Collection   { return s.db.Collection(db.FieldsCollection) }

var byOrder = bson.D{{Key: "sort_order", Value: 1}, {Key: "_id", Value: 1}}

func (s *cmsService) CreatePage(ctx context.Context, page *models.Page) (*models.Page, error) {
	page.Name = strings.TrimSpace(page.Name)
	if page.Name == "" {
		return nil, apperr.Validation("Page name is required")
	}
	if strings.TrimSpace(page.Slug) == "" {
		page.Slug = page.Name
	}
	page.Slug = utils.MakeSlug(page.Slug)
	if page.Slug == "" {
		return nil, apperr.Validation("Page slug is invalid")
	}

	now := time.Now().UTC()
	page.SetID(models.NewID())
	page.CreatedAt = now
	page.UpdatedAt = now

	if _, err := s.pages().InsertOne(ctx, page); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, apperr.Conflict("A page with slug %q already exists", page.Slug)
		}
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

func (s *cmsService) ListPages(ctx context.Context, pageType string) ([]models.Page, error) {
	filter := bson.M{}
	if pageType != "" {
		filter["type"] = pageType
	}
	cursor, err := s.pages().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer cursor.Close(ctx)

	pages := []models.Page{}
	if err := cursor.All(ctx, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}
	return pages, nil
}

func (s *cmsService) findPage(ctx context.Context, idOrSlug string) (*models.Page, error) {
	var page models.Page
	filter := bson.M{"$or": bson.A{bson.M{"_id": idOrSlug}, bson.M{"slug": utils.NormalizeSlug(idOrSlug)}}}
	if err := s.pages().FindOne(ctx, filter).Decode(&page); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Page")
		}
		return nil, fmt.Errorf("error finding page %s: %w", idOrSlug, err)
	}
	return &page, nil
}

// GetPageTree returns the page with its sections and their fields, each level ordered by sort_order.
func (s *cmsService) GetPageTree(ctx context.Context, idOrSlug string) (*models.PageTree, error) {
	page, err := s.findPage(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	sections, err := s.ListSections(ctx, page.ID)
	if err != nil {
		return nil, err
	}
	return &models.PageTree{Page: *page, Sections: sections}, nil
}

// supportsTransactions reports whether the server is a replica set member or mongos.
// The answer is cached after the first successful probe.
func (s *cmsService) supportsTransactions(ctx context.Context) bool {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.txChecked {
		return s.txEnabled
	}
	var hello bson.M
	if err := s.db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		log.Printf("WARN: could not determine MongoDB topology: %v", err)
		return false
	}
	_, replicaSet := hello["setName"]
	s.txEnabled = replicaSet || hello["msg"] == "isdbgrid"
	s.txChecked = true
	if !s.txEnabled {
		log.Println("WARN: MongoDB is standalone; CMS deletes cascade without a transaction")
	}
	return s.txEnabled
}

// cascade runs fn in a transaction when the server supports one. Otherwise fn runs
// directly, so it must delete children before their parent.
func (s *cmsService) cascade(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.supportsTransactions(ctx) {
		return fn(ctx)
	}
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// DeletePage removes the page together with its sections and fields.
func (s *cmsService) DeletePage(ctx context.Context, id string) error {
	err := s.cascade(ctx, func(ctx context.Context) error {
		if err := s.pages().FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.NotFound("Page")
			}
			return err
		}
		sectionIDs, err := s.sectionIDs(ctx, bson.M{"page_id": id})
		if err != nil {
			return err
		}
		if len(sectionIDs) > 0 {
			if _, err := s.fields().DeleteMany(ctx, bson.M{"section_id": bson.M{"$in": sectionIDs}}); err != nil {
				return err
			}
		}
		if _, err := s.sections().DeleteMany(ctx, bson.M{"page_id": id}); err != nil {
			return err
		}
		res, err := s.pages().DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return apperr.NotFound("Page")
		}
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete page %s: %w", id, err)
	}
	return nil
}

func (s *cmsService) sectionIDs(ctx context.Context, filter bson.M) ([]string, error) {
	cursor, err := s.sections().Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *cmsService) CreateSection(ctx context.Context, section *models.Section) (*models.Section, error) {
	if strings.TrimSpace(section.PageID) == "" {
		return nil, apperr.Validation("pageId is required")
	}
	section.Key = strings.TrimSpace(section.Key)
	if section.Key == "" {
		return nil, apperr.Validation("Section key is required")
	}
	if err := s.pages().FindOne(ctx, bson.M{"_id": section.PageID}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Page")
		}
		return nil, fmt.Errorf("error finding page %s: %w", section.PageID, err)
	}

	now := time.Now().UTC()
	section.SetID(models.NewID())
	section.CreatedAt = now
	section.UpdatedAt = now
	section.Fields = nil

	if _, err := s.sections().InsertOne(ctx, section); err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}
	return section, nil
}

// ListSections returns the sections of a page with their fields embedded.
func (s *cmsService) ListSections(ctx context.Context, pageID string) ([]models.Section, error) {
	cursor, err := s.sections().Find(ctx, bson.M{"page_id": pageID}, options.Find().SetSort(byOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer cursor.Close(ctx)

	sections := []models.Section{}
	if err := cursor.All(ctx, &sections); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}
	if len(sections) == 0 {
		return sections, nil
	}

	ids := make([]string, len(sections))
	for i := range sections {
		ids[i] = sections[i].ID
	}
	fieldCursor, err := s.fields().Find(ctx, bson.M{"section_id": bson.M{"$in": ids}}, options.Find().SetSort(byOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to query fields: %w", err)
	}
	defer fieldCursor.Close(ctx)

	var fields []models.Field
	if err := fieldCursor.All(ctx, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	bySection := make(map[string][]models.Field, len(sections))
	for _, f := range fields {
		bySection[f.SectionID] = append(bySection[f.SectionID], f)
	}
	for i := range sections {
		sections[i].Fields = bySection[sections[i].ID]
		if sections[i].Fields == nil {
			sections[i].Fields = []models.Field{}
		}
	}
	return sections, nil
}

// DeleteSection removes the section and its fields.
func (s *cmsService) DeleteSection(ctx context.Context, id string) error {
	err := s.cascade(ctx, func(ctx context.Context) error {
		if err := s.sections().FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.NotFound("Section")
			}
			return err
		}
		if _, err := s.fields().DeleteMany(ctx, bson.M{"section_id": id}); err != nil {
			return err
		}
		res, err := s.sections().DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return apperr.NotFound("Section")
		}
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete section %s: %w", id, err)
	}
	return nil
}

func (s *cmsService) CreateField(ctx context.Context, field *models.Field) (*models.Field, error) {
	if strings.TrimSpace(field.SectionID) == "" {
		return nil, apperr.Validation("sectionId is required")
	}
	field.Key = strings.TrimSpace(field.Key)
	if field.Key == "" {
		return nil, apperr.Validation("Field key is required")
	}
	if !field.Type.Valid() {
		return nil, apperr.Validation("Invalid field type %q", field.Type)
	}
	if field.Value != nil {
		v, err := models.ParseFieldValue(field.Type, field.Value)
		if err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		field.Value = v.Raw()
	}
	if err := s.sections().FindOne(ctx, bson.M{"_id": field.SectionID}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Section")
		}
		return nil, fmt.Errorf("error finding section %s: %w", field.SectionID, err)
	}

	now := time.Now().UTC()
	field.SetID(models.NewID())
	field.CreatedAt = now
	field.UpdatedAt = now

	if _, err := s.fields().InsertOne(ctx, field); err != nil {
		return nil, fmt.Errorf("failed to create field: %w", err)
	}
	return field, nil
}

func (s *cmsService) ListFields(ctx context.Context, sectionID string) ([]models.Field, error) {
	cursor, err := s.fields().Find(ctx, bson.M{"section_id": sectionID}, options.Find().SetSort(byOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to query fields: %w", err)
	}
	defer cursor.Close(ctx)

	fields := []models.Field{}
	if err := cursor.All(ctx, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return fields, nil
}

func (s *cmsService) getField(ctx context.Context, id string) (*models.Field, error) {
	var field models.Field
	if err := s.fields().FindOne(ctx, bson.M{"_id": id}).Decode(&field); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Field")
		}
		return nil, fmt.Errorf("error finding field %s: %w", id, err)
	}
	return &field, nil
}

// ValidateFieldValue checks raw against the field's declared type and required flag.
func ValidateFieldValue(field *models.Field, raw interface{}) (models.FieldValue, error) {
	if raw == nil {
		if field.Required {
			return nil, apperr.Validation("Field %q is required", field.Key)
		}
		return models.ZeroFieldValue(field.Type)
	}
	v, err := models.ParseFieldValue(field.Type, raw)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if field.Required && v.IsEmpty() {
		return nil, apperr.Validation("Field %q is required", field.Key)
	}
	return v, nil
}

// UpdateFieldValue stores a typed value. Saving the value already stored leaves the field untouched.
func (s *cmsService) UpdateFieldValue(ctx context.Context, id string, raw interface{}) (*models.Field, error) {
	field, err := s.getField(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := ValidateFieldValue(field, raw)
	if err != nil {
		return nil, err
	}
	if field.Value != nil {
		if current, err := field.Typed(); err == nil && current == v {
			return field, nil
		}
	}

	var updated models.Field
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"value": v.Raw(), "updated_at": time.Now().UTC()}}
	if err := s.fields().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Field")
		}
		return nil, fmt.Errorf("failed to update field %s: %w", id, err)
	}
	return &updated, nil
}

func (s *cmsService) DeleteField(ctx context.Context, id string) error {
	res, err := s.fields().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete field %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("Field")
	}
	return nil
}
