package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/utils"
)

// Media kinds accepted by SetMedia.
const (
	MediaKindLogo  = "logo"
	MediaKindCover = "cover"
)

// IAgencyService defines the directory catalog operations.
type IAgencyService interface {
	List(ctx context.Context, filter models.AgencyFilter, page, limit int) ([]models.Agency, int64, error)
	Get(ctx context.Context, idOrSlug string) (*models.Agency, error)
	FindByOwner(ctx context.Context, ownerID string) (*models.Agency, error)
	Create(ctx context.Context, in models.AgencyInput, ownerID string) (*models.Agency, error)
	Update(ctx context.Context, id string, in models.AgencyInput, principal models.Principal) (*models.Agency, error)
	Delete(ctx context.Context, id string) error
	AddReview(ctx context.Context, agencyID string, in models.ReviewInput) (*models.Review, *models.ReviewSummary, error)
	ListReviews(ctx context.Context, agencyID string) ([]models.Review, error)
	CanManage(ctx context.Context, agencyID string, principal models.Principal) (*models.Agency, error)
	SetMedia(ctx context.Context, agencyID, kind, url string) error
}

type agencyService struct {
	db *mongo.Database
}

// NewAgencyService creates a new AgencyService.
func NewAgencyService(database *mongo.Database) IAgencyService {
	return &agencyService{db: database}
}

func (s *agencyService) coll() *mongo.Collection {
	return s.db.Collection(db.AgenciesCollection)
}

// agencyListFilter builds the Mongo filter for a catalog query. Deleted agencies never match.
func agencyListFilter(f models.AgencyFilter) bson.M {
	filter := bson.M{"deleted": false}
	if q := strings.TrimSpace(f.Search); q != "" {
		re := containsInsensitive(q)
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"location.city": re},
			bson.M{"location.region": re},
			bson.M{"location.postcode": re},
		}
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	return filter
}

func agencySort(sortBy string) bson.D {
	switch sortBy {
	case "rating":
		return bson.D{{Key: "rating", Value: -1}, {Key: "review_count", Value: -1}, {Key: "_id", Value: 1}}
	case "name":
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	case "newest":
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "featured", Value: -1}, {Key: "rating", Value: -1}, {Key: "_id", Value: 1}}
	}
}

// List returns one page of agencies and the total number of matches. Reviews are not loaded.
func (s *agencyService) List(ctx context.Context, f models.AgencyFilter, page, limit int) ([]models.Agency, int64, error) {
	page, limit = NormalizePaging(page, limit)
	filter := agencyListFilter(f)

	total, err := s.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count agencies: %w", err)
	}

	opts := options.Find().
		SetSort(agencySort(f.Sort)).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"reviews": 0})

	cursor, err := s.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query agencies: %w", err)
	}
	defer cursor.Close(ctx)

	agencies := []models.Agency{}
	if err := cursor.All(ctx, &agencies); err != nil {
		return nil, 0, fmt.Errorf("failed to decode agencies: %w", err)
	}
	return agencies, total, nil
}

// Get finds an agency by id, falling back to slug.
func (s *agencyService) Get(ctx context.Context, idOrSlug string) (*models.Agency, error) {
	key := strings.TrimSpace(idOrSlug)
	if key == "" {
		return nil, apperr.NotFound("Agency")
	}
	filter := bson.M{
		"deleted": false,
		"$or":     bson.A{bson.M{"_id": key}, bson.M{"slug": strings.ToLower(key)}},
	}
	var agency models.Agency
	if err := s.coll().FindOne(ctx, filter).Decode(&agency); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Agency")
		}
		return nil, fmt.Errorf("error finding agency %s: %w", key, err)
	}
	return &agency, nil
}

// FindByOwner returns the oldest agency owned by the user.
func (s *agencyService) FindByOwner(ctx context.Context, ownerID string) (*models.Agency, error) {
	var agency models.Agency
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	err := s.coll().FindOne(ctx, bson.M{"owner_id": ownerID, "deleted": false}, opts).Decode(&agency)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Agency")
		}
		return nil, fmt.Errorf("error finding agency for owner %s: %w", ownerID, err)
	}
	return &agency, nil
}

func validateAgencyInput(in models.AgencyInput, creating bool) error {
	if creating && (in.Name == nil || strings.TrimSpace(*in.Name) == "") {
		return apperr.Validation("Agency name is required")
	}
	if !creating && in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return apperr.Validation("Agency name cannot be empty")
	}
	if in.Type != nil && *in.Type != "" && !in.Type.Valid() {
		return apperr.Validation("Invalid agency type %q", *in.Type)
	}
	return nil
}

// Create inserts a pending agency. The slug is derived from the name and suffixed on collision.
func (s *agencyService) Create(ctx context.Context, in models.AgencyInput, ownerID string) (*models.Agency, error) {
	if err := validateAgencyInput(in, true); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	agency := &models.Agency{
		Base:         models.NewBase(),
		Name:         strings.TrimSpace(*in.Name),
		Services:     []string{},
		Reviews:      []models.Review{},
		Status:       models.AgencyStatusPending,
		OwnerID:      ownerID,
		Subscription: models.Subscription{Plan: models.PlanFree, Status: models.SubscriptionInactive},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyAgencyInput(agency, in)

	baseSlug := utils.MakeSlug(agency.Name)
	if baseSlug == "" {
		baseSlug = "agency"
	}
	err := db.Try(func(attempt int) error {
		agency.Slug = baseSlug
		if attempt > 0 {
			agency.Slug = fmt.Sprintf("%s-%d", baseSlug, attempt+1)
		}
		_, err := s.coll().InsertOne(ctx, agency)
		return err
	})
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, apperr.Conflict("An agency named %q already exists", agency.Name)
		}
		return nil, fmt.Errorf("failed to insert agency %q: %w", agency.Name, err)
	}
	log.Printf("Agency created: %s (%s) owner=%s", agency.ID, agency.Slug, ownerID)
	return agency, nil
}

func applyAgencyInput(a *models.Agency, in models.AgencyInput) {
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Type != nil {
		a.Type = *in.Type
	}
	if in.Accreditation != nil {
		a.Accreditation = *in.Accreditation
	}
	if in.Location != nil {
		a.Location = *in.Location
	}
	if in.Contact != nil {
		a.Contact = *in.Contact
	}
	if in.Services != nil {
		a.Services = in.Services
	}
	if in.Recruiting != nil {
		a.Recruiting = *in.Recruiting
	}
}

// agencyUpdateSet converts the writable input into a $set document.
// Workflow-owned fields are not representable in AgencyInput and so can never be set here.
func agencyUpdateSet(in models.AgencyInput) bson.M {
	set := bson.M{}
	if in.Name != nil {
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Type != nil {
		set["type"] = *in.Type
	}
	if in.Accreditation != nil {
		set["accreditation"] = *in.Accreditation
	}
	if in.Location != nil {
		set["location"] = *in.Location
	}
	if in.Contact != nil {
		set["contact"] = *in.Contact
	}
	if in.Services != nil {
		set["services"] = in.Services
	}
	if in.Recruiting != nil {
		set["recruiting"] = *in.Recruiting
	}
	return set
}

// CanManage loads the agency and checks that principal owns it or is an admin.
func (s *agencyService) CanManage(ctx context.Context, agencyID string, principal models.Principal) (*models.Agency, error) {
	agency, err := s.Get(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && (agency.OwnerID == "" || agency.OwnerID != principal.UserID) {
		return nil, apperr.Authorization("You do not manage this agency")
	}
	return agency, nil
}

// Update applies a partial edit. Only the owner or an admin may update.
func (s *agencyService) Update(ctx context.Context, id string, in models.AgencyInput, principal models.Principal) (*models.Agency, error) {
	if err := validateAgencyInput(in, false); err != nil {
		return nil, err
	}
	current, err := s.CanManage(ctx, id, principal)
	if err != nil {
		return nil, err
	}

	set := agencyUpdateSet(in)
	set["updated_at"] = time.Now().UTC()

	var updated models.Agency
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.coll().FindOneAndUpdate(ctx, bson.M{"_id": current.ID, "deleted": false}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Agency")
		}
		return nil, fmt.Errorf("failed to update agency %s: %w", current.ID, err)
	}
	return &updated, nil
}

// Delete soft-deletes the agency. Its leads and embedded reviews are retained.
func (s *agencyService) Delete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.coll().UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "featured": false, "updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to delete agency %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Agency")
	}
	log.Printf("Agency soft-deleted: %s", id)
	return nil
}

func validateReview(in models.ReviewInput) error {
	if strings.TrimSpace(in.Author) == "" {
		return apperr.Validation("Review author is required")
	}
	if in.Stars < 1 || in.Stars > 5 {
		return apperr.Validation("Stars must be a whole number between 1 and 5")
	}
	return nil
}

// reviewAppendPipeline appends review and recomputes the aggregate in the same update,
// so concurrent appends never recompute from a stale count.
func reviewAppendPipeline(review models.Review, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
				bson.A{bson.D{{Key: "$literal", Value: review}}},
			}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "review_count", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
			{Key: "rating", Value: bson.D{{Key: "$avg", Value: "$reviews.stars"}}},
			{Key: "updated_at", Value: now},
		}}},
	}
}

// AddReview appends an immutable review and returns the recomputed rating summary.
func (s *agencyService) AddReview(ctx context.Context, agencyID string, in models.ReviewInput) (*models.Review, *models.ReviewSummary, error) {
	if err := validateReview(in); err != nil {
		return nil, nil, err
	}
	agency, err := s.Get(ctx, agencyID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	review := models.Review{
		ID:        models.NewID(),
		Author:    strings.TrimSpace(in.Author),
		Comment:   strings.TrimSpace(in.Comment),
		Stars:     in.Stars,
		CreatedAt: now,
	}

	var updated models.Agency
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"rating": 1, "review_count": 1})
	err = s.coll().FindOneAndUpdate(ctx, bson.M{"_id": agency.ID, "deleted": false}, reviewAppendPipeline(review, now), opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, apperr.NotFound("Agency")
		}
		return nil, nil, fmt.Errorf("failed to add review to agency %s: %w", agency.ID, err)
	}
	return &review, &models.ReviewSummary{Rating: updated.Rating, ReviewCount: updated.ReviewCount}, nil
}

// ListReviews returns the agency's reviews, newest first.
func (s *agencyService) ListReviews(ctx context.Context, agencyID string) ([]models.Review, error) {
	agency, err := s.Get(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	reviews := append([]models.Review{}, agency.Reviews...)
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}

// SetMedia records the public URL of a processed logo or cover image.
func (s *agencyService) SetMedia(ctx context.Context, agencyID, kind, url string) error {
	var field string
	switch kind {
	case MediaKindLogo:
		field = "media.logo"
	case MediaKindCover:
		field = "media.cover_image"
	default:
		return apperr.Validation("Unknown media kind %q", kind)
	}
	res, err := s.coll().UpdateOne(ctx,
		bson.M{"_id": agencyID, "deleted": false},
		bson.M{"$set": bson.M{field: url, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set %s on agency %s: %w", field, agencyID, err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Agency")
	}
	return nil
}
