package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/metrics"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/tasks"
)

// Email templates used for lead notifications.
const (
	TemplateAgencyInquiry  = "agency_inquiry"
	TemplateGeneralInquiry = "general_inquiry"
)

// ILeadService captures and manages contact-form enquiries.
type ILeadService interface {
	CreateForAgency(ctx context.Context, agencyID string, in models.LeadInput) (*models.Lead, models.NotificationResult, error)
	CreateGeneral(ctx context.Context, in models.LeadInput) (*models.Lead, models.NotificationResult, error)
	List(ctx context.Context, filter models.LeadFilter, page, limit int) ([]models.Lead, int64, error)
	Get(ctx context.Context, id string) (*models.Lead, error)
	Transition(ctx context.Context, id string, to models.LeadStatus) (*models.Lead, error)
	Update(ctx context.Context, id string, in models.LeadUpdate) (*models.Lead, error)
}

type leadService struct {
	db            *mongo.Database
	cfg           *config.Config
	agencyService IAgencyService
	taskClient    tasks.IAsynqClient
}

// NewLeadService creates a new LeadService. taskClient may be nil, in which case
// notifications are reported as not queued.
func NewLeadService(database *mongo.Database, cfg *config.Config, agencyService IAgencyService, taskClient tasks.IAsynqClient) ILeadService {
	return &leadService{db: database, cfg: cfg, agencyService: agencyService, taskClient: taskClient}
}

func (s *leadService) coll() *mongo.Collection {
	return s.db.Collection(db.LeadsCollection)
}

// ValidateLeadInput checks the required contact-form fields.
func ValidateLeadInput(in models.LeadInput) error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(in.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return apperr.Validation("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return apperr.Validation("Invalid email address")
	}
	if hasControl(in.Name) || hasControl(in.Phone) {
		return apperr.Validation("Name and phone must be a single line of text")
	}
	return nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

func newLead(in models.LeadInput, leadType models.LeadType) *models.Lead {
	now := time.Now().UTC()
	return &models.Lead{
		Base:      models.NewBase(),
		Type:      leadType,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Message:   strings.TrimSpace(in.Message),
		Status:    models.LeadStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateForAgency stores a lead for an existing agency and queues the agency notification.
// A notification failure is reported in the result and never fails the call.
func (s *leadService) CreateForAgency(ctx context.Context, agencyID string, in models.LeadInput) (*models.Lead, models.NotificationResult, error) {
	if strings.TrimSpace(agencyID) == "" {
		return nil, models.NotificationResult{}, apperr.Validation("Missing required fields: agencyId")
	}
	if err := ValidateLeadInput(in); err != nil {
		return nil, models.NotificationResult{}, err
	}
	agency, err := s.agencyService.Get(ctx, agencyID)
	if err != nil {
		return nil, models.NotificationResult{}, err
	}

	lead := newLead(in, models.LeadTypeAgency)
	lead.AgencyID = agency.ID
	lead.AgencyName = agency.Name

	if _, err := s.coll().InsertOne(ctx, lead); err != nil {
		return nil, models.NotificationResult{}, fmt.Errorf("failed to store lead for agency %s: %w", agency.ID, err)
	}
	metrics.LeadsCreated.WithLabelValues(string(models.LeadTypeAgency)).Inc()

	notification := s.notify(ctx, agency.Contact.Email, TemplateAgencyInquiry, lead, map[string]interface{}{
		"agency_name": agency.Name,
	})
	return lead, notification, nil
}

// CreateGeneral stores a lead that is not tied to an agency and notifies the site inbox.
func (s *leadService) CreateGeneral(ctx context.Context, in models.LeadInput) (*models.Lead, models.NotificationResult, error) {
	if err := ValidateLeadInput(in); err != nil {
		return nil, models.NotificationResult{}, err
	}
	lead := newLead(in, models.LeadTypeGeneral)
	if _, err := s.coll().InsertOne(ctx, lead); err != nil {
		return nil, models.NotificationResult{}, fmt.Errorf("failed to store general lead: %w", err)
	}
	metrics.LeadsCreated.WithLabelValues(string(models.LeadTypeGeneral)).Inc()

	notification := s.notify(ctx, s.cfg.SiteInboxEmail, TemplateGeneralInquiry, lead, nil)
	return lead, notification, nil
}

func (s *leadService) notify(ctx context.Context, to, templateID string, lead *models.Lead, extra map[string]interface{}) models.NotificationResult {
	result := models.NotificationResult{}
	defer func() {
		outcome := "queued"
		if !result.Queued {
			outcome = "failed"
		}
		metrics.LeadNotifications.WithLabelValues(outcome).Inc()
	}()

	if strings.TrimSpace(to) == "" {
		result.Error = "no notification address on file"
		log.Printf("WARN: lead %s stored without notification: %s", lead.ID, result.Error)
		return result
	}
	if s.taskClient == nil {
		result.Error = "notification queue unavailable"
		return result
	}

	data := map[string]interface{}{
		"name":    lead.Name,
		"email":   lead.Email,
		"phone":   lead.Phone,
		"message": lead.Message,
		"lead_id": lead.ID,
	}
	for k, v := range extra {
		data[k] = v
	}
	task, err := tasks.NewEmailDeliveryTask(tasks.EmailTaskPayload{
		To:         to,
		ReplyTo:    lead.Email,
		TemplateID: templateID,
		Data:       data,
	})
	if err == nil {
		_, err = s.taskClient.EnqueueContext(ctx, task)
	}
	if err != nil {
		log.Printf("ERROR: failed to enqueue notification for lead %s: %v", lead.ID, err)
		result.Error = err.Error()
		return result
	}
	result.Queued = true
	return result
}

func leadListFilter(f models.LeadFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.AgencyID != "" {
		filter["agency_id"] = f.AgencyID
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		re := containsInsensitive(q)
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"email": re}}
	}
	return filter
}

// List returns leads newest first.
func (s *leadService) List(ctx context.Context, f models.LeadFilter, page, limit int) ([]models.Lead, int64, error) {
	page, limit = NormalizePaging(page, limit)
	filter := leadListFilter(f)

	total, err := s.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := s.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query leads: %w", err)
	}
	defer cursor.Close(ctx)

	leads := []models.Lead{}
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, 0, fmt.Errorf("failed to decode leads: %w", err)
	}
	return leads, total, nil
}

func (s *leadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	if err := s.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&lead); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Lead")
		}
		return nil, fmt.Errorf("error finding lead %s: %w", id, err)
	}
	return &lead, nil
}

// Transition moves a lead forward. Re-applying the current status is a no-op and
// moving backwards is a validation error. The write only succeeds if the status
// has not changed since it was read.
func (s *leadService) Transition(ctx context.Context, id string, to models.LeadStatus) (*models.Lead, error) {
	if to != models.LeadStatusReplied && to != models.LeadStatusClosed {
		return nil, apperr.Validation("Invalid lead status %q", to)
	}
	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == to {
		return lead, nil
	}
	if !lead.Status.CanTransitionTo(to) {
		return nil, apperr.Validation("Cannot move lead from %s to %s", lead.Status, to)
	}

	var updated models.Lead
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": lead.Status},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to transition lead %s: %w", id, err)
	}

	latest, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if latest.Status == to {
		return latest, nil
	}
	return nil, apperr.Conflict("Lead status changed to %s concurrently", latest.Status)
}

// Update edits contact details and notes. Status is changed only through Transition.
func (s *leadService) Update(ctx context.Context, id string, in models.LeadUpdate) (*models.Lead, error) {
	set := bson.M{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.Validation("Name cannot be empty")
		}
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		if _, err := mail.ParseAddress(strings.TrimSpace(*in.Email)); err != nil {
			return nil, apperr.Validation("Invalid email address")
		}
		set["email"] = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		set["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Message != nil {
		set["message"] = *in.Message
	}
	if in.Notes != nil {
		set["notes"] = *in.Notes
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	set["updated_at"] = time.Now().UTC()

	var updated models.Lead
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Lead")
		}
		return nil, fmt.Errorf("failed to update lead %s: %w", id, err)
	}
	return &updated, nil
}
