package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/models"
)

// IApprovalService moves agencies through moderation.
//
//	pending --Approve--> approved (verified)
//	pending --Reject---> rejected (reason kept)
//	approved --ToggleFeatured--> approved
type IApprovalService interface {
	Approve(ctx context.Context, id string) (*models.Agency, error)
	Reject(ctx context.Context, id, reason string) (*models.Agency, error)
	ToggleFeatured(ctx context.Context, id string) (*models.Agency, error)
}

type approvalService struct {
	db *mongo.Database
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(database *mongo.Database) IApprovalService {
	return &approvalService{db: database}
}

func (s *approvalService) coll() *mongo.Collection {
	return s.db.Collection(db.AgenciesCollection)
}

// transitionFromPending applies update only while the agency is still pending.
func (s *approvalService) transitionFromPending(ctx context.Context, id string, update bson.M) (*models.Agency, error) {
	filter := bson.M{"_id": id, "deleted": false, "status": models.AgencyStatusPending}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(bson.M{"reviews": 0})

	var agency models.Agency
	err := s.coll().FindOneAndUpdate(ctx, filter, update, opts).Decode(&agency)
	if err == nil {
		return &agency, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to transition agency %s: %w", id, err)
	}
	return nil, s.explainMiss(ctx, id, "is not pending")
}

// explainMiss tells a missing agency apart from one in the wrong state.
func (s *approvalService) explainMiss(ctx context.Context, id, why string) error {
	var current struct {
		Status models.AgencyStatus `bson:"status"`
	}
	err := s.coll().FindOne(ctx, bson.M{"_id": id, "deleted": false}, options.FindOne().SetProjection(bson.M{"status": 1})).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("Agency")
	}
	if err != nil {
		return fmt.Errorf("failed to load agency %s: %w", id, err)
	}
	return apperr.Conflict("Agency %s (status: %s)", why, current.Status)
}

// Approve marks a pending agency approved and verified.
func (s *approvalService) Approve(ctx context.Context, id string) (*models.Agency, error) {
	agency, err := s.transitionFromPending(ctx, id, bson.M{
		"$set": bson.M{
			"status":     models.AgencyStatusApproved,
			"verified":   true,
			"updated_at": time.Now().UTC(),
		},
		"$unset": bson.M{"rejection_reason": ""},
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Agency approved: %s", id)
	return agency, nil
}

// Reject marks a pending agency rejected and stores the reason.
func (s *approvalService) Reject(ctx context.Context, id, reason string) (*models.Agency, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("A rejection reason is required")
	}
	agency, err := s.transitionFromPending(ctx, id, bson.M{
		"$set": bson.M{
			"status":           models.AgencyStatusRejected,
			"rejection_reason": reason,
			"featured":         false,
			"updated_at":       time.Now().UTC(),
		},
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Agency rejected: %s (%s)", id, reason)
	return agency, nil
}

// ToggleFeatured flips the featured flag of an approved agency in one update.
func (s *approvalService) ToggleFeatured(ctx context.Context, id string) (*models.Agency, error) {
	filter := bson.M{"_id": id, "deleted": false, "status": models.AgencyStatusApproved}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "featured", Value: bson.D{{Key: "$not", Value: bson.A{"$featured"}}}},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(bson.M{"reviews": 0})

	var agency models.Agency
	err := s.coll().FindOneAndUpdate(ctx, filter, update, opts).Decode(&agency)
	if err == nil {
		return &agency, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to toggle featured on agency %s: %w", id, err)
	}
	missErr := s.explainMiss(ctx, id, "is not approved")
	if apperr.Is(missErr, apperr.KindConflict) {
		return nil, apperr.Validation("Only approved agencies can be featured")
	}
	return nil, missErr
}
