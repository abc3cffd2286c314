package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/models"
)

// IStatsService computes the admin dashboard counters.
type IStatsService interface {
	AdminStats(ctx context.Context) (*models.AdminStats, error)
}

type statsService struct {
	db *mongo.Database
}

// NewStatsService creates a new StatsService.
func NewStatsService(database *mongo.Database) IStatsService {
	return &statsService{db: database}
}

func (s *statsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	agencies := s.db.Collection(db.AgenciesCollection)
	leads := s.db.Collection(db.LeadsCollection)
	stats := &models.AdminStats{}

	counts := []struct {
		coll   *mongo.Collection
		filter bson.M
		dst    *int64
	}{
		{agencies, bson.M{"deleted": false}, &stats.TotalAgencies},
		{agencies, bson.M{"deleted": false, "status": models.AgencyStatusPending}, &stats.PendingAgencies},
		{agencies, bson.M{"deleted": false, "featured": true}, &stats.FeaturedAgencies},
		{s.db.Collection(db.UsersCollection), bson.M{}, &stats.TotalUsers},
		{leads, bson.M{}, &stats.TotalLeads},
		{leads, bson.M{"status": models.LeadStatusNew}, &stats.NewLeads},
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := c.coll.CountDocuments(gctx, c.filter)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", c.coll.Name(), err)
			}
			*c.dst = n
			return nil
		})
	}
	g.Go(func() error {
		total, err := s.totalReviews(gctx, agencies)
		stats.TotalReviews = total
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *statsService) totalReviews(ctx context.Context, agencies *mongo.Collection) (int64, error) {
	cursor, err := agencies.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"deleted": false}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$review_count"}}}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sum reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode review total: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
