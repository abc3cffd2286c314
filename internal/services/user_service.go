package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/auth"
	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/models"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email and for a wrong password alike.
var ErrInvalidCredentials = apperr.Authentication("Invalid credentials")

// IUserService covers accounts, sessions and saved agencies.
type IUserService interface {
	Signup(ctx context.Context, in models.SignupInput) (*models.User, error)
	CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	IssueToken(user *models.User) (string, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, in models.ProfileUpdate) (*models.User, error)
	SaveAgency(ctx context.Context, userID, agencyID string) ([]string, error)
	UnsaveAgency(ctx context.Context, userID, agencyID string) ([]string, error)
}

type userService struct {
	db            *mongo.Database
	cfg           *config.Config
	agencyService IAgencyService
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config, agencyService IAgencyService) IUserService {
	return &userService{db: database, cfg: cfg, agencyService: agencyService}
}

func (s *userService) coll() *mongo.Collection {
	return s.db.Collection(db.UsersCollection)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Validation("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.Validation("Invalid email address")
	}
	return email, nil
}

func (s *userService) insertUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < auth.MinPasswordLength {
		return nil, apperr.Validation("Password must be at least %d characters", auth.MinPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal("Failed to create account", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		Base:          models.NewBase(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		SavedAgencies: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.coll().InsertOne(ctx, user); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, apperr.Conflict("An account with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	return user, nil
}

// Signup creates a user or agency account. An agency account gets a pending agency named after it.
func (s *userService) Signup(ctx context.Context, in models.SignupInput) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAgency {
		return nil, apperr.Validation("Invalid role %q", in.Role)
	}
	user, err := s.insertUser(ctx, in.Name, in.Email, in.Password, role)
	if err != nil {
		return nil, err
	}

	if role == models.RoleAgency && s.agencyService != nil {
		name := user.Name
		in := models.AgencyInput{Name: &name, Contact: &models.AgencyContact{Email: user.Email}}
		if _, err := s.agencyService.Create(ctx, in, user.ID); err != nil {
			// An agency account without an agency cannot use the dashboard or billing.
			if _, delErr := s.coll().DeleteOne(ctx, bson.M{"_id": user.ID}); delErr != nil {
				log.Printf("ERROR: failed to remove account %s after agency creation failed: %v", user.ID, delErr)
			}
			return nil, err
		}
	}
	return user, nil
}

// CreateAdmin bootstraps an administrator account.
func (s *userService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	return s.insertUser(ctx, name, email, password, models.RoleAdmin)
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	var user models.User
	err := s.coll().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	// Runs for a missing user too, against a dummy hash.
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *userService) IssueToken(user *models.User) (string, error) {
	return auth.GenerateJWT(models.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, s.cfg.JwtSecret, s.cfg.JwtTTL)
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.coll().FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("error finding user %s: %w", userID, err)
	}
	if user.SavedAgencies == nil {
		user.SavedAgencies = []string{}
	}
	return &user, nil
}

// UpdateProfile changes the display name only.
func (s *userService) UpdateProfile(ctx context.Context, userID string, in models.ProfileUpdate) (*models.User, error) {
	if in.Name == nil {
		return s.GetProfile(ctx, userID)
	}
	name := strings.TrimSpace(*in.Name)
	if name == "" {
		return nil, apperr.Validation("Name cannot be empty")
	}
	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"name": name, "updated_at": time.Now().UTC()}}
	if err := s.coll().FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	return &user, nil
}

func (s *userService) updateSaved(ctx context.Context, userID string, update bson.M) ([]string, error) {
	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(bson.M{"saved_agencies": 1})
	if err := s.coll().FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("failed to update saved agencies of %s: %w", userID, err)
	}
	if user.SavedAgencies == nil {
		return []string{}, nil
	}
	return user.SavedAgencies, nil
}

// SaveAgency bookmarks an existing agency. Saving twice keeps one entry.
func (s *userService) SaveAgency(ctx context.Context, userID, agencyID string) ([]string, error) {
	agency, err := s.agencyService.Get(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	return s.updateSaved(ctx, userID, bson.M{
		"$addToSet": bson.M{"saved_agencies": agency.ID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// UnsaveAgency removes a bookmark. Removing one that is not saved is not an error.
func (s *userService) UnsaveAgency(ctx context.Context, userID, agencyID string) ([]string, error) {
	return s.updateSaved(ctx, userID, bson.M{
		"$pull": bson.M{"saved_agencies": agencyID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}
