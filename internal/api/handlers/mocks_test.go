package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/syed-c/foster-care-sub001/internal/models"
)

// MockAgencyService
type MockAgencyService struct {
	mock.Mock
}

func (m *MockAgencyService) List(ctx context.Context, f models.AgencyFilter, page, limit int) ([]models.Agency, int64, error) {
	args := m.Called(ctx, f, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Agency), args.Get(1).(int64), args.Error(2)
}
func (m *MockAgencyService) Get(ctx context.Context, idOrSlug string) (*models.Agency, error) {
	args := m.Called(ctx, idOrSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}
func (m *MockAgencyService) FindByOwner(ctx context.Context, ownerID string) (*models.Agency, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}
func (m *MockAgencyService) Create(ctx context.Context, in models.AgencyInput, ownerID string) (*models.Agency, error) {
	args := m.Called(ctx, in, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}
func (m *MockAgencyService) Update(ctx context.Context, id string, in models.AgencyInput, p models.Principal) (*models.Agency, error) {
	args := m.Called(ctx, id, in, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}
func (m *MockAgencyService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockAgencyService) AddReview(ctx context.Context, agencyID string, in models.ReviewInput) (*models.Review, *models.ReviewSummary, error) {
	args := m.Called(ctx, agencyID, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Review), args.Get(1).(*models.ReviewSummary), args.Error(2)
}
func (m *MockAgencyService) ListReviews(ctx context.Context, agencyID string) ([]models.Review, error) {
	args := m.Called(ctx, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}
func (m *MockAgencyService) CanManage(ctx context.Context, agencyID string, p models.Principal) (*models.Agency, error) {
	args := m.Called(ctx, agencyID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}
func (m *MockAgencyService) SetMedia(ctx context.Context, agencyID, kind, url string) error {
	return m.Called(ctx, agencyID, kind, url).Error(0)
}

// MockApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Approve(ctx context.Context, id string) (*models.Agency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}
func (m *MockApprovalService) Reject(ctx context.Context, id, reason string) (*models.Agency, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}
func (m *MockApprovalService) ToggleFeatured(ctx context.Context, id string) (*models.Agency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}

// MockStatsService
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminStats), args.Error(1)
}

// MockLeadService
type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) CreateForAgency(ctx context.Context, agencyID string, in models.LeadInput) (*models.Lead, models.NotificationResult, error) {
	args := m.Called(ctx, agencyID, in)
	if args.Get(0) == nil {
		return nil, models.NotificationResult{}, args.Error(2)
	}
	return args.Get(0).(*models.Lead), args.Get(1).(models.NotificationResult), args.Error(2)
}
func (m *MockLeadService) CreateGeneral(ctx context.Context, in models.LeadInput) (*models.Lead, models.NotificationResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, models.NotificationResult{}, args.Error(2)
	}
	return args.Get(0).(*models.Lead), args.Get(1).(models.NotificationResult), args.Error(2)
}
func (m *MockLeadService) List(ctx context.Context, f models.LeadFilter, page, limit int) ([]models.Lead, int64, error) {
	args := m.Called(ctx, f, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Lead), args.Get(1).(int64), args.Error(2)
}
func (m *MockLeadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}
func (m *MockLeadService) Transition(ctx context.Context, id string, to models.LeadStatus) (*models.Lead, error) {
	args := m.Called(ctx, id, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}
func (m *MockLeadService) Update(ctx context.Context, id string, in models.LeadUpdate) (*models.Lead, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

// MockCMSService
type MockCMSService struct {
	mock.Mock
}

func (m *MockCMSService) CreatePage(ctx context.Context, page *models.Page) (*models.Page, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page), args.Error(1)
}
func (m *MockCMSService) ListPages(ctx context.Context, pageType string) ([]models.Page, error) {
	args := m.Called(ctx, pageType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Page), args.Error(1)
}
func (m *MockCMSService) GetPageTree(ctx context.Context, idOrSlug string) (*models.PageTree, error) {
	args := m.Called(ctx, idOrSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageTree), args.Error(1)
}
func (m *MockCMSService) DeletePage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockCMSService) CreateSection(ctx context.Context, section *models.Section) (*models.Section, error) {
	args := m.Called(ctx, section)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Section), args.Error(1)
}
func (m *MockCMSService) ListSections(ctx context.Context, pageID string) ([]models.Section, error) {
	args := m.Called(ctx, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Section), args.Error(1)
}
func (m *MockCMSService) DeleteSection(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockCMSService) CreateField(ctx context.Context, field *models.Field) (*models.Field, error) {
	args := m.Called(ctx, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Field), args.Error(1)
}
func (m *MockCMSService) ListFields(ctx context.Context, sectionID string) ([]models.Field, error) {
	args := m.Called(ctx, sectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Field), args.Error(1)
}
func (m *MockCMSService) UpdateFieldValue(ctx context.Context, id string, raw interface{}) (*models.Field, error) {
	args := m.Called(ctx, id, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Field), args.Error(1)
}
func (m *MockCMSService) DeleteField(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockLocationService
type MockLocationService struct {
	mock.Mock
}

func (m *MockLocationService) Resolve(ctx context.Context, country, region, city string) (*models.ResolvedLocation, error) {
	args := m.Called(ctx, country, region, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResolvedLocation), args.Error(1)
}
func (m *MockLocationService) Tree() []models.LocationNode {
	return m.Called().Get(0).([]models.LocationNode)
}
func (m *MockLocationService) UpsertContent(ctx context.Context, slug string, content models.LocationContent) (*models.LocationContent, error) {
	args := m.Called(ctx, slug, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LocationContent), args.Error(1)
}

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Signup(ctx context.Context, in models.SignupInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) IssueToken(user *models.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}
func (m *MockUserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) UpdateProfile(ctx context.Context, userID string, in models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) SaveAgency(ctx context.Context, userID, agencyID string) ([]string, error) {
	args := m.Called(ctx, userID, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockUserService) UnsaveAgency(ctx context.Context, userID, agencyID string) ([]string, error) {
	args := m.Called(ctx, userID, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockBillingService
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) Plans() []models.Plan {
	return m.Called().Get(0).([]models.Plan)
}
func (m *MockBillingService) ProvisionCustomer(ctx context.Context, agencyID, email string) (string, error) {
	args := m.Called(ctx, agencyID, email)
	return args.String(0), args.Error(1)
}
func (m *MockBillingService) StartCheckout(ctx context.Context, agencyID, planID string) (string, error) {
	args := m.Called(ctx, agencyID, planID)
	return args.String(0), args.Error(1)
}
func (m *MockBillingService) OpenPortal(ctx context.Context, agencyID string) (string, error) {
	args := m.Called(ctx, agencyID)
	return args.String(0), args.Error(1)
}
func (m *MockBillingService) HandleWebhook(ctx context.Context, payload []byte, sig string) error {
	return m.Called(ctx, payload, sig).Error(0)
}

// MockS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, agencyID, kind, contentType string) (string, string, error) {
	args := m.Called(ctx, agencyID, kind, contentType)
	return args.String(0), args.String(1), args.Error(2)
}
func (m *MockS3Storage) PublicURL(key string) string {
	return m.Called(key).String(0)
}
func (m *MockS3Storage) OwnsKey(agencyID, kind, key string) bool {
	return m.Called(agencyID, kind, key).Bool(0)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
