package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
	"github.com/syed-c/foster-care-sub001/internal/storage"
	"github.com/syed-c/foster-care-sub001/internal/tasks"
)

type captureSender struct {
	to      []string
	subject string
	raw     []byte
	err     error
}

func (s *captureSender) Send(ctx context.Context, to []string, subject string, raw []byte) error {
	s.to, s.subject, s.raw = to, subject, raw
	return s.err
}

type stubTemplates struct {
	services.IEmailTemplateService
}

func (stubTemplates) GetTemplate(ctx context.Context, id, locale string) (*models.EmailTemplate, error) {
	return &models.EmailTemplate{
		TemplateID: id,
		Subject:    "New Inquiry from {{.name}}",
		Body:       "{{.agency_name}}: {{.message}}",
	}, nil
}

type mockAgencies struct {
	services.IAgencyService
	mock.Mock
}

func (m *mockAgencies) SetMedia(ctx context.Context, agencyID, kind, url string) error {
	return m.Called(ctx, agencyID, kind, url).Error(0)
}

type mockObjects struct {
	mock.Mock
}

func (m *mockObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *mockObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.PutObjectOutput{}, args.Error(0)
}

type stubStorage struct {
	storage.IS3Storage
}

func (stubStorage) PublicURL(key string) string { return "https://cdn.example/" + key }

func testConfig() *config.Config {
	return &config.Config{
		SmtpFromAddress:   "noreply@example.org",
		AwsS3Bucket:       "media",
		ImageMaxDimension: 100,
		ImageMaxSizeMB:    1,
	}
}

func newTask(t *testing.T, typ string, payload interface{}) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(typ, raw)
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHandleEmailDeliveryTask(t *testing.T) {
	sender := &captureSender{}
	p := NewTaskProcessor(testConfig(), sender, stubTemplates{}, nil, nil, nil)

	task := newTask(t, tasks.TypeEmailDelivery, tasks.EmailTaskPayload{
		To:         "agency@example.org",
		ReplyTo:    "jo@example.com",
		TemplateID: services.TemplateAgencyInquiry,
		Data:       map[string]interface{}{"name": "Jo", "agency_name": "Bright Futures", "message": "Hello"},
	})

	require.NoError(t, p.HandleEmailDeliveryTask(context.Background(), task))
	assert.Equal(t, []string{"agency@example.org"}, sender.to)
	assert.Equal(t, "New Inquiry from Jo", sender.subject)
	raw := string(sender.raw)
	assert.Contains(t, raw, "Reply-To: jo@example.com\r\n")
	assert.Contains(t, raw, "Bright Futures: Hello")
	assert.Contains(t, raw, "X-Template: agency_inquiry")
}

func TestHandleEmailDeliveryTask_BadPayloadSkipsRetry(t *testing.T) {
	p := NewTaskProcessor(testConfig(), &captureSender{}, stubTemplates{}, nil, nil, nil)

	err := p.HandleEmailDeliveryTask(context.Background(), asynq.NewTask(tasks.TypeEmailDelivery, []byte("{")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleEmailDeliveryTask_SendFailureRetries(t *testing.T) {
	sender := &captureSender{err: assert.AnError}
	p := NewTaskProcessor(testConfig(), sender, stubTemplates{}, nil, nil, nil)

	task := newTask(t, tasks.TypeEmailDelivery, tasks.EmailTaskPayload{To: "a@example.org", TemplateID: services.TemplateGeneralInquiry})
	err := p.HandleEmailDeliveryTask(context.Background(), task)

	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleImageProcessTask_ResizesLargeImage(t *testing.T) {
	objects := new(mockObjects)
	agencies := new(mockAgencies)
	p := NewTaskProcessor(testConfig(), nil, nil, agencies, stubStorage{}, objects)
	key := "agencies/a1/cover/img.png"

	objects.On("GetObject", mock.Anything, mock.Anything).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(pngOf(t, 400, 200)))}, nil)
	var uploaded []byte
	objects.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Key == key && *in.ContentType == "image/jpeg"
	})).Run(func(args mock.Arguments) {
		uploaded, _ = io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
	}).Return(nil)
	agencies.On("SetMedia", mock.Anything, "a1", "cover", "https://cdn.example/"+key).Return(nil)

	task := newTask(t, tasks.TypeImageProcess, tasks.ImageTaskPayload{S3Key: key, AgencyID: "a1", Kind: "cover"})
	require.NoError(t, p.HandleImageProcessTask(context.Background(), task))

	img, err := jpeg.Decode(bytes.NewReader(uploaded))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
	agencies.AssertExpectations(t)
}

func TestHandleImageProcessTask_SmallImageKeptAsIs(t *testing.T) {
	objects := new(mockObjects)
	agencies := new(mockAgencies)
	p := NewTaskProcessor(testConfig(), nil, nil, agencies, stubStorage{}, objects)
	key := "agencies/a1/logo/img.png"

	objects.On("GetObject", mock.Anything, mock.Anything).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(pngOf(t, 40, 40)))}, nil)
	agencies.On("SetMedia", mock.Anything, "a1", "logo", "https://cdn.example/"+key).Return(nil)

	task := newTask(t, tasks.TypeImageProcess, tasks.ImageTaskPayload{S3Key: key, AgencyID: "a1", Kind: "logo"})
	require.NoError(t, p.HandleImageProcessTask(context.Background(), task))

	objects.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestHandleImageProcessTask_NonRetryableFailures(t *testing.T) {
	t.Run("missing object", func(t *testing.T) {
		objects := new(mockObjects)
		p := NewTaskProcessor(testConfig(), nil, nil, new(mockAgencies), stubStorage{}, objects)
		objects.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})

		task := newTask(t, tasks.TypeImageProcess, tasks.ImageTaskPayload{S3Key: "agencies/a1/logo/x.png", AgencyID: "a1", Kind: "logo"})
		assert.ErrorIs(t, p.HandleImageProcessTask(context.Background(), task), asynq.SkipRetry)
	})

	t.Run("oversized", func(t *testing.T) {
		objects := new(mockObjects)
		p := NewTaskProcessor(testConfig(), nil, nil, new(mockAgencies), stubStorage{}, objects)
		big := strings.Repeat("x", 1024*1024+10)
		objects.On("GetObject", mock.Anything, mock.Anything).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(big))}, nil)

		task := newTask(t, tasks.TypeImageProcess, tasks.ImageTaskPayload{S3Key: "agencies/a1/logo/x.png", AgencyID: "a1", Kind: "logo"})
		assert.ErrorIs(t, p.HandleImageProcessTask(context.Background(), task), asynq.SkipRetry)
	})

	t.Run("not an image", func(t *testing.T) {
		objects := new(mockObjects)
		p := NewTaskProcessor(testConfig(), nil, nil, new(mockAgencies), stubStorage{}, objects)
		objects.On("GetObject", mock.Anything, mock.Anything).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("plain text"))}, nil)

		task := newTask(t, tasks.TypeImageProcess, tasks.ImageTaskPayload{S3Key: "agencies/a1/logo/x.png", AgencyID: "a1", Kind: "logo"})
		assert.ErrorIs(t, p.HandleImageProcessTask(context.Background(), task), asynq.SkipRetry)
	})

	t.Run("foreign key", func(t *testing.T) {
		objects := new(mockObjects)
		p := NewTaskProcessor(testConfig(), nil, nil, new(mockAgencies), stubStorage{}, objects)

		task := newTask(t, tasks.TypeImageProcess, tasks.ImageTaskPayload{S3Key: "agencies/a2/logo/x.png", AgencyID: "a1", Kind: "logo"})
		assert.ErrorIs(t, p.HandleImageProcessTask(context.Background(), task), asynq.SkipRetry)
		objects.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything)
	})
}

func TestSetupServer_NoRoles(t *testing.T) {
	srv, mux := SetupServer(asynq.RedisClientOpt{Addr: "localhost:6379"}, &TaskProcessor{}, false, false)
	assert.Nil(t, srv)
	assert.Nil(t, mux)
}
