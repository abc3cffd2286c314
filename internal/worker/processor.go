// Package worker runs the asynq handlers for the task types declared in tasks.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"

	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/email"
	"github.com/syed-c/foster-care-sub001/internal/metrics"
	"github.com/syed-c/foster-care-sub001/internal/services"
	"github.com/syed-c/foster-care-sub001/internal/storage"
	"github.com/syed-c/foster-care-sub001/internal/tasks"
)

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	emailTemplateService services.IEmailTemplateService
	agencyService        services.IAgencyService
	storageService       storage.IS3Storage
	objects              storage.ObjectAPI
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	emailTemplateService services.IEmailTemplateService,
	agencyService services.IAgencyService,
	storageService storage.IS3Storage,
	objects storage.ObjectAPI,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		emailTemplateService: emailTemplateService,
		agencyService:        agencyService,
		storageService:       storageService,
		objects:              objects,
	}
}

// SetupServer builds the asynq server and the mux for the requested worker roles.
// It returns nil when neither role is enabled. The caller runs and shuts down the server.
func SetupServer(redisOpt asynq.RedisClientOpt, processor *TaskProcessor, isImageWorker, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		return nil, nil
	}

	queues := map[string]int{}
	mux := asynq.NewServeMux()
	mux.Use(timed)
	if isBgWorker {
		queues[tasks.QueueCritical] = 6
		queues[tasks.QueueDefault] = 3
		mux.HandleFunc(tasks.TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		fmt.Println("Registered background task handlers.")
	}
	if isImageWorker {
		queues[tasks.QueueImages] = 5
		mux.HandleFunc(tasks.TypeImageProcess, processor.HandleImageProcessTask)
		fmt.Println("Registered image processing task handlers.")
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Queues: queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("ERROR: task %s failed: %v", task.Type(), err)
		}),
	})
	return srv, mux
}

func timed(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		metrics.TaskDuration.WithLabelValues(t.Type()).Observe(time.Since(start).Seconds())
		return err
	})
}

// HandleEmailDeliveryTask renders the template named in the payload and hands the message to the sender.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, payload.Locale)
	if err != nil {
		log.Printf("ERROR: email template %s/%s: %v", payload.TemplateID, payload.Locale, err)
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}
	subject, body, err := services.RenderTemplate(tmpl, payload.Data)
	if err != nil {
		return fmt.Errorf("failed to render %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}

	raw := email.BuildMessage(email.Message{
		From:     p.cfg.SmtpFromAddress,
		To:       []string{payload.To},
		ReplyTo:  payload.ReplyTo,
		Subject:  subject,
		Body:     body,
		Template: payload.TemplateID,
	})
	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, raw); err != nil {
		metrics.EmailsSent.WithLabelValues(payload.TemplateID, "failed").Inc()
		return fmt.Errorf("failed to send %s to %s: %w", payload.TemplateID, payload.To, err)
	}
	metrics.EmailsSent.WithLabelValues(payload.TemplateID, "sent").Inc()
	log.Printf("Email task processed: To=%s, Template=%s", payload.To, payload.TemplateID)
	return nil
}

// HandleImageProcessTask downscales an uploaded agency image in place and records its public URL.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	if !storage.OwnsKey(payload.AgencyID, payload.Kind, payload.S3Key) {
		return fmt.Errorf("key %s does not belong to agency %s: %w", payload.S3Key, payload.AgencyID, asynq.SkipRetry)
	}

	obj, err := p.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("WARN: S3 object %s not found, upload probably never completed", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer obj.Body.Close()

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	data, err := io.ReadAll(io.LimitReader(obj.Body, maxSizeBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > maxSizeBytes {
		return fmt.Errorf("image %s exceeds %d MB: %w", payload.S3Key, p.cfg.ImageMaxSizeMB, asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		_, err = p.objects.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.cfg.AwsS3Bucket),
			Key:         aws.String(payload.S3Key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("image/jpeg"),
		})
		if err != nil {
			return fmt.Errorf("failed to upload processed image: %w", err)
		}
		log.Printf("Resized %s image %s from %dx%d to %dx%d", format, payload.S3Key,
			img.Bounds().Dx(), img.Bounds().Dy(), resized.Bounds().Dx(), resized.Bounds().Dy())
	}

	if err := p.agencyService.SetMedia(ctx, payload.AgencyID, payload.Kind, p.storageService.PublicURL(payload.S3Key)); err != nil {
		return fmt.Errorf("failed to record %s for agency %s: %w", payload.Kind, payload.AgencyID, err)
	}
	log.Printf("Image task processed: Key=%s, Agency=%s", payload.S3Key, payload.AgencyID)
	return nil
}
