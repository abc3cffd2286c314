// Package tasks defines the background task types, their payloads and the
// client used to enqueue them. Handlers live in the worker package.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Task types.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

// Queues.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueImages   = "images"
)

// IAsynqClient is the subset of asynq.Client used to enqueue work.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RedisOpt derives asynq connection options from an existing go-redis client.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	o := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	}
}

// NewClient creates an asynq client sharing the connection settings of rdb.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(RedisOpt(rdb))
}

// EmailTaskPayload asks the worker to render a template and send it.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	ReplyTo    string                 `json:"reply_to,omitempty"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// ImageTaskPayload asks the worker to normalise an uploaded agency image.
type ImageTaskPayload struct {
	S3Key    string `json:"s3_key"`
	AgencyID string `json:"agency_id"`
	Kind     string `json:"kind"`
}

// NewEmailDeliveryTask builds an email task with retries suited to a flaky relay.
func NewEmailDeliveryTask(p EmailTaskPayload) (*asynq.Task, error) {
	if p.To == "" || p.TemplateID == "" {
		return nil, fmt.Errorf("email task requires a recipient and a template")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(8),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewImageProcessTask builds an image normalisation task.
func NewImageProcessTask(p ImageTaskPayload) (*asynq.Task, error) {
	if p.S3Key == "" || p.AgencyID == "" {
		return nil, fmt.Errorf("image task requires an object key and an agency")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload,
		asynq.Queue(QueueImages),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	), nil
}
