package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockEmailTTL is how long a captured message stays readable.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is the Redis key a captured message is stored under.
func MockEmailKey(to, template string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), template)
}

// RedisSender captures messages in Redis so end-to-end tests can read them back.
type RedisSender struct {
	client redis.Cmdable
	from   string
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client redis.Cmdable, from string) *RedisSender {
	return &RedisSender{client: client, from: from}
}

// Send stores the message keyed by the first recipient and its template header.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}
	template := TemplateOf(rawMessage)
	if template == "" {
		template = "unknown"
	}

	data, err := json.Marshal(map[string]interface{}{
		"to":       strings.Join(to, ", "),
		"from":     s.from,
		"subject":  subject,
		"body":     string(rawMessage),
		"template": template,
		"sent_at":  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(primaryTo, template)
	if err := s.client.Set(ctx, key, data, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}
	log.Printf("Mock email stored in Redis key '%s' (Subject: %s)", key, subject)
	return nil
}
