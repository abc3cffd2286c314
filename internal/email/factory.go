package email

import (
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/syed-c/foster-care-sub001/internal/config"
)

// NewSenderFromConfig assembles the delivery chain: the primary sender chosen by
// EMAIL_PROVIDER (or Redis capture under MOCK_SERVICES), plus a file copy when
// LOG_EMAILS is set. sesClient may be nil unless the provider is "ses".
func NewSenderFromConfig(cfg *config.Config, rdb redis.Cmdable, sesClient SESAPI) Sender {
	var primary Sender
	switch {
	case cfg.MockServices && rdb != nil:
		log.Println("MOCK_SERVICES enabled: capturing email in Redis.")
		primary = NewRedisSender(rdb, cfg.SmtpFromAddress)
	case cfg.EmailProvider == "ses" && sesClient != nil:
		primary = NewSESSender(sesClient, cfg.SmtpFromAddress)
	case cfg.EmailProvider == "smtp":
		primary = NewSMTPSender(cfg)
	default:
		primary = NewLoggingSender(cfg.SmtpFromAddress)
	}

	composite := NewCompositeEmailSender(primary)
	if cfg.LogEmailsPath != "" {
		fileSender, err := NewFileEmailSender(cfg.LogEmailsPath)
		if err != nil {
			log.Printf("WARN: Failed to initialize file email sender (LOG_EMAILS='%s'): %v", cfg.LogEmailsPath, err)
		} else {
			composite.AddSender(fileSender)
		}
	}
	return composite
}
