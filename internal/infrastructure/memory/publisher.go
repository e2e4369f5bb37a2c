package memory

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// NoopPublisher logs verification events instead of sending them. The link
// carries the secret token, so it is printed in full only at debug level.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	l := logger.WithCtx(ctx)
	l.Info().
		Str("user_id", evt.UserID).
		Str("url", redactToken(evt.URL)).
		Msg("noop_publish_verify_email")
	l.Debug().
		Str("user_id", evt.UserID).
		Str("url", evt.URL).
		Msg("noop_verify_email_link")
	return nil
}

// redactToken keeps the first 6 characters of the last path segment.
func redactToken(link string) string {
	i := strings.LastIndexByte(link, '/')
	if i < 0 {
		return "..."
	}
	tok := link[i+1:]
	if len(tok) > 6 {
		tok = tok[:6]
	}
	return link[:i+1] + tok + "..."
}
