package sms

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// Console logs outgoing messages instead of sending them. Only the masked
// recipient is logged at info; the body, which carries the code, is logged
// at debug and only when showBody is set.
type Console struct {
	log      zerolog.Logger
	showBody bool
}

func NewConsole(log zerolog.Logger, showBody bool) *Console {
	return &Console{log: log, showBody: showBody}
}

func (c *Console) SendText(_ context.Context, to, body string) error {
	masked := domain.MaskPhone(to)
	c.log.Info().Str("to", masked).Msg("sms (console)")
	if c.showBody {
		c.log.Debug().Str("to", masked).Str("body", body).Msg("sms (console) body")
	}
	return nil
}
