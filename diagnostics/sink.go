// Package diagnostics provides the diagnostic sink and connectivity probe
// used when classifying main query failures.
package diagnostics

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ellemouton/lnsend/account"
)

// ZapSink writes diagnostic records to a logger at error level.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}

	return &ZapSink{log: log.Named("diagnostics")}
}

// Record logs err. Server errors are logged with their path and
// extensions.
func (s *ZapSink) Record(_ context.Context, err error) {
	var gqlErr account.GraphQLError
	if errors.As(err, &gqlErr) {
		s.log.Error("graphql error",
			zap.String("message", gqlErr.Message),
			zap.Any("path", gqlErr.Path),
			zap.Any("extensions", gqlErr.Extensions))
		return
	}

	s.log.Error("query error", zap.Error(err))
}
