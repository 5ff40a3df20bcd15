package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/pkg/composables"
)

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	if ctx == nil {
		return
	}
	logger := composables.UseLogger(ctx)
	if logger == nil {
		return
	}
	logger.WithFields(fields).Log(level, msg)
}

// maybeLogRejected logs and counts err when it is a ServiceError; other errors
// (store failures) are left to the caller.
func maybeLogRejected(ctx context.Context, msg string, entityID uuid.UUID, iv validity.Interval, err error, extra logrus.Fields) {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return
	}
	recordRejection(svcErr.Code)

	fields := logrus.Fields{
		"error_code": svcErr.Code,
		"valid_from": iv.Start.String(),
		"valid_to":   iv.End.String(),
	}
	if entityID != uuid.Nil {
		fields["entity_id"] = entityID.String()
	}
	var gapErr *validity.CoverageGapError
	if errors.As(err, &gapErr) {
		fields["gap_reason"] = string(gapErr.Reason)
		fields["gap"] = gapErr.Offending.String()
	}
	for k, v := range extra {
		fields[k] = v
	}

	logWithFields(ctx, logrus.WarnLevel, msg, fields)
}
