package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgOptionalUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil || *id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgUUID(*id)
}

func asOptionalUUID(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

// pgTimestamp maps a boundary onto timestamptz, using the column's own
// -infinity/infinity values for the sentinels.
func pgTimestamp(ts validity.Timestamp) pgtype.Timestamptz {
	switch {
	case ts.IsNegativeInfinity():
		return pgtype.Timestamptz{InfinityModifier: pgtype.NegativeInfinity, Valid: true}
	case ts.IsPositiveInfinity():
		return pgtype.Timestamptz{InfinityModifier: pgtype.Infinity, Valid: true}
	default:
		return pgtype.Timestamptz{Time: ts.Time().UTC(), Valid: true}
	}
}

func asTimestamp(v pgtype.Timestamptz) (validity.Timestamp, error) {
	if !v.Valid {
		return validity.Timestamp{}, fmt.Errorf("null validity boundary")
	}
	switch v.InfinityModifier {
	case pgtype.NegativeInfinity:
		return validity.NegativeInfinity(), nil
	case pgtype.Infinity:
		return validity.PositiveInfinity(), nil
	default:
		return validity.At(v.Time), nil
	}
}

func asTime(v pgtype.Timestamptz) time.Time {
	if !v.Valid || v.InfinityModifier != pgtype.Finite {
		return time.Time{}
	}
	return v.Time
}
