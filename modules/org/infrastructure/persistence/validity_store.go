package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
	"github.com/iota-uz/orgvalidity/modules/org/services"
	"github.com/iota-uz/orgvalidity/pkg/composables"
)

var _ services.Store = (*ValidityStore)(nil)

// ValidityStore keeps registrations in Postgres. The pool or transaction is
// taken from the context (see composables.WithPool).
type ValidityStore struct{}

func NewValidityStore() *ValidityStore {
	return &ValidityStore{}
}

const registrationColumns = `valid_from, valid_to, state, target_id, recorded_at`

func (s *ValidityStore) GetEffects(ctx context.Context, entityID uuid.UUID, attr services.Attribute, window validity.Interval) ([]services.RawSlice, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if window.IsInstant() {
		rows, err = tx.Query(ctx, `
SELECT `+registrationColumns+`
FROM org_validity_registrations
WHERE entity_id = $1
	AND attribute = $2
	AND valid_from <= $3
	AND valid_to > $3
ORDER BY id ASC
`, pgUUID(entityID), string(attr), pgTimestamp(window.Start))
	} else {
		rows, err = tx.Query(ctx, `
SELECT `+registrationColumns+`
FROM org_validity_registrations
WHERE entity_id = $1
	AND attribute = $2
	AND valid_from < $4
	AND valid_to > $3
ORDER BY id ASC
`, pgUUID(entityID), string(attr), pgTimestamp(window.Start), pgTimestamp(window.End))
	}
	if err != nil {
		return nil, gerrors.Wrap(err, "query registrations")
	}
	out, err := scanRawSlices(rows)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}

	exists, err := s.attributeExists(ctx, tx, entityID, attr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gerrors.Wrapf(services.ErrNotFound, "%s of %s", attr, entityID)
	}
	return out, nil
}

func (s *ValidityStore) Get(ctx context.Context, entityID uuid.UUID, asOf time.Time) (*services.NodeSnapshot, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var org pgtype.UUID
	err = tx.QueryRow(ctx, `SELECT organisation_id FROM org_validity_units WHERE id = $1`, pgUUID(entityID)).Scan(&org)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, gerrors.Wrapf(services.ErrNotFound, "org unit %s", entityID)
	}
	if err != nil {
		return nil, gerrors.Wrap(err, "query org unit")
	}

	node := &services.NodeSnapshot{ID: entityID, OrganisationID: uuid.UUID(org.Bytes)}

	rows, err := tx.Query(ctx, `
SELECT `+registrationColumns+`
FROM org_validity_registrations
WHERE entity_id = $1
	AND attribute = $2
ORDER BY id ASC
`, pgUUID(entityID), string(services.AttrOrgUnitValidity))
	if err != nil {
		return nil, gerrors.Wrap(err, "query org unit validity")
	}
	if node.Validity, err = scanRawSlices(rows); err != nil {
		return nil, err
	}

	parents, err := s.GetEffects(ctx, entityID, services.AttrOrgUnitParent, validity.Instant(validity.At(asOf)))
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return nil, err
	}
	if parent, ok := parentAt(parents, asOf); ok {
		node.ParentID = &parent
	}
	return node, nil
}

func (s *ValidityStore) Children(ctx context.Context, unitID uuid.UUID, asOf time.Time) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	// Candidates are units that ever pointed at unitID; the registrations
	// holding at asOf then decide which of them still do.
	rows, err := tx.Query(ctx, `
SELECT entity_id, `+registrationColumns+`
FROM org_validity_registrations
WHERE attribute = $1
	AND valid_from <= $3
	AND valid_to > $3
	AND entity_id IN (
		SELECT entity_id
		FROM org_validity_registrations
		WHERE attribute = $1 AND target_id = $2
	)
ORDER BY entity_id ASC, id ASC
`, string(services.AttrOrgUnitParent), pgUUID(unitID), pgTimestamp(validity.At(asOf)))
	if err != nil {
		return nil, gerrors.Wrap(err, "query children")
	}
	defer rows.Close()

	byChild := map[uuid.UUID][]services.RawSlice{}
	var order []uuid.UUID
	for rows.Next() {
		var id pgtype.UUID
		raw, err := scanRawSlice(rows, &id)
		if err != nil {
			return nil, err
		}
		childID := uuid.UUID(id.Bytes)
		if _, ok := byChild[childID]; !ok {
			order = append(order, childID)
		}
		byChild[childID] = append(byChild[childID], raw)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "read children")
	}

	out := make([]uuid.UUID, 0, len(order))
	for _, childID := range order {
		if parent, ok := parentAt(byChild[childID], asOf); ok && parent == unitID {
			out = append(out, childID)
		}
	}
	return out, nil
}

// Update writes every fragment of the payload in one transaction with a shared
// recorded_at, so the fragments supersede older registrations together.
func (s *ValidityStore) Update(ctx context.Context, entityID uuid.UUID, payload services.UpdatePayload) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		exists, err := s.attributeExists(txCtx, tx, entityID, payload.Attribute)
		if err != nil {
			return err
		}
		if !exists {
			return gerrors.Wrapf(services.ErrNotFound, "%s of %s", payload.Attribute, entityID)
		}

		// The stamp must beat every registration already held for the
		// attribute, including imported ones stamped ahead of the clock.
		var recordedAt pgtype.Timestamptz
		err = tx.QueryRow(txCtx, `
SELECT GREATEST(
	clock_timestamp(),
	(SELECT max(recorded_at) FROM org_validity_registrations WHERE entity_id = $1 AND attribute = $2) + interval '1 microsecond'
)
`, pgUUID(entityID), string(payload.Attribute)).Scan(&recordedAt)
		if err != nil {
			return gerrors.Wrap(err, "read clock")
		}
		for _, f := range payload.Fragments {
			if err := insertRegistration(txCtx, tx, entityID, payload.Attribute, f.Interval.Start, f.Interval.End, f.State, f.Target, payload.Note, recordedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateUnit registers an org unit of organisationID. Its validity and parent
// slices are added with Put.
func (s *ValidityStore) CreateUnit(ctx context.Context, id, organisationID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO org_validity_units (id, organisation_id)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET organisation_id = EXCLUDED.organisation_id
`, pgUUID(id), pgUUID(organisationID))
	if err != nil {
		return gerrors.Wrap(err, "insert org unit")
	}
	return nil
}

// Put appends raw slices to an attribute as they are, keeping their recorded_at
// when set. Unstamped slices of one call share a single stamp, so overlaps
// between them resolve by interval length and then by order.
func (s *ValidityStore) Put(ctx context.Context, entityID uuid.UUID, attr services.Attribute, raw ...services.RawSlice) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		var shared pgtype.Timestamptz
		if err := tx.QueryRow(txCtx, `SELECT clock_timestamp()`).Scan(&shared); err != nil {
			return gerrors.Wrap(err, "read clock")
		}
		for _, r := range raw {
			recordedAt := shared
			if !r.RecordedAt.IsZero() {
				recordedAt = pgtype.Timestamptz{Time: r.RecordedAt, Valid: true}
			}
			if err := insertRegistration(txCtx, tx, entityID, attr, r.From, r.To, r.State, r.Target, "", recordedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRegistration(
	ctx context.Context,
	tx composables.Tx,
	entityID uuid.UUID,
	attr services.Attribute,
	from, to validity.Timestamp,
	state string,
	target *uuid.UUID,
	note string,
	recordedAt pgtype.Timestamptz,
) error {
	_, err := tx.Exec(ctx, `
INSERT INTO org_validity_registrations (entity_id, attribute, valid_from, valid_to, state, target_id, note, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, clock_timestamp()))
`, pgUUID(entityID), string(attr), pgTimestamp(from), pgTimestamp(to), state, pgOptionalUUID(target), note, recordedAt)
	if err != nil {
		return gerrors.Wrap(err, "insert registration")
	}
	return nil
}

func (s *ValidityStore) attributeExists(ctx context.Context, tx composables.Tx, entityID uuid.UUID, attr services.Attribute) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM org_validity_registrations WHERE entity_id = $1 AND attribute = $2
)
`, pgUUID(entityID), string(attr)).Scan(&exists)
	if err != nil {
		return false, gerrors.Wrap(err, "check attribute")
	}
	return exists, nil
}

func scanRawSlices(rows pgx.Rows) ([]services.RawSlice, error) {
	defer rows.Close()
	out := make([]services.RawSlice, 0, 8)
	for rows.Next() {
		raw, err := scanRawSlice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "read registrations")
	}
	return out, nil
}

// scanRawSlice scans registrationColumns, preceded by any leading destinations.
func scanRawSlice(rows pgx.Rows, leading ...any) (services.RawSlice, error) {
	var (
		from, to, recorded pgtype.Timestamptz
		state              string
		target             pgtype.UUID
	)
	dest := append(leading, &from, &to, &state, &target, &recorded)
	if err := rows.Scan(dest...); err != nil {
		return services.RawSlice{}, gerrors.Wrap(err, "scan registration")
	}
	raw := services.RawSlice{State: state, Target: asOptionalUUID(target), RecordedAt: asTime(recorded)}
	var err error
	if raw.From, err = asTimestamp(from); err != nil {
		return services.RawSlice{}, err
	}
	if raw.To, err = asTimestamp(to); err != nil {
		return services.RawSlice{}, err
	}
	return raw, nil
}

func parentAt(raw []services.RawSlice, asOf time.Time) (uuid.UUID, bool) {
	tl, err := services.RelationTimeline(raw)
	if err != nil {
		return uuid.Nil, false
	}
	state, ok := validity.StateAt(tl, validity.At(asOf))
	if !ok || !state.IsActive() {
		return uuid.Nil, false
	}
	return state.Target, true
}
