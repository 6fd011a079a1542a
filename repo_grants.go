package access

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Grants stores access grants. The partial unique index on
// (consultation_id) WHERE active makes the insert path safe under
// concurrent payment confirmations for the same consultation.
type Grants interface {
	repository.Repository[*AccessGrant]

	ActiveForConsultation(ctx context.Context, consultationID uuid.UUID) (*AccessGrant, error)
	ActiveForConsultationTx(ctx context.Context, tx bun.IDB, consultationID uuid.UUID) (*AccessGrant, error)
	ActiveForClient(ctx context.Context, clientID uuid.UUID) ([]*AccessGrant, error)

	CreateGrant(ctx context.Context, grant *AccessGrant) (bool, error)
	CreateGrantTx(ctx context.Context, tx bun.IDB, grant *AccessGrant) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type grants struct {
	repository.Repository[*AccessGrant]
	db *bun.DB
}

var (
	_ Grants                              = (*grants)(nil)
	_ repository.Repository[*AccessGrant] = (*grants)(nil)
)

func NewGrantsRepository(db *bun.DB) Grants {
	repo := repository.NewRepository[*AccessGrant](db, repository.ModelHandlers[*AccessGrant]{
		NewRecord: func() *AccessGrant { return &AccessGrant{} },
		GetID: func(g *AccessGrant) uuid.UUID {
			if g == nil {
				return uuid.Nil
			}
			return g.ID
		},
		SetID: func(g *AccessGrant, id uuid.UUID) {
			if g != nil {
				g.ID = id
			}
		},
	})

	return &grants{
		Repository: repo,
		db:         db,
	}
}

func (a *grants) ActiveForConsultation(ctx context.Context, consultationID uuid.UUID) (*AccessGrant, error) {
	return a.ActiveForConsultationTx(ctx, a.db, consultationID)
}

// ActiveForConsultationTx returns the grant currently flagged active for the
// consultation, lapsed or not. Returns a not found error when none exists;
// the caller decides what a lapsed grant means.
func (a *grants) ActiveForConsultationTx(ctx context.Context, tx bun.IDB, consultationID uuid.UUID) (*AccessGrant, error) {
	record := &AccessGrant{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.consultation_id = ?", consultationID).
		Where("?TableAlias.active = ?", true).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"consultation_id": consultationID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// ActiveForClient lists the client's active, unlapsed grants, soonest to
// expire first.
func (a *grants) ActiveForClient(ctx context.Context, clientID uuid.UUID) ([]*AccessGrant, error) {
	var records []*AccessGrant
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.client_id = ?", clientID).
		Where("?TableAlias.active = ?", true).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Order("expires_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *grants) CreateGrant(ctx context.Context, grant *AccessGrant) (bool, error) {
	return a.CreateGrantTx(ctx, a.db, grant)
}

// CreateGrantTx inserts a grant, yielding to any concurrent active grant on
// the same consultation. Returns false when the uniqueness guard swallowed
// the insert; the caller should re-read the winning row.
func (a *grants) CreateGrantTx(ctx context.Context, tx bun.IDB, grant *AccessGrant) (bool, error) {
	prepareGrantDefaults(grant)

	res, err := tx.NewInsert().
		Model(grant).
		On("CONFLICT (consultation_id) WHERE active DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return inserted > 0, nil
}

func (a *grants) Deactivate(ctx context.Context, id uuid.UUID) error {
	return a.DeactivateTx(ctx, a.db, id)
}

// DeactivateTx flips the active flag so a replacement grant can be inserted.
// The row itself is never deleted.
func (a *grants) DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*AccessGrant)(nil)).
		Set("active = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	return err
}

func prepareGrantDefaults(grant *AccessGrant) {
	if grant == nil {
		return
	}

	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}

	if grant.AccessType == "" {
		grant.AccessType = AccessBoth
	}

	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = time.Now()
	}

	if grant.ExpiresAt.IsZero() {
		grant.ExpiresAt = grant.GrantedAt.Add(GrantWindow)
	}

	grant.Active = true
}
