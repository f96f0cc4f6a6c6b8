package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/member"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

// MemberRepository implements the member.Repository interface for PostgreSQL
type MemberRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewMemberRepository creates a new PostgreSQL member repository
func NewMemberRepository(logger *slog.Logger, db *persistence.PostgresDB) member.Repository {
	return &MemberRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *MemberRepository) WithTx(tx pgx.Tx) member.Repository {
	return &MemberRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateMember stores a new member
func (r *MemberRepository) CreateMember(ctx context.Context, m *member.Member) error {
	query := `
		INSERT INTO members (id, name, member_number, free_equity, locked_equity, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		m.ID, m.Name, m.MemberNumber, m.FreeEquity, m.LockedEquity,
		m.Version, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create member", "id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// GetMemberByID retrieves a member by its ID
func (r *MemberRepository) GetMemberByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	query := `
		SELECT id, name, member_number, free_equity, locked_equity, version, created_at, updated_at
		FROM members WHERE id = $1
	`
	return r.queryMember(ctx, query, id)
}

// LockMemberForUpdate pins the member row so equity lock/unlock runs as a
// single read-modify-write even when a member guarantees several loans
// concurrently.
func (r *MemberRepository) LockMemberForUpdate(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	query := `
		SELECT id, name, member_number, free_equity, locked_equity, version, created_at, updated_at
		FROM members WHERE id = $1 FOR UPDATE
	`
	return r.queryMember(ctx, query, id)
}

func (r *MemberRepository) queryMember(ctx context.Context, query string, id uuid.UUID) (*member.Member, error) {
	var m member.Member
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.MemberNumber, &m.FreeEquity, &m.LockedEquity,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrMemberNotFound{MemberID: id}
		}
		r.logger.Error("Failed to get member", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &m, nil
}

// UpdateMember persists member equity using optimistic locking
func (r *MemberRepository) UpdateMember(ctx context.Context, m *member.Member) error {
	query := `
		UPDATE members
		SET name = $1, free_equity = $2, locked_equity = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		m.Name, m.FreeEquity, m.LockedEquity, m.Version, m.UpdatedAt,
		m.ID, m.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update member", "id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to update member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("concurrent modification detected for member: %s", m.ID)
	}

	return nil
}

// CreateGuarantor stores a new guarantor record
func (r *MemberRepository) CreateGuarantor(ctx context.Context, g *member.Guarantor) error {
	query := `
		INSERT INTO guarantors (id, member_id, application_id, guarantee_amount, consent_status,
			locked_equity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		g.ID, g.MemberID, g.ApplicationID, g.GuaranteeAmount, g.ConsentStatus,
		g.LockedEquity, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create guarantor", "id", g.ID.String(), "error", err)
		return fmt.Errorf("failed to create guarantor: %w", err)
	}

	return nil
}

// GetGuarantorByID retrieves a guarantor by its ID
func (r *MemberRepository) GetGuarantorByID(ctx context.Context, id uuid.UUID) (*member.Guarantor, error) {
	query := `
		SELECT id, member_id, application_id, guarantee_amount, consent_status,
			locked_equity, created_at, updated_at
		FROM guarantors WHERE id = $1
	`

	var g member.Guarantor
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.MemberID, &g.ApplicationID, &g.GuaranteeAmount, &g.ConsentStatus,
		&g.LockedEquity, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrGuarantorNotFound{GuarantorID: id}
		}
		r.logger.Error("Failed to get guarantor", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get guarantor: %w", err)
	}

	return &g, nil
}

// GetGuarantorsByApplication returns all guarantors attached to an application
func (r *MemberRepository) GetGuarantorsByApplication(ctx context.Context, applicationID uuid.UUID) ([]*member.Guarantor, error) {
	query := `
		SELECT id, member_id, application_id, guarantee_amount, consent_status,
			locked_equity, created_at, updated_at
		FROM guarantors
		WHERE application_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to get guarantors", "application_id", applicationID.String(), "error", err)
		return nil, fmt.Errorf("failed to get guarantors: %w", err)
	}
	defer rows.Close()

	var guarantors []*member.Guarantor
	for rows.Next() {
		var g member.Guarantor
		err := rows.Scan(
			&g.ID, &g.MemberID, &g.ApplicationID, &g.GuaranteeAmount, &g.ConsentStatus,
			&g.LockedEquity, &g.CreatedAt, &g.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guarantor: %w", err)
		}
		guarantors = append(guarantors, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over guarantors: %w", err)
	}

	return guarantors, nil
}

// UpdateGuarantor persists guarantor consent and locked equity changes
func (r *MemberRepository) UpdateGuarantor(ctx context.Context, g *member.Guarantor) error {
	query := `
		UPDATE guarantors
		SET guarantee_amount = $1, consent_status = $2, locked_equity = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		g.GuaranteeAmount, g.ConsentStatus, g.LockedEquity, g.UpdatedAt, g.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update guarantor", "id", g.ID.String(), "error", err)
		return fmt.Errorf("failed to update guarantor: %w", err)
	}

	if result.RowsAffected() == 0 {
		return member.ErrGuarantorNotFound{GuarantorID: g.ID}
	}

	return nil
}

// DeleteGuarantor removes a guarantor record
func (r *MemberRepository) DeleteGuarantor(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM guarantors WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete guarantor", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete guarantor: %w", err)
	}

	if result.RowsAffected() == 0 {
		return member.ErrGuarantorNotFound{GuarantorID: id}
	}

	return nil
}
