package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"invitehub/internal/domain"
)

const invitationColumns = `id, tenant_id, email, name, client_ids, role_group_ids, status, invited_by, token_hash, message, created_at, expires_at, accepted_at, revoked_at, revoked_by`

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{
		DB: db,
	}
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (id, tenant_id, email, name, client_ids, role_group_ids, status, invited_by, token_hash, message, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.DB.ExecContext(ctx, query,
		inv.ID, inv.TenantID, inv.Email, nullString(inv.Name),
		pq.Array(inv.ClientIDs), pq.Array(inv.RoleGroupIDs),
		string(inv.Status), inv.InvitedBy, inv.TokenHash, nullString(inv.Message),
		inv.CreatedAt, inv.ExpiresAt,
	)
	if err != nil {
		// The partial unique index on (tenant_id, email) for PENDING rows is
		// the authoritative duplicate guard.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.ErrDuplicatePending
		}
		return err
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id, tenantID string) (*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE token_hash = $1 AND deleted_at IS NULL
	`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) HasPending(ctx context.Context, tenantID, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM invitations
			WHERE tenant_id = $1 AND email = $2 AND status = 'PENDING' AND deleted_at IS NULL
		)
	`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, tenantID, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *invitationRepository) List(ctx context.Context, tenantID string, filter domain.InvitationFilter, params domain.PaginationParams) ([]*domain.Invitation, int, error) {
	where := []string{"tenant_id = $1", "deleted_at IS NULL"}
	args := []interface{}{tenantID}
	n := 2
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", n))
		args = append(args, string(*filter.Status))
		n++
	}
	if filter.Email != "" {
		where = append(where, fmt.Sprintf("email ILIKE $%d", n))
		args = append(args, "%"+filter.Email+"%")
		n++
	}
	if filter.InvitedBy != "" {
		where = append(where, fmt.Sprintf("invited_by = $%d", n))
		args = append(args, filter.InvitedBy)
		n++
	}
	if filter.CreatedAfter != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", n))
		args = append(args, *filter.CreatedAfter)
		n++
	}
	if filter.CreatedBefore != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", n))
		args = append(args, *filter.CreatedBefore)
		n++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM invitations WHERE ` + whereClause
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Secondary order on id keeps pagination deterministic across equal
	// created_at values.
	query := fmt.Sprintf(`
		SELECT %s
		FROM invitations
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, invitationColumns, whereClause, n, n+1)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	invitations := make([]*domain.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, 0, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, total, rows.Err()
}

func (r *invitationRepository) MarkAccepted(ctx context.Context, id string, acceptedAt time.Time) (bool, error) {
	query := `
		UPDATE invitations
		SET status = 'ACCEPTED', accepted_at = $2
		WHERE id = $1 AND status = 'PENDING' AND deleted_at IS NULL
	`
	result, err := r.DB.ExecContext(ctx, query, id, acceptedAt)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *invitationRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE invitations
		SET status = 'EXPIRED'
		WHERE id = $1 AND status = 'PENDING' AND deleted_at IS NULL
	`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *invitationRepository) MarkRevoked(ctx context.Context, id string, revokedAt time.Time, revokedBy string) (bool, error) {
	query := `
		UPDATE invitations
		SET status = 'REVOKED', revoked_at = $2, revoked_by = $3
		WHERE id = $1 AND status = 'PENDING' AND deleted_at IS NULL
	`
	result, err := r.DB.ExecContext(ctx, query, id, revokedAt, revokedBy)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *invitationRepository) ResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE invitations
		SET token_hash = $2, expires_at = $3
		WHERE id = $1 AND status = 'PENDING' AND deleted_at IS NULL
	`
	result, err := r.DB.ExecContext(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *invitationRepository) GetStats(ctx context.Context, tenantID string, todayStart, weekStart time.Time) (*domain.InvitationStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'ACCEPTED'),
			COUNT(*) FILTER (WHERE status = 'EXPIRED'),
			COUNT(*) FILTER (WHERE status = 'REVOKED'),
			COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*) FILTER (WHERE created_at >= $3)
		FROM invitations
		WHERE tenant_id = $1 AND deleted_at IS NULL
	`
	stats := &domain.InvitationStats{}
	err := r.DB.QueryRowContext(ctx, query, tenantID, todayStart, weekStart).Scan(
		&stats.Total, &stats.Pending, &stats.Accepted, &stats.Expired, &stats.Revoked,
		&stats.SentToday, &stats.SentThisWeek,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *invitationRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE invitations
		SET status = 'EXPIRED'
		WHERE status = 'PENDING' AND deleted_at IS NULL AND expires_at < $1
	`
	result, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(s rowScanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	var (
		name, message, revokedBy sql.NullString
		acceptedAt, revokedAt    sql.NullTime
		clientIDs, roleGroupIDs  pq.StringArray
		status                   string
	)
	if err := s.Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &name,
		&clientIDs, &roleGroupIDs, &status, &inv.InvitedBy,
		&inv.TokenHash, &message, &inv.CreatedAt, &inv.ExpiresAt,
		&acceptedAt, &revokedAt, &revokedBy,
	); err != nil {
		return nil, err
	}
	inv.Name = name.String
	inv.Message = message.String
	inv.Status = domain.InvitationStatus(status)
	inv.ClientIDs = clientIDs
	inv.RoleGroupIDs = roleGroupIDs
	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	if revokedAt.Valid {
		inv.RevokedAt = &revokedAt.Time
	}
	if revokedBy.Valid {
		inv.RevokedBy = &revokedBy.String
	}
	return inv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
