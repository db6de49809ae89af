package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"invitehub/internal/domain"

	"github.com/stretchr/testify/require"
)

var invitationRows = []string{
	"id", "tenant_id", "email", "name", "client_ids", "role_group_ids",
	"status", "invited_by", "token_hash", "message", "created_at",
	"expires_at", "accepted_at", "revoked_at", "revoked_by",
}

func TestInvitationRepository_Create(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	expiresAt := createdAt.Add(7 * 24 * time.Hour)

	inv := &domain.Invitation{
		ID:           "inv-uuid-1",
		TenantID:     "tenant-1",
		Email:        "alice@example.com",
		Name:         "Alice",
		ClientIDs:    []string{"client-1", "client-2"},
		RoleGroupIDs: []string{"rg-1"},
		Status:       domain.StatusPending,
		InvitedBy:    "user-1",
		TokenHash:    "a3f5",
		Message:      "welcome aboard",
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
	}

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO invitations`).
					WithArgs(
						"inv-uuid-1", "tenant-1", "alice@example.com", "Alice",
						pq.Array([]string{"client-1", "client-2"}), pq.Array([]string{"rg-1"}),
						"PENDING", "user-1", "a3f5", "welcome aboard",
						createdAt, expiresAt,
					).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unique violation returns ErrDuplicatePending",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO invitations`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "invitations_pending_email_uniq"})
			},
			wantErr: true,
			errIs:   domain.ErrDuplicatePending,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO invitations`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewInvitationRepository(db)
			err = repo.Create(ctx, inv)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInvitationRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	expiresAt := createdAt.Add(7 * 24 * time.Hour)
	revokedAt := createdAt.Add(time.Hour)

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		check   func(t *testing.T, inv *domain.Invitation)
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			id:   "inv-1",
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(invitationRows).AddRow(
					"inv-1", "tenant-1", "alice@example.com", "Alice",
					"{client-1,client-2}", "{}",
					"PENDING", "user-1", "hash-1", nil,
					createdAt, expiresAt, nil, nil, nil,
				)
				mock.ExpectQuery(`FROM invitations`).
					WithArgs("inv-1", "tenant-1").
					WillReturnRows(rows)
			},
			check: func(t *testing.T, inv *domain.Invitation) {
				require.Equal(t, "inv-1", inv.ID)
				require.Equal(t, domain.StatusPending, inv.Status)
				require.Equal(t, []string{"client-1", "client-2"}, inv.ClientIDs)
				require.Empty(t, inv.RoleGroupIDs)
				require.Equal(t, "Alice", inv.Name)
				require.Empty(t, inv.Message)
				require.Nil(t, inv.AcceptedAt)
				require.Nil(t, inv.RevokedAt)
			},
		},
		{
			name: "revoked row carries revocation fields",
			id:   "inv-2",
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(invitationRows).AddRow(
					"inv-2", "tenant-1", "bob@example.com", nil,
					"{}", "{}",
					"REVOKED", "user-1", "hash-2", "see you later",
					createdAt, expiresAt, nil, revokedAt, "admin-1",
				)
				mock.ExpectQuery(`FROM invitations`).
					WithArgs("inv-2", "tenant-1").
					WillReturnRows(rows)
			},
			check: func(t *testing.T, inv *domain.Invitation) {
				require.Equal(t, domain.StatusRevoked, inv.Status)
				require.Empty(t, inv.Name)
				require.Equal(t, "see you later", inv.Message)
				require.NotNil(t, inv.RevokedAt)
				require.Equal(t, revokedAt, *inv.RevokedAt)
				require.NotNil(t, inv.RevokedBy)
				require.Equal(t, "admin-1", *inv.RevokedBy)
			},
		},
		{
			name: "not found",
			id:   "missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM invitations`).
					WithArgs("missing", "tenant-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: true,
			errIs:   domain.ErrInvitationNotFound,
		},
		{
			name: "db error",
			id:   "inv-1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM invitations`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewInvitationRepository(db)
			inv, err := repo.GetByID(ctx, tt.id, "tenant-1")
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
				require.Nil(t, inv)
			} else {
				require.NoError(t, err)
				require.NotNil(t, inv)
				tt.check(t, inv)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInvitationRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows(invitationRows).AddRow(
			"inv-1", "tenant-1", "alice@example.com", nil,
			"{}", "{}",
			"PENDING", "user-1", "hash-abc", nil,
			createdAt, createdAt.Add(24*time.Hour), nil, nil, nil,
		)
		mock.ExpectQuery(`WHERE token_hash`).
			WithArgs("hash-abc").
			WillReturnRows(rows)

		repo := NewInvitationRepository(db)
		inv, err := repo.GetByTokenHash(ctx, "hash-abc")
		require.NoError(t, err)
		require.Equal(t, "inv-1", inv.ID)
		require.Equal(t, "hash-abc", inv.TokenHash)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unmatched hash", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`WHERE token_hash`).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		repo := NewInvitationRepository(db)
		_, err = repo.GetByTokenHash(ctx, "nope")
		require.ErrorIs(t, err, domain.ErrInvitationNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvitationRepository_HasPending(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		exists bool
	}{
		{name: "pending exists", exists: true},
		{name: "no pending", exists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs("tenant-1", "alice@example.com").
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			repo := NewInvitationRepository(db)
			got, err := repo.HasPending(ctx, "tenant-1", "alice@example.com")
			require.NoError(t, err)
			require.Equal(t, tt.exists, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInvitationRepository_List(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	t.Run("no filter", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs("tenant-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		rows := sqlmock.NewRows(invitationRows).
			AddRow("inv-2", "tenant-1", "b@x.com", nil, "{}", "{}", "PENDING", "user-1", "hash-2", nil,
				createdAt.Add(time.Hour), createdAt.Add(48*time.Hour), nil, nil, nil).
			AddRow("inv-1", "tenant-1", "a@x.com", nil, "{}", "{}", "ACCEPTED", "user-1", "hash-1", nil,
				createdAt, createdAt.Add(48*time.Hour), createdAt.Add(2*time.Hour), nil, nil)
		mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
			WithArgs("tenant-1", 50, 0).
			WillReturnRows(rows)

		repo := NewInvitationRepository(db)
		invs, total, err := repo.List(ctx, "tenant-1", domain.InvitationFilter{}, domain.PaginationParams{Page: 1, PageSize: 50})
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Len(t, invs, 2)
		require.Equal(t, "inv-2", invs[0].ID)
		require.Equal(t, "inv-1", invs[1].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("status and email filter", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		status := domain.StatusPending
		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs("tenant-1", "PENDING", "%alice%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		rows := sqlmock.NewRows(invitationRows).
			AddRow("inv-1", "tenant-1", "alice@x.com", nil, "{}", "{}", "PENDING", "user-1", "hash-1", nil,
				createdAt, createdAt.Add(48*time.Hour), nil, nil, nil)
		mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
			WithArgs("tenant-1", "PENDING", "%alice%", 20, 20).
			WillReturnRows(rows)

		repo := NewInvitationRepository(db)
		invs, total, err := repo.List(ctx, "tenant-1",
			domain.InvitationFilter{Status: &status, Email: "alice"},
			domain.PaginationParams{Page: 2, PageSize: 20})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, invs, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("created range filter", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		after := createdAt.Add(-24 * time.Hour)
		before := createdAt.Add(24 * time.Hour)
		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs("tenant-1", after, before).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
			WithArgs("tenant-1", after, before, 50, 0).
			WillReturnRows(sqlmock.NewRows(invitationRows))

		repo := NewInvitationRepository(db)
		invs, total, err := repo.List(ctx, "tenant-1",
			domain.InvitationFilter{CreatedAfter: &after, CreatedBefore: &before},
			domain.PaginationParams{Page: 1, PageSize: 50})
		require.NoError(t, err)
		require.Zero(t, total)
		require.Empty(t, invs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnError(sql.ErrConnDone)

		repo := NewInvitationRepository(db)
		_, _, err = repo.List(ctx, "tenant-1", domain.InvitationFilter{}, domain.PaginationParams{Page: 1, PageSize: 50})
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvitationRepository_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	t.Run("MarkAccepted updates pending row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE invitations`).
			WithArgs("inv-1", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewInvitationRepository(db)
		updated, err := repo.MarkAccepted(ctx, "inv-1", now)
		require.NoError(t, err)
		require.True(t, updated)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MarkAccepted loses compare-and-set", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE invitations`).
			WithArgs("inv-1", now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewInvitationRepository(db)
		updated, err := repo.MarkAccepted(ctx, "inv-1", now)
		require.NoError(t, err)
		require.False(t, updated)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MarkExpired", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE invitations`).
			WithArgs("inv-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewInvitationRepository(db)
		updated, err := repo.MarkExpired(ctx, "inv-1")
		require.NoError(t, err)
		require.True(t, updated)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MarkRevoked", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE invitations`).
			WithArgs("inv-1", now, "admin-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewInvitationRepository(db)
		updated, err := repo.MarkRevoked(ctx, "inv-1", now, "admin-1")
		require.NoError(t, err)
		require.True(t, updated)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ResetToken", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expiresAt := now.Add(7 * 24 * time.Hour)
		mock.ExpectExec(`UPDATE invitations`).
			WithArgs("inv-1", "new-hash", expiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewInvitationRepository(db)
		updated, err := repo.ResetToken(ctx, "inv-1", "new-hash", expiresAt)
		require.NoError(t, err)
		require.True(t, updated)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error propagates", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE invitations`).
			WillReturnError(sql.ErrConnDone)

		repo := NewInvitationRepository(db)
		updated, err := repo.MarkExpired(ctx, "inv-1")
		require.ErrorIs(t, err, sql.ErrConnDone)
		require.False(t, updated)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvitationRepository_GetStats(t *testing.T) {
	ctx := context.Background()
	todayStart := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"total", "pending", "accepted", "expired", "revoked", "sent_today", "sent_this_week"}).
		AddRow(6, 3, 2, 1, 0, 2, 5)
	mock.ExpectQuery(`FROM invitations`).
		WithArgs("tenant-1", todayStart, weekStart).
		WillReturnRows(rows)

	repo := NewInvitationRepository(db)
	stats, err := repo.GetStats(ctx, "tenant-1", todayStart, weekStart)
	require.NoError(t, err)
	require.Equal(t, &domain.InvitationStats{
		Total: 6, Pending: 3, Accepted: 2, Expired: 1, Revoked: 0,
		SentToday: 2, SentThisWeek: 5,
	}, stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationRepository_ExpireOlderThan(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	t.Run("expires stale rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE invitations`).
			WithArgs(cutoff).
			WillReturnResult(sqlmock.NewResult(0, 4))

		repo := NewInvitationRepository(db)
		count, err := repo.ExpireOlderThan(ctx, cutoff)
		require.NoError(t, err)
		require.Equal(t, int64(4), count)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to expire", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE invitations`).
			WithArgs(cutoff).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewInvitationRepository(db)
		count, err := repo.ExpireOlderThan(ctx, cutoff)
		require.NoError(t, err)
		require.Zero(t, count)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
