// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/danielhkuo/pb-portal/auth"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/rubric"
)

// PostgresStore is the networked backend. Account creation goes
// through self-registration only (the credential subsystem is modeled
// after hosted auth services where a session belongs to the account it
// creates), so AdminCreateUser reports ErrNotSupported.
type PostgresStore struct {
	db *sql.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    email TEXT PRIMARY KEY,
    secret_hash TEXT NOT NULL,
    user_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    username TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'applicant',
    area TEXT NOT NULL DEFAULT '',
    display_name TEXT NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    photo_url TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    role_description TEXT NOT NULL DEFAULT '',
    secret TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS apps (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    applicant_name TEXT NOT NULL DEFAULT '',
    org_name TEXT NOT NULL DEFAULT '',
    project_title TEXT NOT NULL DEFAULT '',
    area TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    amount_requested DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    priority TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ref TEXT NOT NULL,
    submission_method TEXT NOT NULL DEFAULT '',
    pdf_url TEXT NOT NULL DEFAULT '',
    stage2_pdf_url TEXT NOT NULL DEFAULT '',
    form_data JSONB
);

CREATE INDEX IF NOT EXISTS idx_apps_area ON apps(area);

CREATE TABLE IF NOT EXISTS scores (
    app_id TEXT NOT NULL,
    scorer_id TEXT NOT NULL,
    scorer_name TEXT NOT NULL DEFAULT '',
    ratings JSONB NOT NULL,
    notes JSONB NOT NULL,
    is_final BOOLEAN NOT NULL DEFAULT FALSE,
    total DOUBLE PRECISION NOT NULL DEFAULT 0,
    ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (app_id, scorer_id)
);

CREATE INDEX IF NOT EXISTS idx_scores_scorer ON scores(scorer_id);
CREATE INDEX IF NOT EXISTS idx_scores_app ON scores(app_id);

CREATE TABLE IF NOT EXISTS settings (
    id INT PRIMARY KEY CHECK (id = 1),
    stage1_visible BOOLEAN NOT NULL,
    stage2_visible BOOLEAN NOT NULL,
    voting_open BOOLEAN NOT NULL
);
`

// OpenPostgres connects to the database, verifies the connection, and
// creates the schema if needed.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Settings

func (s *PostgresStore) GetPortalSettings(ctx context.Context) (models.PortalSettings, error) {
	var st models.PortalSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT stage1_visible, stage2_visible, voting_open FROM settings WHERE id = 1
	`).Scan(&st.Stage1Visible, &st.Stage2Visible, &st.VotingOpen)

	if err == sql.ErrNoRows {
		def := models.DefaultSettings()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO settings (id, stage1_visible, stage2_visible, voting_open)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, def.Stage1Visible, def.Stage2Visible, def.VotingOpen)
		if err != nil {
			slog.Error("failed to create default settings", "error", err)
		}
		return def, nil
	}
	if err != nil {
		slog.Error("failed to read settings, using defaults", "error", err)
		return models.DefaultSettings(), nil
	}
	return st, nil
}

func (s *PostgresStore) UpdatePortalSettings(ctx context.Context, st models.PortalSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, stage1_visible, stage2_visible, voting_open)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			stage1_visible = EXCLUDED.stage1_visible,
			stage2_visible = EXCLUDED.stage2_visible,
			voting_open = EXCLUDED.voting_open
	`, st.Stage1Visible, st.Stage2Visible, st.VotingOpen)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

// Identity & auth

func (s *PostgresStore) Login(ctx context.Context, identifier, password string) (models.User, error) {
	email := auth.NormalizeIdentifier(identifier)

	var hash, userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT secret_hash, user_id FROM credentials WHERE email = $1
	`, email).Scan(&hash, &userID)
	if err == sql.ErrNoRows {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query credentials: %w", err)
	}

	if auth.CheckPassword(password, hash) != nil {
		return models.User{}, ErrInvalidCredentials
	}

	u, err := s.GetUser(ctx, userID)
	if err == ErrNotFound {
		return models.User{}, ErrProfileMissing
	}
	if err != nil {
		return models.User{}, err
	}
	return u.Public(), nil
}

func (s *PostgresStore) Register(ctx context.Context, email, password, displayName string) (models.User, error) {
	normalized := auth.NormalizeIdentifier(email)

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM credentials WHERE email = $1)
	`, normalized).Scan(&exists)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return models.User{}, ErrEmailExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{
		ID:          uuid.NewString(),
		Email:       normalized,
		Username:    auth.UsernameFromEmail(normalized),
		Role:        models.RoleApplicant,
		DisplayName: displayName,
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (email, secret_hash, user_id) VALUES ($1, $2, $3)
	`, normalized, hash, u.ID); err != nil {
		return models.User{}, fmt.Errorf("failed to store credential: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, role, display_name, secret)
		VALUES ($1, $2, $3, $4, $5, '')
	`, u.ID, u.Email, u.Username, u.Role, u.DisplayName); err != nil {
		return models.User{}, fmt.Errorf("failed to store profile: %w", err)
	}

	return u.Public(), nil
}

// AdminCreateUser is not available on this backend: the credential
// subsystem only accepts self-registration, and a silent partial
// create (profile without login) would be worse than refusing.
func (s *PostgresStore) AdminCreateUser(ctx context.Context, u models.User, password string) (models.User, error) {
	return models.User{}, ErrNotSupported
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, role, area, display_name, bio, phone, photo_url, address, role_description
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Username, &u.Role, &u.Area, &u.DisplayName,
		&u.Bio, &u.Phone, &u.PhotoURL, &u.Address, &u.RoleDesc)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u.Public(), nil
}

func (s *PostgresStore) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, username, role, area, display_name, bio, phone, photo_url, address, role_description
		FROM users ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.Role, &u.Area, &u.DisplayName,
			&u.Bio, &u.Phone, &u.PhotoURL, &u.Address, &u.RoleDesc); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u.Public())
	}
	return users, rows.Err()
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	patch.Apply(&u)

	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET email = $1, username = $2, role = $3, area = $4, display_name = $5,
			bio = $6, phone = $7, photo_url = $8, address = $9, role_description = $10
		WHERE id = $11
	`, u.Email, u.Username, u.Role, u.Area, u.DisplayName, u.Bio, u.Phone, u.PhotoURL, u.Address, u.RoleDesc, u.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return u.Public(), nil
}

// UpdateUser upserts the full record by id, never writing the secret
// column from the caller's value.
func (s *PostgresStore) UpdateUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, role, area, display_name, bio, phone, photo_url, address, role_description, secret)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '')
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			role = EXCLUDED.role,
			area = EXCLUDED.area,
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			phone = EXCLUDED.phone,
			photo_url = EXCLUDED.photo_url,
			address = EXCLUDED.address,
			role_description = EXCLUDED.role_description
	`, u.ID, u.Email, u.Username, u.Role, u.Area, u.DisplayName, u.Bio, u.Phone, u.PhotoURL, u.Address, u.RoleDesc)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// Applications

func (s *PostgresStore) GetApplications(ctx context.Context, areaFilter string) ([]models.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, applicant_name, org_name, project_title, area, summary,
		       amount_requested, total_cost, status, priority, created_at, ref,
		       submission_method, pdf_url, stage2_pdf_url, form_data
		FROM apps ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanPostgresApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return filterApplications(apps, areaFilter), nil
}

func (s *PostgresStore) GetApplication(ctx context.Context, id string) (models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, applicant_name, org_name, project_title, area, summary,
		       amount_requested, total_cost, status, priority, created_at, ref,
		       submission_method, pdf_url, stage2_pdf_url, form_data
		FROM apps WHERE id = $1
	`, id)
	app, err := scanPostgresApp(row)
	if err == sql.ErrNoRows {
		return models.Application{}, ErrNotFound
	}
	return app, err
}

func scanPostgresApp(row rowScanner) (models.Application, error) {
	var app models.Application
	var formData []byte
	err := row.Scan(&app.ID, &app.UserID, &app.ApplicantName, &app.OrgName, &app.ProjectTitle,
		&app.Area, &app.Summary, &app.AmountRequested, &app.TotalCost, &app.Status,
		&app.Priority, &app.CreatedAt, &app.Ref, &app.SubmissionMethod,
		&app.PDFURL, &app.Stage2PDFURL, &formData)
	if err == sql.ErrNoRows {
		return models.Application{}, err
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to scan application: %w", err)
	}
	if app.FormData, err = unmarshalFormData(formData); err != nil {
		return models.Application{}, err
	}
	return app, nil
}

func (s *PostgresStore) CreateApplication(ctx context.Context, app models.Application) (models.Application, error) {
	if !validArea(app.Area) {
		return models.Application{}, fmt.Errorf("%w: %q", ErrInvalidArea, app.Area)
	}

	ref, err := generateRef(app.Area, func(ref string) (bool, error) {
		var taken bool
		err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM apps WHERE ref = $1)`, ref).Scan(&taken)
		return taken, err
	})
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to generate ref: %w", err)
	}

	app.ID = uuid.NewString()
	app.Ref = ref
	app.Status = models.StatusSubmittedStage1
	app.CreatedAt = time.Now().UTC()

	formData, err := marshalFormData(app.FormData)
	if err != nil {
		return models.Application{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO apps (id, user_id, applicant_name, org_name, project_title, area, summary,
			amount_requested, total_cost, status, priority, created_at, ref,
			submission_method, pdf_url, stage2_pdf_url, form_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, app.ID, app.UserID, app.ApplicantName, app.OrgName, app.ProjectTitle, app.Area, app.Summary,
		app.AmountRequested, app.TotalCost, app.Status, app.Priority, app.CreatedAt,
		app.Ref, app.SubmissionMethod, app.PDFURL, app.Stage2PDFURL, formData)
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to insert application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) UpdateApplication(ctx context.Context, id string, patch models.ApplicationPatch) (models.Application, error) {
	app, err := s.GetApplication(ctx, id)
	if err != nil {
		return models.Application{}, err
	}
	if err := checkStatusPatch(app.Status, patch); err != nil {
		return models.Application{}, err
	}
	patch.Apply(&app)

	formData, err := marshalFormData(app.FormData)
	if err != nil {
		return models.Application{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE apps SET user_id = $1, applicant_name = $2, org_name = $3, project_title = $4, area = $5,
			summary = $6, amount_requested = $7, total_cost = $8, status = $9, priority = $10,
			submission_method = $11, pdf_url = $12, stage2_pdf_url = $13, form_data = $14
		WHERE id = $15
	`, app.UserID, app.ApplicantName, app.OrgName, app.ProjectTitle, app.Area, app.Summary,
		app.AmountRequested, app.TotalCost, app.Status, app.Priority,
		app.SubmissionMethod, app.PDFURL, app.Stage2PDFURL, formData, app.ID)
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to update application: %w", err)
	}
	return app, nil
}

// DeleteApplication removes the application, then its scores, as two
// separate idempotent statements. See the package doc for the
// orphan-on-interruption consequence.
func (s *PostgresStore) DeleteApplication(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scores WHERE app_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete application scores: %w", err)
	}
	return nil
}

// Scores

func (s *PostgresStore) SaveScore(ctx context.Context, sc models.Score) (models.Score, error) {
	sc.Total = rubric.Total(sc.Ratings)
	if sc.Timestamp.IsZero() {
		sc.Timestamp = time.Now().UTC()
	}

	ratings, err := marshalMap(sc.Ratings)
	if err != nil {
		return models.Score{}, err
	}
	notes, err := marshalMap(sc.Notes)
	if err != nil {
		return models.Score{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scores (app_id, scorer_id, scorer_name, ratings, notes, is_final, total, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (app_id, scorer_id) DO UPDATE SET
			scorer_name = EXCLUDED.scorer_name,
			ratings = EXCLUDED.ratings,
			notes = EXCLUDED.notes,
			is_final = EXCLUDED.is_final,
			total = EXCLUDED.total,
			ts = EXCLUDED.ts
	`, sc.AppID, sc.ScorerID, sc.ScorerName, ratings, notes, sc.IsFinal, sc.Total, sc.Timestamp)
	if err != nil {
		return models.Score{}, fmt.Errorf("failed to upsert score: %w", err)
	}
	return sc, nil
}

func (s *PostgresStore) GetScores(ctx context.Context) ([]models.Score, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT app_id, scorer_id, scorer_name, ratings, notes, is_final, total, ts
		FROM scores ORDER BY ts
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	scores := []models.Score{}
	for rows.Next() {
		var sc models.Score
		var ratings, notes []byte
		if err := rows.Scan(&sc.AppID, &sc.ScorerID, &sc.ScorerName, &ratings, &notes,
			&sc.IsFinal, &sc.Total, &sc.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		if sc.Ratings, err = unmarshalMap[int](ratings); err != nil {
			return nil, err
		}
		if sc.Notes, err = unmarshalMap[string](notes); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

func (s *PostgresStore) DeleteScore(ctx context.Context, appID, scorerID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM scores WHERE app_id = $1 AND scorer_id = $2
	`, appID, scorerID)
	if err != nil {
		return fmt.Errorf("failed to delete score: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResetUserScores(ctx context.Context, scorerID, appID string) error {
	if appID != "" {
		return s.DeleteScore(ctx, appID, scorerID)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM scores WHERE scorer_id = $1`, scorerID)
	if err != nil {
		return fmt.Errorf("failed to reset scores: %w", err)
	}
	return nil
}
