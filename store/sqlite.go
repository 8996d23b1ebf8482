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
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/pb-portal/auth"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/rubric"
)

// SQLiteStore is the local backend: a single database file, no
// network. Opened with seeding enabled, an empty file gets fixed
// demonstration data so the portal is explorable out of the box.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    email TEXT PRIMARY KEY,
    secret_hash TEXT NOT NULL,
    user_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    username TEXT,
    role TEXT NOT NULL DEFAULT 'applicant',
    area TEXT,
    display_name TEXT,
    bio TEXT,
    phone TEXT,
    photo_url TEXT,
    address TEXT,
    role_description TEXT,
    secret TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS apps (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    applicant_name TEXT,
    org_name TEXT,
    project_title TEXT,
    area TEXT NOT NULL,
    summary TEXT,
    amount_requested REAL NOT NULL DEFAULT 0,
    total_cost REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    priority TEXT,
    created_at INTEGER NOT NULL,
    ref TEXT NOT NULL,
    submission_method TEXT,
    pdf_url TEXT,
    stage2_pdf_url TEXT,
    form_data BLOB
);

CREATE INDEX IF NOT EXISTS idx_apps_area ON apps(area);

CREATE TABLE IF NOT EXISTS scores (
    app_id TEXT NOT NULL,
    scorer_id TEXT NOT NULL,
    scorer_name TEXT,
    ratings BLOB NOT NULL,
    notes BLOB NOT NULL,
    is_final INTEGER NOT NULL DEFAULT 0,
    total REAL NOT NULL DEFAULT 0,
    ts INTEGER NOT NULL,
    PRIMARY KEY (app_id, scorer_id)
);

CREATE INDEX IF NOT EXISTS idx_scores_scorer ON scores(scorer_id);

CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    stage1_visible INTEGER NOT NULL,
    stage2_visible INTEGER NOT NULL,
    voting_open INTEGER NOT NULL
);
`

// OpenSQLite opens (creating if needed) the local database file.
// Pass ":memory:" for an ephemeral store. When seed is set and the
// store holds no users yet, demonstration data is loaded.
func OpenSQLite(path string, seed bool) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection sidesteps table-lock errors from concurrent
	// writers on one file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	if seed {
		if err := s.seedIfEmpty(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// seedIfEmpty loads the demonstration users and applications when the
// users table is empty. Safe to call on every start.
func (s *SQLiteStore) seedIfEmpty(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, du := range demoUsers() {
		if _, err := s.AdminCreateUser(ctx, du.user, du.password); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", du.user.Email, err)
		}
	}
	for _, app := range demoApplications() {
		if _, err := s.CreateApplication(ctx, app); err != nil {
			return fmt.Errorf("failed to seed application %s: %w", app.ProjectTitle, err)
		}
	}
	slog.Info("seeded demonstration data", "users", len(demoUsers()), "applications", len(demoApplications()))
	return nil
}

// Settings

func (s *SQLiteStore) GetPortalSettings(ctx context.Context) (models.PortalSettings, error) {
	var st models.PortalSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT stage1_visible, stage2_visible, voting_open FROM settings WHERE id = 1
	`).Scan(&st.Stage1Visible, &st.Stage2Visible, &st.VotingOpen)

	if err == sql.ErrNoRows {
		def := models.DefaultSettings()
		// Create-if-absent; DO NOTHING keeps concurrent first readers
		// idempotent.
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO settings (id, stage1_visible, stage2_visible, voting_open)
			VALUES (1, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING
		`, def.Stage1Visible, def.Stage2Visible, def.VotingOpen)
		if err != nil {
			slog.Error("failed to create default settings", "error", err)
		}
		return def, nil
	}
	if err != nil {
		// Read failures degrade to defaults; settings reads must never
		// fail the caller.
		slog.Error("failed to read settings, using defaults", "error", err)
		return models.DefaultSettings(), nil
	}
	return st, nil
}

func (s *SQLiteStore) UpdatePortalSettings(ctx context.Context, st models.PortalSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, stage1_visible, stage2_visible, voting_open)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			stage1_visible = excluded.stage1_visible,
			stage2_visible = excluded.stage2_visible,
			voting_open = excluded.voting_open
	`, st.Stage1Visible, st.Stage2Visible, st.VotingOpen)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

// Identity & auth

func (s *SQLiteStore) Login(ctx context.Context, identifier, password string) (models.User, error) {
	email := auth.NormalizeIdentifier(identifier)

	var hash, userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT secret_hash, user_id FROM credentials WHERE email = ?
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
		// The credential is fine but the profile document is gone.
		// Surfaced distinctly so an admin can repair it.
		return models.User{}, ErrProfileMissing
	}
	if err != nil {
		return models.User{}, err
	}
	return u.Public(), nil
}

func (s *SQLiteStore) Register(ctx context.Context, email, password, displayName string) (models.User, error) {
	u := models.User{
		Email:       auth.NormalizeIdentifier(email),
		Role:        models.RoleApplicant,
		DisplayName: displayName,
	}
	return s.AdminCreateUser(ctx, u, password)
}

// AdminCreateUser creates both the credential entry and the profile
// record. The local backend owns its credential table, so unlike the
// networked backend this works for any caller.
func (s *SQLiteStore) AdminCreateUser(ctx context.Context, u models.User, password string) (models.User, error) {
	email := auth.NormalizeIdentifier(u.Email)

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM credentials WHERE email = ?)
	`, email).Scan(&exists)
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

	u.ID = uuid.NewString()
	u.Email = email
	if u.Username == "" {
		u.Username = auth.UsernameFromEmail(email)
	}
	if u.Role == "" {
		u.Role = models.RoleApplicant
	}
	u.Secret = "" // the hash lives in credentials only

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (email, secret_hash, user_id) VALUES (?, ?, ?)
	`, email, hash, u.ID); err != nil {
		return models.User{}, fmt.Errorf("failed to store credential: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, role, area, display_name, bio, phone, photo_url, address, role_description, secret)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '')
	`, u.ID, u.Email, u.Username, u.Role, u.Area, u.DisplayName, u.Bio, u.Phone, u.PhotoURL, u.Address, u.RoleDesc); err != nil {
		return models.User{}, fmt.Errorf("failed to store profile: %w", err)
	}

	return u.Public(), nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, role, area, display_name, bio, phone, photo_url, address, role_description
		FROM users WHERE id = ?
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

func (s *SQLiteStore) GetUsers(ctx context.Context) ([]models.User, error) {
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

func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	patch.Apply(&u)
	if err := s.writeUser(ctx, u); err != nil {
		return models.User{}, err
	}
	return u.Public(), nil
}

// UpdateUser upserts the full record by id. The secret column is never
// written from the caller's value, so a generic edit form cannot wipe
// or replace a stored credential.
func (s *SQLiteStore) UpdateUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, role, area, display_name, bio, phone, photo_url, address, role_description, secret)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '')
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			username = excluded.username,
			role = excluded.role,
			area = excluded.area,
			display_name = excluded.display_name,
			bio = excluded.bio,
			phone = excluded.phone,
			photo_url = excluded.photo_url,
			address = excluded.address,
			role_description = excluded.role_description
	`, u.ID, u.Email, u.Username, u.Role, u.Area, u.DisplayName, u.Bio, u.Phone, u.PhotoURL, u.Address, u.RoleDesc)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) writeUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, username = ?, role = ?, area = ?, display_name = ?,
			bio = ?, phone = ?, photo_url = ?, address = ?, role_description = ?
		WHERE id = ?
	`, u.Email, u.Username, u.Role, u.Area, u.DisplayName, u.Bio, u.Phone, u.PhotoURL, u.Address, u.RoleDesc, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser removes the profile record only. Scores referencing the
// user keep their scorer id and render as "Unknown"; the credential
// row is left so the inconsistency surfaces as ErrProfileMissing.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// Applications

func (s *SQLiteStore) GetApplications(ctx context.Context, areaFilter string) ([]models.Application, error) {
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
		app, err := scanSQLiteApp(rows)
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

func (s *SQLiteStore) GetApplication(ctx context.Context, id string) (models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, applicant_name, org_name, project_title, area, summary,
		       amount_requested, total_cost, status, priority, created_at, ref,
		       submission_method, pdf_url, stage2_pdf_url, form_data
		FROM apps WHERE id = ?
	`, id)
	app, err := scanSQLiteApp(row)
	if err == sql.ErrNoRows {
		return models.Application{}, ErrNotFound
	}
	return app, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteApp(row rowScanner) (models.Application, error) {
	var app models.Application
	var createdAt int64
	var formData []byte
	err := row.Scan(&app.ID, &app.UserID, &app.ApplicantName, &app.OrgName, &app.ProjectTitle,
		&app.Area, &app.Summary, &app.AmountRequested, &app.TotalCost, &app.Status,
		&app.Priority, &createdAt, &app.Ref, &app.SubmissionMethod,
		&app.PDFURL, &app.Stage2PDFURL, &formData)
	if err == sql.ErrNoRows {
		return models.Application{}, err
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to scan application: %w", err)
	}
	app.CreatedAt = time.UnixMilli(createdAt).UTC()
	if app.FormData, err = unmarshalFormData(formData); err != nil {
		return models.Application{}, err
	}
	return app, nil
}

func (s *SQLiteStore) CreateApplication(ctx context.Context, app models.Application) (models.Application, error) {
	if !validArea(app.Area) {
		return models.Application{}, fmt.Errorf("%w: %q", ErrInvalidArea, app.Area)
	}

	ref, err := generateRef(app.Area, func(ref string) (bool, error) {
		var taken bool
		err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM apps WHERE ref = ?)`, ref).Scan(&taken)
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, app.ID, app.UserID, app.ApplicantName, app.OrgName, app.ProjectTitle, app.Area, app.Summary,
		app.AmountRequested, app.TotalCost, app.Status, app.Priority, app.CreatedAt.UnixMilli(),
		app.Ref, app.SubmissionMethod, app.PDFURL, app.Stage2PDFURL, formData)
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to insert application: %w", err)
	}
	return app, nil
}

func (s *SQLiteStore) UpdateApplication(ctx context.Context, id string, patch models.ApplicationPatch) (models.Application, error) {
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
		UPDATE apps SET user_id = ?, applicant_name = ?, org_name = ?, project_title = ?, area = ?,
			summary = ?, amount_requested = ?, total_cost = ?, status = ?, priority = ?,
			submission_method = ?, pdf_url = ?, stage2_pdf_url = ?, form_data = ?
		WHERE id = ?
	`, app.UserID, app.ApplicantName, app.OrgName, app.ProjectTitle, app.Area, app.Summary,
		app.AmountRequested, app.TotalCost, app.Status, app.Priority,
		app.SubmissionMethod, app.PDFURL, app.Stage2PDFURL, formData, app.ID)
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to update application: %w", err)
	}
	return app, nil
}

// DeleteApplication removes the application, then its scores. The two
// steps are separate statements, not one transaction; an interruption
// in between leaves orphaned scores, and both steps are idempotent so
// a repeat call cleans them up.
func (s *SQLiteStore) DeleteApplication(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scores WHERE app_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete application scores: %w", err)
	}
	return nil
}

// Scores

func (s *SQLiteStore) SaveScore(ctx context.Context, sc models.Score) (models.Score, error) {
	// The total is derived state; never trust the caller's value.
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (app_id, scorer_id) DO UPDATE SET
			scorer_name = excluded.scorer_name,
			ratings = excluded.ratings,
			notes = excluded.notes,
			is_final = excluded.is_final,
			total = excluded.total,
			ts = excluded.ts
	`, sc.AppID, sc.ScorerID, sc.ScorerName, ratings, notes, sc.IsFinal, sc.Total, sc.Timestamp.UnixMilli())
	if err != nil {
		return models.Score{}, fmt.Errorf("failed to upsert score: %w", err)
	}
	return sc, nil
}

func (s *SQLiteStore) GetScores(ctx context.Context) ([]models.Score, error) {
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
		var ts int64
		if err := rows.Scan(&sc.AppID, &sc.ScorerID, &sc.ScorerName, &ratings, &notes,
			&sc.IsFinal, &sc.Total, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		sc.Timestamp = time.UnixMilli(ts).UTC()
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

func (s *SQLiteStore) DeleteScore(ctx context.Context, appID, scorerID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM scores WHERE app_id = ? AND scorer_id = ?
	`, appID, scorerID)
	if err != nil {
		return fmt.Errorf("failed to delete score: %w", err)
	}
	return nil
}

// ResetUserScores deletes one scorer's score for one application when
// appID is set, or every score the scorer has written when it is
// empty.
func (s *SQLiteStore) ResetUserScores(ctx context.Context, scorerID, appID string) error {
	if appID != "" {
		return s.DeleteScore(ctx, appID, scorerID)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM scores WHERE scorer_id = ?`, scorerID)
	if err != nil {
		return fmt.Errorf("failed to reset scores: %w", err)
	}
	return nil
}
