// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/danielhkuo/pb-portal/cliparse"
	"github.com/danielhkuo/pb-portal/models"
)

// Typed error taxonomy. Callers branch on these with errors.Is.
var (
	ErrNotFound           = errors.New("record not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProfileMissing     = errors.New("credentials valid but profile record missing")
	ErrNotSupported       = errors.New("operation not supported in this configuration")
	ErrInvalidTransition  = errors.New("illegal status transition")
	ErrInvalidArea        = errors.New("unknown area")
)

// Store is the durable-storage contract for users, applications,
// scores, and portal settings. Two interchangeable backends implement
// it: a networked Postgres store and a local SQLite store. Each call
// is independently atomic at single-record granularity; there are no
// multi-record transactions (DeleteApplication's cascade is two
// sequential steps).
type Store interface {
	// Settings. GetPortalSettings creates the default singleton on
	// first access and falls back to defaults on read failure rather
	// than surfacing an error.
	GetPortalSettings(ctx context.Context) (models.PortalSettings, error)
	UpdatePortalSettings(ctx context.Context, s models.PortalSettings) error

	// Identity & auth. Login distinguishes bad credentials
	// (ErrInvalidCredentials) from a valid credential whose profile
	// record is missing (ErrProfileMissing). AdminCreateUser returns
	// ErrNotSupported on backends whose auth subsystem only supports
	// self-registration.
	Login(ctx context.Context, identifier, password string) (models.User, error)
	Register(ctx context.Context, email, password, displayName string) (models.User, error)
	UpdateUserProfile(ctx context.Context, id string, patch models.UserPatch) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u models.User) error
	DeleteUser(ctx context.Context, id string) error
	AdminCreateUser(ctx context.Context, u models.User, password string) (models.User, error)

	// Applications. GetApplications("") and GetApplications("All")
	// return everything; any other filter also matches Cross-Area.
	GetApplications(ctx context.Context, areaFilter string) ([]models.Application, error)
	GetApplication(ctx context.Context, id string) (models.Application, error)
	CreateApplication(ctx context.Context, app models.Application) (models.Application, error)
	UpdateApplication(ctx context.Context, id string, patch models.ApplicationPatch) (models.Application, error)
	DeleteApplication(ctx context.Context, id string) error

	// Scores. SaveScore upserts on (AppID, ScorerID) and recomputes
	// Total from the ratings before persisting.
	SaveScore(ctx context.Context, s models.Score) (models.Score, error)
	GetScores(ctx context.Context) ([]models.Score, error)
	DeleteScore(ctx context.Context, appID, scorerID string) error
	ResetUserScores(ctx context.Context, scorerID, appID string) error

	Close() error
}

// Open selects and opens the backend named by the configuration.
func Open(cfg cliparse.Config) (Store, error) {
	switch cfg.DatabaseType {
	case "postgres":
		return OpenPostgres(cfg.DatabaseURL)
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, cfg.SeedDemo)
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
	}
}

// validArea reports whether area is one of the fixed areas or the
// cross-area designator.
func validArea(area string) bool {
	if area == models.AreaCross {
		return true
	}
	for _, a := range models.Areas {
		if a == area {
			return true
		}
	}
	return false
}

// newRef builds a reference code: PB-<first three letters of the area,
// upper-cased>-<3-digit number>. Not unique by construction; callers
// retry against the stored set a bounded number of times.
func newRef(area string) string {
	code := strings.ToUpper(area[:3])
	return fmt.Sprintf("PB-%s-%d", code, 100+rand.IntN(900))
}

// refAttempts bounds the collision-retry loop in generateRef.
const refAttempts = 5

// generateRef draws reference codes until one is unused or the retry
// budget runs out. exists checks the stored set; the last candidate is
// accepted on exhaustion, so a collision after five draws is tolerated
// rather than failing the submission.
func generateRef(area string, exists func(ref string) (bool, error)) (string, error) {
	ref := newRef(area)
	for i := 0; i < refAttempts; i++ {
		taken, err := exists(ref)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
		ref = newRef(area)
	}
	return ref, nil
}

// filterApplications applies the area visibility rule: no filter (or
// the "All" sentinel) passes everything, any concrete filter passes
// its own area plus Cross-Area applications.
func filterApplications(apps []models.Application, area string) []models.Application {
	if area == "" || area == "All" {
		return apps
	}
	out := make([]models.Application, 0, len(apps))
	for _, a := range apps {
		if a.Area == area || a.Area == models.AreaCross {
			out = append(out, a)
		}
	}
	return out
}

// checkStatusPatch validates a status change against the workflow
// graph. The admin override skips the graph check, not the check that
// the status is a known state.
func checkStatusPatch(current string, patch models.ApplicationPatch) error {
	if patch.Status == nil {
		return nil
	}
	if !models.ValidStatus(*patch.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, *patch.Status)
	}
	if patch.ForceStatus {
		return nil
	}
	if !models.CanTransition(current, *patch.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, *patch.Status)
	}
	return nil
}

// JSON column helpers shared by both backends.

func marshalFormData(fd *models.FormData) ([]byte, error) {
	if fd == nil {
		return nil, nil
	}
	b, err := json.Marshal(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode form data: %w", err)
	}
	return b, nil
}

func unmarshalFormData(b []byte) (*models.FormData, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var fd models.FormData
	if err := json.Unmarshal(b, &fd); err != nil {
		return nil, fmt.Errorf("failed to decode form data: %w", err)
	}
	return &fd, nil
}

func marshalMap[V int | string](m map[string]V) ([]byte, error) {
	if m == nil {
		m = map[string]V{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode map column: %w", err)
	}
	return b, nil
}

func unmarshalMap[V int | string](b []byte) (map[string]V, error) {
	m := map[string]V{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode map column: %w", err)
	}
	return m, nil
}
