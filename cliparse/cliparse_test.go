package cliparse

import "testing"

func TestParseFlags(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("SEED_DEMO", "")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "sqlite defaults",
			args: []string{"--session-secret", "s3cret"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Port != 3326 {
					t.Errorf("port = %d, want 3326", cfg.Port)
				}
				if cfg.DatabaseType != "sqlite" {
					t.Errorf("type = %q, want sqlite", cfg.DatabaseType)
				}
				if cfg.SQLitePath != "pb-portal.db" {
					t.Errorf("sqlite path = %q", cfg.SQLitePath)
				}
			},
		},
		{
			name: "explicit postgres",
			args: []string{"-t", "postgres", "-d", "postgres://localhost/pb", "-p", "8080", "--session-secret", "s3cret"},
			check: func(t *testing.T, cfg Config) {
				if cfg.DatabaseType != "postgres" || cfg.DatabaseURL != "postgres://localhost/pb" {
					t.Errorf("cfg = %+v", cfg)
				}
				if cfg.Port != 8080 {
					t.Errorf("port = %d, want 8080", cfg.Port)
				}
			},
		},
		{
			name:    "postgres without URL fails",
			args:    []string{"-t", "postgres", "--session-secret", "s3cret"},
			wantErr: true,
		},
		{
			name:    "unknown backend fails",
			args:    []string{"-t", "mongo", "--session-secret", "s3cret"},
			wantErr: true,
		},
		{
			name:    "missing session secret fails",
			args:    []string{},
			wantErr: true,
		},
		{
			name: "seed flag",
			args: []string{"--seed-demo", "--session-secret", "s3cret"},
			check: func(t *testing.T, cfg Config) {
				if !cfg.SeedDemo {
					t.Error("SeedDemo not set")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseFlags(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got cfg %+v", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFlags failed: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestParseFlagsEnvFallback(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://env/pb")
	t.Setenv("SESSION_SECRET", "env-secret")
	t.Setenv("SEED_DEMO", "true")

	cfg, err := ParseFlags(nil)
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.Port != 4000 || cfg.DatabaseType != "postgres" || cfg.DatabaseURL != "postgres://env/pb" {
		t.Errorf("env fallback not applied: %+v", cfg)
	}
	if cfg.SessionSecret != "env-secret" {
		t.Errorf("session secret = %q", cfg.SessionSecret)
	}
	if !cfg.SeedDemo {
		t.Error("SEED_DEMO env not applied")
	}
}
