package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func missing(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func withSecrets(t *testing.T) {
	t.Setenv("SUIAGENT_SEAL__SECRET", "env-secret")
	t.Setenv("SUIAGENT_SEAL__SALT", "env-salt")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		withSecrets(t)

		cfg, err := Load(missing(t))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 8080 {
			t.Errorf("Load() port = %v, want 8080", cfg.Server.Port)
		}
		if cfg.Server.RequestTimeout != 60*time.Second {
			t.Errorf("Load() request timeout = %v, want 60s", cfg.Server.RequestTimeout)
		}
		if cfg.Seal.Iterations != 100_000 || !cfg.Seal.RequireProof {
			t.Errorf("Load() seal = %+v", cfg.Seal)
		}
		if cfg.Blob.Backend != "memory" || cfg.Storage.Type != "memory" {
			t.Errorf("Load() backends = %s/%s, want memory/memory", cfg.Blob.Backend, cfg.Storage.Type)
		}
		if cfg.OpenAI.Model != "gpt-4o-mini" {
			t.Errorf("Load() model = %s", cfg.OpenAI.Model)
		}
	})

	t.Run("env var override", func(t *testing.T) {
		withSecrets(t)
		t.Setenv("SUIAGENT_SERVER__PORT", "9000")
		t.Setenv("SUIAGENT_SEAL__REQUIRE_PROOF", "false")
		t.Setenv("SUIAGENT_OPENAI__MAX_MESSAGE_TOKENS", "128")

		cfg, err := Load(missing(t))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("Load() port = %v, want 9000", cfg.Server.Port)
		}
		if cfg.Seal.RequireProof {
			t.Error("Load() require_proof = true, want false")
		}
		if cfg.OpenAI.MaxMessageTokens != 128 {
			t.Errorf("Load() max tokens = %d, want 128", cfg.OpenAI.MaxMessageTokens)
		}
	})

	t.Run("file with substitution", func(t *testing.T) {
		t.Setenv("TEST_SEAL_SECRET", "file-secret")
		t.Setenv("TEST_OPENAI_KEY", "sk-test")
		path := writeConfig(t, `
server:
  port: 7000
  api_keys:
    - key_hash: abc123
      description: wallet
openai:
  api_key: ${TEST_OPENAI_KEY}
seal:
  secret: ${TEST_SEAL_SECRET}
  salt: fixed-salt
blob:
  backend: s3
  s3:
    bucket: contacts
    prefix: book/
storage:
  type: sqlite
  sqlite:
    path: /tmp/refs.db
`)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 7000 || len(cfg.Server.APIKeys) != 1 || cfg.Server.APIKeys[0].KeyHash != "abc123" {
			t.Errorf("Load() server = %+v", cfg.Server)
		}
		if cfg.OpenAI.APIKey != "sk-test" {
			t.Errorf("Load() api key = %q, want substituted value", cfg.OpenAI.APIKey)
		}
		if cfg.Seal.Secret != "file-secret" || cfg.Seal.Salt != "fixed-salt" {
			t.Errorf("Load() seal = %+v", cfg.Seal)
		}
		if cfg.Blob.S3.Bucket != "contacts" || cfg.Storage.SQLite.Path != "/tmp/refs.db" {
			t.Errorf("Load() blob/storage = %+v %+v", cfg.Blob, cfg.Storage)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		withSecrets(t)
		t.Setenv("SUIAGENT_SERVER__PORT", "9100")
		path := writeConfig(t, "server:\n  port: 7000\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 9100 {
			t.Errorf("Load() port = %v, want 9100", cfg.Server.Port)
		}
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "missing secret",
			env:     map[string]string{"SUIAGENT_SEAL__SALT": "salt"},
			wantErr: ErrMissingSecret,
		},
		{
			name:    "missing salt",
			env:     map[string]string{"SUIAGENT_SEAL__SECRET": "secret"},
			wantErr: ErrMissingSecret,
		},
		{
			name:    "secret references unset variable",
			env:     map[string]string{"SUIAGENT_SEAL__SECRET": "${UNSET_SEAL_SECRET}", "SUIAGENT_SEAL__SALT": "salt"},
			wantErr: ErrMissingSecret,
		},
		{
			name: "unknown blob backend",
			env:  map[string]string{"SUIAGENT_SEAL__SECRET": "s", "SUIAGENT_SEAL__SALT": "salt", "SUIAGENT_BLOB__BACKEND": "ipfs"},
		},
		{
			name: "s3 without bucket",
			env:  map[string]string{"SUIAGENT_SEAL__SECRET": "s", "SUIAGENT_SEAL__SALT": "salt", "SUIAGENT_BLOB__BACKEND": "s3"},
		},
		{
			name: "unknown storage type",
			env:  map[string]string{"SUIAGENT_SEAL__SECRET": "s", "SUIAGENT_SEAL__SALT": "salt", "SUIAGENT_STORAGE__TYPE": "postgres"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(missing(t))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
