package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			APIKey: "test-api-key",
		},
		Storage: StorageConfig{
			DatabasePath: "/data/moodgrab.db",
		},
		Worker: WorkerConfig{
			Count: 3,
		},
		Transcript: TranscriptConfig{
			MaxAudioBytes: 25 * 1024 * 1024,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() should pass, got %v", err)
	}
}

func TestConfig_Validate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Server.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing API_KEY")
	}
}

func TestConfig_Validate_MissingDatabasePath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DatabasePath = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing DATABASE_PATH")
	}
}

func TestConfig_Validate_ZeroWorkers(t *testing.T) {
	cfg := validConfig()
	cfg.Worker.Count = 0

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for zero workers")
	}
}

func TestConfig_Validate_OptionalKeysAbsent(t *testing.T) {
	// Speech and LLM API keys are optional: their absence degrades the
	// related features instead of failing startup.
	cfg := validConfig()
	cfg.Transcript.APIKey = ""
	cfg.LLM.APIKey = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() should pass without speech/LLM keys, got %v", err)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// envconfig.Process applies defaults even after YAML load, so only
	// default-free fields (the API keys) survive from the file; the rest
	// is pinned via env vars here.
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("WORKER_COUNT", "5")
	t.Setenv("WORKER_JOB_TIMEOUT", "30s")

	yaml := `
server:
  api_key: yaml-key
llm:
  api_key: yaml-llm-key
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.APIKey != "yaml-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Server.APIKey, "yaml-key")
	}
	if cfg.LLM.APIKey != "yaml-llm-key" {
		t.Errorf("LLM.APIKey = %q, want %q", cfg.LLM.APIKey, "yaml-llm-key")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, 9999)
	}
	if cfg.Worker.Count != 5 {
		t.Errorf("Worker.Count = %d, want %d", cfg.Worker.Count, 5)
	}
	if cfg.Worker.JobTimeout != 30*time.Second {
		t.Errorf("JobTimeout = %v, want %v", cfg.Worker.JobTimeout, 30*time.Second)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  api_key: yaml-key
storage:
  database_path: /tmp/test.db
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override %q", cfg.Server.APIKey, "env-key")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() should fail for missing file")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_KEY", "env-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Worker.Count != 3 {
		t.Errorf("default Worker.Count = %d, want 3", cfg.Worker.Count)
	}
	if cfg.Extract.OEmbedTimeout != 8*time.Second {
		t.Errorf("default OEmbedTimeout = %v, want 8s", cfg.Extract.OEmbedTimeout)
	}
	if cfg.Transcript.MaxAudioBytes != 26214400 {
		t.Errorf("default MaxAudioBytes = %d, want 26214400", cfg.Transcript.MaxAudioBytes)
	}
}
