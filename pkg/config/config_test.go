package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
service_name = "protocolfee"

[database]
dsn = "root:password@tcp(127.0.0.1:3306)/pool_settlement"

[protocol_fee]
owner_address = "0xowner"
vault_endpoint = "http://127.0.0.1:8094"
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Fatalf("expected default http port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Logger.Level != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.Logger.Level)
	}
	if cfg.ProtocolFee.FetchBudget != 5000 {
		t.Fatalf("expected default fetch budget 5000, got %d", cfg.ProtocolFee.FetchBudget)
	}
	if cfg.Environment != "dev" {
		t.Fatalf("expected default environment dev, got %s", cfg.Environment)
	}
}

func TestLoad_RequiresOwnerAddress(t *testing.T) {
	content := `
service_name = "protocolfee"

[database]
dsn = "root:password@tcp(127.0.0.1:3306)/pool_settlement"
`
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected validation error for missing owner address")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "9999")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 9999 {
		t.Fatalf("expected env override port 9999, got %d", cfg.HTTP.Port)
	}
}
