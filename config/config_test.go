package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"LAB_ADDR", "REDIS_DB", "QUOTE_TTL", "SWEEP_BAND_PCT", "SWEEP_STEP"} {
		t.Setenv(k, "")
	}

	c := Load()
	if c.LabAddr != ":8080" {
		t.Errorf("LabAddr: got %q", c.LabAddr)
	}
	if c.RedisDB != 0 {
		t.Errorf("RedisDB: got %d", c.RedisDB)
	}
	if c.QuoteTTL != time.Minute {
		t.Errorf("QuoteTTL: got %s", c.QuoteTTL)
	}
	if c.SweepBandPct.String() != "20" || c.SweepStep.String() != "1" {
		t.Errorf("sweep: got band=%s step=%s", c.SweepBandPct, c.SweepStep)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LAB_ADDR", ":9999")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("QUOTE_TTL", "15s")
	t.Setenv("SWEEP_STEP", "0.5")
	t.Setenv("ALERT_WEBHOOK_URL", "http://hooks.local/lab")

	c := Load()
	if c.LabAddr != ":9999" || c.RedisDB != 3 || c.QuoteTTL != 15*time.Second {
		t.Fatalf("got %+v", c)
	}
	if c.SweepStep.String() != "0.5" {
		t.Errorf("SweepStep: got %s", c.SweepStep)
	}
	if c.AlertWebhookURL != "http://hooks.local/lab" {
		t.Errorf("AlertWebhookURL: got %q", c.AlertWebhookURL)
	}
}

func TestLoad_InvalidFallsBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REDIS_DB", "two")
	t.Setenv("QUOTE_TTL", "-5s")
	t.Setenv("SWEEP_BAND_PCT", "abc")

	c := Load()
	if c.RedisDB != 0 || c.QuoteTTL != time.Minute || c.SweepBandPct.String() != "20" {
		t.Fatalf("expected defaults, got db=%d ttl=%s band=%s", c.RedisDB, c.QuoteTTL, c.SweepBandPct)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("SQLITE_PATH", "")
	os.Unsetenv("SQLITE_PATH")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SQLITE_PATH=/tmp/from-dotenv.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := Load()
	if c.SQLitePath != "/tmp/from-dotenv.db" {
		t.Fatalf("SQLitePath: got %q", c.SQLitePath)
	}
}
