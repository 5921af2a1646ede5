package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.OCRLanguage != "eng" || cfg.OCRTimeoutMs != 30000 {
		t.Errorf("OCR defaults = (%q, %d)", cfg.OCRLanguage, cfg.OCRTimeoutMs)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d, want 4", cfg.WorkerConcurrency)
	}
	if cfg.DeltaCronSpec != "0 23 * * *" {
		t.Errorf("DeltaCronSpec = %q", cfg.DeltaCronSpec)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid memory backend", mutate: func(c *Config) {}},
		{name: "postgres without url", mutate: func(c *Config) { c.StoreBackend = "postgres" }, wantErr: true},
		{name: "postgres with url", mutate: func(c *Config) {
			c.StoreBackend = "postgres"
			c.DatabaseURL = "postgres://localhost/kpi"
		}},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "sqlite" }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.WorkerConcurrency = 0 }, wantErr: true},
		{name: "ocr timeout too low", mutate: func(c *Config) { c.OCRTimeoutMs = 500 }, wantErr: true},
		{name: "image size too small", mutate: func(c *Config) { c.MaxImageSize = 100 }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				StoreBackend:      "memory",
				WorkerConcurrency: 4,
				OCRTimeoutMs:      30000,
				MaxImageSize:      16 * 1024 * 1024,
			}
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
