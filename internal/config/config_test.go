package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	for _, k := range []string{"SEICHAT_OUTPUT", "SEICHAT_BACKEND", "SEICHAT_STORE", "SEICHAT_LLM_API_KEY", "OPENAI_API_KEY", "SEICHAT_ENABLE_INTENTS"} {
		t.Setenv(k, "")
	}
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	tmp := isolate(t)
	settings, err := Load(GlobalFlags{Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Backend != BackendPaper || settings.StoreDriver != "sqlite" || settings.OutputMode != "plain" {
		t.Fatalf("unexpected defaults %+v", settings)
	}
	if settings.StorePath != filepath.Join(tmp, "data", "seichat", "store.db") {
		t.Fatalf("unexpected store path %s", settings.StorePath)
	}
	if settings.SlippageBps != 100 || settings.MaxPriceImpact != 5 || settings.Retries != 2 {
		t.Fatalf("unexpected swap policy %+v", settings)
	}
}

func TestLoadPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	tmp := isolate(t)
	configPath := filepath.Join(tmp, "config.yaml")
	cfg := "output: json\nretries: 1\nchain:\n  backend: evm\n  validator: seivaloper1file\nstore:\n  driver: memory\nlog:\n  level: debug\n"
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SEICHAT_OUTPUT", "json")
	t.Setenv("SEICHAT_VALIDATOR", "seivaloper1env")
	t.Setenv("SEICHAT_TIMEOUT", "3s")
	flags := GlobalFlags{ConfigPath: configPath, Plain: true, Retries: 5, Backend: "paper"}
	settings, err := Load(flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OutputMode != "plain" {
		t.Fatalf("expected flag to win, got output=%s", settings.OutputMode)
	}
	if settings.Retries != 5 {
		t.Fatalf("expected retries from flags, got %d", settings.Retries)
	}
	if settings.Backend != BackendPaper {
		t.Fatalf("expected backend flag to win, got %s", settings.Backend)
	}
	if settings.Validator != "seivaloper1env" {
		t.Fatalf("expected env to beat file, got %s", settings.Validator)
	}
	if settings.StoreDriver != "memory" || settings.LogLevel != "debug" || settings.Timeout != 3*time.Second {
		t.Fatalf("file/env values not applied: %+v", settings)
	}
}

func TestLoadEnableIntents(t *testing.T) {
	isolate(t)
	t.Setenv("SEICHAT_ENABLE_INTENTS", "balance, swap")
	settings, err := Load(GlobalFlags{Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(settings.EnableIntents) != 2 || settings.EnableIntents[1] != "swap" {
		t.Fatalf("unexpected allowlist %v", settings.EnableIntents)
	}

	settings, err = Load(GlobalFlags{Retries: -1, EnableIntents: "send"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(settings.EnableIntents) != 1 || settings.EnableIntents[0] != "send" {
		t.Fatalf("flag should replace env allowlist, got %v", settings.EnableIntents)
	}
}

func TestLoadLLMKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	settings, err := Load(GlobalFlags{Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.LLMAPIKey != "sk-fallback" {
		t.Fatalf("expected OPENAI_API_KEY fallback, got %q", settings.LLMAPIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)
	cases := []GlobalFlags{
		{JSON: true, Plain: true, Retries: -1},
		{Backend: "solana", Retries: -1},
		{Store: "postgres", Retries: -1},
		{Timeout: "soon", Retries: -1},
	}
	for i, flags := range cases {
		if _, err := Load(flags); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, flags)
		}
	}
}
