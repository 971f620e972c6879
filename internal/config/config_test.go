package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PythProgramID != DefaultPythProgramID {
		t.Fatalf("pyth program id = %q", cfg.PythProgramID)
	}
	if cfg.SerumProgramID != DefaultSerumProgramID {
		t.Fatalf("serum program id = %q", cfg.SerumProgramID)
	}
	if cfg.SwapOutLimitPercentage != 10 {
		t.Fatalf("swap out limit = %d, want 10", cfg.SwapOutLimitPercentage)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint("swap-out-limit", 10, "")
	flags.String("log-level", "info", "")
	flags.String("journal", "", "")
	if err := flags.Parse([]string{"--swap-out-limit=25", "--log-level=debug", "--journal=./trades.jsonl"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SwapOutLimitPercentage != 25 {
		t.Fatalf("swap out limit = %d, want 25", cfg.SwapOutLimitPercentage)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Journal != "./trades.jsonl" {
		t.Fatalf("journal = %q", cfg.Journal)
	}
}

func TestLoadRejectsBadLimit(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint("swap-out-limit", 10, "")
	if err := flags.Parse([]string{"--swap-out-limit=101"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := Load("", flags); err == nil {
		t.Fatal("expected error for limit above 100")
	}
}

func TestKeys(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pyth, serum, sentinel, rewardMint, err := cfg.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if pyth.IsZero() || serum.IsZero() || sentinel.IsZero() {
		t.Fatal("program keys decoded to zero")
	}
	if !rewardMint.IsZero() {
		t.Fatalf("reward mint = %s, want zero default", rewardMint)
	}

	cfg.SentinelReferrer = "not-hex"
	if _, _, _, _, err := cfg.Keys(); err == nil {
		t.Fatal("expected error for invalid hex key")
	}
}
