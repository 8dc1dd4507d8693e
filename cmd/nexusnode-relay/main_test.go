package main

import (
	"os"
	"testing"
)

func Test_env_or_prefers_env_when_set(t *testing.T) {
	t.Setenv("NEXUSNODE_RELAY_TEST_VAR", "from-env")
	if got := envOr("NEXUSNODE_RELAY_TEST_VAR", "fallback"); got != "from-env" {
		t.Fatalf("got %q, want %q", got, "from-env")
	}
}

func Test_env_or_uses_fallback_when_unset(t *testing.T) {
	os.Unsetenv("NEXUSNODE_RELAY_TEST_VAR_UNSET")
	if got := envOr("NEXUSNODE_RELAY_TEST_VAR_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("got %q, want %q", got, "fallback")
	}
}

// Test_server_flags_default_from_env verifies that --database-url and
// --main-slug default to DATABASE_URL/RELAY_MAIN_SLUG when the flag is not
// passed explicitly, per SPEC_FULL.md §8's "flag > env > default" precedence.
func Test_server_flags_default_from_env(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/db")
	t.Setenv("RELAY_MAIN_SLUG", "env-slug")

	cmd := newServerCmd()
	if err := cmd.Flags().Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	gotURL, err := cmd.Flags().GetString("database-url")
	if err != nil || gotURL != "postgres://env-host/db" {
		t.Fatalf("database-url = %q, err = %v, want env value", gotURL, err)
	}
	gotSlug, err := cmd.Flags().GetString("main-slug")
	if err != nil || gotSlug != "env-slug" {
		t.Fatalf("main-slug = %q, err = %v, want env value", gotSlug, err)
	}
}

// Test_server_flags_explicit_flag_overrides_env verifies the flag wins over
// the env var when both are present.
func Test_server_flags_explicit_flag_overrides_env(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/db")
	t.Setenv("RELAY_MAIN_SLUG", "env-slug")

	cmd := newServerCmd()
	args := []string{"--database-url=postgres://flag-host/db", "--main-slug=flag-slug"}
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}

	gotURL, err := cmd.Flags().GetString("database-url")
	if err != nil || gotURL != "postgres://flag-host/db" {
		t.Fatalf("database-url = %q, err = %v, want flag value", gotURL, err)
	}
	gotSlug, err := cmd.Flags().GetString("main-slug")
	if err != nil || gotSlug != "flag-slug" {
		t.Fatalf("main-slug = %q, err = %v, want flag value", gotSlug, err)
	}
}

// Test_server_flags_default_fallback_when_env_unset verifies --main-slug
// falls back to its hardcoded default when RELAY_MAIN_SLUG is unset.
func Test_server_flags_default_fallback_when_env_unset(t *testing.T) {
	os.Unsetenv("RELAY_MAIN_SLUG")

	cmd := newServerCmd()
	if err := cmd.Flags().Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	gotSlug, err := cmd.Flags().GetString("main-slug")
	if err != nil || gotSlug != "nexusnode" {
		t.Fatalf("main-slug = %q, err = %v, want default %q", gotSlug, err, "nexusnode")
	}
}

// Test_client_token_flag_overrides_env verifies the client's --token flag
// follows the same flag > env > default precedence.
func Test_client_token_flag_overrides_env(t *testing.T) {
	t.Setenv("NEXUS_RELAY_TOKEN", "env-token")

	cmd := newClientCmd()
	if err := cmd.Flags().Parse([]string{"--token=flag-token"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := cmd.Flags().GetString("token")
	if err != nil || got != "flag-token" {
		t.Fatalf("token = %q, err = %v, want flag value", got, err)
	}
}

// Test_client_token_defaults_from_env verifies the client's --token flag
// defaults to NEXUS_RELAY_TOKEN when not passed explicitly.
func Test_client_token_defaults_from_env(t *testing.T) {
	t.Setenv("NEXUS_RELAY_TOKEN", "env-token")

	cmd := newClientCmd()
	if err := cmd.Flags().Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := cmd.Flags().GetString("token")
	if err != nil || got != "env-token" {
		t.Fatalf("token = %q, err = %v, want env value", got, err)
	}
}
