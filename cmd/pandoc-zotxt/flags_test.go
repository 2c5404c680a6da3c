package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/matsen/pandoc-zotxt/internal/config"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so rootCmd can be executed
// again within one test binary.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("resetting --%s: %v", f.Name, err)
		}
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	rootCmd.Flags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

// writeConfigFile writes config.yml under the XDG_CONFIG_HOME set by setupEnv.
func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path := config.GlobalConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// executeConfig runs "pandoc-zotxt config <args>" and decodes the effective
// configuration it prints.
func executeConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	resetFlags(t)
	t.Cleanup(func() { resetFlags(t) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"config"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("decoding config output %q: %v", out.String(), err)
	}
	return &cfg, nil
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	flagDir := t.TempDir()

	tests := []struct {
		name  string
		env   map[string]string
		args  []string
		check func(*config.Config) bool
	}{
		{
			name:  "zotxt-url",
			env:   map[string]string{config.EnvZotxtURL: "http://127.0.0.1:1/zotxt"},
			args:  []string{"--zotxt-url", "http://127.0.0.1:2/zotxt"},
			check: func(c *config.Config) bool { return c.ZotxtURL == "http://127.0.0.1:2/zotxt" },
		},
		{
			name:  "timeout",
			env:   map[string]string{config.EnvTimeout: "30s"},
			args:  []string{"--timeout", "5s"},
			check: func(c *config.Config) bool { return c.Timeout == "5s" },
		},
		{
			name:  "workers",
			env:   map[string]string{config.EnvWorkers: "8"},
			args:  []string{"--workers", "2"},
			check: func(c *config.Config) bool { return c.Workers == 2 },
		},
		{
			name:  "artifact-dir",
			env:   map[string]string{config.EnvArtifactDir: t.TempDir()},
			args:  []string{"--artifact-dir", flagDir},
			check: func(c *config.Config) bool { return c.ArtifactDir == flagDir },
		},
		{
			name:  "log-level",
			env:   map[string]string{config.EnvLogLevel: "error"},
			args:  []string{"--log-level", "debug"},
			check: func(c *config.Config) bool { return c.LogLevel == "debug" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := executeConfig(t, tt.args...)
			if err != nil {
				t.Fatalf("config %v: %v", tt.args, err)
			}
			if !tt.check(cfg) {
				t.Errorf("flag %v did not win over env %v: got %+v", tt.args, tt.env, cfg)
			}
		})
	}
}

func TestFlagsFixInvalidEnvironment(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"zotxt-url", map[string]string{config.EnvZotxtURL: "not a url"}, []string{"--zotxt-url", "http://127.0.0.1:2/zotxt"}},
		{"timeout", map[string]string{config.EnvTimeout: "bogus"}, []string{"--timeout", "5s"}},
		{"workers", map[string]string{config.EnvWorkers: "many"}, []string{"--workers", "2"}},
		{"artifact-dir", map[string]string{config.EnvArtifactDir: "/nonexistent/artifacts"}, []string{"--artifact-dir", t.TempDir()}},
		{"log-level", map[string]string{config.EnvLogLevel: "loud"}, []string{"--log-level", "info"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := executeConfig(t); exitCodeFor(err) != ExitConfigError {
				t.Fatalf("without flag: exit code = %d, want %d (err: %v)", exitCodeFor(err), ExitConfigError, err)
			}

			config.ResetCache()
			if _, err := executeConfig(t, tt.args...); err != nil {
				t.Errorf("config %v with env %v: %v", tt.args, tt.env, err)
			}
		})
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	setupEnv(t)
	writeConfigFile(t, "timeout: 30s\nworkers: 6\n")
	t.Setenv(config.EnvTimeout, "7s")

	cfg, err := executeConfig(t)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != "7s" {
		t.Errorf("timeout = %q, want env value 7s", cfg.Timeout)
	}
	if cfg.Workers != 6 {
		t.Errorf("workers = %d, want file value 6", cfg.Workers)
	}

	config.ResetCache()
	cfg, err = executeConfig(t, "--timeout", "3s")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != "3s" {
		t.Errorf("timeout = %q, want flag value 3s", cfg.Timeout)
	}
}
