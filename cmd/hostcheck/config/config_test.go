package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/spf13/viper"
)

func TestConfigDoc_Load_NotRegularFile(t *testing.T) {
	d := t.TempDir()
	var c ConfigDoc
	if err := c.Load(d); err == nil {
		t.Fatalf("expected error for directory path (not a regular file)")
	}
}

func TestConfigDoc_Load(t *testing.T) {
	p := filepath.Join(t.TempDir(), "hostcheck.yaml")
	yml := `url: https://staging.example.com
db:
  timeout: 4s
client:
  timeout: 7s
  ca_bundle: /etc/ssl/custom.pem
  user_agent: monitor/1.0
  basic_auth:
    user: stage
    password: hunter2
logging:
  level: warn
  format: text
`
	if err := os.WriteFile(p, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	var c ConfigDoc
	if err := c.Load(p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts, err := c.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.URL != "https://staging.example.com" || opts.DBTimeout != 4*time.Second || opts.Client.Timeout != 7*time.Second {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.Client.CABundle != "/etc/ssl/custom.pem" || opts.Client.UserAgent != "monitor/1.0" ||
		opts.Client.BasicAuthUser != "stage" || opts.Client.BasicAuthPassword != "hunter2" {
		t.Fatalf("unexpected client options: %+v", opts.Client)
	}
}

func TestConfigDoc_LoadEmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	var c ConfigDoc
	if err := c.Load(p); err != nil {
		t.Fatalf("an empty file should load, got %v", err)
	}
}

func TestConfigDoc_ApplyOverrides(t *testing.T) {
	v := viper.New()
	v.Set("url", "https://cli.example.com")
	v.Set("client.ca_archive", "/opt/host-check.zip")
	c := ConfigDoc{URL: "https://file.example.com", Client: ClientConfig{Timeout: "9s"}}
	c.ApplyOverrides(v)
	if c.URL != "https://cli.example.com" || c.Client.CAArchive != "/opt/host-check.zip" || c.Client.Timeout != "9s" {
		t.Fatalf("unexpected doc: %+v", c)
	}
}

func TestConfigDoc_OptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  ConfigDoc
		want string
	}{
		{"bad http timeout", ConfigDoc{Client: ClientConfig{Timeout: "fast"}}, "client.timeout"},
		{"negative db timeout", ConfigDoc{DB: DBConfig{Timeout: "-1s"}}, "db.timeout"},
		{"bad tls version", ConfigDoc{Client: ClientConfig{MinTLSVersion: "ssl3"}}, "min_tls_version"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.doc.Options()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}

	opts, err := (&ConfigDoc{Client: ClientConfig{Timeout: " 2s ", MinTLSVersion: "1.3"}}).Options()
	if err != nil || opts.Client.Timeout != 2*time.Second || opts.Client.TLSMinVersion != "1.3" {
		t.Fatalf("trimmed values should parse: %+v %v", opts, err)
	}
}

func TestConfigDoc_SetupLogging(t *testing.T) {
	prev := common.GetLogger()
	t.Cleanup(func() { common.SetDefaultLogger(prev) })

	var buf bytes.Buffer
	c := ConfigDoc{Logging: LoggingConfig{Level: "debug", Format: "json"}}
	if err := c.SetupLogging(&buf); err != nil {
		t.Fatal(err)
	}
	if common.GetLogger().Level() != common.LogLevelDebug {
		t.Fatalf("level not applied")
	}
	if !strings.Contains(buf.String(), `"msg":"logging configured"`) {
		t.Fatalf("expected json output, got %s", buf.String())
	}

	buf.Reset()
	noColor := false
	c = ConfigDoc{Logging: LoggingConfig{Format: "color", Color: &noColor}}
	if err := c.SetupLogging(&buf); err != nil {
		t.Fatal(err)
	}
	common.LogInfo("Loading: /srv/wp")
	if !strings.Contains(buf.String(), `msg="Loading: /srv/wp"`) {
		t.Fatalf("expected plain text output, got %s", buf.String())
	}

	if err := (&ConfigDoc{Logging: LoggingConfig{Level: "loud"}}).SetupLogging(&buf); err == nil {
		t.Fatal("expected invalid level error")
	}
	if err := (&ConfigDoc{Logging: LoggingConfig{Format: "xml"}}).SetupLogging(&buf); err == nil {
		t.Fatal("expected invalid format error")
	}
}
