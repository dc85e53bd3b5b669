package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Browser.Stealth != "headless" || cfg.Browser.XvfbDisplay != ":99" {
		t.Fatalf("browser defaults = %+v", cfg.Browser)
	}
	if cfg.Browser.RecycleInterval != 4*time.Hour || cfg.Browser.MemoryLimit != 1<<30 {
		t.Fatalf("browser limits = %+v", cfg.Browser)
	}
	if cfg.Capture.NavigateTimeout != 30*time.Second || cfg.Capture.DecodeTimeout != 10*time.Second {
		t.Fatalf("capture timeouts = %+v", cfg.Capture)
	}
	if cfg.Capture.DefaultSelector != "body" || cfg.Capture.AllowPrivate {
		t.Fatalf("capture defaults = %+v", cfg.Capture)
	}
	if cfg.HTTP.Addr != ":8088" || cfg.HTTP.MaxBody != 65536 {
		t.Fatalf("http defaults = %+v", cfg.HTTP)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domsvg.yaml")
	data := `
browser:
  remote: ws://127.0.0.1:9222/devtools/browser/x
  stealth: headful
  recycle_interval: 1h
  resource_blocking: [fonts, media]
capture:
  decode_timeout: 2s
  default_selector: "#main"
  allow_private: true
http:
  addr: "127.0.0.1:9000"
sinks:
  - type: stdout
  - type: webhook
    url: https://hooks.example.com/snap
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Browser.Remote == "" || cfg.Browser.Stealth != "headful" || cfg.Browser.RecycleInterval != time.Hour {
		t.Fatalf("browser = %+v", cfg.Browser)
	}
	if len(cfg.Browser.ResourceBlocking) != 2 {
		t.Fatalf("resource_blocking = %v", cfg.Browser.ResourceBlocking)
	}
	if cfg.Capture.DecodeTimeout != 2*time.Second || cfg.Capture.DefaultSelector != "#main" || !cfg.Capture.AllowPrivate {
		t.Fatalf("capture = %+v", cfg.Capture)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].URL != "https://hooks.example.com/snap" {
		t.Fatalf("sinks = %+v", cfg.Sinks)
	}
	// Unset fields still get defaults.
	if cfg.Capture.NavigateTimeout != 30*time.Second || cfg.HTTP.MaxBody != 65536 {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Capture, cfg.HTTP)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"yaml":     "browser: [",
		"stealth":  "browser: {stealth: invisible}",
		"blocking": "browser: {resource_blocking: [scripts]}",
		"sink":     "sinks: [{type: nats}]",
		"webhook":  "sinks: [{type: webhook}]",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil || !strings.HasPrefix(err.Error(), "config:") {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
