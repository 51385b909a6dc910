package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pimenu-ng/internal/menu"
)

const sampleMenu = `
- name: tools
  label: Tools
  items:
    - name: uptime
      label: Uptime
    - name: ping
      label: Ping
      command: ping -c 3 127.0.0.1
- name: reboot
  label: Reboot
  command: sudo reboot
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck_PrintsLayout(t *testing.T) {
	menuPath := writeFile(t, t.TempDir(), "pimenu.yaml", sampleMenu)

	out, err := execute(t, "check", "--menu", menuPath)
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	want := strings.Join([]string{
		menuPath + ": ok",
		"/: 2 tiles, 1x2",
		"/tools: 3 tiles, 1x3",
		"  tools/uptime -> tools uptime",
		"  tools/ping -> ping -c 3 127.0.0.1",
		"  reboot -> sudo reboot",
		"",
	}, "\n")
	if out != want {
		t.Fatalf("output=\n%s\nwant\n%s", out, want)
	}
}

func TestCheck_UsesMenuFromSettings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kiosk.yaml", sampleMenu)
	settings := writeFile(t, dir, "settings.yaml", "menu: kiosk.yaml\n")

	out, err := execute(t, "check", "--config", settings)
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if !strings.HasPrefix(out, filepath.Join(dir, "kiosk.yaml")+": ok\n") {
		t.Fatalf("output=%q", out)
	}
}

func TestCheck_InvalidMenu(t *testing.T) {
	menuPath := writeFile(t, t.TempDir(), "pimenu.yaml", "- name: a\n")

	_, err := execute(t, "check", "--menu", menuPath)
	var ce *menu.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err=%v want *menu.ConfigError", err)
	}
	if got, want := ce.Err.Error(), "menu[0].label is required"; got != want {
		t.Fatalf("err=%q want %q", got, want)
	}
}

func TestCheck_BadSettings(t *testing.T) {
	settings := writeFile(t, t.TempDir(), "settings.yaml", "menu: x.yaml\nbogus: 1\n")

	_, err := execute(t, "check", "--config", settings)
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("err=%v want config load failure", err)
	}
}

func TestSettings_FlagOverrides(t *testing.T) {
	f := &flags{menuPath: "/srv/menu.yaml", logPath: "/var/log/pimenu.log", fullscreen: true, verbose: true}
	cfg, err := f.settings()
	if err != nil {
		t.Fatalf("settings error: %v", err)
	}
	if cfg.Menu != "/srv/menu.yaml" || cfg.Log.Path != "/var/log/pimenu.log" || !cfg.Fullscreen || !cfg.Log.Verbose {
		t.Fatalf("cfg=%+v", cfg)
	}
	if !cfg.Watch.Enable {
		t.Fatalf("watch should default to enabled")
	}
}
