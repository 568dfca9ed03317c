package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/way"
	"github.com/vango-dev/way/internal/config"
	"github.com/vango-dev/way/pkg/reactive"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(reactive.Reset)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseDispatch(t *testing.T) {
	tests := []struct {
		in      string
		id      string
		event   string
		value   string
		hasVal  bool
		wantErr bool
	}{
		{in: "#inc:click", id: "inc", event: "click"},
		{in: "#name:input=Ada", id: "name", event: "input", value: "Ada", hasVal: true},
		{in: "#q:input=a=b", id: "q", event: "input", value: "a=b", hasVal: true},
		{in: "#f:input=", id: "f", event: "input", value: "", hasVal: true},
		{in: "inc:click", wantErr: true},
		{in: "#inc", wantErr: true},
		{in: "#:click", wantErr: true},
		{in: "#inc:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := parseDispatch(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDispatch(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if d.ID != tt.id || d.Event != tt.event {
				t.Errorf("got %+v", d)
			}
			if (d.Value != nil) != tt.hasVal || (d.Value != nil && *d.Value != tt.value) {
				t.Errorf("value = %v, want %q (set %v)", d.Value, tt.value, tt.hasVal)
			}
		})
	}
}

func TestRenderDispatch(t *testing.T) {
	page := writeFile(t, t.TempDir(), "page.html",
		`<div x-data="{count: 1}"><button id="inc" @click="count += 1">+</button><span id="out" x-text="count"></span></div>`)

	out, err := execute(t, "render", page, "--dispatch", "#inc:click", "-d", "#inc:click")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<span id="out" x-text="count">3</span>`) {
		t.Errorf("output = %s", out)
	}
	if strings.Contains(out, "data-hid") {
		t.Error("hydration IDs should only be assigned with --ids")
	}
}

func TestRenderInputValueAndIDs(t *testing.T) {
	page := writeFile(t, t.TempDir(), "page.html",
		`<div x-data="{name: '', agree: false}"><input id="name" x-model="name"><input id="ok" type="checkbox" x-model="agree"><p x-text="name"></p><b x-show="agree">yes</b></div>`)

	out, err := execute(t, "render", page, "-d", "#name:input=Ada", "-d", "#ok:change=true", "--ids")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`<p x-text="name">Ada</p>`, `data-hid="h1"`, `<b x-show="agree">yes</b>`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", `<input id="ok" type="checkbox">`)

	if _, err := execute(t, "render", filepath.Join(dir, "missing.html")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := execute(t, "render", page, "-d", "#nope:click"); err == nil {
		t.Error("unknown id should fail")
	}
	if _, err := execute(t, "render", page, "-d", "#ok:change=maybe"); err == nil {
		t.Error("non-boolean checkbox value should fail")
	}
	if _, err := execute(t, "render", page, "-d", "bad"); err == nil {
		t.Error("malformed dispatch should fail")
	}
}

func TestRenderWithConfig(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html",
		`<h1 x-text="title"></h1><form id="f" x-form="signup"><input name="username" value="ab"></form>`)
	cfgPath := writeFile(t, dir, config.YAMLConfigFileName, `
props:
  title: Demo
forms:
  signup:
    username: required,minlength=4
`)

	out, err := execute(t, "render", page, "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<h1 x-text="title">Demo</h1>`) {
		t.Errorf("output = %s", out)
	}
}

func TestRenderInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", `<p></p>`)
	cfgPath := writeFile(t, dir, config.ConfigFileName, `{"log": {"level": "loud"}}`)

	if _, err := execute(t, "render", page, "--config", cfgPath); err == nil {
		t.Error("invalid log level should fail")
	}
}

func TestServeRejectsMissingPage(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, config.ConfigFileName, `{"server": {"page": "missing.html", "port": 0}}`)

	_, err := execute(t, "serve", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "missing.html") {
		t.Fatalf("serve = %v, want missing page error", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != way.Version {
		t.Errorf("version = %q, want %q", out, way.Version)
	}

	out, err = execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Go version:") {
		t.Errorf("version output = %s", out)
	}
}
