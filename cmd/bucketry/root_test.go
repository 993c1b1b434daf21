package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zoobzio/bucketry"
	"github.com/zoobzio/bucketry/internal/config"
	"github.com/zoobzio/bucketry/internal/logger"
)

// run executes the CLI with LOCAL_GCS set to local and returns stdout.
func run(t *testing.T, local bool, stdin string, args ...string) (string, error) {
	t.Helper()
	v := config.New()
	if local {
		v.Set(bucketry.LocalDiskEnv, "1")
	} else {
		v.Set(bucketry.LocalDiskEnv, "0")
	}

	var out, errOut bytes.Buffer
	cmd := newRootCmd(v)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestBucketsCmd(t *testing.T) {
	out, err := run(t, false, "", "buckets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected header plus 6 buckets, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "BUCKET") {
		t.Errorf("header: got %q", lines[0])
	}
	if fields := strings.Fields(lines[5]); len(fields) != 3 || fields[0] != "biomes-bikkie" || fields[1] != "-" || fields[2] != "biomes42.appspot.com" {
		t.Errorf("biomes-bikkie row: got %q", lines[5])
	}
}

func TestURLCmd(t *testing.T) {
	tests := []struct {
		name  string
		local bool
		args  []string
		want  string
	}{
		{"cdn", false, []string{"url", "biomes-social", "/a.png"}, "https://social.biomes.us.to/a.png"},
		{"no cdn", false, []string{"url", "--no-cdn", "biomes-social", "a.png"}, "https://storage.cloud.google.com/biomes-social.appspot.com/a.png"},
		{"unknown bucket", false, []string{"url", "other", "x"}, "https://storage.cloud.google.com/other/x"},
		{"local", true, []string{"url", "biomes-social", "a.png"}, "/buckets/biomes-social/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.local, "", tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalPathCmd(t *testing.T) {
	out, err := run(t, true, "", "local-path", "biomes-static", "/img/a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out); got != "./public/buckets/biomes-static/img/a.png" {
		t.Errorf("got %q", got)
	}

	if _, err := run(t, true, "", "local-path", "nope", "a.png"); err == nil {
		t.Error("expected unregistered bucket to fail")
	}
}

func TestRealNameCmd(t *testing.T) {
	out, err := run(t, false, "", "real-name", "biomes-bikkie")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out); got != "biomes42.appspot.com" {
		t.Errorf("got %q", got)
	}
}

func TestValidateCmd(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, err := run(t, false, `{"bucket":"biomes-static","webp_320w":"https://x","extra":1}`, "validate", "bucketed-image", "-")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if got["bucket"] != "biomes-static" || got["webp_320w"] != "https://x" {
			t.Errorf("got %v", got)
		}
		if _, ok := got["extra"]; ok {
			t.Error("unknown key should be stripped")
		}
	})

	t.Run("strict", func(t *testing.T) {
		_, err := run(t, false, `{"bucket":"biomes-static","extra":1}`, "validate", "--strict", "bucketed-image", "-")
		if err == nil || !strings.Contains(err.Error(), "unrecognized key") {
			t.Errorf("expected unrecognized key error, got %v", err)
		}
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := run(t, false, `{}`, "validate", "bucketed-image", "-")
		if err == nil {
			t.Error("expected missing bucket to fail")
		}
	})

	t.Run("unknown schema", func(t *testing.T) {
		_, err := run(t, false, `{}`, "validate", "nope", "-")
		if err == nil || !strings.Contains(err.Error(), "unknown schema") {
			t.Errorf("got %v", err)
		}
	})

	t.Run("file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "urls.json")
		if err := os.WriteFile(file, []byte(`{"fallback":"https://f"}`), 0o644); err != nil {
			t.Fatal(err)
		}
		out, err := run(t, false, "", "validate", "image-urls", file)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, `"fallback": "https://f"`) {
			t.Errorf("got %s", out)
		}
	})
}

func TestUploadFetchCmd_Local(t *testing.T) {
	dir := t.TempDir()
	public := filepath.Join(dir, "public")
	src := filepath.Join(dir, "a.webp")
	if err := os.WriteFile(src, []byte("webp-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, true, "", "upload", "--public-dir", public, "--slot", "webp_640w="+src, "biomes-static", "pics/1")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	var urls map[string]any
	if err := json.Unmarshal([]byte(out), &urls); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if urls["webp_640w"] != "/buckets/biomes-static/pics/1/webp_640w.webp" {
		t.Errorf("upload output: got %v", urls)
	}
	if _, err := os.Stat(filepath.Join(public, "buckets", "biomes-static", "pics", "1", "webp_640w.webp")); err != nil {
		t.Errorf("slot not written to public dir: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	out, err = run(t, true, "", "fetch", "--public-dir", public, "-o", outDir, "biomes-static", "pics/1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	want := filepath.Join(outDir, "webp_640w.webp")
	if strings.TrimSpace(out) != want {
		t.Errorf("fetch output: got %q", out)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "webp-bytes" {
		t.Errorf("fetched file: got %q, %v", data, err)
	}
}

func TestUploadCmd_BadSlots(t *testing.T) {
	for name, args := range map[string][]string{
		"no slots":     {"upload", "biomes-static", "p"},
		"bad pair":     {"upload", "--slot", "webp_640w", "biomes-static", "p"},
		"unknown slot": {"upload", "--slot", "jpeg=x", "biomes-static", "p"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, true, "", args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

type countingCloser struct {
	calls int
	err   error
}

func (c *countingCloser) Close() error {
	c.calls++
	return c.err
}

func TestAppCloser(t *testing.T) {
	var logs bytes.Buffer
	a := &app{log: logger.New(&logs, "info", "json")}

	c := &countingCloser{err: errors.New("already closed")}
	release := a.closer(c)
	release()
	release()

	if c.calls != 1 {
		t.Errorf("expected one Close, got %d", c.calls)
	}
	if !strings.Contains(logs.String(), "already closed") {
		t.Errorf("expected close error to be logged, got %q", logs.String())
	}
}
