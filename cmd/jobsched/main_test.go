package main

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("jobsched %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestRunCommand(t *testing.T) {
	out := execute(t, "run",
		"--groups", "0b01:2,0b10:1",
		"--queue-capacity", "8",
		"--jobs", "5",
		"--job-type", "0b01",
		"--work", "0s",
		"--log-level", "error",
	)

	if !strings.Contains(out, "placement before start: [3 2 0]") {
		t.Fatalf("unexpected placement in output:\n%s", out)
	}
	if !strings.Contains(out, "executed=5 dropped=0 failed=0") {
		t.Fatalf("unexpected totals in output:\n%s", out)
	}
}

func TestRunCommandEngineLogging(t *testing.T) {
	var stdlog bytes.Buffer
	log.SetOutput(&stdlog)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	args := []string{"run", "--groups", "1:1", "--jobs", "1", "--work", "0s", "--log-format", "json"}

	tests := []struct {
		level   string
		visible bool
	}{
		{"error", false},
		{"info", true},
	}
	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			stdlog.Reset()
			out := execute(t, append(args, "--log-level", tc.level)...)

			if got := strings.Contains(out, `"msg":"scheduler started"`); got != tc.visible {
				t.Fatalf("engine info line visible=%t; want %t\n%s", got, tc.visible, out)
			}
			if stdlog.Len() != 0 {
				t.Fatalf("engine logged through the standard logger:\n%s", stdlog.String())
			}
		})
	}
}

func TestRunCommandRejectsBadConfig(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"run", "--full-policy", "block"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for an unknown full policy")
	}
}

func TestVersionCommand(t *testing.T) {
	if out := execute(t, "version"); strings.TrimSpace(out) != version {
		t.Fatalf("version output = %q; want %q", out, version)
	}
}
