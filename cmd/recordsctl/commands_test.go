package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"support-chat/internal/records"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, dir string) {
	t.Helper()
	s := records.NewStore(dir)
	ctx := context.Background()
	if _, err := s.SaveChatMessage(ctx, records.NewChatMessage{MessageID: "m1", Role: records.RoleAssistant, Content: "hi"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.SaveSurveyResponse(ctx, records.NewSurveyResponse{MessageID: "m1", Rating: records.RatingBad}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)

	out, err := run(t, "stats", "--data-dir", dir)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var decoded struct {
		Chat   records.ChatStats   `json:"chat"`
		Survey records.SurveyStats `json:"survey"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if decoded.Chat.AssistantMessages != 1 || decoded.Chat.BadRatings != 1 || decoded.Survey.Total != 1 {
		t.Fatalf("unexpected stats: %+v", decoded)
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)
	db := filepath.Join(t.TempDir(), "out.db")

	out, err := run(t, "export", "--data-dir", dir, "--db", db)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "exported 1 messages, 0 sessions, 1 survey responses") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func unsetDataDir(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_DIR", "")
	os.Unsetenv("DATA_DIR")
}

func TestDataDirFromEnvFile(t *testing.T) {
	unsetDataDir(t)
	dir := t.TempDir()
	seed(t, dir)
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("DATA_DIR="+dir+"\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}

	out, err := run(t, "stats", "--env-file", envPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if dataDir != dir {
		t.Fatalf("data dir = %q, want %q", dataDir, dir)
	}
	if !strings.Contains(out, `"assistantMessages": 1`) {
		t.Fatalf("stats did not read the seeded store: %s", out)
	}
}

func TestDataDirFlagOverridesEnv(t *testing.T) {
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "from-env"))
	dir := t.TempDir()
	seed(t, dir)

	if _, err := run(t, "stats", "--data-dir", dir, "--env-file", filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if dataDir != dir {
		t.Fatalf("data dir = %q, want %q", dataDir, dir)
	}
}
