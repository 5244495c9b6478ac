package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tnr/internal/store"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

// cliEnv is an isolated pair of config and data directories.
type cliEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	for _, name := range []string{
		"TNR_CONFIG_DIR", "TNR_DATA_DIR", "TNR_BACKEND", "TNR_MYSQL_DSN", "TNR_UPLOADS_DIR",
		"TNR_LOG_LEVEL", "TNR_LOG_FORMAT",
	} {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return &cliEnv{t: t, configDir: filepath.Join(dir, "cfg"), dataDir: filepath.Join(dir, "data")}
}

// run executes the root command in-process and returns stdout, stderr and
// the error Execute returned.
func (e *cliEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--config-dir", e.configDir, "--data-dir", e.dataDir))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, errOut, err := e.run(args...)
	require.NoError(e.t, err, "tnr %s\nstderr: %s", strings.Join(args, " "), errOut)
	return out
}

// backend attaches the environment's SQLite database directly.
func (e *cliEnv) backend() *store.Backend {
	e.t.Helper()
	b := store.NewBackend()
	require.NoError(e.t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: e.dataDir}))
	e.t.Cleanup(func() { b.Detach() })
	return b
}

func TestInitCreatesStorage(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun("init")

	assert.Contains(t, out, "tnr initialized in "+env.dataDir)
	assert.FileExists(t, filepath.Join(env.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(env.dataDir, store.DatabaseFileName))

	// init is idempotent
	env.mustRun("init")
}

func TestInitDemoJSON(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun("init", "--demo", "--json")

	var res initResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Demo)
	assert.Equal(t, "Demo web shop", res.Demo.Name)
	assert.Equal(t, defaultDemoEmail, res.DemoUser)
	assert.Equal(t, types.BackendSQLite, res.Backend)

	// A second seed reuses the existing demo owner.
	env.mustRun("init", "--demo")
	projects, err := env.backend().Projects().ListForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestExportCommand(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init", "--demo")

	csvPath := filepath.Join(t.TempDir(), "run.csv")
	out := env.mustRun("export", "--run", "1", "--out", csvPath)
	assert.Contains(t, out, "exported run 1 to "+csvPath)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "\xEF\xBB\xBF#,Browser,Environment,Title"))
	assert.Contains(t, text, "Login with valid credentials")
	assert.NoFileExists(t, csvPath+".tmp")

	pdf := env.mustRun("export", "--run", "1", "--format", "PDF")
	assert.True(t, strings.HasPrefix(pdf, "%PDF-"))

	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"export", "--run", "1", "--format", "xlsx"}},
		{"missing run flag", []string{"export"}},
		{"unknown run", []string{"export", "--run", "99"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run(tt.args...)
			require.Error(t, err)
			assert.Equal(t, exitUserError, ExitCode(err))
		})
	}
}

func TestBackupAndRestore(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init", "--demo")

	backupDir := filepath.Join(t.TempDir(), "backup")
	out := env.mustRun("backup", "--out", backupDir, "--json")
	var dumped backupResult
	require.NoError(t, json.Unmarshal([]byte(out), &dumped))
	assert.Equal(t, 6, dumped.Tables["test_cases"])
	assert.Equal(t, 1, dumped.Tables["test_runs"])
	assert.FileExists(t, filepath.Join(backupDir, store.BackupFile("users")))

	// Restoring over live data is refused.
	_, _, err := env.run("restore", "--from", backupDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotEmpty)
	assert.Equal(t, exitUserError, ExitCode(err))

	fresh := &cliEnv{t: t, configDir: env.configDir, dataDir: filepath.Join(t.TempDir(), "restored")}
	out = fresh.mustRun("restore", "--from", backupDir)
	assert.Contains(t, out, "restored")

	b := fresh.backend()
	p, err := b.Projects().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Demo web shop", p.Name)
	cases, err := b.RunCases().ListByRun(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, cases, 6)
	assert.Equal(t, types.StatusPass, cases[0].Status)
}

func TestUserAdd(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun("user", "add", "--email", "Ana@Example.com", "--name", "Ana", "--password", "secret-password")
	assert.Contains(t, out, "created user ana@example.com")

	tests := []struct {
		name string
		args []string
	}{
		{"duplicate", []string{"user", "add", "--email", "ana@example.com", "--password", "another-password"}},
		{"missing password", []string{"user", "add", "--email", "bob@example.com"}},
		{"short password", []string{"user", "add", "--email", "bob@example.com", "--password", "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run(tt.args...)
			require.Error(t, err)
			assert.Equal(t, exitUserError, ExitCode(err))
		})
	}
}

func TestImportCommand(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init", "--demo")

	csvPath := filepath.Join(t.TempDir(), "cases.csv")
	content := "Title,Steps,Expected,browser,Environment,Owner\n" +
		"Reset password,Click Forgot password,Mail is sent,Chrome,Staging,ana\n" +
		",orphan steps,,,,\n" +
		"Change avatar,Upload an image,Avatar is updated,Safari,,bob\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))

	out := env.mustRun("import", "--project", "1", "--file", csvPath, "--json")
	var res importResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []int{3}, res.Skipped)
	assert.Equal(t, []string{"Owner"}, res.Ignored)

	cases, err := env.backend().TestCases().ListByProject(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cases, 8)
	last := cases[7]
	assert.Equal(t, "Change avatar", last.Title)
	assert.Equal(t, 8, last.CaseNumber)
	assert.Equal(t, "Safari", last.AnalyticalValues.Value(1))
	assert.Equal(t, "", last.AnalyticalValues.Value(2))
	assert.Equal(t, "Staging", cases[6].AnalyticalValues.Value(2))

	_, _, err = env.run("import", "--project", "42", "--file", csvPath)
	require.Error(t, err)
	assert.Equal(t, exitUserError, ExitCode(err))
}

func TestParseCasesCSV(t *testing.T) {
	axes := []*types.Axis{
		{LevelNumber: 1, Label: "Browser"},
		{LevelNumber: 2, Label: "OS"},
	}
	tests := []struct {
		name    string
		input   string
		wantErr bool
		titles  []string
		skipped []int
		ignored []string
	}{
		{
			name:   "bom and mixed case headers",
			input:  "\xEF\xBB\xBFTITLE,Expected_Result,os\nA,ok,Linux\nB,ok,\n",
			titles: []string{"A", "B"},
		},
		{
			name:    "export layout",
			input:   "#,Browser,OS,Title,Steps,Expected,Status\n1,Chrome,Linux,A,s,e,PASS\n",
			titles:  []string{"A"},
			ignored: []string{"Status"},
		},
		{
			name:    "blank titles skipped",
			input:   "Title\n\n  \nC\n",
			titles:  []string{"C"},
			skipped: []int{3},
		},
		{name: "no title column", input: "Steps,Expected\na,b\n", wantErr: true},
		{name: "empty file", input: "", wantErr: true},
		{name: "malformed quotes", input: "Title\n\"unterminated\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases, skipped, ignored, err := parseCasesCSV(strings.NewReader(tt.input), axes)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrInvalidData)
				return
			}
			require.NoError(t, err)
			var titles []string
			for _, c := range cases {
				titles = append(titles, c.Case.Title)
			}
			assert.Equal(t, tt.titles, titles)
			assert.Equal(t, tt.skipped, skipped)
			assert.Equal(t, tt.ignored, ignored)
		})
	}

	cases, _, _, err := parseCasesCSV(strings.NewReader("Title,Browser,OS\nA,Chrome,Linux\n"), axes)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, types.AnalyticalValues{"1": "Chrome", "2": "Linux"}, cases[0].Case.AnalyticalValues)
	assert.Equal(t, 2, cases[0].Line)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"user error", userError(errors.New("bad flag")), exitUserError},
		{"system error", systemError(errors.New("disk full")), exitSysError},
		{"untagged", errors.New("unknown command"), exitUserError},
		{"classified not found", classify(fmt.Errorf("run 9: %w", types.ErrNotFound)), exitUserError},
		{"classified other", classify(errors.New("connection refused")), exitSysError},
		{"classify keeps tag", classify(systemError(types.ErrNotFound)), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun("version")
	assert.Equal(t, "tnr v"+Version+"\nmodule: "+modulePath+"\n", out)

	out = env.mustRun("version", "--json")
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])
}

func TestConfigCommand(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("TNR_GOOGLE_CLIENT_SECRET", "top-secret")
	out := env.mustRun("config")

	var printed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &printed))
	assert.Equal(t, env.dataDir, printed["data_dir"])
	assert.Equal(t, types.BackendSQLite, printed["backend"])
	assert.Equal(t, "168h0m0s", printed["session_ttl"])
	assert.NotContains(t, out, "top-secret")
	assert.Contains(t, out, masked)
}

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"", ""},
		{"tnr:hunter2@tcp(db:3306)/tnr", "tnr:" + masked + "@tcp(db:3306)/tnr"},
		{"tnr@tcp(db:3306)/tnr", "tnr@tcp(db:3306)/tnr"},
		{"not a dsn", masked},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, maskDSN(tt.dsn))
		})
	}
}
