package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliEnv runs commands against a fresh data directory.
type cliEnv struct {
	t   *testing.T
	dir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("GAITDOC_DATA_DIR", dir)
	t.Setenv("GAITDOC_LOG_LEVEL", "error")
	t.Chdir(dir)
	return &cliEnv{t: t, dir: dir}
}

func (e *cliEnv) run(args ...string) (stdout, stderr string, code int) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	code = Execute(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

// mustRun fails the test unless the command exits 0.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, code := e.run(args...)
	require.Equal(e.t, ExitSuccess, code, "gaitdoc %s\nstdout: %s\nstderr: %s", strings.Join(args, " "), stdout, stderr)
	return stdout
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, stdout string) envelope {
	t.Helper()
	var env envelope
	dec := json.NewDecoder(strings.NewReader(stdout))
	require.NoError(t, dec.Decode(&env), stdout)
	assert.False(t, dec.More(), "expected exactly one JSON document: %s", stdout)
	return env
}

func (e *cliEnv) addJane() {
	e.t.Helper()
	e.mustRun("patient", "add", "--code", "G-001", "--first-name", "Jane", "--last-name", "Smith",
		"--birth-date", "2000-06-15", "--diagnosis", "Cerebral palsy")
}

func TestPatientCommands_Lifecycle(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("--format", "json", "patient", "add", "--first-name", "Jane", "--last-name", "Smith", "--birth-date", "2000-06-15")
	resp := decodeEnvelope(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, string(resp.Data), `"id":1`)

	out = env.mustRun("patient", "update", "1", "--diagnosis", "Hemiparesis", "--city", "Köln")
	assert.Equal(t, "Updated patient 1: Smith, Jane\n", out)

	out = env.mustRun("patient", "show", "1")
	assert.Contains(t, out, "Hemiparesis")
	assert.Contains(t, out, "Köln")
	assert.Contains(t, out, "2000-06-15")

	out = env.mustRun("patient", "search", "SMI")
	assert.Contains(t, out, "Smith, Jane")
	assert.Contains(t, out, "1 patient(s)")

	out = env.mustRun("patient", "delete", "1")
	assert.Equal(t, "Deleted patient 1\n", out)

	_, stderr, code := env.run("patient", "show", "1")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [NOT_FOUND]")
}

func TestPatientAdd_ValidationError(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, code := env.run("--format", "json", "patient", "add", "--first-name", "Jane", "--birth-date", "2000-06-15")
	assert.Equal(t, ExitFailure, code)

	resp := decodeEnvelope(t, stdout)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "last_name")
}

func TestPatientAdd_MalformedDate(t *testing.T) {
	env := newCLIEnv(t)

	_, stderr, code := env.run("patient", "add", "--first-name", "Jane", "--last-name", "Smith", "--birth-date", "15.06.2000")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [VALIDATION]")
	assert.Contains(t, stderr, "YYYY-MM-DD")
}

func TestPatientShow_InvalidID(t *testing.T) {
	env := newCLIEnv(t)

	_, stderr, code := env.run("patient", "show", "abc")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [INVALID_INPUT]")
}

func TestPatientSearch_Criteria(t *testing.T) {
	env := newCLIEnv(t)
	env.addJane()
	env.mustRun("patient", "add", "--first-name", "Luis", "--last-name", "Álvarez", "--birth-date", "1985-02-28", "--diagnosis", "Hemiparesis", "--zip", "10115")

	out := env.mustRun("--format", "json", "patient", "search")
	var all struct {
		Data []struct {
			LastName string `json:"last_name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	require.Len(t, all.Data, 2)
	assert.Equal(t, "Álvarez", all.Data[0].LastName)
	assert.Equal(t, "Smith", all.Data[1].LastName)

	out = env.mustRun("patient", "search", "--field", "diagnosis", "PALSY")
	assert.Contains(t, out, "Smith, Jane")
	assert.NotContains(t, out, "Álvarez")

	out = env.mustRun("patient", "search", "--field", "patient_id", "G-001")
	assert.Contains(t, out, "1 patient(s)")

	out = env.mustRun("patient", "search", "--field", "zip", "101")
	assert.Contains(t, out, "Álvarez, Luis")

	out = env.mustRun("patient", "search", "--born-from", "1990-01-01")
	assert.Contains(t, out, "Smith, Jane")
	assert.NotContains(t, out, "Álvarez")

	_, stderr, code := env.run("patient", "search", "--born-from", "2001-01-01", "--born-to", "2000-01-01")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [VALIDATION]")

	_, stderr, code = env.run("patient", "search", "--field", "shoe_size", "x")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [INVALID_INPUT]")
	assert.Contains(t, stderr, "last_name|diagnosis|patient_id|zip_code")
}

func TestExamCommands_BMI(t *testing.T) {
	env := newCLIEnv(t)
	env.addJane()

	out := env.mustRun("exam", "add", "1", "--date", "2020-06-14", "--height", "1.80", "--weight", "75")
	assert.Equal(t, "Recorded examination 1 for patient 1 on 2020-06-14 (BMI 23.15)\n", out)

	out = env.mustRun("exam", "update", "1", "--weight", "81")
	assert.Equal(t, "Updated examination 1 for patient 1 on 2020-06-14 (BMI 25.00)\n", out)

	out = env.mustRun("--format", "json", "exam", "update", "1", "--height", "0")
	resp := decodeEnvelope(t, out)
	assert.NotContains(t, string(resp.Data), "bmi")
	assert.Contains(t, string(resp.Data), `"weight_kg":81`)

	env.mustRun("exam", "delete", "1")
	_, stderr, code := env.run("exam", "delete", "1")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [NOT_FOUND]")
}

func TestExamAdd_BeforeBirth(t *testing.T) {
	env := newCLIEnv(t)
	env.addJane()

	_, stderr, code := env.run("exam", "add", "1", "--date", "1999-12-31")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [VALIDATION]")

	_, stderr, code = env.run("exam", "add", "42", "--date", "2020-01-01")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [NOT_FOUND]")
}

func TestExamAdd_NonFiniteMeasurement(t *testing.T) {
	env := newCLIEnv(t)
	env.addJane()

	for _, args := range [][]string{
		{"--height", "NaN", "--weight", "75"},
		{"--height", "1.80", "--weight", "Inf"},
	} {
		cmdArgs := append([]string{"exam", "add", "1", "--date", "2020-06-14"}, args...)
		_, stderr, code := env.run(cmdArgs...)
		assert.Equal(t, ExitFailure, code, args)
		assert.Contains(t, stderr, "Error [VALIDATION]")
		assert.Contains(t, stderr, "finite")
	}

	out := env.mustRun("timeline", "1")
	assert.Contains(t, out, "No events")
}

func TestInterventionCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.addJane()

	out := env.mustRun("intervention", "add", "1", "--date", "2021-03-01", "--type", "surgery", "--operator", "Dr. Weber")
	assert.Equal(t, "Recorded intervention 1 for patient 1 on 2021-03-01\n", out)

	out = env.mustRun("--format", "json", "intervention", "update", "1", "--notes", "SEMLS")
	resp := decodeEnvelope(t, out)
	assert.Contains(t, string(resp.Data), `"notes":"SEMLS"`)
	assert.Contains(t, string(resp.Data), `"operator":"Dr. Weber"`)

	env.mustRun("intervention", "delete", "1")
}

func TestTimelineCommand_JSONGolden(t *testing.T) {
	goldenDir, err := filepath.Abs(filepath.Join("testdata", "golden"))
	require.NoError(t, err)
	env := newCLIEnv(t)
	env.addJane()
	env.mustRun("exam", "add", "1", "--date", "2020-06-14", "--type", "gait analysis",
		"--height", "1.62", "--weight", "55", "--examiner", "Dr. Kim", "--notes", "Stable gait")
	env.mustRun("intervention", "add", "1", "--date", "2019-01-01", "--type", "botulinum toxin",
		"--operator", "Dr. Lee", "--notes", "calf")

	out := env.mustRun("--format", "json", "timeline", "1")

	g := goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "timeline_json", []byte(out))
}

func TestTimelineCommand_Text(t *testing.T) {
	env := newCLIEnv(t)
	env.addJane()

	out := env.mustRun("timeline", "1")
	assert.Equal(t, "Smith, Jane (born 2000-06-15)\nNo events\n", out)

	env.mustRun("exam", "add", "1", "--date", "2020-06-15", "--type", "gait analysis", "--examiner", "Dr. Kim")
	env.mustRun("intervention", "add", "1", "--date", "2020-06-15", "--type", "orthosis fitting")

	out = env.mustRun("timeline", "1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "DATE"))
	assert.Contains(t, lines[2], "examination")
	assert.Contains(t, lines[2], "20")
	assert.Contains(t, lines[3], "intervention")
}

func TestAttachCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.addJane()
	env.mustRun("exam", "add", "1", "--date", "2020-06-14")

	src := filepath.Join(t.TempDir(), "walk.mp4")
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0o644))

	out := env.mustRun("attach", "link", "exam", "1", src, "--description", "sagittal view")
	assert.Equal(t, "Linked attachment 1 (walk.mp4, 6 bytes) to examination 1\n", out)

	out = env.mustRun("attach", "list", "examination", "1")
	assert.Contains(t, out, "walk.mp4")
	assert.Contains(t, out, "video/mp4")
	assert.Contains(t, out, "sagittal view")

	path := strings.TrimSpace(env.mustRun("attach", "open", "1"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))

	// A missing file is reported but the entry stays listed.
	require.NoError(t, os.Remove(path))
	stdout, _, code := env.run("--format", "json", "attach", "list", "exam", "1")
	assert.Equal(t, ExitFailure, code)
	resp := decodeEnvelope(t, stdout)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "CONFLICT_OR_CORRUPTION", resp.Error.Code)
	assert.Contains(t, string(resp.Data), "walk.mp4")

	env.mustRun("attach", "unlink", "1")
	out = env.mustRun("attach", "list", "exam", "1")
	assert.Equal(t, "No attachments\n", out)

	_, stderr, code := env.run("attach", "link", "exam", "1", filepath.Join(env.dir, "nope.pdf"))
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [INVALID_INPUT]")

	_, stderr, code = env.run("attach", "list", "visit", "1")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [INVALID_INPUT]")
}

func TestImportCommand(t *testing.T) {
	sample, err := filepath.Abs(filepath.Join("..", "fixture", "testdata", "sample.yaml"))
	require.NoError(t, err)
	env := newCLIEnv(t)

	out := env.mustRun("import", "--dry-run", sample)
	assert.Equal(t, "Dataset OK: 2 patients, 1 examinations, 1 interventions, 2 attachments\n", out)
	out = env.mustRun("patient", "search")
	assert.Contains(t, out, "0 patient(s)")

	out = env.mustRun("--format", "json", "import", sample)
	var resp struct {
		Data ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, resp.Data.Expected, resp.Data.Written)

	out = env.mustRun("patient", "search")
	assert.Contains(t, out, "2 patient(s)")
	out = env.mustRun("attach", "list", "exam", "1")
	assert.Contains(t, out, "Walking video, sagittal")
}

func TestImportCommand_SchemaViolation(t *testing.T) {
	env := newCLIEnv(t)
	file := filepath.Join(env.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("patients:\n  - first_name: Jane\n    birth_date: 2000-06-15\n"), 0o644))

	_, stderr, code := env.run("import", file)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [VALIDATION]")
	assert.Contains(t, stderr, "last_name")
}

func TestBackupAndOrphansCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.addJane()
	env.mustRun("exam", "add", "1", "--date", "2020-06-14")
	src := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))
	env.mustRun("attach", "link", "exam", "1", src)

	backupDir := filepath.Join(env.dir, "out")
	out := env.mustRun("--format", "json", "backup", "--dir", backupDir)
	var backup struct {
		Data struct {
			Database    string `json:"database"`
			Attachments string `json:"attachments"`
			Files       int    `json:"files"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &backup))
	assert.FileExists(t, backup.Data.Database)
	assert.DirExists(t, backup.Data.Attachments)
	assert.Equal(t, 1, backup.Data.Files)
	assert.True(t, strings.HasPrefix(filepath.Base(backup.Data.Database), "health_records_backup_"))

	out = env.mustRun("orphans", "--verify")
	assert.Equal(t, "0 orphan file(s)\n", out)

	stray := filepath.Join(env.dir, "attachments", "stray.tmp")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	out = env.mustRun("orphans")
	assert.Contains(t, out, "Orphan: stray.tmp")
	assert.FileExists(t, stray)

	out = env.mustRun("orphans", "--sweep")
	assert.Contains(t, out, "Removed: stray.tmp")
	assert.NoFileExists(t, stray)
}

func TestInitCommand(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("init")
	assert.Contains(t, out, filepath.Join(env.dir, "health_records.db"))
	assert.FileExists(t, filepath.Join(env.dir, "health_records.db"))
	assert.DirExists(t, filepath.Join(env.dir, "attachments"))
	assert.Contains(t, out, "Patients: 0\n")

	env.addJane()
	out = env.mustRun("init")
	assert.Contains(t, out, "Patients: 1\n")
}
