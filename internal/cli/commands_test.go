package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	tracksURI      = "content://de.dennisguse.opentracks/tracks"
	trackPointsURI = "content://de.dennisguse.opentracks/trackpoints"
	markersURI     = "content://de.dennisguse.opentracks/markers"
)

func run(t *testing.T, flags []string, args ...string) string {
	t.Helper()
	out, errOut, err := execute(t, append(args, flags...)...)
	require.NoError(t, err, "stderr: %s", errOut)
	return out
}

func TestInsertAndQuery(t *testing.T) {
	flags := storeFlags(t)

	out := run(t, flags, "insert", tracksURI, "--values", `{"name": "Morning run", "category": "run"}`)
	assert.Equal(t, tracksURI+"/1\n", out)

	out = run(t, flags, "query", tracksURI, "--columns", "_id,name,category")
	assert.Equal(t, "_id  name         category\n1    Morning run  run\n", out)
}

func TestQuery_JSON(t *testing.T) {
	flags := storeFlags(t)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "b"}`)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "a"}`)

	out := run(t, flags, "query", tracksURI, "--columns", "name", "--sort", "name", "--format", "json")

	var resp struct {
		Status string       `json:"status"`
		Data   RowSetOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"name"}, resp.Data.Columns)
	assert.Equal(t, [][]any{{"a"}, {"b"}}, resp.Data.Rows)
	assert.Equal(t, tracksURI, resp.Data.NotificationURI)
}

func TestBulkInsert_FromFile(t *testing.T) {
	flags := storeFlags(t)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "a"}`)

	path := filepath.Join(t.TempDir(), "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- {trackid: 1, time: 0, sensor_heartrate: 100}
- {trackid: 1, time: 10000, sensor_heartrate: 110}
- {trackid: 1, time: 20000}
`), 0o644))

	out := run(t, flags, "bulk-insert", trackPointsURI, "--file", path)
	assert.Equal(t, "3\n", out)

	out = run(t, flags, "stats", "1", "--format", "yaml")
	var resp struct {
		Data StatsOutput `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.Equal(t, int64(1), resp.Data.TrackID)
	require.NotNil(t, resp.Data.AvgHR)
	assert.InDelta(t, 105.0, *resp.Data.AvgHR, 1e-9)
	require.NotNil(t, resp.Data.MaxHR)
	assert.InDelta(t, 110.0, *resp.Data.MaxHR, 1e-9)
	assert.Nil(t, resp.Data.AvgPower)
}

func TestBulkInsert_AllOrNothing(t *testing.T) {
	flags := storeFlags(t)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "a"}`)

	_, _, err := execute(t, append([]string{"bulk-insert", markersURI, "--values", `[{"trackid": 1}, {"trackid": 7}]`}, flags...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out := run(t, flags, "query", markersURI)
	assert.Equal(t, 1, strings.Count(out, "\n"), "only the header line: %q", out)
}

func TestUpdateAndDelete(t *testing.T) {
	flags := storeFlags(t)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "a"}`)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "b"}`)
	run(t, flags, "insert", markersURI, "--values", `{"trackid": 1, "name": "m"}`)

	out := run(t, flags, "update", tracksURI+"/1,2", "--values", `{"category": "hike"}`, "--where", "name = ?", "--arg", "b")
	assert.Equal(t, "1\n", out)

	out = run(t, flags, "delete", tracksURI, "--where", "_id = ?", "--arg", "1")
	assert.Equal(t, "1\n", out)

	out = run(t, flags, "query", markersURI)
	assert.Equal(t, 1, strings.Count(out, "\n"), "marker deleted by cascade: %q", out)

	prefsPath := flags[3]
	data, err := os.ReadFile(prefsPath)
	require.NoError(t, err)
	var doc map[string]int64
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, int64(2), doc["total_rows_deleted"], "track plus cascaded marker")
}

func TestDelete_VacuumThresholdFlag(t *testing.T) {
	flags := append(storeFlags(t), "--vacuum-threshold", "1")
	run(t, flags, "insert", tracksURI, "--values", `{"name": "a"}`)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "b"}`)

	_, errOut, err := execute(t, append([]string{"delete", tracksURI}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, errOut, "compaction finished")

	data, err := os.ReadFile(flags[3])
	require.NoError(t, err)
	assert.Contains(t, string(data), "total_rows_deleted: 0")
}

func TestExitCodes(t *testing.T) {
	flags := storeFlags(t)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "a"}`)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown locator", []string{"query", "content://de.dennisguse.opentracks/laps"}, ExitCommandError},
		{"quote in selection", []string{"query", tracksURI, "--where", "name = 'a'"}, ExitCommandError},
		{"bad sort", []string{"query", tracksURI, "--sort", "bogus_column DESC"}, ExitCommandError},
		{"missing required field", []string{"insert", trackPointsURI, "--values", `{"trackid": 1}`}, ExitCommandError},
		{"unparseable values", []string{"insert", tracksURI, "--values", `[1, 2`}, ExitCommandError},
		{"item delete", []string{"delete", tracksURI + "/1"}, ExitCommandError},
		{"bad track id", []string{"stats", "one"}, ExitCommandError},
		{"missing track", []string{"insert", markersURI, "--values", `{"trackid": 99}`}, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append(tt.args, flags...)...)
			require.Error(t, err)
			assert.Equal(t, tt.want, GetExitCode(err))
		})
	}
}

func TestTypeCommand(t *testing.T) {
	out := run(t, nil, "type", tracksURI)
	assert.Equal(t, "vnd.android.cursor.dir/vnd.de.dennisguse.opentracks.track\n", out)

	out = run(t, nil, "type", "content://org.example.tracks/markers/4", "--authority", "org.example.tracks")
	assert.Equal(t, "vnd.android.cursor.item/vnd.org.example.tracks.marker\n", out)

	_, _, err := execute(t, "type", "content://org.example.tracks/markers/4")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStats_Text(t *testing.T) {
	flags := storeFlags(t)
	run(t, flags, "insert", tracksURI, "--values", `{"name": "a"}`)
	run(t, flags, "bulk-insert", trackPointsURI, "--values",
		`[{"trackid": 1, "time": 0, "sensor_power": 200}, {"trackid": 1, "time": 5000, "sensor_power": 300}]`)

	out := run(t, flags, "stats", "1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"avg_hr", "max_hr", "avg_cadence", "max_cadence", "avg_power", "max_power"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"NULL", "NULL", "NULL", "NULL", "200", "300"}, strings.Fields(lines[1]))
}

func TestMigrate(t *testing.T) {
	flags := storeFlags(t)

	out := run(t, flags, "migrate")
	assert.Equal(t, "schema version 1 (dirty=false)\n", out)

	out = run(t, flags, "migrate", "--down", "--format", "json")
	var resp struct {
		Data MigrateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, MigrateResult{Version: 0, Dirty: false}, resp.Data)
}

func TestVerbosePrintsNotifications(t *testing.T) {
	flags := storeFlags(t)

	_, errOut, err := execute(t, append([]string{"insert", tracksURI, "--values", `{"name": "a"}`, "-v"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, errOut, "changed: "+tracksURI+" (#1)")
}

func TestMetricsFlag(t *testing.T) {
	flags := storeFlags(t)

	_, errOut, err := execute(t, append([]string{"insert", tracksURI, "--values", `{"name": "a"}`, "--metrics"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, errOut, `trackstore_provider_operations_total{operation="insert",outcome="ok",table="tracks"} 1`)
	assert.Contains(t, errOut, "trackstore_notify_notifications_total 1")
}
