// Package testutil provides a sample project and output assertions for
// CLI tests.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// Sample source objects written by SetupTestProject.
const (
	sampleEvents = `{"artist":"Casual","auth":"Logged In","firstName":"Ryan","gender":"M","itemInSession":0,"lastName":"Smith","length":218.93179,"level":"free","location":"San Jose-Sunnyvale-Santa Clara, CA","method":"PUT","page":"NextSong","registration":1541016707796.0,"sessionId":583,"song":"I Didn't Mean To","status":200,"ts":1542241826796,"userAgent":"Mozilla/5.0 (X11; Linux x86_64)","userId":26}
{"artist":null,"auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":2,"lastName":"Summers","length":null,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"GET","page":"Home","registration":1540344794796.0,"sessionId":139,"song":null,"status":200,"ts":1541106496796,"userAgent":"Mozilla/5.0 (Windows NT 6.1; WOW64)","userId":8}
`
	sampleSong = `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": 34.05349, "artist_longitude": -118.24532, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`

	projectConfig = `target:
  type: duckdb
  database: warehouse.duckdb

state_path: state.db

connections:
  aws_credentials:
    type: static
    access_key_id: AKIDTEST
    secret_access_key: test-secret

pipeline:
  retries: 0
  retry_delay: 1ms
  events:
    source_path: data/log_data
    json_mapping: auto
    region: ""
  songs:
    source_path: data/song_data
    json_mapping: auto
    region: ""
`
)

// SetupTestProject creates a temporary project with a leapetl.yaml pointing
// at a DuckDB warehouse and one log and one song object on local disk.
// It returns the path of the config file.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	files := map[string]string{
		filepath.Join("data", "log_data", "2018", "11", "2018-11-15-events.json"): sampleEvents,
		filepath.Join("data", "song_data", "A", "A", "A", "TRAAAAW128F429D538.json"): sampleSong,
		"leapetl.yaml": projectConfig,
	}
	for name, body := range files {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	return filepath.Join(tmpDir, "leapetl.yaml")
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
