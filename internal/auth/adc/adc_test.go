package adc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/sheetreview/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("CLOUDSDK_CONFIG", "")
	t.Setenv("CLOUDSDK_ACTIVE_CONFIG_NAME", "")
	return home
}

func TestBuildDetailsMissing(t *testing.T) {
	isolate(t)

	d := BuildDetails("")
	assert.Equal(t, StateMissing, d.State)
	assert.False(t, d.SignedIn())
	assert.Contains(t, FormatBrief(d), "gcloud auth application-default login")
}

func TestBuildDetailsServiceAccount(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "sa.json", `{"type":"service_account","project_id":"reviews","client_email":"bot@reviews.iam.gserviceaccount.com"}`)

	d := BuildDetails(path)
	require.True(t, d.SignedIn())
	assert.Equal(t, "Service Account", d.Type)
	assert.Equal(t, "bot@reviews.iam.gserviceaccount.com", d.Account)
	assert.Equal(t, "reviews", d.Project)
	assert.Equal(t, "googleapis.com", d.UniverseDomain)
	assert.Equal(t, "Service Account, Reviewing as bot@reviews.iam.gserviceaccount.com, Project: reviews", FormatBrief(d))
}

func TestBuildDetailsUserFallsBackToGcloudAccount(t *testing.T) {
	home := isolate(t)
	writeFile(t, home, ".config/gcloud/application_default_credentials.json", `{"type":"authorized_user","client_id":"123.apps"}`)
	writeFile(t, home, ".config/gcloud/active_config", "work\n")
	writeFile(t, home, ".config/gcloud/configurations/config_work", "[core]\naccount = ada@example.com\nproject = admissions\n\n[compute]\nregion = us-east1\n")

	d := BuildDetails("")
	require.True(t, d.SignedIn())
	assert.Equal(t, "User Credentials", d.Type)
	assert.Equal(t, "ada@example.com", d.Account)
	assert.Equal(t, "gcloud config", d.AccountSource)
	assert.Equal(t, "admissions", d.Project)
	assert.Equal(t, SourceDefault, d.PathSource)
}

func TestBuildDetailsHonoursCloudSDKConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, dir, "application_default_credentials.json", `{"type":"authorized_user"}`)
	writeFile(t, dir, "configurations/config_ci", "[core]
account = grace@example.com
")
	t.Setenv("CLOUDSDK_CONFIG", dir)
	t.Setenv("CLOUDSDK_ACTIVE_CONFIG_NAME", "ci")

	d := BuildDetails("")
	require.True(t, d.SignedIn())
	assert.Equal(t, "grace@example.com", d.Account)
	assert.Equal(t, filepath.Join(dir, "application_default_credentials.json"), d.Path)
}

func TestBuildDetailsInvalid(t *testing.T) {
	home := isolate(t)
	bad := writeFile(t, home, "bad.json", `{"type":"external_account"}`)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", bad)

	d := BuildDetails("")
	assert.Equal(t, StateInvalid, d.State)
	assert.Equal(t, bad, d.Path)
	assert.Equal(t, SourceEnv, d.PathSource)
	assert.Contains(t, d.ErrorMessage, "unknown type")
}

func TestLocateExplicitMissing(t *testing.T) {
	home := isolate(t)
	writeFile(t, home, ".config/gcloud/application_default_credentials.json", `{"type":"authorized_user"}`)

	_, ok := Locate("/does/not/exist.json")
	assert.False(t, ok, "a missing explicit path does not fall through to the default")

	loc, ok := Locate("")
	require.True(t, ok)
	assert.Equal(t, SourceDefault, loc.Source)
}

func TestParseFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ParseFile(filepath.Join(dir, "none.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ParseFile(writeFile(t, dir, "broken.json", "{"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json")

	_, err = ParseFile(writeFile(t, dir, "untyped.json", `{}`))
	assert.True(t, errors.IsValidationError(err))
}

func TestIniValue(t *testing.T) {
	content := "[compute]\naccount = wrong\n[core]\naccount=right\n"
	assert.Equal(t, "right", iniValue(content, "core", "account"))
	assert.Empty(t, iniValue(content, "core", "project"))
}
