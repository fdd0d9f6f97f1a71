// Package adc inspects Google Application Default Credentials on disk so
// the CLI and the Sheets gateway can name the signed-in reviewer without
// a network round trip.
package adc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/sheetreview/pkg/errors"
)

// Credential file types the Sheets gateway can sign in with.
const (
	TypeAuthorizedUser = "authorized_user"
	TypeServiceAccount = "service_account"
)

// Where a credentials file was found.
const (
	SourceFlag    = "--credentials"
	SourceEnv     = "GOOGLE_APPLICATION_CREDENTIALS"
	SourceDefault = "gcloud default"
)

// File is the subset of a credentials JSON file that identifies a caller.
type File struct {
	Type           string `json:"type"`
	QuotaProjectID string `json:"quota_project_id"`
	ProjectID      string `json:"project_id"`
	Account        string `json:"account"`
	ClientEmail    string `json:"client_email"`
	ClientID       string `json:"client_id"`
	UniverseDomain string `json:"universe_domain"`
}

// Location is a credentials file that exists on disk.
type Location struct {
	Path   string
	Source string
}

// Locate finds the credentials file the Google client libraries would use.
// An explicit path wins and is not second-guessed: if it is missing,
// nothing is found.
func Locate(explicit string) (Location, bool) {
	if explicit != "" {
		return found(explicit, SourceFlag)
	}
	if env := os.Getenv(SourceEnv); env != "" {
		if loc, ok := found(env, SourceEnv); ok {
			return loc, true
		}
	}
	dir := gcloudDir()
	if dir == "" {
		return Location{}, false
	}
	return found(filepath.Join(dir, "application_default_credentials.json"), SourceDefault)
}

func found(path, source string) (Location, bool) {
	if _, err := os.Stat(path); err != nil {
		return Location{}, false
	}
	return Location{Path: path, Source: source}, true
}

// ParseFile reads a credentials file and rejects types the Sheets gateway
// cannot sign in with.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-selected credential file
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	switch f.Type {
	case TypeAuthorizedUser, TypeServiceAccount:
		return &f, nil
	case "":
		return nil, errors.NewValidationError("type", "", "missing credential type")
	default:
		return nil, errors.NewValidationError("type", f.Type, "unknown type "+f.Type)
	}
}

// gcloudDir is the gcloud configuration directory, honouring
// CLOUDSDK_CONFIG the way gcloud does.
func gcloudDir() string {
	if dir := os.Getenv("CLOUDSDK_CONFIG"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gcloud")
}

// gcloudProperty reads a [core] property ("account", "project") of the
// active gcloud configuration. CLOUDSDK_ACTIVE_CONFIG_NAME overrides the
// active_config file.
func gcloudProperty(key string) string {
	dir := gcloudDir()
	if dir == "" {
		return ""
	}
	name := os.Getenv("CLOUDSDK_ACTIVE_CONFIG_NAME")
	if name == "" {
		name = "default"
		if data, err := os.ReadFile(filepath.Join(dir, "active_config")); err == nil { // #nosec G304
			if s := strings.TrimSpace(string(data)); s != "" {
				name = s
			}
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "configurations", "config_"+name)) // #nosec G304
	if err != nil {
		return ""
	}
	return iniValue(string(data), "core", key)
}

// iniValue returns key from section of INI text, or "".
func iniValue(content, section, key string) string {
	in := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			in = line[1:len(line)-1] == section
			continue
		}
		if !in {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
