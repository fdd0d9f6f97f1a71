package adc

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// State is the local credential state.
type State int

const (
	// StateConfigured means credentials are configured.
	StateConfigured State = iota
	// StateMissing means no credentials file was found.
	StateMissing
	// StateInvalid means credentials are found but malformed.
	StateInvalid
)

// String returns a lower-case state name.
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateMissing:
		return "missing"
	default:
		return "invalid"
	}
}

// Details describes the credentials a Sheets gateway would sign in with.
type Details struct {
	State          State
	Type           string    // "User Credentials" | "Service Account"
	Account        string    // Email address or client ID
	AccountSource  string    // "credentials file" | "gcloud config" | ""
	Project        string    // Quota or owning project
	UniverseDomain string    // Usually "googleapis.com"
	Path           string    // Path to the credentials file
	PathSource     string    // How Path was found, see Locate
	LastAuth       time.Time // File modification time
	ErrorMessage   string    // Only for invalid/missing states
}

// SignedIn reports whether usable credentials were found.
func (d *Details) SignedIn() bool {
	return d != nil && d.State == StateConfigured
}

// BuildDetails inspects the credentials file found by Locate(explicit).
// No network calls are made.
func BuildDetails(explicit string) *Details {
	loc, ok := Locate(explicit)
	path := loc.Path
	if !ok {
		return &Details{
			State:        StateMissing,
			ErrorMessage: "No credentials found. Run: gcloud auth application-default login --scopes=https://www.googleapis.com/auth/spreadsheets",
		}
	}

	file, err := ParseFile(path)
	if err != nil {
		return &Details{
			State:        StateInvalid,
			Path:         path,
			PathSource:   loc.Source,
			ErrorMessage: fmt.Sprintf("credentials file invalid: %v", err),
		}
	}

	d := &Details{
		State:          StateConfigured,
		Type:           credentialType(file.Type),
		UniverseDomain: universeDomain(file.UniverseDomain),
		Path:           path,
		PathSource:     loc.Source,
		LastAuth:       fileModTime(path),
	}
	d.Account, d.AccountSource = resolveAccount(file)
	d.Project = resolveProject(file)
	return d
}

func credentialType(adcType string) string {
	if adcType == TypeServiceAccount {
		return "Service Account"
	}
	return "User Credentials"
}

// resolveAccount prefers the identity recorded in the file, then the
// account gcloud is logged in as, then the OAuth client ID.
func resolveAccount(file *File) (account, source string) {
	switch {
	case file.ClientEmail != "":
		return file.ClientEmail, "credentials file"
	case file.Account != "":
		return file.Account, "credentials file"
	}
	if acct := gcloudProperty("account"); acct != "" {
		return acct, "gcloud config"
	}
	if file.ClientID != "" {
		return "(client ID: " + file.ClientID + ")", "credentials file"
	}
	return "", ""
}

func resolveProject(file *File) string {
	if file.QuotaProjectID != "" {
		return file.QuotaProjectID
	}
	if file.ProjectID != "" {
		return file.ProjectID
	}
	return gcloudProperty("project")
}

func universeDomain(domain string) string {
	if domain == "" {
		return "googleapis.com"
	}
	return domain
}

func fileModTime(path string) time.Time {
	if stat, err := os.Stat(path); err == nil {
		return stat.ModTime()
	}
	return time.Time{}
}

// FormatBrief creates a one-line summary, e.g.
// "User Credentials, Reviewing as ada@example.com".
func FormatBrief(d *Details) string {
	if d.State != StateConfigured {
		return d.ErrorMessage
	}
	parts := []string{d.Type}
	if d.Account != "" {
		parts = append(parts, "Reviewing as "+d.Account)
	} else {
		parts = append(parts, "Account unknown")
	}
	if d.Project != "" {
		parts = append(parts, "Project: "+d.Project)
	}
	return strings.Join(parts, ", ")
}
