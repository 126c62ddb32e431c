package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Assessment is one scan run against a repository or target URL.
type Assessment struct {
	ID            string        `json:"id"`
	Mode          string        `json:"mode,omitempty"`
	Status        string        `json:"status,omitempty"`
	RepoURL       string        `json:"repo_url,omitempty"`
	TargetURL     string        `json:"target_url,omitempty"`
	Agents        []string      `json:"agents,omitempty"`
	Depth         string        `json:"depth,omitempty"`
	FindingCounts FindingCounts `json:"finding_counts,omitempty"`
	ErrorType     string        `json:"error_type,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at,omitzero"`
	UpdatedAt     time.Time     `json:"updated_at,omitzero"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// FindingCounts is the per-assessment finding tally reported by the backend.
type FindingCounts map[string]int

func (fc FindingCounts) Total() int {
	return fc["total"]
}

// Finding is one issue discovered during a scan.
type Finding struct {
	ID           string          `json:"id"`
	AssessmentID string          `json:"assessment_id,omitempty"`
	Severity     string          `json:"severity"`
	Category     string          `json:"category,omitempty"`
	Title        string          `json:"title,omitempty"`
	Description  string          `json:"description,omitempty"`
	Location     *Location       `json:"location,omitempty"`
	Evidence     json.RawMessage `json:"evidence,omitempty"`
	Remediation  string          `json:"remediation,omitempty"`
	Agent        string          `json:"agent,omitempty"`
	CreatedAt    time.Time       `json:"created_at,omitzero"`
}

// HasEvidence reports whether the finding carries an evidence blob.
func (f Finding) HasEvidence() bool {
	trimmed := strings.TrimSpace(string(f.Evidence))
	return trimmed != "" && trimmed != "null" && trimmed != "{}"
}

// Location is the polymorphic finding location. The backend emits one of a
// file reference, a URL, or a generic type tag; unknown shapes are kept as
// raw JSON so nothing is lost on re-serialization.
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	URL  string `json:"url,omitempty"`
	Type string `json:"type,omitempty"`

	raw json.RawMessage
}

// LocationKind discriminates the location variants.
type LocationKind int

const (
	LocationUnknown LocationKind = iota
	LocationFile
	LocationURL
	LocationTag
)

func (l *Location) Kind() LocationKind {
	switch {
	case l == nil:
		return LocationUnknown
	case l.File != "":
		return LocationFile
	case l.URL != "":
		return LocationURL
	case l.Type != "":
		return LocationTag
	default:
		return LocationUnknown
	}
}

func (l *Location) UnmarshalJSON(b []byte) error {
	type plain Location
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*l = Location(p)
	l.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (l Location) MarshalJSON() ([]byte, error) {
	if len(l.raw) > 0 {
		return l.raw, nil
	}
	type plain Location
	return json.Marshal(plain(l))
}

// Text projects the location to display text. Priority order: file path
// (with :line when present), then URL, then type tag, then the raw
// structure, then "-".
func (l *Location) Text() string {
	switch l.Kind() {
	case LocationFile:
		if l.Line > 0 {
			return l.File + ":" + strconv.Itoa(l.Line)
		}
		return l.File
	case LocationURL:
		return l.URL
	case LocationTag:
		return l.Type
	}
	if l != nil && len(l.raw) > 0 && string(l.raw) != "null" && string(l.raw) != "{}" {
		return string(l.raw)
	}
	return "-"
}

// TunnelSession is an active tunnel usable by robust assessments.
type TunnelSession struct {
	ID            string    `json:"id"`
	TargetPort    int       `json:"target_port"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	LastHeartbeat time.Time `json:"last_heartbeat,omitzero"`
}

// MemorySearchResult is the response of the memory similarity search.
type MemorySearchResult struct {
	Enabled bool              `json:"enabled"`
	Results []json.RawMessage `json:"results"`
}

// PushMessage is one frame on the assessment status push channel.
type PushMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	PushTypeUpdate   = "assessment_update"
	PushTypeTerminal = "assessment_terminal"
)
