package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Fallback policy served when a family has no rule for the requested platform.
// Enforcement clients depend on these exact values.
const (
	DefaultPolicyPlatform = "youtube"
	DefaultDailyMinutes   = 45
	DefaultBedtime        = "21:00"
)

// ErrWhitelistNotArray is returned for a whitelist that is not a JSON array
var ErrWhitelistNotArray = errors.New("whitelist must be an array")

var emptyWhitelist = json.RawMessage(`[]`)

// Rule is the per-platform usage policy of a family. There is at most one
// rule per (family, platform).
//
// Whitelist is an ordered JSON array kept verbatim; entries are usually
// strings (package names, channel ids) but their shape is up to the client.
type Rule struct {
	ID           string          `json:"id"`
	FamilyID     string          `json:"-"`
	Platform     string          `json:"platform"`
	DailyMinutes int             `json:"daily_minutes"`
	Bedtime      string          `json:"bedtime"`
	Whitelist    json.RawMessage `json:"whitelist"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Policy is the projection of a rule served to enforcement agents
type Policy struct {
	DailyMinutes int             `json:"daily_minutes"`
	Bedtime      string          `json:"bedtime"`
	Whitelist    json.RawMessage `json:"whitelist"`
}

// DefaultPolicy returns the fallback policy
func DefaultPolicy() Policy {
	return Policy{
		DailyMinutes: DefaultDailyMinutes,
		Bedtime:      DefaultBedtime,
		Whitelist:    emptyWhitelist,
	}
}

// Policy projects the rule onto the enforcement view
func (r *Rule) Policy() Policy {
	return Policy{
		DailyMinutes: r.DailyMinutes,
		Bedtime:      r.Bedtime,
		Whitelist:    StoredWhitelist(r.Whitelist),
	}
}

// NormalizeWhitelist validates a client-supplied whitelist. Absent or null
// becomes []. Anything other than a JSON array is rejected.
func NormalizeWhitelist(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyWhitelist, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, ErrWhitelistNotArray
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, ErrWhitelistNotArray
	}
	return json.RawMessage(buf.Bytes()), nil
}

// StoredWhitelist converts a whitelist column value for output
func StoredWhitelist(data []byte) json.RawMessage {
	if len(bytes.TrimSpace(data)) == 0 {
		return emptyWhitelist
	}
	return json.RawMessage(data)
}
