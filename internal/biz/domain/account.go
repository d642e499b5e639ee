package domain

import "time"

// Account is the local user owning a connected social account. The subset
// used for identity resolution is UserID, PlatformAccountID,
// RecipientScopeID, DisplayUsername and AccessToken.
type Account struct {
	UserID            string
	PlatformAccountID string
	RecipientScopeID  string // learned, best effort
	DisplayUsername   string
	AccessToken       string
	Mode              OperatingMode
	Threshold         int // 0-100, semi_auto only
	SystemPrompt      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SenderProfile is the display identity of a message sender
type SenderProfile struct {
	Name           string
	Username       string
	AvatarURL      string
	FollowersCount int
	Source         ProfileSource
}

// ProfileSource records which resolution path produced a profile
type ProfileSource string

const (
	ProfileSourceRemote      ProfileSource = "remote"
	ProfileSourceLocal       ProfileSource = "local"
	ProfileSourcePlaceholder ProfileSource = "placeholder"
)

// PlaceholderName is used when no identity source could name the sender
const PlaceholderName = "Platform User"

// PlaceholderProfile returns the synthetic identity for an unresolved sender
func PlaceholderProfile(senderID string) SenderProfile {
	return SenderProfile{
		Name:     PlaceholderName,
		Username: senderID,
		Source:   ProfileSourcePlaceholder,
	}
}

// IsSufficient reports whether a remote lookup returned enough to display
func (p SenderProfile) IsSufficient() bool {
	return p.Name != "" || p.Username != ""
}

// DisplayName returns the best human readable name
func (p SenderProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Username != "" {
		return "@" + p.Username
	}
	return PlaceholderName
}

// Correction is a human edit of a suggested reply, fed back to the generator
type Correction struct {
	ID                string
	UserID            string
	MessageContent    string
	OriginalResponse  string
	CorrectedResponse string
	CreatedAt         time.Time
}
