package models

import "time"

// InviterRecord is one entry in the inviter ledger, keyed by the inviter's
// user ID. ActiveInvites maps invite code -> last known use count.
type InviterRecord struct {
	Username          string             `json:"username"`
	DisplayName       string             `json:"display_name"`
	ActiveInvites     map[string]int     `json:"active_invites"`
	SuccessfulInvites int                `json:"successful_invites"`
	RecruitmentLedger []RecruitmentEntry `json:"recruitment_ledger"`
}

// RecruitmentEntry records one attributed join. A user appears in at most
// one inviter's ledger, system-wide.
type RecruitmentEntry struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	InitiationDate string `json:"initiation_date"`
	InviteCode     string `json:"invite_code,omitempty"`
}

// InviteRecord is a snapshot of one invite in the global registry.
// MaxUses of 0 means unlimited.
type InviteRecord struct {
	Code               string `json:"code"`
	InviterID          string `json:"inviter_id"`
	InviterDisplayName string `json:"inviter_display_name"`
	ChannelID          string `json:"channel_id"`
	CreatedAt          string `json:"created_at"`
	MaxUses            int    `json:"max_uses"`
	Temporary          bool   `json:"temporary"`
	Uses               int    `json:"uses"`
}

// Ledger is the inviter ledger document: user ID -> record.
type Ledger map[string]*InviterRecord

// Registry is the invite registry document.
type Registry []*InviteRecord

// NewInviterRecord returns a zeroed record for a newly seen inviter.
func NewInviterRecord(username, displayName string) *InviterRecord {
	return &InviterRecord{
		Username:          username,
		DisplayName:       displayName,
		ActiveInvites:     make(map[string]int),
		RecruitmentLedger: []RecruitmentEntry{},
	}
}

// Canonicalize rewrites the record into the canonical field layout:
// defaults filled, nil containers materialized, counter never below the
// ledger length.
func (r *InviterRecord) Canonicalize() {
	if r.Username == "" {
		r.Username = "Unknown"
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Username
	}
	if r.ActiveInvites == nil {
		r.ActiveInvites = make(map[string]int)
	}
	if r.RecruitmentLedger == nil {
		r.RecruitmentLedger = []RecruitmentEntry{}
	}
	if r.SuccessfulInvites < len(r.RecruitmentLedger) {
		r.SuccessfulInvites = len(r.RecruitmentLedger)
	}
}

// Timestamp returns the current UTC time in the format both documents use.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
