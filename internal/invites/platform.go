package invites

import "errors"

// ErrPermission is returned by Platform implementations when the bot has
// no visibility into a guild's invites.
var ErrPermission = errors.New("missing permission to view invites")

// RemoteInvite is one invite as reported by the platform's live listing.
// InviterID is empty for anonymous invites (vanity URLs, widget invites).
type RemoteInvite struct {
	Code               string
	Uses               int
	MaxUses            int
	Temporary          bool
	CreatedAt          string
	ChannelID          string
	InviterID          string
	InviterUsername    string
	InviterDisplayName string
}

// MemberInfo identifies a guild member.
type MemberInfo struct {
	ID          string
	Username    string
	DisplayName string
}

// Platform is the slice of the chat platform the engine depends on.
// Member returns (nil, nil) when the user is not currently a member.
type Platform interface {
	GuildInvites(guildID string) ([]RemoteInvite, error)
	Member(guildID, userID string) (*MemberInfo, error)
	NotifyOwner(guildID, text string) error
}
