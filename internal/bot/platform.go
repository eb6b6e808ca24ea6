package bot

import (
	"errors"
	"fmt"
	"time"

	"discord-invite-tracker/internal/invites"
	"discord-invite-tracker/internal/membercache"

	"github.com/bwmarrin/discordgo"
)

// discordPlatform implements invites.Platform over a discordgo session.
// Member lookups are fronted by the member cache; negative results are
// cached too so a departed inviter does not cost a REST call per join.
type discordPlatform struct {
	session *discordgo.Session
	members *membercache.Cache
}

func (p *discordPlatform) GuildInvites(guildID string) ([]invites.RemoteInvite, error) {
	listing, err := p.session.GuildInvites(guildID)
	if err != nil {
		if isPermissionError(err) {
			return nil, invites.ErrPermission
		}
		return nil, fmt.Errorf("listing invites for guild %s: %w", guildID, err)
	}

	remote := make([]invites.RemoteInvite, 0, len(listing))
	for _, inv := range listing {
		r := invites.RemoteInvite{
			Code:      inv.Code,
			Uses:      inv.Uses,
			MaxUses:   inv.MaxUses,
			Temporary: inv.Temporary,
			CreatedAt: inv.CreatedAt.UTC().Format(time.RFC3339),
		}
		if inv.Channel != nil {
			r.ChannelID = inv.Channel.ID
		}
		if inv.Inviter != nil {
			r.InviterID = inv.Inviter.ID
			r.InviterUsername = inv.Inviter.Username
			r.InviterDisplayName = userDisplayName(inv.Inviter)
		}
		remote = append(remote, r)
	}
	return remote, nil
}

func (p *discordPlatform) Member(guildID, userID string) (*invites.MemberInfo, error) {
	key := "member:" + guildID + ":" + userID
	val, err := p.members.Get(key, func() (interface{}, error) {
		m, err := p.session.GuildMember(guildID, userID)
		if err != nil {
			if isUnknownMember(err) {
				return (*invites.MemberInfo)(nil), nil
			}
			return nil, err
		}
		return &invites.MemberInfo{
			ID:          userID,
			Username:    m.User.Username,
			DisplayName: memberDisplayName(m),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	info, _ := val.(*invites.MemberInfo)
	return info, nil
}

func (p *discordPlatform) NotifyOwner(guildID, text string) error {
	g, err := p.session.Guild(guildID)
	if err != nil {
		return fmt.Errorf("looking up guild %s: %w", guildID, err)
	}
	dm, err := p.session.UserChannelCreate(g.OwnerID)
	if err != nil {
		return fmt.Errorf("opening DM with owner %s: %w", g.OwnerID, err)
	}
	if _, err := p.session.ChannelMessageSend(dm.ID, text); err != nil {
		return fmt.Errorf("sending owner notification: %w", err)
	}
	return nil
}

func isPermissionError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		code := restErr.Message.Code
		return code == discordgo.ErrCodeMissingPermissions || code == discordgo.ErrCodeMissingAccess
	}
	return false
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeUnknownMember ||
			restErr.Message.Code == discordgo.ErrCodeUnknownUser
	}
	return false
}

func memberDisplayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	return userDisplayName(m.User)
}

func userDisplayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
