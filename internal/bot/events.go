package bot

import (
	"log"
	"time"

	"discord-invite-tracker/internal/commands"
	"discord-invite-tracker/internal/invites"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) Ready(s *discordgo.Session, r *discordgo.Ready) {
	if s.State.User == nil {
		s.State.User = r.User
	}
	log.Printf("Logged in as: %v (ID: %s)", r.User.Username, r.User.ID)
	log.Printf("Serving %d guilds", len(r.Guilds))
}

func (b *Bot) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Printf("Guild joined/loaded: %s (%s)", g.Name, g.ID)

	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, g.ID, commands.Commands)
	if err != nil {
		log.Printf("Failed to register commands for guild %s: %v", g.ID, err)
	} else {
		log.Printf("Registered commands for guild %s", g.Name)
	}

	// Startup reconciliation: prune stale codes, rebuild the use cache,
	// adopt invites created while we were offline.
	b.Engine.Initialize(g.ID)
	b.Engine.EnsureDisplayNames(g.ID)
}

func (b *Bot) InviteCreate(s *discordgo.Session, e *discordgo.InviteCreate) {
	inv := invites.RemoteInvite{
		Code:      e.Code,
		Uses:      e.Uses,
		MaxUses:   e.MaxUses,
		Temporary: e.Temporary,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		ChannelID: e.ChannelID,
	}
	if e.Inviter != nil {
		inv.InviterID = e.Inviter.ID
		inv.InviterUsername = e.Inviter.Username
		inv.InviterDisplayName = userDisplayName(e.Inviter)
	}
	b.Engine.HandleInviteCreate(e.GuildID, inv)
}

func (b *Bot) InviteDelete(s *discordgo.Session, e *discordgo.InviteDelete) {
	b.Engine.HandleInviteDelete(e.GuildID, e.Code)
}

func (b *Bot) GuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}
	b.Engine.HandleMemberJoin(m.GuildID, invites.MemberInfo{
		ID:          m.User.ID,
		Username:    m.User.Username,
		DisplayName: memberDisplayName(m.Member),
	})
}

func (b *Bot) GuildMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.User == nil {
		return
	}
	// Name may have changed; drop the cached lookup before propagating.
	b.Members.Invalidate("member:" + m.GuildID + ":" + m.User.ID)
	b.Engine.HandleMemberUpdate(invites.MemberInfo{
		ID:          m.User.ID,
		Username:    m.User.Username,
		DisplayName: memberDisplayName(m.Member),
	})
}

func (b *Bot) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "mystats":
		commands.HandleMyStats(s, i, b.Engine)
	case "leaderboard":
		commands.HandleLeaderboard(s, i, b.Engine, b.LeaderboardSize)
	case "refresh-names":
		commands.HandleRefreshNames(s, i, b.Engine)
	case "normalize-structure":
		commands.HandleNormalize(s, i, b.Engine)
	}
}
