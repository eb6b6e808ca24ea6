package utils

import (
	"fmt"
	"sort"
	"strings"

	"discord-invite-tracker/internal/invites"

	"github.com/bwmarrin/discordgo"
)

// StatsEmbed renders one inviter's numbers.
func StatsEmbed(view *invites.StatsView) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📊 Invite Stats for %s", view.DisplayName),
		Color: ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Username", Value: fmt.Sprintf("`%s`", view.Username), Inline: true},
			{Name: "Display Name", Value: fmt.Sprintf("`%s`", view.DisplayName), Inline: true},
			{Name: "Successful Invites", Value: fmt.Sprintf("**%d**", view.SuccessfulInvites), Inline: true},
			{Name: "Active Invites", Value: fmt.Sprintf("**%d**", len(view.ActiveInvites)), Inline: true},
		},
	}

	if len(view.ActiveInvites) > 0 {
		codes := make([]string, 0, len(view.ActiveInvites))
		for code := range view.ActiveInvites {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		lines := make([]string, 0, len(codes))
		for _, code := range codes {
			lines = append(lines, fmt.Sprintf("`%s` - %d uses", code, view.ActiveInvites[code]))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Active Invite Codes",
			Value: strings.Join(lines, "\n"),
		})
	}

	return embed
}

// NoStatsEmbed is shown to users the tracker has never seen.
func NoStatsEmbed(name string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📊 No Invite Data Found",
		Description: fmt.Sprintf("No invite statistics found for %s. Create an invite to start tracking!", name),
		Color:       ColorOrange,
	}
}

// LeaderboardEmbed renders the top inviters with medal prefixes.
func LeaderboardEmbed(entries []invites.LeaderboardEntry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Invite Leaderboard",
		Description: "Top inviters in the server",
		Color:       ColorGold,
	}

	for rank, entry := range entries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s %s", medal(rank+1), entry.DisplayName),
			Value: fmt.Sprintf("**%d** successful invites\n**%d** active invites",
				entry.SuccessfulInvites, entry.ActiveInvites),
			Inline: true,
		})
	}

	return embed
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}
