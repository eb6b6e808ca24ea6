package commands

import (
	"bytes"
	"log"

	"discord-invite-tracker/internal/invites"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
)

func HandleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate, engine *invites.Engine, limit int) {
	entries := engine.Leaderboard(i.GuildID, limit)
	if len(entries) == 0 {
		utils.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "📊 Invite Leaderboard",
			Description: "No invite data available yet.",
			Color:       utils.ColorOrange,
		})
		return
	}

	embed := utils.LeaderboardEmbed(entries)
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}

	// The card is decoration; render failures fall back to the embed alone.
	if png, err := utils.RenderLeaderboardCard(entries); err == nil {
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://leaderboard.png"}
		data.Files = []*discordgo.File{{
			Name:        "leaderboard.png",
			ContentType: "image/png",
			Reader:      bytes.NewReader(png),
		}}
	} else {
		log.Printf("Failed to render leaderboard card: %v", err)
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("Failed to respond to leaderboard: %v", err)
	}
}
