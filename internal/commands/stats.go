package commands

import (
	"log"

	"discord-invite-tracker/internal/invites"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
)

func HandleMyStats(s *discordgo.Session, i *discordgo.InteractionCreate, engine *invites.Engine) {
	user := interactionUser(i)
	if user == nil {
		return
	}

	// Pick up a rename before rendering.
	engine.RefreshDisplayName(i.GuildID, user.ID)

	view, ok := engine.Stats(user.ID)
	if !ok {
		utils.RespondEmbed(s, i, utils.NoStatsEmbed(user.Username))
		return
	}

	if err := utils.RespondEmbed(s, i, utils.StatsEmbed(view)); err != nil {
		log.Printf("Failed to respond to mystats: %v", err)
	}
}
