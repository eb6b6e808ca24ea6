package commands

import (
	"fmt"

	"discord-invite-tracker/internal/invites"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
)

func HandleRefreshNames(s *discordgo.Session, i *discordgo.InteractionCreate, engine *invites.Engine) {
	if !isAdmin(i) {
		utils.SendError(s, i, "You need the Administrator permission to use this command.")
		return
	}

	if engine.EnsureDisplayNames(i.GuildID) {
		utils.SendSuccess(s, i, "✅ All display names have been refreshed from Discord.")
	} else {
		utils.SendSuccess(s, i, "ℹ️ All display names are already up to date.")
	}
}

func HandleNormalize(s *discordgo.Session, i *discordgo.InteractionCreate, engine *invites.Engine) {
	if !isAdmin(i) {
		utils.SendError(s, i, "You need the Administrator permission to use this command.")
		return
	}

	count := engine.Normalize()
	utils.SendSuccess(s, i, fmt.Sprintf("✅ Normalized %d inviter records.", count))
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}
