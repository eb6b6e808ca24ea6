package commands

import (
	"github.com/bwmarrin/discordgo"
)

var adminOnly = int64(discordgo.PermissionAdministrator)

var Commands = []*discordgo.ApplicationCommand{
	MyStats,
	Leaderboard,
	RefreshNames,
	NormalizeStructure,
}

var MyStats = &discordgo.ApplicationCommand{
	Name:        "mystats",
	Description: "View your invite statistics",
}

var Leaderboard = &discordgo.ApplicationCommand{
	Name:        "leaderboard",
	Description: "View the invite leaderboard",
}

var RefreshNames = &discordgo.ApplicationCommand{
	Name:                     "refresh-names",
	Description:              "Refresh all stored display names from Discord",
	DefaultMemberPermissions: &adminOnly,
}

var NormalizeStructure = &discordgo.ApplicationCommand{
	Name:                     "normalize-structure",
	Description:              "Rewrite inviter records into the canonical layout",
	DefaultMemberPermissions: &adminOnly,
}

// interactionUser returns the invoking user for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}
