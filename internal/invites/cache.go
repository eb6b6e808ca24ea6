package invites

// UseCache tracks the last observed use count per invite code, per guild.
// It is volatile: rebuilt from the live listing at initialization and never
// persisted. It exists to detect which invite absorbed a new use, since the
// gateway does not say.
type UseCache struct {
	guilds map[string]map[string]int
}

func NewUseCache() *UseCache {
	return &UseCache{guilds: make(map[string]map[string]int)}
}

// Rebuild clears and repopulates one guild's cache from a fresh listing.
func (c *UseCache) Rebuild(guildID string, listing []RemoteInvite) {
	codes := make(map[string]int, len(listing))
	for _, inv := range listing {
		codes[inv.Code] = inv.Uses
	}
	c.guilds[guildID] = codes
}

// Observe returns currentUses minus the cached count, treating a missing
// entry as 0. The caller commits the new value explicitly.
func (c *UseCache) Observe(guildID, code string, currentUses int) int {
	return currentUses - c.guilds[guildID][code]
}

// Commit records the observed use count for a code.
func (c *UseCache) Commit(guildID, code string, uses int) {
	codes, ok := c.guilds[guildID]
	if !ok {
		codes = make(map[string]int)
		c.guilds[guildID] = codes
	}
	codes[code] = uses
}

// Forget drops one code from a guild's cache.
func (c *UseCache) Forget(guildID, code string) {
	delete(c.guilds[guildID], code)
}
