package moderation

// GuildAuth is the per-guild allow-list for admin commands.
type GuildAuth struct {
	Users []string `json:"users"`
	Roles []string `json:"roles"`
}

// AuthList maps guild IDs to their allow-lists. Entries are created lazily
// on first lookup and persisted on creation.
type AuthList map[string]*GuildAuth

func defaultAuthList() AuthList {
	return make(AuthList)
}

// entry returns the guild's allow-list, creating an empty one if the guild
// is unknown. The second return reports whether an entry was created.
func (a AuthList) entry(guildID string) (*GuildAuth, bool) {
	if g, ok := a[guildID]; ok {
		return g, false
	}
	g := &GuildAuth{Users: []string{}, Roles: []string{}}
	a[guildID] = g
	return g, true
}

// authorized reports whether the actor may run admin commands in the guild:
// an explicit user entry, a role intersection, or administrator privilege.
func (g *GuildAuth) authorized(userID string, roleIDs []string, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	if contains(g.Users, userID) {
		return true
	}
	for _, r := range roleIDs {
		if contains(g.Roles, r) {
			return true
		}
	}
	return false
}
