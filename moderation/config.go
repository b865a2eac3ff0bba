package moderation

// Config is the process-wide moderation configuration. It is always fully
// populated; a failed load synthesizes defaults and persists them.
type Config struct {
	Enabled        bool     `json:"enabled"`
	BanMessage     string   `json:"ban_message"`
	LogChannel     string   `json:"log_channel"`
	BannedTags     []Tag    `json:"banned_content"`
	ExemptRoles    []string `json:"exempt_roles"`
	ExemptChannels []string `json:"exempt_channels"`
	DeleteMessage  bool     `json:"delete_messages"`
	NotifyUser     bool     `json:"notify_user"`
}

const defaultBanMessage = "You have been banned for posting disallowed content."

func defaultConfig() *Config {
	return &Config{
		Enabled:        false,
		BanMessage:     defaultBanMessage,
		LogChannel:     "",
		BannedTags:     []Tag{},
		ExemptRoles:    []string{},
		ExemptChannels: []string{},
		DeleteMessage:  true,
		NotifyUser:     true,
	}
}

func (c *Config) copy() *Config {
	cc := *c
	cc.BannedTags = append([]Tag{}, c.BannedTags...)
	cc.ExemptRoles = append([]string{}, c.ExemptRoles...)
	cc.ExemptChannels = append([]string{}, c.ExemptChannels...)
	return &cc
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func remove(xs []string, x string) []string {
	out := xs[:0]
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}
