package bot

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/moderation"
)

const (
	commandSyncAttempts = 3
	commandSyncBackoff  = time.Second * 2
)

// command describes one slash command: its schema, whether it is gated by
// the per-guild authorization list, and its handler. The whole table is
// validated once at startup.
type command struct {
	name        string
	description string
	options     []*discordgo.ApplicationCommandOption
	adminOnly   bool
	run         func(b *Bot, ctx *cmdContext) string
}

type cmdContext struct {
	guildID   string
	channelID string
	user      *discordgo.User
	member    *discordgo.Member
	opts      map[string]*discordgo.ApplicationCommandInteractionDataOption
}

func (c *cmdContext) str(name string) string {
	if o, ok := c.opts[name]; ok {
		return o.StringValue()
	}
	return ""
}

func (c *cmdContext) boolOpt(name string) bool {
	if o, ok := c.opts[name]; ok {
		return o.BoolValue()
	}
	return false
}

// id returns the raw snowflake behind a channel, role or user option.
func (c *cmdContext) id(name string) string {
	if o, ok := c.opts[name]; ok {
		if s, ok := o.Value.(string); ok {
			return s
		}
	}
	return ""
}

func actionOption(choices ...string) *discordgo.ApplicationCommandOption {
	opt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "action",
		Description: "What to do",
		Required:    true,
	}
	for _, ch := range choices {
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: ch, Value: ch})
	}
	return opt
}

func tagOption() *discordgo.ApplicationCommandOption {
	opt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "tag",
		Description: "Content tag",
	}
	for _, t := range moderation.Tags {
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: string(t), Value: string(t)})
	}
	return opt
}

var commands = []*command{
	{
		name:        "info",
		description: "Get information about the bot",
		run:         infoCommand,
	},
	{
		name:        "time",
		description: "Get current time",
		adminOnly:   true,
		run:         timeCommand,
	},
	{
		name:        "whoami",
		description: "Get user info",
		adminOnly:   true,
		run:         whoamiCommand,
	},
	{
		name:        "logs",
		description: "View message logs for a channel",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to view"},
		},
		run: logsCommand,
	},
	{
		name:        "start-logging",
		description: "Start logging messages in a channel",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to log"},
		},
		run: startLoggingCommand,
	},
	{
		name:        "stop-logging",
		description: "Stop logging messages in a channel",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to stop logging"},
		},
		run: stopLoggingCommand,
	},
	{
		name:        "automod",
		description: "Enable, disable or inspect auto-moderation",
		adminOnly:   true,
		options:     []*discordgo.ApplicationCommandOption{actionOption("enable", "disable", "status")},
		run:         automodCommand,
	},
	{
		name:        "banned-tags",
		description: "Manage which content tags get users banned",
		adminOnly:   true,
		options:     []*discordgo.ApplicationCommandOption{actionOption("add", "remove", "list"), tagOption()},
		run:         bannedTagsCommand,
	},
	{
		name:        "exempt-role",
		description: "Manage roles exempt from enforcement",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			actionOption("add", "remove", "list"),
			{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to exempt"},
		},
		run: exemptRoleCommand,
	},
	{
		name:        "exempt-channel",
		description: "Manage channels exempt from enforcement",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			actionOption("add", "remove", "list"),
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to exempt"},
		},
		run: exemptChannelCommand,
	},
	{
		name:        "log-channel",
		description: "Set or clear the enforcement log channel",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Leave empty to clear"},
		},
		run: logChannelCommand,
	},
	{
		name:        "ban-message",
		description: "View or set the ban notice template",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "New template"},
		},
		run: banMessageCommand,
	},
	{
		name:        "set-delete",
		description: "Toggle deletion of violating messages",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Delete violating messages", Required: true},
		},
		run: setDeleteCommand,
	},
	{
		name:        "set-notify",
		description: "Toggle notifying users before a ban",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Notify users before banning", Required: true},
		},
		run: setNotifyCommand,
	},
	{
		name:        "authorize-user",
		description: "Manage users allowed to run admin commands",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			actionOption("add", "remove", "list"),
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to authorize"},
		},
		run: authorizeUserCommand,
	},
	{
		name:        "authorize-role",
		description: "Manage roles allowed to run admin commands",
		adminOnly:   true,
		options: []*discordgo.ApplicationCommandOption{
			actionOption("add", "remove", "list"),
			{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to authorize"},
		},
		run: authorizeRoleCommand,
	},
	{
		name:        "modstats",
		description: "Show ban statistics",
		adminOnly:   true,
		run:         modstatsCommand,
	},
}

func validateCommands(cmds []*command) error {
	seen := make(map[string]bool)
	for _, c := range cmds {
		if c.name == "" || c.run == nil {
			return fmt.Errorf("invalid command entry: %+v", c)
		}
		if seen[c.name] {
			return fmt.Errorf("duplicate command name: %v", c.name)
		}
		seen[c.name] = true
	}
	return nil
}

func commandByName(name string) *command {
	for _, c := range commands {
		if c.name == name {
			return c
		}
	}
	return nil
}

func applicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, c := range commands {
		out = append(out, &discordgo.ApplicationCommand{
			Name:        c.name,
			Description: c.description,
			Options:     c.options,
		})
	}
	return out
}

// syncCommands overwrites the guild's command set, retrying a fixed number
// of times with a fixed backoff.
func (b *Bot) syncCommands(guildID string) {
	appID := b.sess.State.User.ID
	var err error
	for attempt := 1; attempt <= commandSyncAttempts; attempt++ {
		if _, err = b.sess.ApplicationCommandBulkOverwrite(appID, guildID, applicationCommands()); err == nil {
			b.log.Info("synced commands", zap.String("guild", guildID), zap.Int("count", len(commands)))
			return
		}
		time.Sleep(commandSyncBackoff)
	}
	b.log.Error("failed to sync commands", zap.String("guild", guildID), zap.Error(err))
}

func (b *Bot) interactionCreateHandler(ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := ic.ApplicationCommandData()
	cmd := commandByName(data.Name)
	if cmd == nil {
		return
	}

	if ic.GuildID == "" || ic.Member == nil {
		b.respond(ic, "This command only works in a server.")
		return
	}

	if cmd.adminOnly {
		isAdmin := ic.Member.Permissions&discordgo.PermissionAdministrator != 0
		if !b.svc.IsAuthorized(ic.Member.User.ID, ic.Member.Roles, isAdmin, ic.GuildID) {
			b.respond(ic, "You don't have permission to use this command!")
			return
		}
	}

	ctx := &cmdContext{
		guildID:   ic.GuildID,
		channelID: ic.ChannelID,
		user:      ic.Member.User,
		member:    ic.Member,
		opts:      make(map[string]*discordgo.ApplicationCommandInteractionDataOption),
	}
	for _, o := range data.Options {
		ctx.opts[o.Name] = o
	}

	reply := b.runCommand(cmd, ctx)
	b.respond(ic, reply)
}

func (b *Bot) runCommand(cmd *command, ctx *cmdContext) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("command panicked", zap.String("command", cmd.name), zap.Any("reason", r))
			reply = "Something went wrong!"
		}
	}()

	reply = cmd.run(b, ctx)
	if reply == "" {
		reply = "Something went wrong!"
	}
	return reply
}

// respond sends an ephemeral reply, visible only to the invoking user.
func (b *Bot) respond(ic *discordgo.InteractionCreate, content string) {
	err := b.sess.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Warn("failed to respond to interaction", zap.Error(err))
	}
}

//
// handlers
//

func infoCommand(b *Bot, _ *cmdContext) string {
	return fmt.Sprintf("Golang version: %v\nRunning since: <t:%v:R>", runtime.Version(), b.startTime.Unix())
}

func timeCommand(_ *Bot, _ *cmdContext) string {
	return fmt.Sprintf("Current Date and Time (UTC): %v", time.Now().UTC().Format("2006-01-02 15:04:05"))
}

func whoamiCommand(_ *Bot, ctx *cmdContext) string {
	return fmt.Sprintf("Current User's Login: %v (%v)", ctx.user.String(), ctx.user.ID)
}

func logsCommand(b *Bot, ctx *cmdContext) string {
	ch := ctx.id("channel")
	if ch == "" {
		ch = ctx.channelID
	}

	entries := b.msgLog.Recent(ch, 10)
	if len(entries) == 0 {
		return fmt.Sprintf("No messages logged for <#%v>!", ch)
	}

	text := strings.Builder{}
	text.WriteString(fmt.Sprintf("**Recent Messages in <#%v>:**\n\n", ch))
	for _, e := range entries {
		text.WriteString(fmt.Sprintf("**%v** at %v\n%v\n\n", e.Author, e.When.Format("2006-01-02 15:04:05"), e.Content))
	}
	return text.String()
}

func startLoggingCommand(b *Bot, ctx *cmdContext) string {
	ch := ctx.id("channel")
	if ch == "" {
		ch = ctx.channelID
	}
	if b.msgLog.Start(ch) {
		return fmt.Sprintf("Started logging messages in <#%v>", ch)
	}
	return fmt.Sprintf("Already logging messages in <#%v>", ch)
}

func stopLoggingCommand(b *Bot, ctx *cmdContext) string {
	ch := ctx.id("channel")
	if ch == "" {
		ch = ctx.channelID
	}
	if b.msgLog.Stop(ch) {
		return fmt.Sprintf("Stopped logging messages in <#%v>", ch)
	}
	return fmt.Sprintf("Not logging messages in <#%v>", ch)
}

func automodCommand(b *Bot, ctx *cmdContext) string {
	switch ctx.str("action") {
	case "enable":
		b.svc.SetEnabled(true)
		return "Auto-moderation enabled."
	case "disable":
		b.svc.SetEnabled(false)
		return "Auto-moderation disabled."
	case "status":
		cfg := b.svc.ConfigView()
		text := strings.Builder{}
		text.WriteString(fmt.Sprintf("Enabled: %v\n", cfg.Enabled))
		text.WriteString(fmt.Sprintf("Banned tags: %v\n", joinTags(cfg.BannedTags)))
		text.WriteString(fmt.Sprintf("Exempt roles: %v\n", len(cfg.ExemptRoles)))
		text.WriteString(fmt.Sprintf("Exempt channels: %v\n", len(cfg.ExemptChannels)))
		text.WriteString(fmt.Sprintf("Delete messages: %v\n", cfg.DeleteMessage))
		text.WriteString(fmt.Sprintf("Notify users: %v\n", cfg.NotifyUser))
		if cfg.LogChannel != "" {
			text.WriteString(fmt.Sprintf("Log channel: <#%v>\n", cfg.LogChannel))
		} else {
			text.WriteString("Log channel: not set\n")
		}
		return text.String()
	}
	return ""
}

func bannedTagsCommand(b *Bot, ctx *cmdContext) string {
	switch ctx.str("action") {
	case "add":
		tag := moderation.Tag(ctx.str("tag"))
		if tag == "" {
			return "Pick a tag to add."
		}
		if err := b.svc.AddBannedTag(tag); err != nil {
			return fmt.Sprintf("Unknown tag: %v", tag)
		}
		return fmt.Sprintf("Posting %v content now gets users banned.", tag)
	case "remove":
		tag := moderation.Tag(ctx.str("tag"))
		if tag == "" {
			return "Pick a tag to remove."
		}
		b.svc.RemoveBannedTag(tag)
		return fmt.Sprintf("Removed %v from the banned tags.", tag)
	case "list":
		tags := b.svc.ConfigView().BannedTags
		if len(tags) == 0 {
			return "No content tags are banned."
		}
		return "Banned tags: " + joinTags(tags)
	}
	return ""
}

func exemptRoleCommand(b *Bot, ctx *cmdContext) string {
	switch ctx.str("action") {
	case "add":
		id := ctx.id("role")
		if id == "" {
			return "Pick a role."
		}
		b.svc.AddExemptRole(id)
		return fmt.Sprintf("Members with <@&%v> are now exempt from enforcement.", id)
	case "remove":
		id := ctx.id("role")
		if id == "" {
			return "Pick a role."
		}
		b.svc.RemoveExemptRole(id)
		return fmt.Sprintf("<@&%v> is no longer exempt.", id)
	case "list":
		roles := b.svc.ConfigView().ExemptRoles
		if len(roles) == 0 {
			return "No roles are exempt."
		}
		return "Exempt roles: " + mentionAll(roles, "<@&%v>")
	}
	return ""
}

func exemptChannelCommand(b *Bot, ctx *cmdContext) string {
	switch ctx.str("action") {
	case "add":
		id := ctx.id("channel")
		if id == "" {
			id = ctx.channelID
		}
		b.svc.AddExemptChannel(id)
		return fmt.Sprintf("<#%v> is now exempt from enforcement.", id)
	case "remove":
		id := ctx.id("channel")
		if id == "" {
			id = ctx.channelID
		}
		b.svc.RemoveExemptChannel(id)
		return fmt.Sprintf("<#%v> is no longer exempt.", id)
	case "list":
		channels := b.svc.ConfigView().ExemptChannels
		if len(channels) == 0 {
			return "No channels are exempt."
		}
		return "Exempt channels: " + mentionAll(channels, "<#%v>")
	}
	return ""
}

func logChannelCommand(b *Bot, ctx *cmdContext) string {
	id := ctx.id("channel")
	b.svc.SetLogChannel(id)
	if id == "" {
		return "Enforcement log channel cleared."
	}
	return fmt.Sprintf("Enforcement records go to <#%v>.", id)
}

func banMessageCommand(b *Bot, ctx *cmdContext) string {
	msg := ctx.str("message")
	if msg == "" {
		return fmt.Sprintf("Current ban notice:\n%v", b.svc.ConfigView().BanMessage)
	}
	b.svc.SetBanMessage(msg)
	return "Ban notice updated."
}

func setDeleteCommand(b *Bot, ctx *cmdContext) string {
	v := ctx.boolOpt("enabled")
	b.svc.SetDeleteMessage(v)
	if v {
		return "Violating messages will be deleted."
	}
	return "Violating messages will be left in place."
}

func setNotifyCommand(b *Bot, ctx *cmdContext) string {
	v := ctx.boolOpt("enabled")
	b.svc.SetNotifyUser(v)
	if v {
		return "Users will be notified before a ban."
	}
	return "Users will be banned without notice."
}

func authorizeUserCommand(b *Bot, ctx *cmdContext) string {
	switch ctx.str("action") {
	case "add":
		id := ctx.id("user")
		if id == "" {
			return "Pick a user."
		}
		b.svc.AuthorizeUser(ctx.guildID, id)
		return fmt.Sprintf("<@%v> can now run admin commands here.", id)
	case "remove":
		id := ctx.id("user")
		if id == "" {
			return "Pick a user."
		}
		b.svc.UnauthorizeUser(ctx.guildID, id)
		return fmt.Sprintf("<@%v> can no longer run admin commands here.", id)
	case "list":
		users, _ := b.svc.Authorized(ctx.guildID)
		if len(users) == 0 {
			return "No users are explicitly authorized."
		}
		return "Authorized users: " + mentionAll(users, "<@%v>")
	}
	return ""
}

func authorizeRoleCommand(b *Bot, ctx *cmdContext) string {
	switch ctx.str("action") {
	case "add":
		id := ctx.id("role")
		if id == "" {
			return "Pick a role."
		}
		b.svc.AuthorizeRole(ctx.guildID, id)
		return fmt.Sprintf("Members with <@&%v> can now run admin commands here.", id)
	case "remove":
		id := ctx.id("role")
		if id == "" {
			return "Pick a role."
		}
		b.svc.UnauthorizeRole(ctx.guildID, id)
		return fmt.Sprintf("Members with <@&%v> can no longer run admin commands here.", id)
	case "list":
		_, roles := b.svc.Authorized(ctx.guildID)
		if len(roles) == 0 {
			return "No roles are authorized."
		}
		return "Authorized roles: " + mentionAll(roles, "<@&%v>")
	}
	return ""
}

func modstatsCommand(b *Bot, _ *cmdContext) string {
	stats := b.svc.StatsView()

	text := strings.Builder{}
	text.WriteString(fmt.Sprintf("Total bans: %v\n", stats.TotalBans))

	if len(stats.BansByTag) > 0 {
		text.WriteString("By tag:\n")
		for _, t := range moderation.Tags {
			if n := stats.BansByTag[t]; n > 0 {
				text.WriteString(fmt.Sprintf("  %v: %v\n", t, n))
			}
		}
	}

	top := b.svc.TopBannedUsers(5)
	if len(top) > 0 {
		text.WriteString("Top banned users:\n")
		for i, uc := range top {
			text.WriteString(fmt.Sprintf("  %v. <@%v> - %v\n", i+1, uc.UserID, uc.Count))
		}
	}

	return text.String()
}

func joinTags(tags []moderation.Tag) string {
	if len(tags) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ", ")
}

func mentionAll(ids []string, format string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf(format, id))
	}
	return strings.Join(parts, ", ")
}
