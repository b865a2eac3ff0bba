package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/discord"
	"github.com/intrntsrfr/warden/moderation"
)

type Bot struct {
	log       *zap.Logger
	svc       *moderation.Service
	disc      *discord.Discord
	sess      *discordgo.Session
	acts      moderation.Actions
	msgLog    *msgLog
	startTime time.Time
}

type Config struct {
	Log     *zap.Logger
	Service *moderation.Service
	Token   string
}

func NewBot(c *Config) (*Bot, error) {
	b := &Bot{
		log:       c.Log,
		svc:       c.Service,
		msgLog:    newMsgLog(),
		startTime: time.Now(),
	}

	if err := validateCommands(commands); err != nil {
		return nil, err
	}

	disc, err := discord.NewDiscord(c.Token, c.Log.Named("discord"))
	if err != nil {
		return nil, err
	}
	b.disc = disc
	b.sess = disc.Sess
	b.acts = newSessionActions(disc.Sess)

	return b, nil
}

func (b *Bot) Close() {
	b.disc.Close()
}

func (b *Bot) Run() error {
	go b.listen(b.disc.Events)
	return b.disc.Open()
}

func (b *Bot) listen(evtCh <-chan interface{}) {
	for evt := range evtCh {
		switch e := evt.(type) {
		case *discordgo.Ready:
			go b.readyHandler(e)
		case *discordgo.Disconnect:
			b.log.Info("disconnected")
		case *discordgo.GuildCreate:
			go b.guildCreateHandler(e)
		case *discordgo.MessageCreate:
			go b.messageCreateHandler(e)
		case *discordgo.InteractionCreate:
			go b.interactionCreateHandler(e)
		}
	}
}

func (b *Bot) readyHandler(r *discordgo.Ready) {
	b.log.Info("logged in", zap.String("user", r.User.String()))
	_ = b.sess.UpdateGameStatus(0, "watching for content")
}

func (b *Bot) guildCreateHandler(g *discordgo.GuildCreate) {
	b.svc.EnsureGuild(g.ID)
	b.syncCommands(g.ID)
	b.log.Info("guild available", zap.String("name", g.Name), zap.String("id", g.ID))
}

func (b *Bot) messageCreateHandler(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == b.sess.State.User.ID {
		return
	}
	if m.GuildID == "" {
		return
	}

	if b.msgLog.Logged(m.ChannelID) {
		b.msgLog.Add(m.ChannelID, m.Author.String(), m.Content)
	}

	b.svc.Process(b.buildEvent(m), b.acts)
}

// buildEvent projects a gateway message onto the pipeline's event shape.
func (b *Bot) buildEvent(m *discordgo.MessageCreate) *moderation.Event {
	ev := &moderation.Event{
		GuildID:    m.GuildID,
		ChannelID:  m.ChannelID,
		MessageID:  m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.String(),
		AuthorBot:  m.Author.Bot,
		Content:    m.Content,
	}

	if g, err := b.disc.Guild(m.GuildID); err == nil {
		ev.GuildName = g.Name
	}

	if m.Member != nil {
		ev.AuthorRoles = m.Member.Roles
		ev.MemberJoined = m.Member.JoinedAt
	}

	if perms, err := b.disc.UserChannelPermissions(m.Author.ID, m.ChannelID); err == nil {
		ev.AuthorAdmin = perms&discordgo.PermissionAdministrator != 0
	}

	if ts, err := ParseSnowflake(m.Author.ID); err == nil {
		ev.AccountCreated = ts
	}

	for _, a := range m.Attachments {
		ev.Attachments = append(ev.Attachments, moderation.Attachment{
			Filename: a.Filename,
			Size:     a.Size,
		})
	}
	for _, e := range m.Embeds {
		ev.Embeds = append(ev.Embeds, moderation.Embed{
			HasImage:     e.Image != nil,
			HasThumbnail: e.Thumbnail != nil,
		})
	}

	return ev
}
