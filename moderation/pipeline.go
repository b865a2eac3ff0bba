package moderation

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Event carries everything the pipeline needs to know about one incoming
// message. It is created per message, consumed by one Process call, then
// discarded.
type Event struct {
	GuildID   string
	GuildName string
	ChannelID string
	MessageID string

	AuthorID       string
	AuthorName     string
	AuthorBot      bool
	AuthorAdmin    bool
	AuthorRoles    []string
	AccountCreated time.Time
	MemberJoined   time.Time

	Content     string
	Attachments []Attachment
	Embeds      []Embed
}

// Actions are the side effects the pipeline can take against the platform.
// Every call is a network round trip and may fail independently.
type Actions interface {
	DeleteMessage(channelID, messageID string) error
	NotifyUser(userID, content string) error
	BanUser(guildID, userID, reason string) error
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
}

// SkipReason names why the pipeline resolved an event without enforcing.
type SkipReason string

const (
	SkipDisabled      SkipReason = "disabled"
	SkipNoViolation   SkipReason = "no-violation"
	SkipBotAuthor     SkipReason = "bot-author"
	SkipPrivileged    SkipReason = "privileged"
	SkipExemptRole    SkipReason = "exempt-role"
	SkipExemptChannel SkipReason = "exempt-channel"
)

// Outcome is the pipeline's resolution for one event: enforced, skipped
// with a reason, or failed (the ban action itself did not take effect).
type Outcome struct {
	Enforced bool
	Failed   bool
	Skip     SkipReason
	Tag      Tag
}

func skipped(r SkipReason) Outcome {
	return Outcome{Skip: r}
}

// Process runs one message event through the enforcement pipeline:
// classify, check config state and exemptions, then delete/notify/ban and
// record. Delete and notify are best-effort; a failed ban terminates the
// event without touching statistics or the audit log.
func (s *Service) Process(ev *Event, acts Actions) Outcome {
	tags := Classify(ev.Attachments, ev.Embeds)

	s.mu.Lock()
	cfg := s.config.copy()
	s.mu.Unlock()

	if !cfg.Enabled {
		return skipped(SkipDisabled)
	}

	tag, violating := firstBanned(tags, cfg.BannedTags)
	if !violating {
		return skipped(SkipNoViolation)
	}

	if ev.AuthorBot {
		return skipped(SkipBotAuthor)
	}
	if ev.AuthorAdmin {
		return skipped(SkipPrivileged)
	}
	for _, r := range ev.AuthorRoles {
		if contains(cfg.ExemptRoles, r) {
			return skipped(SkipExemptRole)
		}
	}
	if contains(cfg.ExemptChannels, ev.ChannelID) {
		return skipped(SkipExemptChannel)
	}

	log := s.log.With(
		zap.String("guild", ev.GuildID),
		zap.String("user", ev.AuthorID),
		zap.String("tag", string(tag)),
	)

	if cfg.DeleteMessage {
		if err := acts.DeleteMessage(ev.ChannelID, ev.MessageID); err != nil {
			log.Warn("failed to delete violating message", zap.Error(err))
		}
	}

	if cfg.NotifyUser {
		if err := acts.NotifyUser(ev.AuthorID, banNotice(cfg.BanMessage, ev.GuildName, tag)); err != nil {
			log.Warn("failed to notify user", zap.Error(err))
		}
	}

	reason := fmt.Sprintf("Auto-ban: Posted %v", tag)
	if err := acts.BanUser(ev.GuildID, ev.AuthorID, reason); err != nil {
		log.Error("failed to ban user", zap.Error(err))
		return Outcome{Failed: true, Tag: tag}
	}

	s.RecordBan(tag, ev.AuthorID)
	log.Info("banned user", zap.Uint64("total_bans", s.StatsView().TotalBans))

	s.audit(ev, tag, cfg, acts)

	return Outcome{Enforced: true, Tag: tag}
}

func banNotice(template, guildName string, tag Tag) string {
	return fmt.Sprintf("%v\n\nServer: %v\nReason: Posted %v\nTime: %v",
		template, guildName, tag, time.Now().UTC().Format("2006-01-02 15:04:05"))
}
