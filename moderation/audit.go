package moderation

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Color int

const (
	Red    Color = 0xC80000
	Orange Color = 0xF08152
	Blue   Color = 0x61D1ED
	Green  Color = 0x00C800
)

const auditContentLimit = 1024

// audit forwards an enforcement record to the configured log channel. A
// no-op when no log channel is set; delivery failure is logged, never
// retried.
func (s *Service) audit(ev *Event, tag Tag, cfg *Config, acts Actions) {
	if cfg.LogChannel == "" {
		return
	}

	embed := buildAuditEmbed(ev, tag)
	if err := acts.SendEmbed(cfg.LogChannel, embed); err != nil {
		s.log.Warn("failed to send audit record",
			zap.String("channel", cfg.LogChannel), zap.Error(err))
	}
}

func buildAuditEmbed(ev *Event, tag Tag) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color: int(Red),
		Title: "User banned",
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "User",
				Value:  fmt.Sprintf("<@%v>\n%v", ev.AuthorID, ev.AuthorName),
				Inline: true,
			},
			{
				Name:   "ID",
				Value:  ev.AuthorID,
				Inline: true,
			},
			{
				Name:  "Channel",
				Value: fmt.Sprintf("<#%v> (%v)", ev.ChannelID, ev.ChannelID),
			},
			{
				Name:  "Reason",
				Value: fmt.Sprintf("Posted %v", tag),
			},
			{
				Name:  "Content",
				Value: auditContent(ev.Content),
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: ev.GuildName,
		},
	}

	if len(ev.Attachments) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Attachments",
			Value:  fmt.Sprint(len(ev.Attachments)),
			Inline: true,
		})
	}
	if len(ev.Embeds) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Embeds",
			Value:  fmt.Sprint(len(ev.Embeds)),
			Inline: true,
		})
	}

	if !ev.AccountCreated.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Account age",
			Value:  fmt.Sprintf("%v days", ageDays(ev.AccountCreated)),
			Inline: true,
		})
	}
	if !ev.MemberJoined.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Member for",
			Value:  fmt.Sprintf("%v days", ageDays(ev.MemberJoined)),
			Inline: true,
		})
	}

	return embed
}

func auditContent(content string) string {
	if content == "" {
		return "No content"
	}
	return truncate(content, auditContentLimit)
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func ageDays(t time.Time) int {
	return int(time.Since(t).Hours() / 24)
}
