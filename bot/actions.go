package bot

import (
	"github.com/bwmarrin/discordgo"
)

// sessionActions implements moderation.Actions over a live discord session.
type sessionActions struct {
	sess *discordgo.Session
}

func newSessionActions(sess *discordgo.Session) *sessionActions {
	return &sessionActions{sess: sess}
}

func (a *sessionActions) DeleteMessage(channelID, messageID string) error {
	return a.sess.ChannelMessageDelete(channelID, messageID)
}

func (a *sessionActions) NotifyUser(userID, content string) error {
	ch, err := a.sess.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = a.sess.ChannelMessageSend(ch.ID, content)
	return err
}

func (a *sessionActions) BanUser(guildID, userID, reason string) error {
	return a.sess.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (a *sessionActions) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	_, err := a.sess.ChannelMessageSendEmbed(channelID, embed)
	return err
}
