package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/moderation"
	"github.com/intrntsrfr/warden/store"
)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc, err := moderation.NewService(st, zap.NewNop())
	require.NoError(t, err)
	return &Bot{
		log:       zap.NewNop(),
		svc:       svc,
		msgLog:    newMsgLog(),
		startTime: time.Now(),
	}
}

func testCtx(opts map[string]interface{}) *cmdContext {
	ctx := &cmdContext{
		guildID:   "g1",
		channelID: "c1",
		user:      &discordgo.User{ID: "u1", Username: "tester"},
		opts:      make(map[string]*discordgo.ApplicationCommandInteractionDataOption),
	}
	for name, v := range opts {
		var typ discordgo.ApplicationCommandOptionType
		switch v.(type) {
		case string:
			typ = discordgo.ApplicationCommandOptionString
		case bool:
			typ = discordgo.ApplicationCommandOptionBoolean
		}
		ctx.opts[name] = &discordgo.ApplicationCommandInteractionDataOption{
			Name:  name,
			Type:  typ,
			Value: v,
		}
	}
	return ctx
}

func TestValidateCommands(t *testing.T) {
	require.NoError(t, validateCommands(commands))

	dup := []*command{
		{name: "a", run: timeCommand},
		{name: "a", run: timeCommand},
	}
	assert.Error(t, validateCommands(dup))

	missing := []*command{{name: "a"}}
	assert.Error(t, validateCommands(missing))
}

func TestApplicationCommandsMatchTable(t *testing.T) {
	appCmds := applicationCommands()
	require.Len(t, appCmds, len(commands))
	for i, c := range commands {
		assert.Equal(t, c.name, appCmds[i].Name)
	}
}

func TestAutomodCommand(t *testing.T) {
	b := newTestBot(t)

	reply := automodCommand(b, testCtx(map[string]interface{}{"action": "enable"}))
	assert.Contains(t, reply, "enabled")
	assert.True(t, b.svc.ConfigView().Enabled)

	reply = automodCommand(b, testCtx(map[string]interface{}{"action": "disable"}))
	assert.Contains(t, reply, "disabled")
	assert.False(t, b.svc.ConfigView().Enabled)

	reply = automodCommand(b, testCtx(map[string]interface{}{"action": "status"}))
	assert.Contains(t, reply, "Enabled: false")
}

func TestBannedTagsCommand(t *testing.T) {
	b := newTestBot(t)

	reply := bannedTagsCommand(b, testCtx(map[string]interface{}{"action": "add", "tag": "image"}))
	assert.Contains(t, reply, "image")
	assert.Equal(t, []moderation.Tag{moderation.TagImage}, b.svc.ConfigView().BannedTags)

	reply = bannedTagsCommand(b, testCtx(map[string]interface{}{"action": "add", "tag": "bogus"}))
	assert.Contains(t, reply, "Unknown tag")

	reply = bannedTagsCommand(b, testCtx(map[string]interface{}{"action": "list"}))
	assert.Contains(t, reply, "image")

	bannedTagsCommand(b, testCtx(map[string]interface{}{"action": "remove", "tag": "image"}))
	assert.Empty(t, b.svc.ConfigView().BannedTags)
}

func TestExemptChannelCommandDefaultsToCurrent(t *testing.T) {
	b := newTestBot(t)

	reply := exemptChannelCommand(b, testCtx(map[string]interface{}{"action": "add"}))
	assert.Contains(t, reply, "<#c1>")
	assert.Equal(t, []string{"c1"}, b.svc.ConfigView().ExemptChannels)
}

func TestLogChannelCommandClear(t *testing.T) {
	b := newTestBot(t)

	logChannelCommand(b, testCtx(map[string]interface{}{"channel": "log1"}))
	assert.Equal(t, "log1", b.svc.ConfigView().LogChannel)

	reply := logChannelCommand(b, testCtx(nil))
	assert.Contains(t, reply, "cleared")
	assert.Equal(t, "", b.svc.ConfigView().LogChannel)
}

func TestBanMessageCommand(t *testing.T) {
	b := newTestBot(t)

	reply := banMessageCommand(b, testCtx(nil))
	assert.Contains(t, reply, "Current ban notice")

	banMessageCommand(b, testCtx(map[string]interface{}{"message": "begone"}))
	assert.Equal(t, "begone", b.svc.ConfigView().BanMessage)
}

func TestToggleCommands(t *testing.T) {
	b := newTestBot(t)

	setDeleteCommand(b, testCtx(map[string]interface{}{"enabled": false}))
	assert.False(t, b.svc.ConfigView().DeleteMessage)

	setNotifyCommand(b, testCtx(map[string]interface{}{"enabled": false}))
	assert.False(t, b.svc.ConfigView().NotifyUser)
}

func TestAuthorizeUserCommand(t *testing.T) {
	b := newTestBot(t)

	authorizeUserCommand(b, testCtx(map[string]interface{}{"action": "add", "user": "u2"}))
	assert.True(t, b.svc.IsAuthorized("u2", nil, false, "g1"))

	reply := authorizeUserCommand(b, testCtx(map[string]interface{}{"action": "list"}))
	assert.Contains(t, reply, "<@u2>")

	authorizeUserCommand(b, testCtx(map[string]interface{}{"action": "remove", "user": "u2"}))
	assert.False(t, b.svc.IsAuthorized("u2", nil, false, "g1"))
}

func TestModstatsCommand(t *testing.T) {
	b := newTestBot(t)

	b.svc.RecordBan(moderation.TagImage, "u1")
	b.svc.RecordBan(moderation.TagImage, "u1")
	b.svc.RecordBan(moderation.TagVideo, "u2")

	reply := modstatsCommand(b, testCtx(nil))
	assert.Contains(t, reply, "Total bans: 3")
	assert.Contains(t, reply, "image: 2")
	assert.True(t, strings.Index(reply, "<@u1>") < strings.Index(reply, "<@u2>"))
}

func TestLogsCommands(t *testing.T) {
	b := newTestBot(t)

	reply := logsCommand(b, testCtx(nil))
	assert.Contains(t, reply, "No messages logged")

	startLoggingCommand(b, testCtx(nil))
	b.msgLog.Add("c1", "tester", "hello there")

	reply = logsCommand(b, testCtx(nil))
	assert.Contains(t, reply, "hello there")

	reply = stopLoggingCommand(b, testCtx(nil))
	assert.Contains(t, reply, "Stopped logging")
}

func TestRunCommandRecovers(t *testing.T) {
	b := newTestBot(t)
	cmd := &command{
		name: "boom",
		run: func(_ *Bot, _ *cmdContext) string {
			panic("handler bug")
		},
	}
	reply := b.runCommand(cmd, testCtx(nil))
	assert.Equal(t, "Something went wrong!", reply)
}
