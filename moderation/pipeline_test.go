package moderation

import (
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/store"
)

// memStore is an in-memory store.Store for tests.
type memStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func (m *memStore) Load(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (m *memStore) Save(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte{}, data...)
	return nil
}

func (m *memStore) Close() error {
	return nil
}

// fakeActions records pipeline side effects and can fail selectively.
type fakeActions struct {
	deleted  []string
	notified []string
	banned   []string
	embeds   []string

	deleteErr error
	notifyErr error
	banErr    error
	sendErr   error
}

func (f *fakeActions) DeleteMessage(channelID, messageID string) error {
	f.deleted = append(f.deleted, messageID)
	return f.deleteErr
}

func (f *fakeActions) NotifyUser(userID, content string) error {
	f.notified = append(f.notified, userID)
	return f.notifyErr
}

func (f *fakeActions) BanUser(guildID, userID, reason string) error {
	if f.banErr != nil {
		return f.banErr
	}
	f.banned = append(f.banned, userID+"|"+reason)
	return nil
}

func (f *fakeActions) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	f.embeds = append(f.embeds, channelID)
	return f.sendErr
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	st := newMemStore()
	svc, err := NewService(st, zap.NewNop())
	require.NoError(t, err)
	return svc, st
}

func imageEvent() *Event {
	return &Event{
		GuildID:     "g1",
		GuildName:   "test guild",
		ChannelID:   "c1",
		MessageID:   "m1",
		AuthorID:    "u1",
		AuthorName:  "someone",
		Attachments: []Attachment{{Filename: "pic.png"}},
	}
}

func TestProcessDisabled(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{}

	svc.AddBannedTag(TagImage)

	out := svc.Process(imageEvent(), acts)
	assert.Equal(t, SkipDisabled, out.Skip)
	assert.False(t, out.Enforced)
	assert.Empty(t, acts.banned)
}

func TestProcessEnforced(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagImage))

	out := svc.Process(imageEvent(), acts)
	require.True(t, out.Enforced)
	assert.Equal(t, TagImage, out.Tag)

	assert.Equal(t, []string{"m1"}, acts.deleted)
	assert.Equal(t, []string{"u1"}, acts.notified)
	require.Len(t, acts.banned, 1)
	assert.Equal(t, "u1|Auto-ban: Posted image", acts.banned[0])

	stats := svc.StatsView()
	assert.Equal(t, uint64(1), stats.TotalBans)
	assert.Equal(t, uint64(1), stats.BansByTag[TagImage])
	assert.Equal(t, uint64(1), stats.BansByUser["u1"])
}

func TestProcessNoViolation(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagImage))

	ev := imageEvent()
	ev.Attachments = []Attachment{{Filename: "movie.mp4"}}

	out := svc.Process(ev, acts)
	assert.Equal(t, SkipNoViolation, out.Skip)
	assert.Empty(t, acts.deleted)
	assert.Empty(t, acts.banned)
	assert.Equal(t, uint64(0), svc.StatsView().TotalBans)
}

func TestProcessSkipOrder(t *testing.T) {
	tests := []struct {
		name  string
		setup func(svc *Service, ev *Event)
		want  SkipReason
	}{
		{
			name:  "bot author",
			setup: func(svc *Service, ev *Event) { ev.AuthorBot = true },
			want:  SkipBotAuthor,
		},
		{
			name:  "administrator",
			setup: func(svc *Service, ev *Event) { ev.AuthorAdmin = true },
			want:  SkipPrivileged,
		},
		{
			name: "exempt role",
			setup: func(svc *Service, ev *Event) {
				svc.AddExemptRole("r1")
				ev.AuthorRoles = []string{"r1", "r2"}
			},
			want: SkipExemptRole,
		},
		{
			name: "exempt channel",
			setup: func(svc *Service, ev *Event) {
				svc.AddExemptChannel("c1")
			},
			want: SkipExemptChannel,
		},
		{
			name: "bot author beats administrator",
			setup: func(svc *Service, ev *Event) {
				ev.AuthorBot = true
				ev.AuthorAdmin = true
			},
			want: SkipBotAuthor,
		},
		{
			name: "administrator beats exempt channel",
			setup: func(svc *Service, ev *Event) {
				ev.AuthorAdmin = true
				svc.AddExemptChannel("c1")
			},
			want: SkipPrivileged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			acts := &fakeActions{}
			svc.SetEnabled(true)
			require.NoError(t, svc.AddBannedTag(TagImage))

			ev := imageEvent()
			tt.setup(svc, ev)

			out := svc.Process(ev, acts)
			assert.Equal(t, tt.want, out.Skip)
			assert.False(t, out.Enforced)
			assert.Empty(t, acts.banned)
			assert.Equal(t, uint64(0), svc.StatsView().TotalBans)
		})
	}
}

func TestProcessBestEffortSteps(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{
		deleteErr: errors.New("missing permission"),
		notifyErr: errors.New("dms disabled"),
	}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagImage))

	out := svc.Process(imageEvent(), acts)
	require.True(t, out.Enforced)
	assert.Len(t, acts.banned, 1)
	assert.Equal(t, uint64(1), svc.StatsView().TotalBans)
}

func TestProcessBanFailure(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{banErr: errors.New("missing ban permission")}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagImage))
	svc.SetLogChannel("log1")

	out := svc.Process(imageEvent(), acts)
	assert.True(t, out.Failed)
	assert.False(t, out.Enforced)

	// failed enforcement must not touch statistics or the audit log
	assert.Equal(t, uint64(0), svc.StatsView().TotalBans)
	assert.Empty(t, acts.embeds)
}

func TestProcessDisabledToggles(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagImage))
	svc.SetDeleteMessage(false)
	svc.SetNotifyUser(false)

	out := svc.Process(imageEvent(), acts)
	require.True(t, out.Enforced)
	assert.Empty(t, acts.deleted)
	assert.Empty(t, acts.notified)
}

func TestProcessAudit(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagImage))
	svc.SetLogChannel("log1")

	out := svc.Process(imageEvent(), acts)
	require.True(t, out.Enforced)
	assert.Equal(t, []string{"log1"}, acts.embeds)
}

func TestProcessAuditSendFailureNotFatal(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{sendErr: errors.New("channel gone")}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagImage))
	svc.SetLogChannel("log1")

	out := svc.Process(imageEvent(), acts)
	assert.True(t, out.Enforced)
	assert.Equal(t, uint64(1), svc.StatsView().TotalBans)
}

func TestProcessEmbedImageAlias(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagImage))

	ev := imageEvent()
	ev.Attachments = nil
	ev.Embeds = []Embed{{HasThumbnail: true}}

	out := svc.Process(ev, acts)
	require.True(t, out.Enforced)
	assert.Equal(t, TagEmbedImage, out.Tag)
	require.Len(t, acts.banned, 1)
	assert.Equal(t, "u1|Auto-ban: Posted embed_image", acts.banned[0])
}

func TestProcessFirstTagWins(t *testing.T) {
	svc, _ := newTestService(t)
	acts := &fakeActions{}

	svc.SetEnabled(true)
	require.NoError(t, svc.AddBannedTag(TagVideo))
	require.NoError(t, svc.AddBannedTag(TagGif))

	ev := imageEvent()
	ev.Attachments = []Attachment{{Filename: "a.gif"}, {Filename: "b.mp4"}}

	out := svc.Process(ev, acts)
	require.True(t, out.Enforced)
	assert.Equal(t, TagGif, out.Tag)
	// one enforcement decision per message
	assert.Len(t, acts.banned, 1)
}
