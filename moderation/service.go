package moderation

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/intrntsrfr/warden/store"
	"go.uber.org/zap"
)

// Document names in the store.
const (
	docConfig     = "config"
	docAuthorized = "authorized"
	docStats      = "stats"
)

// Service owns the moderation configuration, the per-guild authorization
// table and the ban statistics. It is constructed once at startup with an
// explicit load step and passed into every pipeline and command invocation.
type Service struct {
	mu    sync.Mutex
	log   *zap.Logger
	store store.Store

	config *Config
	auth   AuthList
	stats  *Stats
}

func NewService(st store.Store, log *zap.Logger) (*Service, error) {
	s := &Service{
		log:   log,
		store: st,
	}

	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}
	s.config = cfg

	auth, err := s.loadAuthorized()
	if err != nil {
		return nil, err
	}
	s.auth = auth

	stats, err := s.loadStats()
	if err != nil {
		return nil, err
	}
	s.stats = stats

	return s, nil
}

// readDocument loads the raw document, or returns nil when it is missing or
// unreadable so the caller can synthesize defaults. Defaults are persisted
// immediately so storage is never left partially initialized.
func (s *Service) readDocument(name string) []byte {
	d, err := s.store.Load(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warn("unreadable document, using defaults", zap.String("name", name), zap.Error(err))
		return nil
	}
	return d
}

func (s *Service) loadConfig() (*Config, error) {
	if d := s.readDocument(docConfig); d != nil {
		// unmarshal over defaults so missing fields stay populated
		cfg := defaultConfig()
		if err := json.Unmarshal(d, cfg); err == nil {
			return cfg, nil
		}
		s.log.Warn("corrupt config document, using defaults", zap.String("name", docConfig))
	}
	cfg := defaultConfig()
	return cfg, s.saveDocument(docConfig, cfg)
}

func (s *Service) loadAuthorized() (AuthList, error) {
	if d := s.readDocument(docAuthorized); d != nil {
		auth := defaultAuthList()
		if err := json.Unmarshal(d, &auth); err == nil {
			return auth, nil
		}
		s.log.Warn("corrupt authorization document, using defaults", zap.String("name", docAuthorized))
	}
	auth := defaultAuthList()
	return auth, s.saveDocument(docAuthorized, auth)
}

func (s *Service) loadStats() (*Stats, error) {
	if d := s.readDocument(docStats); d != nil {
		stats := defaultStats()
		if err := json.Unmarshal(d, stats); err == nil {
			stats.normalize()
			return stats, nil
		}
		s.log.Warn("corrupt statistics document, using defaults", zap.String("name", docStats))
	}
	stats := defaultStats()
	return stats, s.saveDocument(docStats, stats)
}

func (s *Service) saveDocument(name string, v interface{}) error {
	d, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.store.Save(name, d)
}

// persist writes a document and logs on failure. In-memory state stays
// authoritative until the next successful write.
func (s *Service) persist(name string, v interface{}) {
	if err := s.saveDocument(name, v); err != nil {
		s.log.Error("failed to persist document", zap.String("name", name), zap.Error(err))
	}
}

//
// Config
//

// ConfigView returns a copy of the current configuration.
func (s *Service) ConfigView() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.copy()
}

func (s *Service) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Enabled = enabled
	s.persist(docConfig, s.config)
}

func (s *Service) AddBannedTag(t Tag) error {
	if !ValidTag(t) {
		return errors.New("unknown content tag")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.config.BannedTags {
		if v == t {
			return nil
		}
	}
	s.config.BannedTags = append(s.config.BannedTags, t)
	s.persist(docConfig, s.config)
	return nil
}

func (s *Service) RemoveBannedTag(t Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.config.BannedTags[:0]
	for _, v := range s.config.BannedTags {
		if v != t {
			out = append(out, v)
		}
	}
	s.config.BannedTags = out
	s.persist(docConfig, s.config)
}

func (s *Service) AddExemptRole(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !contains(s.config.ExemptRoles, id) {
		s.config.ExemptRoles = append(s.config.ExemptRoles, id)
		s.persist(docConfig, s.config)
	}
}

func (s *Service) RemoveExemptRole(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.ExemptRoles = remove(s.config.ExemptRoles, id)
	s.persist(docConfig, s.config)
}

func (s *Service) AddExemptChannel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !contains(s.config.ExemptChannels, id) {
		s.config.ExemptChannels = append(s.config.ExemptChannels, id)
		s.persist(docConfig, s.config)
	}
}

func (s *Service) RemoveExemptChannel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.ExemptChannels = remove(s.config.ExemptChannels, id)
	s.persist(docConfig, s.config)
}

func (s *Service) SetLogChannel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.LogChannel = id
	s.persist(docConfig, s.config)
}

func (s *Service) SetBanMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.BanMessage = msg
	s.persist(docConfig, s.config)
}

func (s *Service) SetDeleteMessage(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.DeleteMessage = v
	s.persist(docConfig, s.config)
}

func (s *Service) SetNotifyUser(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.NotifyUser = v
	s.persist(docConfig, s.config)
}

//
// Authorization
//

// IsAuthorized reports whether the actor may run admin commands in the
// guild. An unknown guild gets an empty allow-list entry, which is
// persisted on creation.
func (s *Service) IsAuthorized(userID string, roleIDs []string, isAdmin bool, guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, created := s.auth.entry(guildID)
	if created {
		s.persist(docAuthorized, s.auth)
	}
	return g.authorized(userID, roleIDs, isAdmin)
}

// EnsureGuild creates and persists an allow-list entry for the guild if one
// does not exist yet.
func (s *Service) EnsureGuild(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, created := s.auth.entry(guildID); created {
		s.persist(docAuthorized, s.auth)
	}
}

func (s *Service) AuthorizeUser(guildID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, _ := s.auth.entry(guildID)
	if !contains(g.Users, userID) {
		g.Users = append(g.Users, userID)
	}
	s.persist(docAuthorized, s.auth)
}

func (s *Service) UnauthorizeUser(guildID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, _ := s.auth.entry(guildID)
	g.Users = remove(g.Users, userID)
	s.persist(docAuthorized, s.auth)
}

func (s *Service) AuthorizeRole(guildID, roleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, _ := s.auth.entry(guildID)
	if !contains(g.Roles, roleID) {
		g.Roles = append(g.Roles, roleID)
	}
	s.persist(docAuthorized, s.auth)
}

func (s *Service) UnauthorizeRole(guildID, roleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, _ := s.auth.entry(guildID)
	g.Roles = remove(g.Roles, roleID)
	s.persist(docAuthorized, s.auth)
}

// Authorized returns copies of the guild's allow-lists.
func (s *Service) Authorized(guildID string) (users, roles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, created := s.auth.entry(guildID)
	if created {
		s.persist(docAuthorized, s.auth)
	}
	return append([]string{}, g.Users...), append([]string{}, g.Roles...)
}

//
// Statistics
//

// RecordBan increments the ban counters and persists them synchronously.
func (s *Service) RecordBan(tag Tag, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.recordBan(tag, userID)
	s.persist(docStats, s.stats)
}

// TopBannedUsers returns up to n (userID, count) pairs sorted descending by
// count, ties broken by first-recorded order.
func (s *Service) TopBannedUsers(n int) []UserCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.top(n)
}

// StatsView returns a copy of the current statistics.
func (s *Service) StatsView() *Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := &Stats{
		TotalBans:  s.stats.TotalBans,
		BansByTag:  make(map[Tag]uint64, len(s.stats.BansByTag)),
		BansByUser: make(map[string]uint64, len(s.stats.BansByUser)),
		UserOrder:  append([]string{}, s.stats.UserOrder...),
	}
	for k, v := range s.stats.BansByTag {
		cp.BansByTag[k] = v
	}
	for k, v := range s.stats.BansByUser {
		cp.BansByUser[k] = v
	}
	return cp
}

// ResetStats zeroes all counters. This is the only way counts decrease.
func (s *Service) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = defaultStats()
	s.persist(docStats, s.stats)
}
