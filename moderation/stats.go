package moderation

import "sort"

// Stats holds the process-wide ban counters. TotalBans is monotonic
// non-decreasing except through Reset. UserOrder records the order users
// were first banned in, so TopBannedUsers ties break stably across
// restarts.
type Stats struct {
	TotalBans  uint64            `json:"total_bans"`
	BansByTag  map[Tag]uint64    `json:"bans_by_type"`
	BansByUser map[string]uint64 `json:"bans_by_user"`
	UserOrder  []string          `json:"user_order"`
}

func defaultStats() *Stats {
	return &Stats{
		BansByTag:  make(map[Tag]uint64),
		BansByUser: make(map[string]uint64),
		UserOrder:  []string{},
	}
}

func (s *Stats) recordBan(tag Tag, userID string) {
	s.TotalBans++
	s.BansByTag[tag]++
	if _, ok := s.BansByUser[userID]; !ok {
		s.UserOrder = append(s.UserOrder, userID)
	}
	s.BansByUser[userID]++
}

// normalize appends any counted user missing from UserOrder, so documents
// written without an order list still rank every user. Missing users are
// added in sorted order for determinism.
func (s *Stats) normalize() {
	seen := make(map[string]bool, len(s.UserOrder))
	for _, uid := range s.UserOrder {
		seen[uid] = true
	}
	var missing []string
	for uid := range s.BansByUser {
		if !seen[uid] {
			missing = append(missing, uid)
		}
	}
	sort.Strings(missing)
	s.UserOrder = append(s.UserOrder, missing...)
}

// UserCount pairs a user ID with their ban count.
type UserCount struct {
	UserID string
	Count  uint64
}

// top returns up to n users sorted descending by count, ties broken by
// first-recorded order.
func (s *Stats) top(n int) []UserCount {
	var out []UserCount
	for _, uid := range s.UserOrder {
		out = append(out, UserCount{UserID: uid, Count: s.BansByUser[uid]})
	}
	// insertion sort keeps first-recorded order for equal counts
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Count > out[j-1].Count; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
