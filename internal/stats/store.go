package stats

import (
	"sort"
	"time"

	"sshwatch/internal/model"
)

// Store folds counted login attempts into running counters. It has a single
// writer (the collector's tick) and hands out frozen copies to everyone else,
// so it carries no locks. Username and IP totals grow for the process
// lifetime; only the hourly series is windowed.
type Store struct {
	users     map[string]int
	ips       map[string]int
	hours     []model.HourCount
	retention int
	failures  int
}

func NewStore(retention int) *Store {
	if retention <= 0 {
		retention = 24
	}
	return &Store{
		users:     make(map[string]int),
		ips:       make(map[string]int),
		retention: retention,
	}
}

// Record folds one attempt into the counters. Accepted logins are observed
// but increment nothing.
func (s *Store) Record(attempt model.LoginAttempt) {
	if !attempt.Outcome.Counted() {
		return
	}
	s.users[attempt.Username]++
	s.ips[attempt.SourceIP]++
	s.bump(attempt.Timestamp.Truncate(time.Hour))
	s.failures++
	s.evict()
}

func (s *Store) bump(hour time.Time) {
	n := len(s.hours)
	if n == 0 || hour.After(s.hours[n-1].Time) {
		s.hours = append(s.hours, model.HourCount{Time: hour, Count: 1})
		return
	}
	// Late events land at or before the newest bucket; scan backwards since
	// anything older than the current hour is rare.
	for i := n - 1; i >= 0; i-- {
		if s.hours[i].Time.Equal(hour) {
			s.hours[i].Count++
			return
		}
		if s.hours[i].Time.Before(hour) {
			s.hours = append(s.hours, model.HourCount{})
			copy(s.hours[i+2:], s.hours[i+1:])
			s.hours[i+1] = model.HourCount{Time: hour, Count: 1}
			return
		}
	}
	s.hours = append([]model.HourCount{{Time: hour, Count: 1}}, s.hours...)
}

func (s *Store) evict() {
	if len(s.hours) <= s.retention {
		return
	}
	drop := len(s.hours) - s.retention
	s.hours = append(s.hours[:0:0], s.hours[drop:]...)
}

// Failures is the number of counted attempts recorded since process start.
func (s *Store) Failures() int {
	return s.failures
}

// Snapshot freezes the current counters. topN <= 0 means unlimited. The
// result is a fresh value every call and reads nothing back into the store.
func (s *Store) Snapshot(topN int, now time.Time) model.Snapshot {
	users := make([]model.UserCount, 0, len(s.users))
	for user, count := range s.users {
		users = append(users, model.UserCount{User: user, Count: count})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Count != users[j].Count {
			return users[i].Count > users[j].Count
		}
		return users[i].User < users[j].User
	})
	if topN > 0 && len(users) > topN {
		users = users[:topN]
	}

	ips := make([]model.IPCount, 0, len(s.ips))
	for ip, count := range s.ips {
		ips = append(ips, model.IPCount{IP: ip, Count: count})
	}
	sort.Slice(ips, func(i, j int) bool {
		if ips[i].Count != ips[j].Count {
			return ips[i].Count > ips[j].Count
		}
		return ips[i].IP < ips[j].IP
	})
	if topN > 0 && len(ips) > topN {
		ips = ips[:topN]
	}

	hourly := make([]model.HourCount, len(s.hours))
	copy(hourly, s.hours)

	return model.Snapshot{
		TopUsers:    users,
		TopIPs:      ips,
		Hourly:      hourly,
		GeneratedAt: now,
	}
}
