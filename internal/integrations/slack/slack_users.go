package slackbot

import (
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

const userCacheTTL = 30 * time.Minute

type cachedUser struct {
	name      string
	fetchedAt time.Time
}

// userDirectory resolves reviewer IDs to display names, caching lookups so
// a busy review channel does not hit users.info on every command.
type userDirectory struct {
	lookup func(userID string) (*slack.User, error)
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedUser
}

func newUserDirectory(lookup func(string) (*slack.User, error)) *userDirectory {
	return &userDirectory{
		lookup: lookup,
		now:    time.Now,
		cache:  make(map[string]cachedUser),
	}
}

// Name returns the best human name for userID. Lookup failures fall back to
// the raw ID and are not cached.
func (d *userDirectory) Name(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "someone"
	}

	d.mu.Lock()
	if c, ok := d.cache[userID]; ok && d.now().Sub(c.fetchedAt) < userCacheTTL {
		d.mu.Unlock()
		return c.name
	}
	d.mu.Unlock()

	if !isLikelySlackID(userID) || d.lookup == nil {
		return userID
	}
	user, err := d.lookup(userID)
	if err != nil || user == nil {
		return userID
	}
	name := displayName(user)

	d.mu.Lock()
	d.cache[userID] = cachedUser{name: name, fetchedAt: d.now()}
	d.mu.Unlock()
	return name
}

func displayName(user *slack.User) string {
	for _, n := range []string{user.Profile.DisplayName, user.RealName, user.Name} {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	return user.ID
}

func isLikelySlackID(val string) bool {
	if len(val) < 9 {
		return false
	}
	for i, r := range val {
		if i == 0 {
			if r != 'U' && r != 'W' {
				return false
			}
			continue
		}
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
