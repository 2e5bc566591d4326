package commands

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/access"
	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/models"
	"github.com/parsascontentcorner/clanwarden/internal/ratelimit"
)

const (
	guild   models.Snowflake = 1001
	actor   models.Snowflake = 2002
	target  models.Snowflake = 2003
	channel models.Snowflake = 4004
	role    models.Snowflake = 5005
)

// fakePlatform records every call and fails the methods listed in errs
type fakePlatform struct {
	mu       sync.Mutex
	calls    []string
	errs     map[string]error
	sent     []Message
	dms      []string
	timeouts map[models.Snowflake]time.Time
	purged   int
	purgeBot []bool
	roles    map[models.Snowflake][]models.Snowflake
	granted  map[models.Snowflake][]models.Snowflake
	channels map[models.Snowflake]bool
	profiles map[models.Snowflake]*MemberProfile
	files    map[string][]byte
	info     BotInfo
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		errs:     make(map[string]error),
		timeouts: make(map[models.Snowflake]time.Time),
		roles:    make(map[models.Snowflake][]models.Snowflake),
		granted:  make(map[models.Snowflake][]models.Snowflake),
		channels: make(map[models.Snowflake]bool),
		profiles: make(map[models.Snowflake]*MemberProfile),
		files:    make(map[string][]byte),
		purged:   3,
		info:     BotInfo{Ready: true, Name: "warden", Guilds: 2, Latency: 42 * time.Millisecond},
	}
}

func (f *fakePlatform) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakePlatform) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakePlatform) TimeoutMember(_ context.Context, _, userID models.Snowflake, until time.Time, _ string) error {
	if err := f.record("TimeoutMember"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts[userID] = until
	return nil
}

func (f *fakePlatform) ClearTimeout(_ context.Context, _, userID models.Snowflake) error {
	if err := f.record("ClearTimeout"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.timeouts, userID)
	return nil
}

func (f *fakePlatform) KickMember(_ context.Context, _, _ models.Snowflake, _ string) error {
	return f.record("KickMember")
}

func (f *fakePlatform) BanMember(_ context.Context, _, _ models.Snowflake, _ string) error {
	return f.record("BanMember")
}

func (f *fakePlatform) UnbanMember(_ context.Context, _, _ models.Snowflake) error {
	return f.record("UnbanMember")
}

func (f *fakePlatform) FetchUser(_ context.Context, userID models.Snowflake) (*User, error) {
	if err := f.record("FetchUser"); err != nil {
		return nil, err
	}
	return &User{ID: userID, Username: "banned_user"}, nil
}

func (f *fakePlatform) SendDirectMessage(_ context.Context, _ models.Snowflake, content string) error {
	if err := f.record("SendDirectMessage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, content)
	return nil
}

func (f *fakePlatform) SendMessage(_ context.Context, _ models.Snowflake, msg Message) error {
	if err := f.record("SendMessage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakePlatform) PurgeMessages(_ context.Context, _ models.Snowflake, limit int, botsOnly bool) (int, error) {
	if err := f.record("PurgeMessages"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purgeBot = append(f.purgeBot, botsOnly)
	if f.purged > limit {
		return limit, nil
	}
	return f.purged, nil
}

func (f *fakePlatform) SetChannelLocked(_ context.Context, _, _ models.Snowflake, _ bool) error {
	return f.record("SetChannelLocked")
}

func (f *fakePlatform) SetSlowmode(_ context.Context, _ models.Snowflake, _ int) error {
	return f.record("SetSlowmode")
}

func (f *fakePlatform) AddRole(_ context.Context, _, userID, roleID models.Snowflake) error {
	if err := f.record("AddRole"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted[userID] = append(f.granted[userID], roleID)
	return nil
}

func (f *fakePlatform) GuildMemberRoles(_ context.Context, _ models.Snowflake) (map[models.Snowflake][]models.Snowflake, error) {
	if err := f.record("GuildMemberRoles"); err != nil {
		return nil, err
	}
	return f.roles, nil
}

func (f *fakePlatform) ChannelExists(_ context.Context, _, channelID models.Snowflake) (bool, error) {
	if err := f.record("ChannelExists"); err != nil {
		return false, err
	}
	return f.channels[channelID], nil
}

func (f *fakePlatform) MemberProfile(_ context.Context, _, userID models.Snowflake) (*MemberProfile, error) {
	if err := f.record("MemberProfile"); err != nil {
		return nil, err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, ErrPlatformNotFound
	}
	return p, nil
}

func (f *fakePlatform) FetchAttachment(_ context.Context, url string) ([]byte, error) {
	if err := f.record("FetchAttachment"); err != nil {
		return nil, err
	}
	return f.files[url], nil
}

func (f *fakePlatform) Info() BotInfo {
	return f.info
}

type fakeAuthorizer struct {
	allow bool
	err   error
	seen  []access.Request
}

func (a *fakeAuthorizer) Authorize(_ context.Context, req access.Request) (access.Decision, error) {
	a.seen = append(a.seen, req)
	if a.err != nil {
		return access.Decision{}, a.err
	}
	return access.Decision{Allowed: a.allow}, nil
}

type fakeLimiter struct {
	allow bool
	wait  time.Duration
}

func (l *fakeLimiter) Allow(_ ratelimit.Key) (bool, time.Duration) {
	return l.allow, l.wait
}

// fakeAuditor keeps every tracked entry in memory
type fakeAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (a *fakeAuditor) Track(_ context.Context, e audit.Entry) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return false, a.err
	}
	a.entries = append(a.entries, e)
	return true, nil
}

func (a *fakeAuditor) Query(_ context.Context, _ models.Snowflake, _ int) ([]*models.AuditLogEntry, error) {
	return nil, nil
}

func (a *fakeAuditor) actions() []audit.Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Action, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type unitRouter struct {
	*Router
	plat  *fakePlatform
	authz *fakeAuthorizer
	trail *fakeAuditor
}

// newUnitRouter builds a router without a store; only handlers that never
// touch the database may be exercised through it.
func newUnitRouter() *unitRouter {
	p := newFakePlatform()
	a := &fakeAuthorizer{allow: true}
	au := &fakeAuditor{}
	r := NewRouter(Deps{
		Access:   a,
		Audit:    au,
		Platform: p,
		Logger:   zap.NewNop(),
	})
	return &unitRouter{Router: r, plat: p, authz: a, trail: au}
}

func invocation(name, sub string, opts map[string]interface{}) *Invocation {
	if opts == nil {
		opts = make(map[string]interface{})
	}
	return &Invocation{
		RequestID:   "req-1",
		GuildID:     guild,
		GuildName:   "Warden HQ",
		ChannelID:   channel,
		ChannelName: "general",
		ActorID:     actor,
		ActorName:   "mod",
		Name:        name,
		Sub:         sub,
		Options:     opts,
	}
}
