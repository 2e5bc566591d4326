package members

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/parsascontentcorner/clanwarden/internal/database"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	configs  map[models.Snowflake]*models.GuildConfig
	members  map[models.Snowflake]*models.Member
	mappings []*models.RoleMapping
	err      error
	upserts  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs: make(map[models.Snowflake]*models.GuildConfig),
		members: make(map[models.Snowflake]*models.Member),
	}
}

func (s *fakeStore) GetGuildConfig(ctx context.Context, guildID models.Snowflake) (*models.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	cfg, ok := s.configs[guildID]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *cfg
	return &c, nil
}

func (s *fakeStore) UpsertGuildConfig(ctx context.Context, guildID models.Snowflake, patch models.GuildConfigPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cfg, ok := s.configs[guildID]
	if !ok {
		cfg = &models.GuildConfig{GuildID: guildID, AuditLogEnabled: true, ActivityThresholdDays: models.DefaultActivityThresholdDays}
		s.configs[guildID] = cfg
	}
	if patch.ActivityThresholdDays != nil {
		cfg.ActivityThresholdDays = *patch.ActivityThresholdDays
	}
	if patch.AutoRolesEnabled != nil {
		cfg.AutoRolesEnabled = *patch.AutoRolesEnabled
	}
	return nil
}

func (s *fakeStore) UpsertMember(ctx context.Context, p models.MemberPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserts++
	m, ok := s.members[p.UserID]
	if !ok {
		now := time.Now()
		m = &models.Member{GuildID: p.GuildID, UserID: p.UserID, LastActive: now, JoinedAt: now}
		s.members[p.UserID] = m
	}
	m.Username = p.Username
	if p.ClanRank != nil {
		m.ClanRank = *p.ClanRank
	}
	if p.HangarPower != nil {
		m.HangarPower = *p.HangarPower
	}
	if p.League != nil {
		m.League = *p.League
	}
	return nil
}

func (s *fakeStore) GetMember(ctx context.Context, guildID, userID models.Snowflake) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.members[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (s *fakeStore) GetAllMembers(ctx context.Context, guildID models.Snowflake) ([]*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*models.Member, 0, len(s.members))
	for _, m := range s.members {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *fakeStore) TouchMemberActivity(ctx context.Context, guildID, userID models.Snowflake) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	m, ok := s.members[userID]
	if !ok {
		return false, nil
	}
	m.LastActive = time.Now()
	m.IsInactive = false
	return true, nil
}

func (s *fakeStore) MarkInactiveMembers(ctx context.Context, guildID models.Snowflake, thresholdDays int) ([]models.Snowflake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	cutoff := time.Now().Add(-time.Duration(thresholdDays) * 24 * time.Hour)
	var ids []models.Snowflake
	for _, m := range s.members {
		if !m.IsInactive && m.LastActive.Before(cutoff) {
			m.IsInactive = true
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

func (s *fakeStore) AddRoleMapping(ctx context.Context, guildID, roleID models.Snowflake, clanRank string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, m := range s.mappings {
		if m.DiscordRoleID == roleID {
			m.ClanRank = clanRank
			return nil
		}
	}
	s.mappings = append(s.mappings, &models.RoleMapping{GuildID: guildID, DiscordRoleID: roleID, ClanRank: clanRank})
	return nil
}

func (s *fakeStore) GetRoleMappings(ctx context.Context, guildID models.Snowflake) ([]*models.RoleMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]*models.RoleMapping(nil), s.mappings...), nil
}
