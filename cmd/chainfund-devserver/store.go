package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chainfund/chainfund-go/internal/gateway"
)

// Milestone states. A milestone starts pending, moves to submitted once the
// creator files completion proof, and resolves to approved or rejected by
// backer votes.
const (
	milestonePending   = "pending"
	milestoneSubmitted = "submitted"
	milestoneApproved  = "approved"
	milestoneRejected  = "rejected"
)

// Skill levels in ascending order with their entry thresholds.
var skillLevels = []struct {
	name      string
	threshold float64
}{
	{"Novice", 0},
	{"Apprentice", 100},
	{"Skilled", 250},
	{"Expert", 500},
	{"Master", 1000},
}

// devStore is the in-memory backing store. All maps are keyed by lowercase
// wallet address or campaign id.
type devStore struct {
	mu        sync.RWMutex
	users     map[string]*gateway.User
	campaigns map[string]*gateway.Campaign
	skills    map[string]*gateway.SkillScore
	nfts      map[string]*gateway.SkillNFT
	activity  []gateway.ActivityItem
	nextToken int
}

func newDevStore() *devStore {
	return &devStore{
		users:     make(map[string]*gateway.User),
		campaigns: make(map[string]*gateway.Campaign),
		skills:    make(map[string]*gateway.SkillScore),
		nfts:      make(map[string]*gateway.SkillNFT),
		nextToken: 1,
	}
}

// seedFile is the YAML fixture layout.
type seedFile struct {
	Users []struct {
		WalletAddress string `yaml:"wallet_address"`
		Username      string `yaml:"username"`
		Email         string `yaml:"email"`
	} `yaml:"users"`
	Campaigns []struct {
		ID            string  `yaml:"id"`
		CreatorWallet string  `yaml:"creator_wallet"`
		Title         string  `yaml:"title"`
		Description   string  `yaml:"description"`
		GoalAmount    float64 `yaml:"goal_amount"`
		Category      string  `yaml:"category"`
		Milestones    []struct {
			Title  string  `yaml:"title"`
			Amount float64 `yaml:"amount"`
		} `yaml:"milestones"`
	} `yaml:"campaigns"`
}

// loadSeed populates the store from a YAML fixture file.
func (s *devStore) loadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range seed.Users {
		key := strings.ToLower(u.WalletAddress)
		s.users[key] = &gateway.User{
			ID:            uuid.New().String(),
			WalletAddress: u.WalletAddress,
			Username:      u.Username,
			Email:         u.Email,
			CreatedAt:     now,
		}
	}

	for _, c := range seed.Campaigns {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		campaign := &gateway.Campaign{
			ID:            id,
			CreatorWallet: c.CreatorWallet,
			Title:         c.Title,
			Description:   c.Description,
			GoalAmount:    c.GoalAmount,
			Category:      c.Category,
			Status:        "active",
			Milestones:    make([]gateway.Milestone, 0, len(c.Milestones)),
			Backers:       []gateway.Backer{},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		for i, m := range c.Milestones {
			campaign.Milestones = append(campaign.Milestones, gateway.Milestone{
				Index:     i,
				Title:     m.Title,
				Amount:    m.Amount,
				Status:    milestonePending,
				Votes:     []gateway.Vote{},
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		s.campaigns[id] = campaign
	}
	return nil
}

// getOrCreateUser returns a snapshot of the user for a wallet, creating a
// bare record on first sight the way the backend does on auth.
func (s *devStore) getOrCreateUser(wallet string) gateway.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateUserLocked(wallet)
}

func (s *devStore) getOrCreateUserLocked(wallet string) *gateway.User {
	key := strings.ToLower(wallet)
	if u, ok := s.users[key]; ok {
		return u
	}
	u := &gateway.User{
		ID:            uuid.New().String(),
		WalletAddress: wallet,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	s.users[key] = u
	return u
}

// registerUser upserts a user record. The email update happens under the
// store lock; callers get a snapshot, never the shared record.
func (s *devStore) registerUser(wallet, email string) gateway.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getOrCreateUserLocked(wallet)
	if email != "" {
		u.Email = email
		u.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return *u
}

func (s *devStore) userByWallet(wallet string) (gateway.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(wallet)]
	if !ok {
		return gateway.User{}, false
	}
	return *u, true
}

func (s *devStore) getCampaign(id string) (*gateway.Campaign, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	return c, ok
}

func (s *devStore) listCampaigns(status, creator string, page, limit int) ([]gateway.Campaign, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]gateway.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		if status != "" && c.Status != status {
			continue
		}
		if creator != "" && !strings.EqualFold(c.CreatorWallet, creator) {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt > all[j].CreatedAt })

	total := len(all)
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return []gateway.Campaign{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total
}

func (s *devStore) addCampaign(c *gateway.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

// fund records a contribution, merging repeat backers and flipping the
// campaign to funded once the goal is met.
func (s *devStore) fund(campaignID, backer string, amount float64) (*gateway.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, errCampaignNotFound
	}
	if c.Status != "active" {
		return nil, errCampaignClosed
	}

	now := time.Now().UTC().Format(time.RFC3339)
	merged := false
	for i := range c.Backers {
		if strings.EqualFold(c.Backers[i].WalletAddress, backer) {
			c.Backers[i].AmountBacked += amount
			merged = true
			break
		}
	}
	if !merged {
		c.Backers = append(c.Backers, gateway.Backer{
			WalletAddress: backer,
			AmountBacked:  amount,
			BackedAt:      now,
		})
	}

	c.TotalBacked += amount
	if c.TotalBacked >= c.GoalAmount {
		c.Status = "funded"
	}
	c.UpdatedAt = now
	return c, nil
}

// submitProof records completion proof for a pending milestone and opens it
// for voting. Only the campaign creator may submit.
func (s *devStore) submitProof(campaignID string, index int, creator, proofIPFS string) (*gateway.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, errCampaignNotFound
	}
	if !strings.EqualFold(c.CreatorWallet, creator) {
		return nil, errNotTheCreator
	}
	if index < 0 || index >= len(c.Milestones) {
		return nil, errMilestoneNotFound
	}

	m := &c.Milestones[index]
	if m.Status != milestonePending {
		return nil, errMilestoneClosed
	}

	now := time.Now().UTC().Format(time.RFC3339)
	m.ProofIPFS = proofIPFS
	m.Status = milestoneSubmitted
	m.UpdatedAt = now
	c.UpdatedAt = now
	return m, nil
}

// vote records one backer vote on a submitted milestone and resolves it once
// a majority of backers have voted the same way.
func (s *devStore) vote(campaignID string, index int, backer string, approve bool) (*gateway.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, errCampaignNotFound
	}
	if index < 0 || index >= len(c.Milestones) {
		return nil, errMilestoneNotFound
	}

	isBacker := false
	for _, b := range c.Backers {
		if strings.EqualFold(b.WalletAddress, backer) {
			isBacker = true
			break
		}
	}
	if !isBacker {
		return nil, errNotABacker
	}

	m := &c.Milestones[index]
	switch m.Status {
	case milestoneSubmitted:
	case milestonePending:
		return nil, errProofNotSubmitted
	default:
		return nil, errMilestoneClosed
	}

	now := time.Now().UTC().Format(time.RFC3339)
	voted := false
	for i := range m.Votes {
		if strings.EqualFold(m.Votes[i].WalletAddress, backer) {
			m.Votes[i].Approve = approve
			m.Votes[i].VotedAt = now
			voted = true
			break
		}
	}
	if !voted {
		m.Votes = append(m.Votes, gateway.Vote{WalletAddress: backer, Approve: approve, VotedAt: now})
	}

	approvals, rejections := 0, 0
	for _, v := range m.Votes {
		if v.Approve {
			approvals++
		} else {
			rejections++
		}
	}
	majority := len(c.Backers)/2 + 1
	if approvals >= majority {
		m.Status = milestoneApproved
	} else if rejections >= majority {
		m.Status = milestoneRejected
	}
	m.UpdatedAt = now
	c.UpdatedAt = now
	return m, nil
}

// skillScore returns the profile for a wallet, creating a zeroed one on
// first access.
func (s *devStore) skillScore(wallet string) *gateway.SkillScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skillScoreLocked(wallet)
}

func (s *devStore) skillScoreLocked(wallet string) *gateway.SkillScore {
	key := strings.ToLower(wallet)
	if sc, ok := s.skills[key]; ok {
		return sc
	}
	sc := &gateway.SkillScore{
		WalletAddress:      wallet,
		SkillLevel:         skillLevels[0].name,
		SkillBreakdown:     map[string]float64{},
		RecentAchievements: []gateway.Achievement{},
		NextLevelThreshold: skillLevels[1].threshold,
	}
	s.skills[key] = sc
	return sc
}

// addSkillActivity applies one completed milestone to the wallet's profile.
func (s *devStore) addSkillActivity(wallet string, act gateway.SkillActivity) *gateway.SkillScore {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.skillScoreLocked(wallet)
	sc.SkillScore += act.ScoreEarned
	sc.TotalMilestonesCompleted++
	sc.SkillBreakdown[act.Difficulty] += act.ScoreEarned
	sc.RecentAchievements = append([]gateway.Achievement{{
		CampaignID:     act.CampaignID,
		MilestoneTitle: act.MilestoneTitle,
		ScoreEarned:    act.ScoreEarned,
		CompletedAt:    time.Now().UTC().Format(time.RFC3339),
		Difficulty:     act.Difficulty,
		OnTime:         act.OnTime,
	}}, sc.RecentAchievements...)
	if len(sc.RecentAchievements) > 10 {
		sc.RecentAchievements = sc.RecentAchievements[:10]
	}

	s.applyLevelLocked(sc)
	return sc
}

// recalcSkill recomputes level and threshold from the current score.
func (s *devStore) recalcSkill(wallet string) *gateway.SkillScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.skillScoreLocked(wallet)
	s.applyLevelLocked(sc)
	return sc
}

func (s *devStore) applyLevelLocked(sc *gateway.SkillScore) {
	level := skillLevels[0]
	next := skillLevels[len(skillLevels)-1].threshold
	for i, l := range skillLevels {
		if sc.SkillScore >= l.threshold {
			level = l
			if i+1 < len(skillLevels) {
				next = skillLevels[i+1].threshold
			} else {
				next = l.threshold
			}
		}
	}
	sc.SkillLevel = level.name
	sc.NextLevelThreshold = next
}

func (s *devStore) leaderboard(limit int) []gateway.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]gateway.LeaderboardEntry, 0, len(s.skills))
	for key, sc := range s.skills {
		entry := gateway.LeaderboardEntry{
			WalletAddress: sc.WalletAddress,
			SkillScore:    sc.SkillScore,
			SkillLevel:    sc.SkillLevel,
		}
		if u, ok := s.users[key]; ok {
			entry.Username = u.Username
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].SkillScore > entries[j].SkillScore })

	if limit <= 0 {
		limit = 10
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// mintNFT mints a skill badge for the wallet or refreshes an existing one.
func (s *devStore) mintNFT(wallet string) *gateway.SkillNFT {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.skillScoreLocked(wallet)
	key := strings.ToLower(wallet)
	now := time.Now().UTC().Format(time.RFC3339)

	nft, ok := s.nfts[key]
	if !ok {
		nft = &gateway.SkillNFT{
			TokenID:       s.nextToken,
			WalletAddress: wallet,
		}
		s.nextToken++
		s.nfts[key] = nft
		tokenID := nft.TokenID
		sc.SkillNFTTokenID = &tokenID
	}
	nft.SkillScore = sc.SkillScore
	nft.SkillLevel = sc.SkillLevel
	nft.UpdatedAt = now
	return nft
}

func (s *devStore) getNFT(wallet string) (*gateway.SkillNFT, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nft, ok := s.nfts[strings.ToLower(wallet)]
	return nft, ok
}

// recordActivity appends to the platform feed, newest first.
func (s *devStore) recordActivity(item gateway.ActivityItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = uuid.New().String()
	item.Timestamp = time.Now().UTC().Format(time.RFC3339)
	s.activity = append([]gateway.ActivityItem{item}, s.activity...)
	if len(s.activity) > 200 {
		s.activity = s.activity[:200]
	}
}

func (s *devStore) recentActivity(limit int) []gateway.ActivityItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.activity) {
		limit = len(s.activity)
	}
	out := make([]gateway.ActivityItem, limit)
	copy(out, s.activity[:limit])
	return out
}

func (s *devStore) categories() []gateway.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range s.campaigns {
		if c.Category != "" {
			counts[c.Category]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]gateway.Category, 0, len(names))
	for _, name := range names {
		out = append(out, gateway.Category{Name: name, Count: counts[name]})
	}
	return out
}
