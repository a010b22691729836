package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// SkillsClient handles skill scores, the leaderboard, and skill NFTs.
type SkillsClient struct {
	client *Client
}

// Score returns the skill profile for a wallet.
func (s *SkillsClient) Score(ctx context.Context, walletAddress string) (*SkillScore, error) {
	route := "/users/skill-score/{wallet}"
	raw, err := s.client.request(ctx, http.MethodGet, route, "/users/skill-score/"+url.PathEscape(walletAddress), nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out SkillScore
	if err := s.client.decodeInto(route, raw, &out, "wallet_address", "skill_score"); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddActivity records a skill-earning activity for a wallet. Requires
// authentication.
func (s *SkillsClient) AddActivity(ctx context.Context, walletAddress string, activity SkillActivity) (*SkillUpdate, error) {
	route := "/users/skill-activity/{wallet}"
	raw, err := s.client.request(ctx, http.MethodPost, route, "/users/skill-activity/"+url.PathEscape(walletAddress), nil, activity, nil)
	if err != nil {
		return nil, err
	}

	var out SkillUpdate
	if err := s.client.decodeInto(route, raw, &out, "skill_score"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recalculate triggers a skill score recalculation for a wallet.
func (s *SkillsClient) Recalculate(ctx context.Context, walletAddress string) (*SkillUpdate, error) {
	route := "/users/skill-score/update/{wallet}"
	raw, err := s.client.request(ctx, http.MethodPut, route, "/users/skill-score/update/"+url.PathEscape(walletAddress), nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out SkillUpdate
	if err := s.client.decodeInto(route, raw, &out, "skill_score"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard returns the top wallets by skill score.
func (s *SkillsClient) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	raw, err := s.client.request(ctx, http.MethodGet, "/users/skill-leaderboard", "/users/skill-leaderboard", query, nil, nil)
	if err != nil {
		return nil, err
	}

	var out Leaderboard
	if err := s.client.decodeInto("/users/skill-leaderboard", raw, &out, "leaderboard"); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

// MintNFT mints or updates the skill NFT for a wallet. Requires
// authentication.
func (s *SkillsClient) MintNFT(ctx context.Context, walletAddress string) (*MintResult, error) {
	route := "/users/mint-skill-nft/{wallet}"
	raw, err := s.client.request(ctx, http.MethodPost, route, "/users/mint-skill-nft/"+url.PathEscape(walletAddress), nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out MintResult
	if err := s.client.decodeInto(route, raw, &out, "nft_data"); err != nil {
		return nil, err
	}
	return &out, nil
}

// NFT returns the skill NFT for a wallet, or nil when none was minted.
func (s *SkillsClient) NFT(ctx context.Context, walletAddress string) (*SkillNFT, error) {
	route := "/users/skill-nft/{wallet}"
	raw, err := s.client.request(ctx, http.MethodGet, route, "/users/skill-nft/"+url.PathEscape(walletAddress), nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		SkillNFT *SkillNFT `json:"skill_nft"`
	}
	if err := s.client.decodeInto(route, raw, &out); err != nil {
		return nil, err
	}
	return out.SkillNFT, nil
}
