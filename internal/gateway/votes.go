package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// VotesClient handles milestone approval voting.
type VotesClient struct {
	client *Client
}

// Vote records a backer's vote on a submitted milestone. Requires
// authentication; only backers of the campaign may vote.
func (v *VotesClient) Vote(ctx context.Context, campaignID string, milestoneIndex int, backerWallet string, approve bool) (*VoteResponse, error) {
	req := VoteRequest{BackerWallet: backerWallet, Approve: approve}

	route := "/campaigns/{id}/milestones/{index}/vote"
	path := fmt.Sprintf("/campaigns/%s/milestones/%d/vote", url.PathEscape(campaignID), milestoneIndex)
	raw, err := v.client.request(ctx, http.MethodPost, route, path, nil, req, nil)
	if err != nil {
		return nil, err
	}

	var out VoteResponse
	if err := v.client.decodeInto(route, raw, &out, "success", "milestone_status"); err != nil {
		return nil, err
	}
	return &out, nil
}

// MilestoneVotes returns the vote tally for one milestone.
func (v *VotesClient) MilestoneVotes(ctx context.Context, campaignID string, milestoneIndex int) (*MilestoneVotes, error) {
	route := "/campaigns/{id}/milestones/{index}/votes"
	path := fmt.Sprintf("/campaigns/%s/milestones/%d/votes", url.PathEscape(campaignID), milestoneIndex)
	raw, err := v.client.request(ctx, http.MethodGet, route, path, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out MilestoneVotes
	if err := v.client.decodeInto(route, raw, &out, "votes", "milestone_status"); err != nil {
		return nil, err
	}
	return &out, nil
}
