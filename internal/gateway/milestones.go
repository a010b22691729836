package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// MilestonesClient handles the milestone proof lifecycle. A milestone starts
// pending, moves to submitted once the creator files completion proof, and is
// approved or rejected by backer votes.
type MilestonesClient struct {
	client *Client
}

// Submit files completion proof for a pending milestone. Only the campaign
// creator may submit; the milestone moves to the submitted state and opens
// for backer voting.
func (m *MilestonesClient) Submit(ctx context.Context, campaignID string, milestoneIndex int, creatorWallet, proofIPFS string) (*SubmitProofResponse, error) {
	req := SubmitProofRequest{CreatorWallet: creatorWallet, ProofIPFS: proofIPFS}

	route := "/campaigns/{id}/milestones/{index}/proof"
	path := fmt.Sprintf("/campaigns/%s/milestones/%d/proof", url.PathEscape(campaignID), milestoneIndex)
	raw, err := m.client.request(ctx, http.MethodPost, route, path, nil, req, nil)
	if err != nil {
		return nil, err
	}

	var out SubmitProofResponse
	if err := m.client.decodeInto(route, raw, &out, "success", "proof_ipfs"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one milestone with its voting progress.
func (m *MilestonesClient) Get(ctx context.Context, campaignID string, milestoneIndex int) (*MilestoneDetail, error) {
	route := "/campaigns/{id}/milestones/{index}"
	path := fmt.Sprintf("/campaigns/%s/milestones/%d", url.PathEscape(campaignID), milestoneIndex)
	raw, err := m.client.request(ctx, http.MethodGet, route, path, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out MilestoneDetail
	if err := m.client.decodeInto(route, raw, &out, "status", "milestone_index"); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns all milestones of a campaign with voting progress.
func (m *MilestonesClient) List(ctx context.Context, campaignID string) (*MilestoneList, error) {
	route := "/campaigns/{id}/milestones"
	path := fmt.Sprintf("/campaigns/%s/milestones", url.PathEscape(campaignID))
	raw, err := m.client.request(ctx, http.MethodGet, route, path, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out MilestoneList
	if err := m.client.decodeInto(route, raw, &out, "milestones"); err != nil {
		return nil, err
	}
	return &out, nil
}
