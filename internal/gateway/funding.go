package gateway

import (
	"context"
	"net/http"
	"net/url"
)

// FundingClient handles campaign backing.
type FundingClient struct {
	client *Client
}

// Fund backs a campaign. Requires authentication.
func (f *FundingClient) Fund(ctx context.Context, campaignID, backerWallet string, amount float64) (*FundResponse, error) {
	req := FundRequest{BackerWallet: backerWallet, Amount: amount}

	route := "/campaigns/{id}/fund"
	raw, err := f.client.request(ctx, http.MethodPost, route, "/campaigns/"+url.PathEscape(campaignID)+"/fund", nil, req, nil)
	if err != nil {
		return nil, err
	}

	var out FundResponse
	if err := f.client.decodeInto(route, raw, &out, "success", "transaction_hash"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Backers lists a campaign's backers.
func (f *FundingClient) Backers(ctx context.Context, campaignID string) (*BackerList, error) {
	route := "/campaigns/{id}/backers"
	raw, err := f.client.request(ctx, http.MethodGet, route, "/campaigns/"+url.PathEscape(campaignID)+"/backers", nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out BackerList
	if err := f.client.decodeInto(route, raw, &out, "backers"); err != nil {
		return nil, err
	}
	return &out, nil
}
