package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// CampaignsClient handles campaign browsing and creation.
type CampaignsClient struct {
	client *Client
}

// ListOptions filter and paginate a campaign listing.
type ListOptions struct {
	Page    int
	Limit   int
	Status  string
	Creator string
}

// List returns campaigns matching opts.
func (c *CampaignsClient) List(ctx context.Context, opts ListOptions) (*CampaignList, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Creator != "" {
		query.Set("creator", opts.Creator)
	}

	raw, err := c.client.request(ctx, http.MethodGet, "/campaigns", "/campaigns", query, nil, nil)
	if err != nil {
		return nil, err
	}

	var out CampaignList
	if err := c.client.decodeInto("/campaigns", raw, &out, "campaigns", "total"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one campaign by id or contract address.
func (c *CampaignsClient) Get(ctx context.Context, id string) (*Campaign, error) {
	raw, err := c.client.request(ctx, http.MethodGet, "/campaigns/{id}", "/campaigns/"+url.PathEscape(id), nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out Campaign
	if err := c.client.decodeInto("/campaigns/{id}", raw, &out, "id", "goal_amount"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create creates a campaign. Requires authentication.
func (c *CampaignsClient) Create(ctx context.Context, req CreateCampaignRequest) (*Campaign, error) {
	raw, err := c.client.request(ctx, http.MethodPost, "/campaigns", "/campaigns", nil, req, nil)
	if err != nil {
		return nil, err
	}

	var out Campaign
	if err := c.client.decodeInto("/campaigns", raw, &out, "id"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress returns the funding and milestone progress summary.
func (c *CampaignsClient) Progress(ctx context.Context, id string) (*CampaignProgress, error) {
	route := "/campaigns/{id}/progress"
	raw, err := c.client.request(ctx, http.MethodGet, route, "/campaigns/"+url.PathEscape(id)+"/progress", nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out CampaignProgress
	if err := c.client.decodeInto(route, raw, &out, "campaign_id", "funding_percentage"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Categories returns the campaign categories with counts.
func (c *CampaignsClient) Categories(ctx context.Context) ([]Category, error) {
	raw, err := c.client.request(ctx, http.MethodGet, "/campaigns/categories", "/campaigns/categories", nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.client.decodeInto("/campaigns/categories", raw, &out, "categories"); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// RecentActivity returns the platform-wide activity feed.
func (c *CampaignsClient) RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	raw, err := c.client.request(ctx, http.MethodGet, "/activity/recent", "/activity/recent", query, nil, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Activities []ActivityItem `json:"activities"`
	}
	if err := c.client.decodeInto("/activity/recent", raw, &out, "activities"); err != nil {
		return nil, err
	}
	return out.Activities, nil
}
