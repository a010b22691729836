package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainfund/chainfund-go/internal/gateway"
	"github.com/chainfund/chainfund-go/internal/logging"
	"github.com/chainfund/chainfund-go/internal/wallet"
)

func newTestServer(t *testing.T) (*httptest.Server, *devStore) {
	t.Helper()

	store := newDevStore()
	srv := &server{
		store:  store,
		hub:    newHub(logging.Nop()),
		secret: []byte("test-secret"),
		log:    logging.Nop(),
	}
	router := mux.NewRouter()
	srv.routes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, store
}

// newTestWallet creates a throwaway keystore and returns its provider and
// address.
func newTestWallet(t *testing.T) (*wallet.KeystoreProvider, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keystore.json")
	address, err := wallet.CreateKeystore(path, "passphrase")
	require.NoError(t, err)

	provider := wallet.NewKeystoreProvider(path, "passphrase")
	_, err = provider.RequestAccounts(context.Background())
	require.NoError(t, err)
	return provider, address
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// authenticate runs the real sign-and-verify flow against the test server.
func authenticate(t *testing.T, ts *httptest.Server, provider *wallet.KeystoreProvider, address string) string {
	t.Helper()

	message := wallet.SigningMessage(address, time.Now())
	signature, err := provider.SignMessage(context.Background(), []byte(message))
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/api/v1/users/auth", "", gateway.AuthRequest{
		WalletAddress: address,
		Signature:     signature,
		Message:       message,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	auth := decode[gateway.AuthResponse](t, resp)
	require.NotEmpty(t, auth.AccessToken)
	require.Equal(t, address, auth.User.WalletAddress)
	return auth.AccessToken
}

func TestAuth_ValidSignature(t *testing.T) {
	ts, _ := newTestServer(t)
	provider, address := newTestWallet(t)
	authenticate(t, ts, provider, address)
}

func TestAuth_WrongKeyRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	provider, _ := newTestWallet(t)
	_, otherAddress := newTestWallet(t)

	// Signature from one wallet claiming another wallet's address.
	message := wallet.SigningMessage(otherAddress, time.Now())
	signature, err := provider.SignMessage(context.Background(), []byte(message))
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/api/v1/users/auth", "", gateway.AuthRequest{
		WalletAddress: otherAddress,
		Signature:     signature,
		Message:       message,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "invalid_signature", body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestAuth_TamperedMessageRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	provider, address := newTestWallet(t)

	message := wallet.SigningMessage(address, time.Now())
	signature, err := provider.SignMessage(context.Background(), []byte(message))
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/api/v1/users/auth", "", gateway.AuthRequest{
		WalletAddress: address,
		Signature:     signature,
		Message:       message + " tampered",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/campaigns", "", gateway.CreateCampaignRequest{
		Title: "No auth", GoalAmount: 10,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCampaignLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	creator, creatorAddr := newTestWallet(t)
	creatorToken := authenticate(t, ts, creator, creatorAddr)

	// Create.
	resp := postJSON(t, ts.URL+"/api/v1/campaigns", creatorToken, gateway.CreateCampaignRequest{
		CreatorWallet: creatorAddr,
		Title:         "Solar Farm",
		Description:   "Community solar",
		GoalAmount:    100,
		Category:      "energy",
		Milestones: []gateway.MilestoneCreate{
			{Title: "Permits", Amount: 40},
			{Title: "Panels", Amount: 60},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	campaign := decode[gateway.Campaign](t, resp)
	require.Len(t, campaign.Milestones, 2)
	assert.Equal(t, "active", campaign.Status)

	// Fund past the goal with a second wallet.
	backer, backerAddr := newTestWallet(t)
	backerToken := authenticate(t, ts, backer, backerAddr)

	resp = postJSON(t, ts.URL+"/api/v1/campaigns/"+campaign.ID+"/fund", backerToken, gateway.FundRequest{
		BackerWallet: backerAddr,
		Amount:       120,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fund := decode[gateway.FundResponse](t, resp)
	assert.True(t, fund.Success)
	assert.NotEmpty(t, fund.TransactionHash)

	// Goal met: campaign flips to funded.
	getResp, err := http.Get(ts.URL + "/api/v1/campaigns/" + campaign.ID)
	require.NoError(t, err)
	got := decode[gateway.Campaign](t, getResp)
	assert.Equal(t, "funded", got.Status)
	assert.Equal(t, 120.0, got.TotalBacked)

	// Voting is closed until the creator submits completion proof.
	resp = postJSON(t, ts.URL+"/api/v1/campaigns/"+campaign.ID+"/milestones/0/vote", backerToken, gateway.VoteRequest{
		BackerWallet: backerAddr,
		Approve:      true,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/v1/campaigns/"+campaign.ID+"/milestones/0/proof", creatorToken, gateway.SubmitProofRequest{
		CreatorWallet: creatorAddr,
		ProofIPFS:     "QmPermitsProof",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	proof := decode[gateway.SubmitProofResponse](t, resp)
	assert.True(t, proof.Success)
	assert.Equal(t, "QmPermitsProof", proof.ProofIPFS)

	// The sole backer's approval is a majority: milestone approved.
	resp = postJSON(t, ts.URL+"/api/v1/campaigns/"+campaign.ID+"/milestones/0/vote", backerToken, gateway.VoteRequest{
		BackerWallet: backerAddr,
		Approve:      true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	vote := decode[gateway.VoteResponse](t, resp)
	assert.Equal(t, milestoneApproved, vote.MilestoneStatus)

	// Non-backer votes are forbidden.
	resp = postJSON(t, ts.URL+"/api/v1/campaigns/"+campaign.ID+"/milestones/1/vote", creatorToken, gateway.VoteRequest{
		BackerWallet: creatorAddr,
		Approve:      true,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Progress reflects one approved milestone of two.
	progResp, err := http.Get(ts.URL + "/api/v1/campaigns/" + campaign.ID + "/progress")
	require.NoError(t, err)
	progress := decode[gateway.CampaignProgress](t, progResp)
	assert.Equal(t, 1, progress.MilestonesCompleted)
	assert.Equal(t, 2, progress.TotalMilestones)
	assert.InDelta(t, 120.0, progress.FundingPercentage, 0.01)
}

func TestMilestoneProofLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	creator, creatorAddr := newTestWallet(t)
	creatorToken := authenticate(t, ts, creator, creatorAddr)

	resp := postJSON(t, ts.URL+"/api/v1/campaigns", creatorToken, gateway.CreateCampaignRequest{
		CreatorWallet: creatorAddr,
		Title:         "Library",
		GoalAmount:    50,
		Milestones:    []gateway.MilestoneCreate{{Title: "Books", Amount: 50}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	campaign := decode[gateway.Campaign](t, resp)

	// Only the creator may submit proof.
	outsider, outsiderAddr := newTestWallet(t)
	outsiderToken := authenticate(t, ts, outsider, outsiderAddr)
	resp = postJSON(t, ts.URL+"/api/v1/campaigns/"+campaign.ID+"/milestones/0/proof", outsiderToken, gateway.SubmitProofRequest{
		CreatorWallet: outsiderAddr,
		ProofIPFS:     "QmOutsider",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/v1/campaigns/"+campaign.ID+"/milestones/0/proof", creatorToken, gateway.SubmitProofRequest{
		CreatorWallet: creatorAddr,
		ProofIPFS:     "QmBooksProof",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Repeat submission conflicts: the milestone already left pending.
	resp = postJSON(t, ts.URL+"/api/v1/campaigns/"+campaign.ID+"/milestones/0/proof", creatorToken, gateway.SubmitProofRequest{
		CreatorWallet: creatorAddr,
		ProofIPFS:     "QmAgain",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Detail and list expose the proof hash and submitted state.
	detResp, err := http.Get(ts.URL + "/api/v1/campaigns/" + campaign.ID + "/milestones/0")
	require.NoError(t, err)
	detail := decode[gateway.MilestoneDetail](t, detResp)
	assert.Equal(t, milestoneSubmitted, detail.Status)
	assert.Equal(t, "QmBooksProof", detail.ProofIPFS)
	assert.Zero(t, detail.TotalVotes)

	listResp, err := http.Get(ts.URL + "/api/v1/campaigns/" + campaign.ID + "/milestones")
	require.NoError(t, err)
	list := decode[gateway.MilestoneList](t, listResp)
	require.Equal(t, 1, list.TotalMilestones)
	assert.Equal(t, milestoneSubmitted, list.Milestones[0].Status)
}

func TestRegister_UpdatesEmail(t *testing.T) {
	ts, store := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/users/register", "", gateway.RegisterRequest{
		WalletAddress: "0xAA00000000000000000000000000000000000001",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[gateway.User](t, resp)
	assert.Empty(t, created.Email)

	resp = postJSON(t, ts.URL+"/api/v1/users/register", "", gateway.RegisterRequest{
		WalletAddress: "0xAA00000000000000000000000000000000000001",
		Email:         "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	updated := decode[gateway.User](t, resp)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "alice@example.com", updated.Email)

	stored, ok := store.userByWallet("0xAA00000000000000000000000000000000000001")
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", stored.Email)
}

// Registration mutates the user record while other requests read it; both
// paths must go through the store lock.
func TestRegister_ConcurrentWithReads(t *testing.T) {
	ts, _ := newTestServer(t)
	const addr = "0xBB00000000000000000000000000000000000002"

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				resp := postJSON(t, ts.URL+"/api/v1/users/register", "", gateway.RegisterRequest{
					WalletAddress: addr,
					Email:         fmt.Sprintf("user%d@example.com", n),
				})
				resp.Body.Close()
				meResp, err := http.Get(ts.URL + "/api/v1/users/me?wallet_address=" + addr)
				if err == nil {
					meResp.Body.Close()
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestCampaignNotFoundShape(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/campaigns/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_found", body.Code)
}

func TestSkillFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	provider, address := newTestWallet(t)
	token := authenticate(t, ts, provider, address)

	// Fresh wallets start at Novice.
	resp, err := http.Get(ts.URL + "/api/v1/users/skill-score/" + address)
	require.NoError(t, err)
	score := decode[gateway.SkillScore](t, resp)
	assert.Equal(t, "Novice", score.SkillLevel)
	assert.Zero(t, score.SkillScore)

	// Enough score to cross into Apprentice.
	resp = postJSON(t, ts.URL+"/api/v1/users/skill-activity/"+address, token, gateway.SkillActivity{
		CampaignID:     "camp-1",
		MilestoneTitle: "Prototype",
		ScoreEarned:    150,
		Difficulty:     "hard",
		OnTime:         true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	update := decode[gateway.SkillUpdate](t, resp)
	assert.Equal(t, 150.0, update.SkillScore)
	assert.Equal(t, "Apprentice", update.SkillLevel)

	// Leaderboard includes the wallet at rank 1.
	resp, err = http.Get(ts.URL + "/api/v1/users/skill-leaderboard?limit=5")
	require.NoError(t, err)
	board := decode[gateway.Leaderboard](t, resp)
	require.NotEmpty(t, board.Leaderboard)
	assert.Equal(t, 1, board.Leaderboard[0].Rank)
	assert.Equal(t, address, board.Leaderboard[0].WalletAddress)

	// Mint, then fetch, the skill NFT.
	resp = postJSON(t, ts.URL+"/api/v1/users/mint-skill-nft/"+address, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mint := decode[gateway.MintResult](t, resp)
	assert.Equal(t, 150.0, mint.NFT.SkillScore)

	resp, err = http.Get(ts.URL + "/api/v1/users/skill-nft/" + address)
	require.NoError(t, err)
	var nftBody struct {
		SkillNFT *gateway.SkillNFT `json:"skill_nft"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&nftBody))
	require.NotNil(t, nftBody.SkillNFT)
	assert.Equal(t, mint.NFT.TokenID, nftBody.SkillNFT.TokenID)
}

func TestSeedFixture(t *testing.T) {
	store := newDevStore()
	require.NoError(t, store.loadSeed("testdata/seed.yaml"))

	campaigns, total := store.listCampaigns("", "", 0, 0)
	assert.Equal(t, 2, total)
	require.NotEmpty(t, campaigns)

	c, ok := store.getCampaign("camp-solar")
	require.True(t, ok)
	assert.Equal(t, "Community Solar Farm", c.Title)
	assert.Len(t, c.Milestones, 2)
	assert.Equal(t, milestonePending, c.Milestones[0].Status)

	_, ok = store.userByWallet("0xAA00000000000000000000000000000000000001")
	assert.True(t, ok)
}
