package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/chainfund/chainfund-go/internal/gateway"
	"github.com/chainfund/chainfund-go/internal/stream"
	"github.com/chainfund/chainfund-go/internal/wallet"
)

var (
	errCampaignNotFound  = errors.New("campaign not found")
	errCampaignClosed    = errors.New("campaign is not accepting funds")
	errMilestoneNotFound = errors.New("milestone not found")
	errMilestoneClosed   = errors.New("milestone voting is closed")
	errProofNotSubmitted = errors.New("milestone proof has not been submitted")
	errNotTheCreator     = errors.New("only the campaign creator may submit proof")
	errNotABacker        = errors.New("only backers may vote")
)

type server struct {
	store  *devStore
	hub    *hub
	secret []byte
	log    zerolog.Logger
}

// routes builds the API router. Protected routes sit on a subrouter behind
// the auth middleware, the way the platform gateway separates them.
func (s *server) routes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/users/auth", s.handleAuth).Methods(http.MethodPost)
	api.HandleFunc("/users/me", s.handleMe).Methods(http.MethodGet)

	api.HandleFunc("/campaigns", s.handleListCampaigns).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}", s.handleGetCampaign).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/progress", s.handleProgress).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/backers", s.handleBackers).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/milestones", s.handleMilestones).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/milestones/{index}", s.handleGetMilestone).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/milestones/{index}/votes", s.handleMilestoneVotes).Methods(http.MethodGet)

	api.HandleFunc("/users/skill-score/{wallet}", s.handleSkillScore).Methods(http.MethodGet)
	api.HandleFunc("/users/skill-leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/users/skill-nft/{wallet}", s.handleGetNFT).Methods(http.MethodGet)
	api.HandleFunc("/activity/recent", s.handleRecentActivity).Methods(http.MethodGet)

	api.HandleFunc("/stream", s.hub.handleStream)

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware(s.secret))
	protected.HandleFunc("/campaigns", s.handleCreateCampaign).Methods(http.MethodPost)
	protected.HandleFunc("/campaigns/{id}/fund", s.handleFund).Methods(http.MethodPost)
	protected.HandleFunc("/campaigns/{id}/milestones/{index}/proof", s.handleSubmitProof).Methods(http.MethodPost)
	protected.HandleFunc("/campaigns/{id}/milestones/{index}/vote", s.handleVote).Methods(http.MethodPost)
	protected.HandleFunc("/users/skill-activity/{wallet}", s.handleSkillActivity).Methods(http.MethodPost)
	protected.HandleFunc("/users/skill-score/update/{wallet}", s.handleRecalcSkill).Methods(http.MethodPut)
	protected.HandleFunc("/users/mint-skill-nft/{wallet}", s.handleMintNFT).Methods(http.MethodPost)
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req gateway.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WalletAddress == "" {
		jsonError(w, http.StatusBadRequest, "bad_request", "wallet_address is required")
		return
	}

	user := s.store.registerUser(req.WalletAddress, req.Email)
	writeJSON(w, http.StatusCreated, user)
}

// handleAuth verifies a personal_sign signature over the supplied message
// and issues a bearer token for the recovered wallet.
func (s *server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req gateway.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.WalletAddress == "" || req.Signature == "" || req.Message == "" {
		jsonError(w, http.StatusBadRequest, "bad_request", "wallet_address, signature, and message are required")
		return
	}

	if !wallet.VerifySignature(req.WalletAddress, req.Message, req.Signature) {
		jsonError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
		return
	}

	user := s.store.getOrCreateUser(req.WalletAddress)
	token, err := generateJWT(s.secret, user.WalletAddress)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}

	writeJSON(w, http.StatusCreated, gateway.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	walletAddr, _ := walletFromRequest(s.secret, r)
	if walletAddr == "" {
		walletAddr = r.URL.Query().Get("wallet_address")
	}
	if walletAddr == "" {
		jsonError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization")
		return
	}

	user, ok := s.store.userByWallet(walletAddr)
	if !ok {
		jsonError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	campaigns, total := s.store.listCampaigns(q.Get("status"), q.Get("creator"), page, limit)
	writeJSON(w, http.StatusOK, gateway.CampaignList{Campaigns: campaigns, Total: total})
}

func (s *server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := s.store.getCampaign(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req gateway.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Title == "" || req.GoalAmount <= 0 {
		jsonError(w, http.StatusBadRequest, "bad_request", "title and a positive goal_amount are required")
		return
	}

	creator := req.CreatorWallet
	if creator == "" {
		creator = authedWallet(r.Context())
	}

	now := time.Now().UTC().Format(time.RFC3339)
	campaign := &gateway.Campaign{
		ID:            uuid.New().String(),
		CreatorWallet: creator,
		Title:         req.Title,
		Description:   req.Description,
		GoalAmount:    req.GoalAmount,
		Category:      req.Category,
		Status:        "active",
		Milestones:    make([]gateway.Milestone, 0, len(req.Milestones)),
		Backers:       []gateway.Backer{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, m := range req.Milestones {
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
	s.store.addCampaign(campaign)

	s.store.recordActivity(gateway.ActivityItem{
		Type:          "campaign_created",
		Description:   fmt.Sprintf("%s created campaign %q", creator, req.Title),
		CampaignTitle: req.Title,
		User:          creator,
	})
	s.hub.broadcast(stream.Event{
		Type:       stream.EventCampaignCreated,
		CampaignID: campaign.ID,
		Timestamp:  now,
	})

	writeJSON(w, http.StatusCreated, campaign)
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	c, ok := s.store.getCampaign(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	}

	completed := 0
	for _, m := range c.Milestones {
		if m.Status == milestoneApproved {
			completed++
		}
	}

	progress := gateway.CampaignProgress{
		CampaignID:          c.ID,
		TotalBacked:         c.TotalBacked,
		GoalAmount:          c.GoalAmount,
		BackersCount:        len(c.Backers),
		MilestonesCompleted: completed,
		TotalMilestones:     len(c.Milestones),
		Status:              c.Status,
	}
	if c.GoalAmount > 0 {
		progress.FundingPercentage = c.TotalBacked / c.GoalAmount * 100
	}
	if len(c.Milestones) > 0 {
		progress.MilestoneProgress = float64(completed) / float64(len(c.Milestones)) * 100
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]gateway.Category{"categories": s.store.categories()})
}

func (s *server) handleFund(w http.ResponseWriter, r *http.Request) {
	var req gateway.FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		jsonError(w, http.StatusBadRequest, "bad_request", "a positive amount is required")
		return
	}

	backer := req.BackerWallet
	if backer == "" {
		backer = authedWallet(r.Context())
	}

	campaignID := mux.Vars(r)["id"]
	c, err := s.store.fund(campaignID, backer, req.Amount)
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.store.recordActivity(gateway.ActivityItem{
		Type:          "campaign_funded",
		Description:   fmt.Sprintf("%s backed %q with %.2f", backer, c.Title, req.Amount),
		Amount:        req.Amount,
		CampaignTitle: c.Title,
		User:          backer,
	})
	payload, _ := json.Marshal(map[string]interface{}{
		"backer_wallet": backer,
		"amount":        req.Amount,
		"total_backed":  c.TotalBacked,
	})
	s.hub.broadcast(stream.Event{
		Type:       stream.EventCampaignFunded,
		CampaignID: campaignID,
		Payload:    payload,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, gateway.FundResponse{
		Success:         true,
		TransactionHash: fmt.Sprintf("0x%s", strings.ReplaceAll(uuid.New().String(), "-", "")),
		Message:         "contribution recorded",
	})
}

func (s *server) handleBackers(w http.ResponseWriter, r *http.Request) {
	c, ok := s.store.getCampaign(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, gateway.BackerList{
		CampaignID:   c.ID,
		Backers:      c.Backers,
		TotalBackers: len(c.Backers),
	})
}

// handleSubmitProof files milestone completion proof. The milestone moves
// from pending to submitted and opens for backer voting.
func (s *server) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "milestone index must be an integer")
		return
	}

	var req gateway.SubmitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProofIPFS == "" {
		jsonError(w, http.StatusBadRequest, "bad_request", "proof_ipfs is required")
		return
	}
	creator := req.CreatorWallet
	if creator == "" {
		creator = authedWallet(r.Context())
	}

	m, err := s.store.submitProof(vars["id"], index, creator, req.ProofIPFS)
	if err != nil {
		s.storeError(w, err)
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"milestone_index":  index,
		"milestone_status": m.Status,
		"proof_ipfs":       m.ProofIPFS,
	})
	s.hub.broadcast(stream.Event{
		Type:       stream.EventMilestoneStatus,
		CampaignID: vars["id"],
		Payload:    payload,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, gateway.SubmitProofResponse{
		Success:   true,
		ProofIPFS: m.ProofIPFS,
		Message:   "proof submitted",
	})
}

func (s *server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	c, ok := s.store.getCampaign(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	}

	details := make([]gateway.MilestoneDetail, 0, len(c.Milestones))
	for i := range c.Milestones {
		details = append(details, milestoneDetail(&c.Milestones[i], i))
	}
	writeJSON(w, http.StatusOK, gateway.MilestoneList{
		CampaignID:      c.ID,
		Milestones:      details,
		TotalMilestones: len(details),
	})
}

func (s *server) handleGetMilestone(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "milestone index must be an integer")
		return
	}

	c, ok := s.store.getCampaign(vars["id"])
	if !ok {
		jsonError(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	}
	if index < 0 || index >= len(c.Milestones) {
		jsonError(w, http.StatusNotFound, "not_found", "milestone not found")
		return
	}
	writeJSON(w, http.StatusOK, milestoneDetail(&c.Milestones[index], index))
}

// milestoneDetail augments a milestone with its voting tallies.
func milestoneDetail(m *gateway.Milestone, index int) gateway.MilestoneDetail {
	approvals := 0
	for _, v := range m.Votes {
		if v.Approve {
			approvals++
		}
	}
	d := gateway.MilestoneDetail{
		MilestoneIndex: index,
		Title:          m.Title,
		Amount:         m.Amount,
		Status:         m.Status,
		ProofIPFS:      m.ProofIPFS,
		Votes:          m.Votes,
		TotalVotes:     len(m.Votes),
		ApproveVotes:   approvals,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if len(m.Votes) > 0 {
		d.ApprovalPercentage = float64(approvals) / float64(len(m.Votes)) * 100
	}
	return d
}

func (s *server) handleVote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "milestone index must be an integer")
		return
	}

	var req gateway.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	backer := req.BackerWallet
	if backer == "" {
		backer = authedWallet(r.Context())
	}

	m, err := s.store.vote(vars["id"], index, backer, req.Approve)
	if err != nil {
		s.storeError(w, err)
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"milestone_index":  index,
		"milestone_status": m.Status,
		"voter":            backer,
		"approve":          req.Approve,
	})
	s.hub.broadcast(stream.Event{
		Type:       stream.EventMilestoneVote,
		CampaignID: vars["id"],
		Payload:    payload,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, gateway.VoteResponse{
		Success:         true,
		VoteRecorded:    true,
		MilestoneStatus: m.Status,
		Message:         "vote recorded",
	})
}

func (s *server) handleMilestoneVotes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "milestone index must be an integer")
		return
	}

	c, ok := s.store.getCampaign(vars["id"])
	if !ok {
		jsonError(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	}
	if index < 0 || index >= len(c.Milestones) {
		jsonError(w, http.StatusNotFound, "not_found", "milestone not found")
		return
	}

	m := c.Milestones[index]
	approvals, rejections := 0, 0
	for _, v := range m.Votes {
		if v.Approve {
			approvals++
		} else {
			rejections++
		}
	}
	tally := gateway.MilestoneVotes{
		CampaignID:      c.ID,
		MilestoneIndex:  index,
		Votes:           m.Votes,
		TotalVotes:      len(m.Votes),
		ApproveVotes:    approvals,
		RejectVotes:     rejections,
		MilestoneStatus: m.Status,
	}
	if len(m.Votes) > 0 {
		tally.ApprovalPercentage = float64(approvals) / float64(len(m.Votes)) * 100
	}
	writeJSON(w, http.StatusOK, tally)
}

func (s *server) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, map[string][]gateway.ActivityItem{
		"activities": s.store.recentActivity(limit),
	})
}

// storeError maps store-layer sentinels to HTTP errors.
func (s *server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errCampaignNotFound), errors.Is(err, errMilestoneNotFound):
		jsonError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errNotABacker), errors.Is(err, errNotTheCreator):
		jsonError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, errCampaignClosed), errors.Is(err, errMilestoneClosed),
		errors.Is(err, errProofNotSubmitted):
		jsonError(w, http.StatusConflict, "conflict", err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
