package gateway

// Wire types for the ChainFund backend. Timestamps stay as the RFC 3339
// strings the backend emits; amounts are the backend's floating-point token
// units.

// User is a registered wallet identity.
type User struct {
	ID            string `json:"id"`
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// AuthRequest is the wallet-signature login payload.
type AuthRequest struct {
	WalletAddress string `json:"wallet_address"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

// AuthResponse is the login result.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// RegisterRequest creates or refreshes a user record.
type RegisterRequest struct {
	WalletAddress string `json:"wallet_address"`
	Email         string `json:"email,omitempty"`
}

// Vote is one backer's milestone vote.
type Vote struct {
	WalletAddress string `json:"wallet_address"`
	Approve       bool   `json:"vote"`
	VotedAt       string `json:"voted_at"`
}

// Milestone is a funding tranche with its own approval voting.
type Milestone struct {
	Index     int     `json:"index"`
	Title     string  `json:"title"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	ProofIPFS string  `json:"proof_ipfs,omitempty"`
	Votes     []Vote  `json:"votes"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// Backer records one wallet's cumulative contribution.
type Backer struct {
	WalletAddress string  `json:"wallet_address"`
	AmountBacked  float64 `json:"amount_backed"`
	BackedAt      string  `json:"backed_at"`
}

// Campaign is a crowdfunding campaign.
type Campaign struct {
	ID              string      `json:"id"`
	CreatorWallet   string      `json:"creator_wallet"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	GoalAmount      float64     `json:"goal_amount"`
	ContractAddress string      `json:"contract_address,omitempty"`
	Category        string      `json:"category,omitempty"`
	Milestones      []Milestone `json:"milestones"`
	Backers         []Backer    `json:"backers"`
	TotalBacked     float64     `json:"total_backed"`
	Status          string      `json:"status"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
}

// CampaignList is a paginated campaign listing.
type CampaignList struct {
	Campaigns []Campaign `json:"campaigns"`
	Total     int        `json:"total"`
}

// MilestoneCreate is the campaign-creation milestone payload.
type MilestoneCreate struct {
	Title  string  `json:"title"`
	Amount float64 `json:"amount"`
}

// CreateCampaignRequest creates a campaign.
type CreateCampaignRequest struct {
	CreatorWallet string            `json:"creator_wallet"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	GoalAmount    float64           `json:"goal_amount"`
	Category      string            `json:"category,omitempty"`
	Milestones    []MilestoneCreate `json:"milestones"`
}

// CampaignProgress summarizes funding and milestone completion.
type CampaignProgress struct {
	CampaignID          string  `json:"campaign_id"`
	TotalBacked         float64 `json:"total_backed"`
	GoalAmount          float64 `json:"goal_amount"`
	FundingPercentage   float64 `json:"funding_percentage"`
	BackersCount        int     `json:"backers_count"`
	MilestonesCompleted int     `json:"milestones_completed"`
	TotalMilestones     int     `json:"total_milestones"`
	MilestoneProgress   float64 `json:"milestone_progress"`
	Status              string  `json:"status"`
}

// Category is a campaign category with its campaign count.
type Category struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Description string `json:"description,omitempty"`
}

// FundRequest backs a campaign.
type FundRequest struct {
	BackerWallet string  `json:"backer_wallet"`
	Amount       float64 `json:"amount"`
}

// FundResponse is the funding result.
type FundResponse struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transaction_hash"`
	NFTTokenID      *int   `json:"nft_token_id,omitempty"`
	Message         string `json:"message"`
}

// BackerList lists a campaign's backers.
type BackerList struct {
	CampaignID   string   `json:"campaign_id"`
	Backers      []Backer `json:"backers"`
	TotalBackers int      `json:"total_backers"`
}

// SubmitProofRequest submits completion proof for a milestone. ProofIPFS is
// the IPFS hash of the uploaded evidence.
type SubmitProofRequest struct {
	CreatorWallet string `json:"creator_wallet"`
	ProofIPFS     string `json:"proof_ipfs"`
}

// SubmitProofResponse is the proof submission result.
type SubmitProofResponse struct {
	Success   bool   `json:"success"`
	ProofIPFS string `json:"proof_ipfs"`
	Message   string `json:"message"`
}

// MilestoneDetail is one milestone with its voting progress.
type MilestoneDetail struct {
	MilestoneIndex     int     `json:"milestone_index"`
	Title              string  `json:"title"`
	Amount             float64 `json:"amount"`
	Status             string  `json:"status"`
	ProofIPFS          string  `json:"proof_ipfs,omitempty"`
	Votes              []Vote  `json:"votes"`
	TotalVotes         int     `json:"total_votes"`
	ApproveVotes       int     `json:"approve_votes"`
	ApprovalPercentage float64 `json:"approval_percentage"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// MilestoneList lists a campaign's milestones with voting progress.
type MilestoneList struct {
	CampaignID      string            `json:"campaign_id"`
	Milestones      []MilestoneDetail `json:"milestones"`
	TotalMilestones int               `json:"total_milestones"`
}

// VoteRequest votes on a submitted milestone.
type VoteRequest struct {
	BackerWallet string `json:"backer_wallet"`
	Approve      bool   `json:"vote"`
}

// VoteResponse is the voting result.
type VoteResponse struct {
	Success         bool    `json:"success"`
	VoteRecorded    bool    `json:"vote_recorded"`
	MilestoneStatus string  `json:"milestone_status"`
	TransactionHash *string `json:"transaction_hash,omitempty"`
	Message         string  `json:"message"`
}

// MilestoneVotes is the vote tally for one milestone.
type MilestoneVotes struct {
	CampaignID         string  `json:"campaign_id"`
	MilestoneIndex     int     `json:"milestone_index"`
	Votes              []Vote  `json:"votes"`
	TotalVotes         int     `json:"total_votes"`
	ApproveVotes       int     `json:"approve_votes"`
	RejectVotes        int     `json:"reject_votes"`
	ApprovalPercentage float64 `json:"approval_percentage"`
	MilestoneStatus    string  `json:"milestone_status"`
}

// Achievement is one recent skill-earning activity.
type Achievement struct {
	CampaignID     string  `json:"campaign_id"`
	MilestoneTitle string  `json:"milestone_title"`
	ScoreEarned    float64 `json:"score_earned"`
	CompletedAt    string  `json:"completed_at"`
	Difficulty     string  `json:"difficulty"`
	OnTime         bool    `json:"on_time"`
}

// SkillScore is the gamification profile of one wallet.
type SkillScore struct {
	WalletAddress             string             `json:"wallet_address"`
	SkillScore                float64            `json:"skill_score"`
	SkillLevel                string             `json:"skill_level"`
	SkillNFTTokenID           *int               `json:"skill_nft_token_id,omitempty"`
	TotalMilestonesCompleted  int                `json:"total_milestones_completed"`
	TotalCampaignsParticipated int               `json:"total_campaigns_participated"`
	AverageCompletionTime     *float64           `json:"average_completion_time,omitempty"`
	SkillBreakdown            map[string]float64 `json:"skill_breakdown"`
	RecentAchievements        []Achievement      `json:"recent_achievements"`
	NextLevelThreshold        float64            `json:"next_level_threshold"`
}

// SkillActivity records one milestone completion toward the skill score.
type SkillActivity struct {
	CampaignID     string    `json:"campaign_id"`
	MilestoneID    string    `json:"milestone_id"`
	MilestoneTitle string    `json:"milestone_title"`
	ScoreEarned    float64   `json:"score_earned"`
	Difficulty     string    `json:"difficulty"`
	OnTime         bool      `json:"on_time"`
	PeerReviews    []float64 `json:"peer_reviews,omitempty"`
}

// SkillUpdate is the result of recording an activity or recalculating.
type SkillUpdate struct {
	Message    string  `json:"message"`
	SkillScore float64 `json:"skill_score"`
	SkillLevel string  `json:"skill_level"`
}

// LeaderboardEntry is one ranked wallet.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	WalletAddress string  `json:"wallet_address"`
	Username      string  `json:"username,omitempty"`
	SkillScore    float64 `json:"skill_score"`
	SkillLevel    string  `json:"skill_level"`
}

// Leaderboard is the ranked skill listing.
type Leaderboard struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// SkillNFT is the on-chain badge mirroring a wallet's skill level.
type SkillNFT struct {
	TokenID       int     `json:"token_id"`
	WalletAddress string  `json:"wallet_address"`
	SkillScore    float64 `json:"skill_score"`
	SkillLevel    string  `json:"skill_level"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

// MintResult is the skill NFT mint/update outcome.
type MintResult struct {
	Message string   `json:"message"`
	NFT     SkillNFT `json:"nft_data"`
}

// ActivityItem is one entry of the recent platform activity feed.
type ActivityItem struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount,omitempty"`
	CampaignTitle string  `json:"campaign_title,omitempty"`
	Timestamp     string  `json:"timestamp"`
	User          string  `json:"user,omitempty"`
}
