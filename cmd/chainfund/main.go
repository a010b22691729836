// chainfund is the command-line client for the ChainFund crowdfunding
// platform: wallet session management, campaign browsing and funding,
// milestone voting, and the skill leaderboard.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/chainfund/chainfund-go/internal/config"
	"github.com/chainfund/chainfund-go/internal/gateway"
	"github.com/chainfund/chainfund-go/internal/logging"
	"github.com/chainfund/chainfund-go/internal/session"
	"github.com/chainfund/chainfund-go/internal/storage"
	"github.com/chainfund/chainfund-go/internal/wallet"
)

const usage = `Usage: chainfund <command> [flags]

Wallet and session:
  wallet-init    create a new local wallet keystore
  connect        connect the wallet and persist the session
  disconnect     clear the session entirely
  login          sign the authentication message and log in
  logout         drop the auth token, keep the wallet connection
  status         show the current session

Campaigns:
  campaigns      list campaigns (or one with -id)
  create         create a campaign
  fund           back a campaign
  submit         submit milestone completion proof
  vote           vote on a submitted milestone
  milestones     list a campaign's milestones

Skills:
  skill          show a wallet's skill score
  leaderboard    show the skill leaderboard

Live events:
  watch          stream live campaign events

Environment: CHAINFUND_API_URL, CHAINFUND_KEYSTORE, CHAINFUND_PASSPHRASE,
CHAINFUND_STORE_PATH, CHAINFUND_REDIS_ADDR, CHAINFUND_LOG_LEVEL.
`

// app bundles the wired collaborators every command needs.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	durable  storage.Store
	provider *wallet.KeystoreProvider
	api      *gateway.Client
	session  *session.Store
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := run(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "chainfund: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.NewDefault(cfg.LogLevel)

	// wallet-init runs before any session wiring exists.
	if cmd == "wallet-init" {
		return cmdWalletInit(cfg, args)
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.durable.Close()

	ctx := context.Background()
	switch cmd {
	case "connect":
		return a.cmdConnect(ctx)
	case "disconnect":
		return a.cmdDisconnect(ctx)
	case "login":
		return a.cmdLogin(ctx)
	case "logout":
		return a.cmdLogout(ctx)
	case "status":
		return a.cmdStatus(ctx)
	case "campaigns":
		return a.cmdCampaigns(ctx, args)
	case "create":
		return a.cmdCreate(ctx, args)
	case "fund":
		return a.cmdFund(ctx, args)
	case "submit":
		return a.cmdSubmit(ctx, args)
	case "vote":
		return a.cmdVote(ctx, args)
	case "milestones":
		return a.cmdMilestones(ctx, args)
	case "skill":
		return a.cmdSkill(ctx, args)
	case "leaderboard":
		return a.cmdLeaderboard(ctx, args)
	case "watch":
		return a.cmdWatch(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	durable, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	api, err := gateway.New(gateway.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.RequestTimeout,
		Tokens:    gateway.StoreTokens(durable),
		RateLimit: cfg.RateLimit,
		Logger:    &log,
	})
	if err != nil {
		durable.Close()
		return nil, err
	}

	provider := wallet.NewKeystoreProvider(cfg.KeystorePath, cfg.KeystorePassphrase)

	sess, err := session.New(session.Config{
		Provider: provider,
		API:      api,
		Durable:  durable,
		Logger:   &log,
	})
	if err != nil {
		durable.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		durable:  durable,
		provider: provider,
		api:      api,
		session:  sess,
	}, nil
}

// openStore picks Redis when configured, the local session file otherwise.
func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.RedisAddr != "" {
		return storage.NewRedisStore(context.Background(), storage.RedisConfig{
			Addr: cfg.RedisAddr,
		})
	}
	return storage.NewFileStore(cfg.StorePath)
}
