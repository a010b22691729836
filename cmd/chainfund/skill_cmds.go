package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainfund/chainfund-go/internal/stream"
)

func (a *app) cmdSkill(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("skill", flag.ExitOnError)
	walletAddr := fs.String("wallet", "", "wallet address (defaults to the connected wallet)")
	fs.Parse(args)

	addr := *walletAddr
	if addr == "" {
		if err := a.restoreAndWait(ctx); err != nil {
			return err
		}
		addr = a.session.State().Connection.Address
	}
	if addr == "" {
		return fmt.Errorf("no wallet connected, pass -wallet or run: chainfund connect")
	}

	score, err := a.api.Skills().Score(ctx, addr)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n  score: %.1f (%s, next level at %.0f)\n  milestones completed: %d\n",
		score.WalletAddress, score.SkillScore, score.SkillLevel,
		score.NextLevelThreshold, score.TotalMilestonesCompleted)
	for _, ach := range score.RecentAchievements {
		fmt.Printf("  + %.1f  %s (%s)\n", ach.ScoreEarned, ach.MilestoneTitle, ach.Difficulty)
	}

	nft, err := a.api.Skills().NFT(ctx, addr)
	if err != nil {
		return err
	}
	if nft != nil {
		fmt.Printf("  skill NFT: token %d at %s level\n", nft.TokenID, nft.SkillLevel)
	}
	return nil
}

func (a *app) cmdLeaderboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of entries")
	fs.Parse(args)

	entries, err := a.api.Skills().Leaderboard(ctx, *limit)
	if err != nil {
		return err
	}

	for _, e := range entries {
		name := e.WalletAddress
		if e.Username != "" {
			name = fmt.Sprintf("%s (%s)", e.Username, e.WalletAddress)
		}
		fmt.Printf("%3d. %8.1f  %-10s  %s\n", e.Rank, e.SkillScore, e.SkillLevel, name)
	}
	return nil
}

func (a *app) cmdWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	campaignID := fs.String("id", "", "campaign to watch (all campaigns when empty)")
	fs.Parse(args)

	client, err := stream.New(a.cfg.APIBaseURL, &a.log)
	if err != nil {
		return err
	}
	defer client.Close()

	client.OnEvent(func(ev stream.Event) {
		if ev.CampaignID != "" {
			fmt.Printf("%s  %s  campaign=%s  %s\n", ev.Timestamp, ev.Type, ev.CampaignID, ev.Payload)
		} else {
			fmt.Printf("%s  %s  %s\n", ev.Timestamp, ev.Type, ev.Payload)
		}
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.Subscribe(*campaignID); err != nil {
		return err
	}

	fmt.Println("watching for events, Ctrl-C to stop")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	return nil
}
