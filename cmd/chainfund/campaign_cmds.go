package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainfund/chainfund-go/internal/gateway"
)

func (a *app) cmdCampaigns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("campaigns", flag.ExitOnError)
	id := fs.String("id", "", "show one campaign")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	status := fs.String("status", "", "filter by status (active, funded, completed)")
	creator := fs.String("creator", "", "filter by creator wallet")
	fs.Parse(args)

	if *id != "" {
		c, err := a.api.Campaigns().Get(ctx, *id)
		if err != nil {
			return err
		}
		printCampaign(c)

		progress, err := a.api.Campaigns().Progress(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("funding: %.1f%%  milestones: %d/%d approved\n",
			progress.FundingPercentage, progress.MilestonesCompleted, progress.TotalMilestones)
		return nil
	}

	list, err := a.api.Campaigns().List(ctx, gateway.ListOptions{
		Page: *page, Limit: *limit, Status: *status, Creator: *creator,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%d campaigns\n", list.Total)
	for _, c := range list.Campaigns {
		fmt.Printf("  %-36s  %-10s  %8.2f/%-8.2f  %s\n",
			c.ID, c.Status, c.TotalBacked, c.GoalAmount, c.Title)
	}
	return nil
}

func (a *app) cmdCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "campaign title")
	description := fs.String("description", "", "campaign description")
	goal := fs.Float64("goal", 0, "goal amount")
	category := fs.String("category", "", "campaign category")
	milestones := fs.String("milestones", "", "milestones as title:amount,title:amount")
	fs.Parse(args)

	if *title == "" || *goal <= 0 {
		return fmt.Errorf("-title and a positive -goal are required")
	}

	if err := a.restoreAndWait(ctx); err != nil {
		return err
	}
	st := a.session.State()
	if !st.Auth.Authenticated {
		return fmt.Errorf("not logged in, run: chainfund login")
	}

	req := gateway.CreateCampaignRequest{
		CreatorWallet: st.Connection.Address,
		Title:         *title,
		Description:   *description,
		GoalAmount:    *goal,
		Category:      *category,
	}
	for _, part := range strings.Split(*milestones, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := parseMilestone(part)
		if err != nil {
			return err
		}
		req.Milestones = append(req.Milestones, m)
	}

	c, err := a.api.Campaigns().Create(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("created campaign %s\n", c.ID)
	return nil
}

func (a *app) cmdFund(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fund", flag.ExitOnError)
	id := fs.String("id", "", "campaign id")
	amount := fs.Float64("amount", 0, "amount to back")
	fs.Parse(args)

	if *id == "" || *amount <= 0 {
		return fmt.Errorf("-id and a positive -amount are required")
	}

	if err := a.restoreAndWait(ctx); err != nil {
		return err
	}
	st := a.session.State()
	if !st.Auth.Authenticated {
		return fmt.Errorf("not logged in, run: chainfund login")
	}

	resp, err := a.api.Funding().Fund(ctx, *id, st.Connection.Address, *amount)
	if err != nil {
		return err
	}
	fmt.Printf("backed %s with %.2f\ntx: %s\n", *id, *amount, resp.TransactionHash)
	return nil
}

func (a *app) cmdSubmit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	id := fs.String("id", "", "campaign id")
	index := fs.Int("milestone", -1, "milestone index")
	proof := fs.String("proof", "", "IPFS hash of the completion proof")
	fs.Parse(args)

	if *id == "" || *index < 0 || *proof == "" {
		return fmt.Errorf("-id, -milestone, and -proof are required")
	}

	if err := a.restoreAndWait(ctx); err != nil {
		return err
	}
	st := a.session.State()
	if !st.Auth.Authenticated {
		return fmt.Errorf("not logged in, run: chainfund login")
	}

	resp, err := a.api.Milestones().Submit(ctx, *id, *index, st.Connection.Address, *proof)
	if err != nil {
		return err
	}
	fmt.Printf("proof submitted: %s\n", resp.ProofIPFS)
	return nil
}

func (a *app) cmdMilestones(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("milestones", flag.ExitOnError)
	id := fs.String("id", "", "campaign id")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	list, err := a.api.Milestones().List(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("%d milestones\n", list.TotalMilestones)
	for _, m := range list.Milestones {
		fmt.Printf("  %d: %-30s %8.2f  %-9s  %d votes, %.0f%% approve",
			m.MilestoneIndex, m.Title, m.Amount, m.Status, m.TotalVotes, m.ApprovalPercentage)
		if m.ProofIPFS != "" {
			fmt.Printf("  proof: %s", m.ProofIPFS)
		}
		fmt.Println()
	}
	return nil
}

func (a *app) cmdVote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vote", flag.ExitOnError)
	id := fs.String("id", "", "campaign id")
	index := fs.Int("milestone", -1, "milestone index")
	approve := fs.Bool("approve", true, "approve (true) or reject (false)")
	fs.Parse(args)

	if *id == "" || *index < 0 {
		return fmt.Errorf("-id and -milestone are required")
	}

	if err := a.restoreAndWait(ctx); err != nil {
		return err
	}
	st := a.session.State()
	if !st.Auth.Authenticated {
		return fmt.Errorf("not logged in, run: chainfund login")
	}

	resp, err := a.api.Votes().Vote(ctx, *id, *index, st.Connection.Address, *approve)
	if err != nil {
		return err
	}
	fmt.Printf("vote recorded, milestone status: %s\n", resp.MilestoneStatus)
	return nil
}

// parseMilestone parses one "title:amount" spec.
func parseMilestone(spec string) (gateway.MilestoneCreate, error) {
	idx := strings.LastIndex(spec, ":")
	if idx <= 0 {
		return gateway.MilestoneCreate{}, fmt.Errorf("malformed milestone %q, want title:amount", spec)
	}
	amount, err := strconv.ParseFloat(spec[idx+1:], 64)
	if err != nil || amount <= 0 {
		return gateway.MilestoneCreate{}, fmt.Errorf("malformed milestone %q, want title:amount", spec)
	}
	return gateway.MilestoneCreate{Title: strings.TrimSpace(spec[:idx]), Amount: amount}, nil
}

func printCampaign(c *gateway.Campaign) {
	fmt.Printf("%s\n  id: %s\n  creator: %s\n  status: %s\n  backed: %.2f of %.2f\n",
		c.Title, c.ID, c.CreatorWallet, c.Status, c.TotalBacked, c.GoalAmount)
	if c.Description != "" {
		fmt.Printf("  %s\n", c.Description)
	}
	for _, m := range c.Milestones {
		fmt.Printf("  milestone %d: %-30s %8.2f  %s (%d votes)\n",
			m.Index, m.Title, m.Amount, m.Status, len(m.Votes))
	}
}
