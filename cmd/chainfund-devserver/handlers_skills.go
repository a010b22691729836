package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/chainfund/chainfund-go/internal/gateway"
)

func (s *server) handleSkillScore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.skillScore(mux.Vars(r)["wallet"]))
}

func (s *server) handleSkillActivity(w http.ResponseWriter, r *http.Request) {
	var act gateway.SkillActivity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if act.ScoreEarned < 0 {
		jsonError(w, http.StatusBadRequest, "bad_request", "score_earned must not be negative")
		return
	}

	sc := s.store.addSkillActivity(mux.Vars(r)["wallet"], act)
	writeJSON(w, http.StatusOK, gateway.SkillUpdate{
		Message:    "activity recorded",
		SkillScore: sc.SkillScore,
		SkillLevel: sc.SkillLevel,
	})
}

func (s *server) handleRecalcSkill(w http.ResponseWriter, r *http.Request) {
	sc := s.store.recalcSkill(mux.Vars(r)["wallet"])
	writeJSON(w, http.StatusOK, gateway.SkillUpdate{
		Message:    "skill score updated",
		SkillScore: sc.SkillScore,
		SkillLevel: sc.SkillLevel,
	})
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, gateway.Leaderboard{Leaderboard: s.store.leaderboard(limit)})
}

func (s *server) handleMintNFT(w http.ResponseWriter, r *http.Request) {
	nft := s.store.mintNFT(mux.Vars(r)["wallet"])
	writeJSON(w, http.StatusOK, gateway.MintResult{
		Message: "skill NFT minted",
		NFT:     *nft,
	})
}

func (s *server) handleGetNFT(w http.ResponseWriter, r *http.Request) {
	nft, ok := s.store.getNFT(mux.Vars(r)["wallet"])
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"skill_nft": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"skill_nft": nft})
}
