package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"sweet-bazaar/internal/config"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Simulated engagement loop: register a bot wallet, then periodically check
// affordability and spend coins on forum actions until the budget declines.

var actions = []struct {
	actionType string
	targetType string
}{
	{"create_post", "thread"},
	{"create_comment", "post"},
	{"add_reaction", "comment"},
}

func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal(err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	if err := post(client, cfg.ServerURL+"/api/bots/register", map[string]any{"bot_id": cfg.BotID}, nil); err != nil {
		log.Fatal(err)
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(cfg.CycleEvery)
	defer ticker.Stop()
	for ; ; <-ticker.C {
		var afford struct {
			CanAfford bool `json:"can_afford"`
		}
		err := post(client, cfg.ServerURL+"/api/bots/can_afford", map[string]any{
			"bot_id":    cfg.BotID,
			"amount_sc": cfg.SpendSC,
		}, &afford)
		if err != nil {
			log.Printf("can_afford: %v", err)
			continue
		}
		if !afford.CanAfford {
			log.Printf("budget exhausted, skipping cycle")
			continue
		}

		action := actions[rnd.Intn(len(actions))]
		var spend struct {
			ActionID  string `json:"action_id"`
			BalanceSC int64  `json:"balance_sc"`
		}
		err = post(client, cfg.ServerURL+"/api/bots/spend", map[string]any{
			"bot_id":          cfg.BotID,
			"action_type":     action.actionType,
			"target_type":     action.targetType,
			"target_id":       uuid.NewString(),
			"cost_sc":         cfg.SpendSC,
			"idempotency_key": uuid.NewString(),
		}, &spend)
		if err != nil {
			log.Printf("spend: %v", err)
			continue
		}
		log.Printf("spent %d SC on %s (action %s, balance %d)", cfg.SpendSC, action.actionType, spend.ActionID, spend.BalanceSC)
	}
}

func post(client *http.Client, url string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s: %d %s", url, resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
