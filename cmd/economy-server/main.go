package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweet-bazaar/internal/botactions"
	"sweet-bazaar/internal/config"
	"sweet-bazaar/internal/jobs"
	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/logging"
	"sweet-bazaar/internal/notify"
	"sweet-bazaar/internal/store"
	httptransport "sweet-bazaar/internal/transport/http"
	"sweet-bazaar/internal/treasury"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	eng := ledger.New(st)
	tc := treasury.New(st, eng, treasury.Config{
		DailyCapSC:     cfg.Server.TreasuryDailyCapSC,
		BotWalletCapSC: cfg.Server.BotWalletCapSC,
	})
	if err := tc.Bootstrap(context.Background(), cfg.Server.TreasuryInitialSC); err != nil {
		log.Fatal().Err(err).Msg("treasury bootstrap failed")
	}
	rec := botactions.New(st, tc)

	refunds := jobs.NewRefundProcessor(st, eng, rec, tc)
	expirations := jobs.NewExpirationJob(st, eng, tc, notify.LogNotifier{})
	refunds.BatchLimit = cfg.Server.JobBatchLimit
	refunds.ItemTimeout = cfg.Server.JobItemTimeout
	refunds.InterItemWait = cfg.Server.JobItemDelay
	expirations.BatchLimit = cfg.Server.JobBatchLimit
	expirations.ItemTimeout = cfg.Server.JobItemTimeout
	expirations.InterItemWait = cfg.Server.JobItemDelay

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs.Start(ctx, refunds, expirations, tc, jobs.Intervals{
		Refund:     cfg.Server.RefundInterval,
		Expiration: cfg.Server.ExpirationInterval,
		CapReset:   cfg.Server.CapResetInterval,
	})

	r := httptransport.NewRouter(st, cfg.Server, eng, tc, rec, refunds, expirations)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
