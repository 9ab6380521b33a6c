package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"

	"github.com/testtube/campus-ledger/internal/core/analytics"
	"github.com/testtube/campus-ledger/internal/core/chain"
	"github.com/testtube/campus-ledger/internal/core/classifier"
	"github.com/testtube/campus-ledger/internal/core/convert"
	"github.com/testtube/campus-ledger/internal/core/handler"
	"github.com/testtube/campus-ledger/internal/core/insight"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/merchant"
	middlWre "github.com/testtube/campus-ledger/internal/core/middleware"
	"github.com/testtube/campus-ledger/internal/core/repository/postgres"
	"github.com/testtube/campus-ledger/internal/core/usecase"
	"github.com/testtube/campus-ledger/pkg/config"
	"github.com/testtube/campus-ledger/pkg/postgresdb"
)

type Server struct {
	router           *mux.Router
	log              logger.Logger
	httpServer       *http.Server
	paymentHandler   *handler.PaymentHandler
	analyticsHandler *handler.AnalyticsHandler
	db               *postgresdb.Database
	addr             string
}

func NewServer(log logger.Logger) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := postgresdb.NewPostgresDB(cfg.DB, log)
	if err != nil {
		return nil, err
	}

	if err := postgres.RunMigrations(db.DB); err != nil {
		return nil, err
	}

	payer, err := loadPayer(cfg.Chain.PayerKey)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Analytics.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_TZ: %w", err)
	}

	repo := postgres.NewTransactionRepo(db.DB, log)
	network := chain.NewSolanaClient(cfg.Chain.RPCURL, payer, log)
	cls := classifier.New(nil)
	merchants := merchant.NewStaticDirectory(parseMerchantLabels(cfg.MerchantLabels))
	rates := convert.NewFixedRateSource(cfg.DisplayRate, cfg.DisplayQuote)

	aggregator := analytics.NewAggregator(repo, analytics.Config{
		TopK:       cfg.Analytics.TopK,
		AnomalyK:   cfg.Analytics.AnomalyK,
		MinSamples: cfg.Analytics.MinSamples,
		Location:   loc,
	}, log)

	generator, err := insight.NewGeminiGenerator(context.Background(), cfg.Insight.Model, log)
	if err != nil {
		return nil, err
	}

	paymentUsecase := usecase.NewPaymentUsecase(repo, network, cls, merchants, payer.PublicKey(), usecase.DefaultPaymentConfig(), log)
	analyticsUsecase := usecase.NewAnalyticsUsecase(aggregator, rates, log)
	insightUsecase := usecase.NewInsightUsecase(analyticsUsecase, generator, log)

	server := &Server{
		log:              log,
		router:           mux.NewRouter(),
		paymentHandler:   handler.NewPaymentHandler(paymentUsecase, log),
		analyticsHandler: handler.NewAnalyticsHandler(analyticsUsecase, insightUsecase, log),
		db:               db,
		addr:             cfg.HTTPAddr,
	}

	server.router.Use(loggingMiddleware(server.log))

	mw := middleware.New(middleware.Config{
		Recorder: prometheus.NewRecorder(prometheus.Config{}),
	})

	server.router.Use(func(next http.Handler) http.Handler {
		return std.Handler("", mw, next)
	})

	server.RegisterRoutes()

	return server, nil
}

// loadPayer decodes the configured key, or provisions a throwaway devnet
// keypair when none is set so local runs work out of the box.
func loadPayer(encoded string) (solana.PrivateKey, error) {
	if encoded == "" {
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate payer key: %w", err)
		}
		return key, nil
	}
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAIN_PAYER_KEY: %w", err)
	}
	return key, nil
}

// parseMerchantLabels splits "addr=Label,addr2=Label2".
func parseMerchantLabels(raw string) map[string]string {
	labels := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			labels[parts[0]] = parts[1]
		}
	}
	return labels
}

func (s *Server) RegisterRoutes() {
	s.router.Use(
		middlWre.Recovery(s.log),
	)
	s.paymentHandler.RegisterRoutes(s.router)
	s.analyticsHandler.RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
	}

	s.httpServer = srv

	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	var shutdownErr error

	go func() {
		if s.httpServer != nil {
			err := s.httpServer.Shutdown(ctx)
			if err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			}
		}

		if s.db != nil {
			err := s.db.Close()
			if err != nil {
				s.log.Error("failed to close database connection", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("database shutdown error: %w", err)
			}
		}

		close(done)
	}()

	select {
	case <-done:
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (s *Server) RunTLS(addr, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	s.httpServer = srv
	return srv.ListenAndServeTLS(certFile, keyFile)
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("HTTP request",
				logger.StringField("method", r.Method),
				logger.StringField("path", r.URL.Path),
				logger.StringField("remote_addr", r.RemoteAddr),
				logger.StringField("user_agent", r.UserAgent()),
			)
			next.ServeHTTP(w, r)
		})
	}
}
