package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calibra/internal/audit"
	calhandler "calibra/internal/calibration/handler"
	"calibra/internal/calibration/lock"
	"calibra/internal/calibration/ports"
	calservice "calibra/internal/calibration/service"
	calstore "calibra/internal/calibration/store"
	"calibra/internal/consensus"
	consenthandler "calibra/internal/consent/handler"
	consentservice "calibra/internal/consent/service"
	consentstore "calibra/internal/consent/store"
	identityhandler "calibra/internal/identity/handler"
	identityservice "calibra/internal/identity/service"
	identitystore "calibra/internal/identity/store"
	"calibra/internal/identity/token"
	"calibra/internal/identity/verifier"
	noncebindhandler "calibra/internal/noncebind/handler"
	nbmetrics "calibra/internal/noncebind/metrics"
	noncebindservice "calibra/internal/noncebind/service"
	"calibra/internal/noncebind/signer"
	noncebindstore "calibra/internal/noncebind/store"
	"calibra/internal/platform/config"
	"calibra/internal/platform/httpserver"
	"calibra/internal/platform/kafka"
	"calibra/internal/platform/logger"
	"calibra/internal/platform/postgres"
	"calibra/internal/platform/redis"
	"calibra/internal/probation/gate"
	probationstore "calibra/internal/probation/store"
	"calibra/internal/reputation/consistency"
	reputationhandler "calibra/internal/reputation/handler"
	reputationservice "calibra/internal/reputation/service"
	reputationstore "calibra/internal/reputation/store"
	httptransport "calibra/internal/transport/http"
	id "calibra/pkg/domain"
)

const attestationTTL = 24 * time.Hour

// main wires the modules together and owns process lifecycle. Business
// logic lives in the internal services; main only chooses implementations
// (in-memory vs postgres, redis on or off) from configuration.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
	}

	// Audit trail: persistent store plus the optional Kafka sink.
	var auditStore audit.Store
	if db != nil {
		auditStore = audit.NewPostgresStore(db)
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	var auditor *audit.Publisher
	if kafkaClient != nil {
		sink := audit.NewKafkaSink(kafkaClient.Client, cfg.Kafka.AuditTopic, log)
		var auditWorker *audit.Worker
		auditor, auditWorker = audit.NewBuffered(auditStore, 256, sink)
		go func() {
			if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	} else {
		auditor = audit.NewPublisher(auditStore)
	}

	// Identity store, shared by the identity service and the binding
	// service: bindings read identity facts straight from the store so
	// revocation arrives as sentinel errors.
	var identityStore identityservice.Store
	if db != nil {
		identityStore = identitystore.NewPostgres(db)
	} else {
		identityStore = identitystore.NewInMemoryStore()
	}
	attestor := token.NewService(cfg.AttestationSigningKey, cfg.AttestationIssuer, attestationTTL)

	// Nonce bindings.
	signingProvider, err := signer.NewStaticProvider(cfg.SigningSecrets, cfg.SigningSecretVersion)
	if err != nil {
		log.Error("signing secrets invalid", "error", err)
		os.Exit(1)
	}
	var bindingStore noncebindstore.Store
	if db != nil {
		bindingStore = noncebindstore.NewPostgres(db)
	} else {
		bindingStore = noncebindstore.NewInMemoryStore()
	}
	bindingOpts := []noncebindservice.Option{
		noncebindservice.WithLogger(log),
		noncebindservice.WithAuditPublisher(auditor),
		noncebindservice.WithMetrics(nbmetrics.New()),
	}
	if redisClient != nil {
		bindingOpts = append(bindingOpts,
			noncebindservice.WithRevocationList(noncebindstore.NewRedisRevocationList(redisClient.Client, 24*time.Hour)))
	}
	bindingSvc, err := noncebindservice.New(bindingStore, signer.New(signingProvider), identityStore, bindingOpts...)
	if err != nil {
		log.Error("binding service init failed", "error", err)
		os.Exit(1)
	}

	// Consent.
	var consentStore consentstore.Store
	if db != nil {
		consentStore = consentstore.NewPostgres(db)
	} else {
		consentStore = consentstore.NewInMemoryStore()
	}
	consentSvc, err := consentservice.New(consentStore,
		consentservice.WithLogger(log),
		consentservice.WithAuditPublisher(auditor),
	)
	if err != nil {
		log.Error("consent service init failed", "error", err)
		os.Exit(1)
	}

	// Reputation, consistency history, probation.
	var repStore reputationstore.Store
	var consistencyStore ports.ConsistencyStore
	var probStore probationstore.Store
	if db != nil {
		repStore = reputationstore.NewPostgres(db)
		consistencyStore = consistency.NewPostgres(db)
		probStore = probationstore.NewPostgres(db)
	} else {
		repStore = reputationstore.NewInMemoryStore()
		consistencyStore = consistency.NewInMemoryStore()
		probStore = probationstore.NewInMemoryStore()
	}
	reputationSvc, err := reputationservice.New(repStore,
		reputationservice.WithLogger(log),
		reputationservice.WithAuditPublisher(auditor),
	)
	if err != nil {
		log.Error("reputation service init failed", "error", err)
		os.Exit(1)
	}
	probationGate, err := gate.New(probStore, repStore,
		gate.WithLogger(log),
		gate.WithAuditPublisher(auditor),
	)
	if err != nil {
		log.Error("probation gate init failed", "error", err)
		os.Exit(1)
	}

	// Identity verification. Revoking an identity cascades: bindings are
	// revoked and the org lands in the terminal removed state.
	directory := &verifier.StaticDirectory{}
	identitySvc, err := identityservice.New(identityStore, attestor,
		[]verifier.Verifier{
			verifier.NewOrgAccountVerifier(directory, verifier.DefaultOrgAccountConfig()),
			verifier.NewPaymentVerifier(directory, verifier.DefaultPaymentConfig()),
		},
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(auditor),
		identityservice.WithNonceRevoker(revocationCascade{bindings: bindingSvc, gate: probationGate}),
	)
	if err != nil {
		log.Error("identity service init failed", "error", err)
		os.Exit(1)
	}

	// Calibration pipeline.
	var contributions ports.Contributions
	var results ports.Results
	if db != nil {
		contributions = calstore.NewPostgresContributions(db)
		results = calstore.NewPostgresResults(db)
	} else {
		contributions = calstore.NewInMemoryContributions()
		results = calstore.NewInMemoryResults()
	}
	var locker ports.Locker
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient.Client)
	} else {
		locker = lock.NewKeyedMutex()
	}
	calibrationSvc, err := calservice.New(
		calservice.Config{
			Consensus: consensus.Config{
				MinReputation:      cfg.Calibration.MinReputation,
				RequireActiveStake: cfg.Calibration.RequireActiveStake,
				OutlierZThreshold:  cfg.Calibration.OutlierZThreshold,
				PercentileCutoff:   cfg.Calibration.PercentileCutoff,
				RecommendedCohort:  cfg.Calibration.RecommendedCohort,
			},
			KAnonymityFloor:   cfg.Calibration.KAnonymityFloor,
			RecommendedCohort: cfg.Calibration.RecommendedCohort,
		},
		calservice.Deps{
			Contributions: contributions,
			Results:       results,
			Verifier:      bindingSvc,
			Consent:       consentSvc,
			Reputations:   reputationSvc,
			Probation:     probationGate,
			Consistency:   consistencyStore,
			Locker:        locker,
		},
		calservice.WithLogger(log),
		calservice.WithAuditPublisher(auditor),
		calservice.WithEnrollment(enrollment{reputation: reputationSvc, gate: probationGate}),
	)
	if err != nil {
		log.Error("calibration service init failed", "error", err)
		os.Exit(1)
	}
	runner := calservice.NewRunner(calibrationSvc, cfg.Calibration.RunInterval, cfg.Calibration.MaxConcurrentRules, log)
	go func() {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("calibration runner stopped", "error", err)
		}
	}()

	ready := map[string]func() error{}
	if db != nil {
		ready["postgres"] = db.Ping
	}
	if redisClient != nil {
		ready["redis"] = func() error { return redisClient.Health(context.Background()) }
	}
	if kafkaClient != nil {
		ready["kafka"] = func() error { return kafkaClient.Health(context.Background()) }
	}

	router := httptransport.NewRouter(
		httptransport.Options{
			Logger:         log,
			Validator:      attestor,
			RateLimitRPS:   50,
			RateLimitBurst: 100,
			Ready:          ready,
		},
		identityhandler.New(identitySvc, log),
		noncebindhandler.New(bindingSvc, log),
		consenthandler.New(consentSvc, log),
		reputationhandler.New(reputationSvc, probationGate, cfg.AdminToken, log),
		calhandler.New(calibrationSvc, cfg.AdminToken, log),
	)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// revocationCascade fans an identity revocation out to the binding service
// and the probation gate.
type revocationCascade struct {
	bindings *noncebindservice.Service
	gate     *gate.Gate
}

func (c revocationCascade) RevokeForIdentity(ctx context.Context, orgID id.OrgID, reason string) error {
	if err := c.bindings.RevokeForIdentity(ctx, orgID, reason); err != nil {
		return err
	}
	return c.gate.Remove(ctx, orgID, reason)
}

// enrollment provisions the neutral reputation record and the probation
// entry on an org's first accepted contribution.
type enrollment struct {
	reputation *reputationservice.Service
	gate       *gate.Gate
}

func (e enrollment) Enroll(ctx context.Context, orgID id.OrgID) error {
	if _, err := e.reputation.Ensure(ctx, orgID); err != nil {
		return err
	}
	_, err := e.gate.Enroll(ctx, orgID)
	return err
}
