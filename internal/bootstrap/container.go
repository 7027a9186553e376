package bootstrap

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/adapters/httpin"
	"github.com/airweave-ai/ingestion-core/internal/adapters/mongodb"
	"github.com/airweave-ai/ingestion-core/internal/adapters/postgres"
	"github.com/airweave-ai/ingestion-core/internal/adapters/rabbitmq"
	redisadapter "github.com/airweave-ai/ingestion-core/internal/adapters/redis"
	"github.com/airweave-ai/ingestion-core/internal/adapters/grpcout"
	"github.com/airweave-ai/ingestion-core/internal/dispatcher"
	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/eventbus"
	"github.com/airweave-ai/ingestion-core/internal/handlers"
	"github.com/airweave-ai/ingestion-core/internal/orchestrator"
	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
	"github.com/airweave-ai/ingestion-core/internal/platform/mmongo"
	"github.com/airweave-ai/ingestion-core/internal/platform/mpostgres"
	"github.com/airweave-ai/ingestion-core/internal/platform/mrabbitmq"
	"github.com/airweave-ai/ingestion-core/internal/platform/mredis"
	"github.com/airweave-ai/ingestion-core/internal/resolver"
	"github.com/airweave-ai/ingestion-core/internal/source"
	"github.com/airweave-ai/ingestion-core/internal/usage"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Container holds every wired component cmd/syncworker needs to run the
// HTTP surface and the job-polling worker loop.
type Container struct {
	Config *Config
	Logger mlog.Logger

	HTTPApp   *httpApp
	Scheduler *orchestrator.Scheduler
	Jobs      *postgres.SyncJobRepository
	Syncs     *postgres.SyncRepository
	Factory   *usage.Factory
}

// httpApp is the fiber app plus the address it binds; kept small so
// server.go doesn't need to import fiber directly.
type httpApp struct {
	handler interface {
		Listen(addr string) error
		ShutdownWithContext(ctx context.Context) error
	}
	address string
}

// unimplementedSourceRegistry refuses every source connection: real
// source connectors are a narrow external collaborator this module only
// defines the contract for (source.Factory), never implements — see
// SPEC_FULL.md's scope notes on source connector implementations.
type unimplementedSourceRegistry struct{}

func (unimplementedSourceRegistry) FactoryFor(sourceConnectionID string) (source.Factory, error) {
	return nil, fmt.Errorf("orchestrator: no source connector registered for connection %s", sourceConnectionID)
}

// unimplementedCredentialResolver mirrors unimplementedSourceRegistry:
// credential decryption belongs to the (out-of-scope) credential
// service, reached in a full deployment over a narrow RPC this module
// does not implement.
type unimplementedCredentialResolver struct{}

func (unimplementedCredentialResolver) Resolve(ctx context.Context, sourceConnectionID string) (source.Credentials, error) {
	return source.Credentials{}, fmt.Errorf("orchestrator: no credential resolver configured for connection %s", sourceConnectionID)
}

// handlerChainBuilder implements orchestrator.HandlerChainBuilder,
// assembling one dispatcher per job execution out of the sync's writable
// destination slots.
type handlerChainBuilder struct {
	entityRecords *postgres.EntityRecordRepository
	collections   *postgres.CollectionEntityRecordRepository
	arf           *mongodb.ArfRepository
	destConn      *grpc.ClientConn
	embedConn     *grpc.ClientConn
}

func (b *handlerChainBuilder) Build(ctx context.Context, sync domain.Sync, jobID string) (*dispatcher.Dispatcher, resolver.RecordStore, error) {
	fingerprints, err := entityFingerprints(ctx, b, sync)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := b.entityRecords.LoadSnapshot(ctx, sync.ID, fingerprints)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: load entity snapshot: %w", err)
	}

	if sync.CollectionDedup {
		entityIDs := make([]string, 0, len(fingerprints))
		for _, fp := range fingerprints {
			entityIDs = append(entityIDs, fp.EntityID)
		}

		winners, err := b.collections.LoadWinners(ctx, sync.CollectionID, entityIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load collection winners: %w", err)
		}

		snapshot = snapshot.WithWinners(winners)
	}

	embedder := grpcout.NewEmbeddingClient(b.embedConn)

	writable := sync.WritableSlots()
	destinations := make([]handlers.DestinationWriter, 0, len(writable))
	for _, slot := range writable {
		destinations = append(destinations, grpcout.NewDestinationClient(b.destConn, slot.ID, slot.Role, slot.ProcessingRequirement))
	}

	destinationHandler := handlers.NewDestinationHandler(embedder, destinations)
	arfHandler := handlers.NewArfHandler(b.arf)
	entityStore := postgres.NewEntityRecordStore(b.entityRecords, b.collections)
	entityHandler := handlers.NewEntityPostgresHandler(entityStore, jobID, sync.CollectionID, sync.SourceConnID, sync.CollectionDedup)

	chain := dispatcher.New(destinationHandler, arfHandler, entityHandler)

	return chain, snapshot, nil
}

// entityFingerprints asks the store which fingerprints it already holds
// for this sync, seeding the snapshot prefetch. A brand new sync has
// none yet, which is not an error.
func entityFingerprints(ctx context.Context, b *handlerChainBuilder, sync domain.Sync) ([]domain.EntityFingerprint, error) {
	records, err := b.entityRecords.StoredFingerprints(ctx, sync.ID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: list stored fingerprints: %w", err)
	}

	out := make([]domain.EntityFingerprint, 0, len(records))
	for _, r := range records {
		out = append(out, r.Fingerprint)
	}

	return out, nil
}

// NewContainer connects every platform connection hub and wires the
// resulting adapters into the orchestrator, event bus, and HTTP surface.
func NewContainer(ctx context.Context, cfg *Config, logger mlog.Logger) (*Container, error) {
	pgConn := &mpostgres.Connection{
		ConnectionStringPrimary: cfg.PostgresPrimaryDSN,
		ConnectionStringReplica: cfg.PostgresReplicaDSN,
		PrimaryDBName:           cfg.PostgresDBName,
		MigrationsPath:          cfg.PostgresMigrations,
	}

	mongoConn := &mmongo.Connection{
		ConnectionStringSource: cfg.MongoURI,
		Database:               cfg.MongoDB,
	}

	redisConn := &mredis.Connection{
		ConnectionStringSource: cfg.RedisURI,
		Logger:                 logger,
	}

	rabbitConn := &mrabbitmq.Connection{
		ConnectionStringSource: cfg.RabbitMQURI,
		Exchange:               cfg.RabbitMQExchange,
		Logger:                 logger,
	}

	destConn, err := grpc.NewClient(cfg.DestinationGRPCTarget, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: dial destination grpc: %w", err)
	}

	embedConn, err := grpc.NewClient(cfg.EmbeddingGRPCTarget, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: dial embedding grpc: %w", err)
	}

	orgs := postgres.NewOrganizationRepository(pgConn)
	syncs := postgres.NewSyncRepository(pgConn)
	jobs := postgres.NewSyncJobRepository(pgConn)
	sourceConnections := postgres.NewSourceConnectionRepository(pgConn)
	entityRecords := postgres.NewEntityRecordRepository(pgConn)
	collectionRecords := postgres.NewCollectionEntityRecordRepository(pgConn)
	usageLedger := postgres.NewUsageLedgerRepository(pgConn)
	arf := mongodb.NewArfRepository(mongoConn)

	signer := rabbitmq.NewSigner(cfg.WebhookSecret)
	webhookProducer := rabbitmq.NewWebhookProducer(rabbitConn, signer)
	webhookConsumer := rabbitmq.NewWebhookConsumer(rabbitConn, orgs, cfg.WebhookQueue, cfg.WebhookRateLimit)

	progressPublisher := redisadapter.NewProgressPublisher(redisConn)

	usageFactory := usage.NewFactory(usageLedger)
	incrementer := usage.NewIncrementer(usageFactory, orgs)

	bus := eventbus.New(logger)
	eventbus.NewWebhookEventSubscriber(webhookProducer).Register(bus)
	eventbus.NewSyncBillingHandler(incrementer).Register(bus)
	eventbus.NewSyncProgressRelay(progressPublisher).Register(bus)
	eventbus.NewNotificationSubscriber(logger).Register(bus)

	chainBuilder := &handlerChainBuilder{
		entityRecords: entityRecords,
		collections:   collectionRecords,
		arf:           arf,
		destConn:      destConn,
		embedConn:     embedConn,
	}

	orch := orchestrator.New(
		jobs, syncs, orgs,
		unimplementedCredentialResolver{},
		unimplementedSourceRegistry{},
		chainBuilder,
		entityRecords,
		bus, usageFactory, logger,
	)
	scheduler := orchestrator.NewScheduler(orch)

	auth := newAuthResolver(orgs, redisadapter.New(redisConn), []byte(cfg.JWTSigningSecret))

	sourceConnectionHandler := httpin.NewSourceConnectionHandler(sourceConnections, syncs, jobs)
	collectionHandler := httpin.NewCollectionHandler(sourceConnections, jobs, scheduler, logger)
	router := httpin.NewRouter(logger, cfg.AllowOrigins, auth, collectionHandler, sourceConnectionHandler)

	go func() {
		if err := webhookConsumer.Run(context.Background()); err != nil {
			logger.Errorf("webhook consumer stopped: %v", err)
		}
	}()

	return &Container{
		Config:    cfg,
		Logger:    logger,
		HTTPApp:   &httpApp{handler: router, address: cfg.ServerAddress},
		Scheduler: scheduler,
		Jobs:      jobs,
		Syncs:     syncs,
		Factory:   usageFactory,
	}, nil
}
