package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"homedash-backend/application/ports"
	"homedash-backend/application/services"
	domainconfig "homedash-backend/domain/config"
	"homedash-backend/domain/core/validators"
	"homedash-backend/infrastructure/config"
	"homedash-backend/infrastructure/messaging/eventbridge"
	"homedash-backend/infrastructure/persistence/dynamodb"
	"homedash-backend/infrastructure/persistence/schema"
	"homedash-backend/pkg/auth"
	"homedash-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	DomainConfig  *domainconfig.DomainConfig
	Logger        *zap.Logger
	LayoutRepo    ports.LayoutRepository
	Publisher     ports.EventPublisher
	Cache         ports.Cache
	Metrics       *observability.Metrics
	Seeder        *services.DefaultSeeder
	Autosaver     *services.Autosaver
	LayoutService *services.LayoutService
	RateLimiter   *auth.DistributedRateLimiter
}

// ProvideLogger creates a new logger instance honouring LOG_LEVEL
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration, instrumenting every SDK
// client for X-Ray when tracing is enabled
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, err
	}

	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}

	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig loads the environment's domain rules
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	domainCfg := domainconfig.LoadDomainConfig(cfg.Environment)
	if cfg.AutosaveInterval > 0 {
		domainCfg.AutosaveInterval = cfg.AutosaveInterval
	}
	return domainCfg
}

// ProvideMetrics creates metrics instance
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics("", nil, logger)
	}
	namespace := fmt.Sprintf("Homedash/%s", cfg.Environment)
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideLayoutRepository creates the layout persistence gateway
func ProvideLayoutRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.LayoutRepository {
	return dynamodb.NewLayoutRepository(
		client,
		cfg.DynamoDBTable,
		logger,
	)
}

// ProvideEventPublisher creates the layout event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewEventBridgePublisher(
		client,
		cfg.EventBusName,
		logger,
	)
}

// ProvideMigrator creates the layout document migrator
func ProvideMigrator() ports.SnapshotMigrator {
	return schema.NewMigrator()
}

// ProvideLayoutValidator creates the snapshot validator
func ProvideLayoutValidator() *validators.LayoutValidator {
	return validators.NewLayoutValidator()
}

// ProvideSeeder creates the default layout generator
func ProvideSeeder(repo ports.LayoutRepository, logger *zap.Logger, metrics *observability.Metrics) *services.DefaultSeeder {
	return services.NewDefaultSeeder(repo, logger, metrics)
}

// ProvideAutosaver creates the autosave coordinator
func ProvideAutosaver(
	repo ports.LayoutRepository,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *services.Autosaver {
	return services.NewAutosaver(repo, domainCfg.AutosaveInterval, logger, metrics)
}

// ProvideLayoutService creates the layout service and closes the
// autosaver's snapshot-source loop
func ProvideLayoutService(
	repo ports.LayoutRepository,
	seeder *services.DefaultSeeder,
	autosaver *services.Autosaver,
	publisher ports.EventPublisher,
	cache ports.Cache,
	migrator ports.SnapshotMigrator,
	validator *validators.LayoutValidator,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *services.LayoutService {
	svc := services.NewLayoutService(
		repo,
		seeder,
		autosaver,
		publisher,
		cache,
		migrator,
		validator,
		domainCfg,
		logger,
		metrics,
	)
	autosaver.SetSource(svc)
	return svc
}

// ProvideDistributedRateLimiter creates a distributed rate limiter
func ProvideDistributedRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.DistributedRateLimiter {
	// Shares the layout table under a RATELIMIT# key prefix
	return auth.NewDistributedRateLimiter(
		client,
		cfg.DynamoDBTable,
		100,           // 100 requests
		1*time.Minute, // per minute
		"API",         // key prefix for API rate limiting
	)
}

// ProvideInMemoryCache creates a simple in-memory cache
// In production, this would be Redis or similar
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}
