// Package container wires the application with a samber/do injector. Each XxxPackage
// function registers the providers of one concern.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/accounts"
	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/handlers"
	"github.com/serroba/shortlinks/internal/health"
	"github.com/serroba/shortlinks/internal/idgen"
	"github.com/serroba/shortlinks/internal/links"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/middleware"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/serroba/shortlinks/internal/seed"
	"github.com/serroba/shortlinks/internal/session"
	"github.com/serroba/shortlinks/internal/store"
	"go.uber.org/zap"
)

const (
	connectTimeout = 10 * time.Second
	// visitConsumerGroup is the redis stream consumer group shared by every consumer process.
	visitConsumerGroup = "shortlinks"
)

// Redis holds the redis client, nil when no address is configured.
type Redis struct {
	Client *redis.Client
}

// Shutdown closes the client.
func (r *Redis) Shutdown() error {
	if r.Client == nil {
		return nil
	}

	return r.Client.Close()
}

// Postgres holds the connection pool, nil when no database is configured.
type Postgres struct {
	Pool *pgxpool.Pool
}

// Shutdown closes the pool.
func (p *Postgres) Shutdown() error {
	if p.Pool != nil {
		p.Pool.Close()
	}

	return nil
}

// Repositories are the stores backing accounts and links.
type Repositories struct {
	Users accounts.Repository
	Links links.Repository
	// Health pings the backing database.
	Health health.Checker
}

// RegisterServer registers every package the API server needs.
func RegisterServer(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	RepositoryPackage(injector)
	ServicePackage(injector)
	PubSubPackage(injector)
	PublisherGroupPackage(injector)
	ConsumerGroupPackage(injector)
	RateLimitPackage(injector)
	HTTPPackage(injector)
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts.LogFormat, opts.LogLevel)
	})
}

// NewLogger builds a development logger for the console format and a production logger
// for json.
func NewLogger(format, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg.Level = lvl

	return cfg.Build()
}

// RedisPackage provides the optional redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.RedisAddr == "" {
			return &Redis{}, nil
		}

		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("connect to redis at %s: %w", opts.RedisAddr, err)
		}

		return &Redis{Client: client}, nil
	})
}

// PostgresPackage provides the optional postgres pool, with the schema in place.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.DatabaseURL == "" {
			return &Postgres{}, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		if err := store.EnsureSchema(ctx, pool); err != nil {
			pool.Close()

			return nil, err
		}

		return &Postgres{Pool: pool}, nil
	})
}

// RepositoryPackage provides postgres stores when a database is configured and in-memory
// stores otherwise.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Repositories, error) {
		pg := do.MustInvoke[*Postgres](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if pg.Pool != nil {
			logger.Info("using postgres storage")

			return &Repositories{
				Users:  store.NewPostgresUserStore(pg.Pool),
				Links:  store.NewPostgresLinkStore(pg.Pool),
				Health: pg.Pool,
			}, nil
		}

		logger.Info("using in-memory storage")

		return &Repositories{
			Users:  store.NewUserMemoryStore(),
			Links:  store.NewLinkMemoryStore(),
			Health: health.AlwaysHealthy,
		}, nil
	})
}

// ServicePackage provides the accounts, links and session services.
func ServicePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*accounts.Service, error) {
		opts := do.MustInvoke[*Options](i)
		repos := do.MustInvoke[*Repositories](i)

		generateID, err := idgen.NewGenerator(opts.UserIDLength)
		if err != nil {
			return nil, err
		}

		return accounts.NewService(repos.Users, generateID, accounts.WithBcryptCost(opts.BcryptCost)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*links.Service, error) {
		opts := do.MustInvoke[*Options](i)
		repos := do.MustInvoke[*Repositories](i)

		generateID, err := idgen.NewGenerator(opts.CodeLength)
		if err != nil {
			return nil, err
		}

		return links.NewService(repos.Links, repos.Users, generateID), nil
	})

	do.Provide(injector, func(i *do.Injector) (*session.Manager, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.SessionSecret == DevSessionSecret {
			logger.Warn("using the development session secret, set SERVICE_SESSION_SECRET")
		}

		return session.NewManager(
			opts.SessionCookie,
			[]byte(opts.SessionSecret),
			opts.SessionLifetime(),
			session.WithSecureCookies(opts.SecureCookies),
		), nil
	})
}

// SeedDemo loads the demo data when the options ask for it.
func SeedDemo(injector *do.Injector) error {
	if !do.MustInvoke[*Options](injector).SeedDemo {
		return nil
	}

	repos := do.MustInvoke[*Repositories](injector)

	return seed.Load(context.Background(), repos.Users, repos.Links,
		do.MustInvoke[*accounts.Service](injector), do.MustInvoke[*zap.Logger](injector))
}

// LogStorageSummary logs how many users and links the configured storage holds.
func LogStorageSummary(ctx context.Context, injector *do.Injector) error {
	users, err := do.MustInvoke[*accounts.Service](injector).Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	linkCount, err := do.MustInvoke[*links.Service](injector).Count(ctx)
	if err != nil {
		return fmt.Errorf("count links: %w", err)
	}

	do.MustInvoke[*zap.Logger](injector).Info("storage ready",
		zap.Int64("users", users),
		zap.Int64("links", linkCount),
	)

	return nil
}

// PubSubPackage provides the in-process pub/sub used when redis is not configured.
func PubSubPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (watermill.LoggerAdapter, error) {
		return messaging.NewZapLoggerAdapter(do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
		return messaging.NewInProcessPubSub(do.MustInvoke[watermill.LoggerAdapter](i)), nil
	})
}

// PublisherGroupPackage provides the event publisher: redis streams when redis is
// configured, the in-process pub/sub otherwise.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		rdb := do.MustInvoke[*Redis](i)
		wmLogger := do.MustInvoke[watermill.LoggerAdapter](i)

		if rdb.Client == nil {
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		}

		publisher, err := messaging.NewRedisPublisher(rdb.Client, wmLogger)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the consumers applying link events.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		rdb := do.MustInvoke[*Redis](i)
		wmLogger := do.MustInvoke[watermill.LoggerAdapter](i)
		logger := do.MustInvoke[*zap.Logger](i)
		linkSvc := do.MustInvoke[*links.Service](i)

		var subscriber message.Subscriber = do.MustInvoke[*gochannel.GoChannel](i)

		if rdb.Client != nil {
			sub, err := messaging.NewRedisSubscriber(rdb.Client, visitConsumerGroup, wmLogger)
			if err != nil {
				return nil, err
			}

			subscriber = sub
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		analytics.AddConsumers(group, subscriber,
			analytics.NewRecorder(linkSvc, logger),
			analytics.NewAuditLog(logger),
			logger,
		)

		return group, nil
	})
}

// RateLimitPackage provides the limiter, counting in redis when configured. The in-memory
// store prunes idle counters until the injector shuts down.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*store.RateLimitMemoryStore, error) {
		opts := do.MustInvoke[*Options](i)

		s := store.NewRateLimitMemoryStore()
		s.StartPruning(opts.RateLimitPruneInterval())

		return s, nil
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.Limiter, error) {
		rdb := do.MustInvoke[*Redis](i)
		if rdb.Client != nil {
			return ratelimit.NewLimiter(store.NewRateLimitRedisStore(rdb.Client)), nil
		}

		return ratelimit.NewLimiter(do.MustInvoke[*store.RateLimitMemoryStore](i)), nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		repos := do.MustInvoke[*Repositories](i)
		rdb := do.MustInvoke[*Redis](i)
		accountSvc := do.MustInvoke[*accounts.Service](i)
		linkSvc := do.MustInvoke[*links.Service](i)
		sessions := do.MustInvoke[*session.Manager](i)
		limiter := do.MustInvoke[*ratelimit.Limiter](i)
		publisher := do.MustInvoke[*messaging.PublisherGroup](i).Publisher()

		router.Use(chimw.RequestID, middleware.RequestLogger(logger), chimw.Recoverer)

		api := humachi.New(router, huma.DefaultConfig("Shortlinks", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api, opts.Proxies()),
			middleware.RateLimiter(api, limiter, opts.Proxies(), logger),
			session.Middleware(sessions, accountSvc, logger),
		)

		handlers.RegisterRoutes(api,
			handlers.NewAuthHandler(accountSvc, sessions, logger),
			handlers.NewLinkHandler(linkSvc, opts.PublicBaseURL(),
				messaging.NewPublishFunc[analytics.LinkCreatedEvent](publisher, analytics.TopicLinkCreated), logger),
			handlers.NewRedirectHandler(linkSvc, sessions,
				messaging.NewPublishFunc[analytics.LinkVisitedEvent](publisher, analytics.TopicLinkVisited), logger),
			ratelimit.PerMinute(int64(opts.RateLimitPerMinute)),
		)

		deps := []health.Dependency{{Name: "store", Checker: repos.Health}}
		if rdb.Client != nil {
			deps = append(deps, health.Dependency{Name: "redis", Checker: health.NewRedisChecker(rdb.Client)})
		}

		health.RegisterRoutes(api, health.NewHandler(deps...))

		return api, nil
	})
}
