package main

import (
	"context"
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/container"
	"github.com/serroba/shortlinks/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *container.Options) {
		if err := opts.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		// events and visit counts must be shared with the API processes
		if opts.RedisAddr == "" || opts.DatabaseURL == "" {
			fmt.Fprintln(os.Stderr, "the consumer needs --redis-addr and --database-url")
			os.Exit(2)
		}

		injector := do.New()
		do.ProvideValue(injector, opts)
		container.LoggerPackage(injector)
		container.RedisPackage(injector)
		container.PostgresPackage(injector)
		container.RepositoryPackage(injector)
		container.ServicePackage(injector)
		container.PubSubPackage(injector)
		container.ConsumerGroupPackage(injector)

		logger := do.MustInvoke[*zap.Logger](injector)

		stopped := make(chan struct{})

		hooks.OnStart(func() {
			group := do.MustInvoke[*messaging.ConsumerGroup](injector)

			if err := group.Start(context.Background()); err != nil {
				logger.Fatal("failed to start consumer group", zap.Error(err))
			}

			<-stopped
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")

			if err := injector.Shutdown(); err != nil {
				logger.Error("shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
			close(stopped)
		})
	})

	cli.Run()
}
