package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	cartapp "github.com/most4f4/chowhub/internal/cart/app"
	catalogapp "github.com/most4f4/chowhub/internal/catalog/app"
	catalogrest "github.com/most4f4/chowhub/internal/catalog/infra/rest"
	checkoutapp "github.com/most4f4/chowhub/internal/checkout/app"
	checkoutrest "github.com/most4f4/chowhub/internal/checkout/infra/rest"
	"github.com/most4f4/chowhub/internal/notify"
	sessionapp "github.com/most4f4/chowhub/internal/session/app"
	"github.com/most4f4/chowhub/internal/session/infra/memstore"
	"github.com/most4f4/chowhub/internal/session/infra/sqlitestore"
	"github.com/most4f4/chowhub/pkg/apiclient"
	"github.com/most4f4/chowhub/pkg/config"
	"github.com/most4f4/chowhub/pkg/logger"
	"github.com/most4f4/chowhub/pkg/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service: "chowhub",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Format:  "text",
		Output:  os.Stderr,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	var store sessionapp.Store
	if s, err := sqlitestore.Open(cfg.StatePath); err != nil {
		log.Warn("state db unavailable, sessions will not be remembered",
			slog.String("path", cfg.StatePath), slog.Any("err", err))
		store = memstore.New()
	} else {
		store = s
	}

	sessions := sessionapp.NewService(store, log)
	guard := sessionapp.NewGuard(sessions)

	clearSession := func() {
		hadSession := sessions.Current().Authenticated()
		_ = sessions.Clear(context.Background())
		if hadSession {
			fmt.Println("\nsession expired, please log in again")
		}
	}
	client := apiclient.New(apiclient.Options{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.APITimeout,
		Token:          sessions.Token,
		OnUnauthorized: clearSession,
		Logger:         log,
	})

	catalog := catalogapp.NewService(catalogrest.NewFetcher(client), log)
	cart := cartapp.NewService(log)
	taxRates := checkoutrest.NewTaxSource(client, func() string {
		return sessions.Current().User.RestaurantID
	})
	checkout := checkoutapp.NewService(cart, checkoutrest.NewPoster(client), taxRates, catalog, log)

	feed := notify.NewFeed(cfg.APIBaseURL, sessions.Token, clearSession, log)
	go feed.Run(ctx)

	if err := sessions.Hydrate(ctx); err != nil {
		log.Warn("session hydrate failed", slog.Any("err", err))
	}

	ui := newUI(client, sessions, guard, catalog, cart, checkout, taxRates, feed, log)
	ui.run(ctx)
}
