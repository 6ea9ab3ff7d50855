// Package bot assembles a standalone slash-command bot from configuration:
// session, router, and the in-process event bus. Library users embedding on
// an existing session can skip this package and build a slash.Router
// directly.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/bwmarrin/discordgo"

	"github.com/Kenny2github/discord-ext-slash/config"
	"github.com/Kenny2github/discord-ext-slash/discord"
	"github.com/Kenny2github/discord-ext-slash/events"
	"github.com/Kenny2github/discord-ext-slash/slash"
)

// Bot owns the session lifecycle around a slash.Router.
type Bot struct {
	Router  *slash.Router
	Session *discord.DiscordSession

	bus    *gochannel.GoChannel
	logger *slog.Logger
}

// New builds a bot from configuration. Declare commands on bot.Router
// before calling Run.
func New(cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	// Interactions arrive regardless of intents; Guilds keeps the state
	// cache populated for entity resolution.
	dg.Identify.Intents = discordgo.IntentsGuilds

	session := discord.NewDiscordSession(dg, logger)
	state := discord.NewDiscordState(dg.State)
	bus := events.NewInProcessBus(logger)
	dispatcher := events.NewDispatcher(bus, logger)

	router := slash.NewRouter(session, state,
		slash.WithLogger(logger),
		slash.WithDispatcher(dispatcher),
		slash.WithApplicationID(cfg.Discord.AppID),
		slash.WithDebugGuild(cfg.Discord.DebugGuildID),
		slash.WithResolveNotFetch(cfg.Resolution.ResolveNotFetch),
		slash.WithFetchIfNotGet(cfg.Resolution.FetchIfNotGet),
		slash.WithComponentTTL(cfg.Components.CallbackTTL.Std()),
	)

	return &Bot{
		Router:  router,
		Session: session,
		bus:     bus,
		logger:  logger,
	}, nil
}

// Bus exposes the event channel for subscribing to command errors and
// lifecycle events.
func (b *Bot) Bus() message.Subscriber { return b.bus }

// Discord exposes the raw discordgo session for gateway features the
// extension does not wrap.
func (b *Bot) Discord() *discordgo.Session {
	return b.Session.GetUnderlyingSession()
}

// Run opens the gateway connection and blocks until ctx is cancelled, then
// tears everything down.
func (b *Bot) Run(ctx context.Context) error {
	b.Router.Attach(ctx)
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	b.logger.Info("Gateway connection open")

	<-ctx.Done()

	b.Router.Detach()
	if err := b.Session.Close(); err != nil {
		b.logger.Error("Failed to close session", slog.Any("error", err))
	}
	if err := b.bus.Close(); err != nil {
		b.logger.Error("Failed to close event bus", slog.Any("error", err))
	}
	b.logger.Info("Shut down")
	return nil
}
