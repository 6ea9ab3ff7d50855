package slash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/Kenny2github/discord-ext-slash/discord"
	"github.com/Kenny2github/discord-ext-slash/events"
	"github.com/Kenny2github/discord-ext-slash/storage"
)

// DefaultComponentTTL matches the lifetime of an interaction token, after
// which a component callback could not respond anyway.
const DefaultComponentTTL = 15 * time.Minute

type commandKey struct {
	name    string
	guildID string
}

type componentCallback struct {
	match  ComponentMatcher
	handle ComponentHandler
}

// Router owns the command registries, runs the startup registration sync,
// and dispatches gateway interactions to handlers. Command registration is
// a setup-time activity; once Attach has been called the command set is
// read-only, while component callbacks may come and go at any time.
type Router struct {
	session    discord.Session
	resolver   *Resolver
	syncer     *Syncer
	logger     *slog.Logger
	dispatcher *events.Dispatcher

	commands map[commandKey]TopLevel
	order    []commandKey
	byID     map[string]TopLevel
	// idMu guards byID and me, the fields the ready handler writes while
	// dispatch goroutines read.
	idMu sync.RWMutex

	globalChecks []Check
	callbacks    *storage.TTLStore[componentCallback]
	componentTTL time.Duration

	appID      string
	debugGuild string
	me         *discordgo.User
	baseCtx    context.Context
	detach     []func()
}

// RouterOption configures a Router at construction.
type RouterOption func(*Router)

// WithLogger replaces the default discarding logger.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// WithDispatcher wires the out-of-band event channel. Without it, error and
// lifecycle events are logged but not published.
func WithDispatcher(d *events.Dispatcher) RouterOption {
	return func(r *Router) { r.dispatcher = d }
}

// WithApplicationID pins the application ID instead of resolving it from
// the bot user.
func WithApplicationID(appID string) RouterOption {
	return func(r *Router) { r.appID = appID }
}

// WithDebugGuild redirects all global commands to one guild, trading reach
// for instant registration updates while developing.
func WithDebugGuild(guildID string) RouterOption {
	return func(r *Router) { r.debugGuild = guildID }
}

// WithResolveNotFetch makes entity resolution prefer the interaction's
// resolved payload over cache and network.
func WithResolveNotFetch(v bool) RouterOption {
	return func(r *Router) { r.resolver.ResolveNotFetch = v }
}

// WithFetchIfNotGet enables API fetches when the cache misses during
// entity resolution.
func WithFetchIfNotGet(v bool) RouterOption {
	return func(r *Router) { r.resolver.FetchIfNotGet = v }
}

// WithComponentTTL sets the default lifetime of component callbacks
// registered without an explicit TTL. Non-positive values keep
// DefaultComponentTTL.
func WithComponentTTL(ttl time.Duration) RouterOption {
	return func(r *Router) {
		if ttl > 0 {
			r.componentTTL = ttl
		}
	}
}

// WithGlobalCheck appends a check that gates every command.
func WithGlobalCheck(check Check) RouterOption {
	return func(r *Router) { r.globalChecks = append(r.globalChecks, check) }
}

// NewRouter builds a Router over the session and its entity cache.
func NewRouter(session discord.Session, state discord.State, opts ...RouterOption) *Router {
	r := &Router{
		session:      session,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		commands:     make(map[commandKey]TopLevel),
		byID:         make(map[string]TopLevel),
		componentTTL: DefaultComponentTTL,
	}
	r.resolver = &Resolver{State: state, Session: session, ResolveNotFetch: true}
	for _, opt := range opts {
		opt(r)
	}
	r.resolver.Logger = r.logger
	r.syncer = NewSyncer(session, r.logger, r.appID, r.debugGuild)
	r.callbacks = storage.NewTTLStore[componentCallback](r.logger)
	return r
}

// Add registers a top-level command or group. Two registrations may share a
// name only when their guild restrictions differ.
func (r *Router) Add(node TopLevel) error {
	key := commandKey{name: node.Name(), guildID: node.GuildID()}
	if _, dup := r.commands[key]; dup {
		return validationErrorf("command %q already registered in scope %q", key.name, key.guildID)
	}
	r.commands[key] = node
	r.order = append(r.order, key)
	return nil
}

// Command declares and registers a leaf command in one step.
func (r *Router) Command(name, description string, handler Handler, opts ...CommandSetting) (*Command, error) {
	cmd, err := NewCommand(name, description, handler, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.Add(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Group declares and registers a top-level group in one step. handler, when
// not nil, runs before every descendant leaf.
func (r *Router) Group(name, description string, handler Handler, opts ...CommandSetting) (*Group, error) {
	g, err := NewGroup(name, description, handler, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.Add(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Lookup returns the registered command or group for a name and guild
// restriction.
func (r *Router) Lookup(name, guildID string) (TopLevel, bool) {
	node, ok := r.commands[commandKey{name: name, guildID: guildID}]
	return node, ok
}

// Permit records a permission override on a registered command; guildID ""
// is the default scope copied to every guild without specific overrides.
func (r *Router) Permit(commandName, commandGuildID, guildID, targetID string, typ discordgo.ApplicationCommandPermissionType, allow bool) error {
	node, ok := r.Lookup(commandName, commandGuildID)
	if !ok {
		return &CommandNotFoundError{Name: commandName}
	}
	node.base().AddPermission(targetID, typ, allow, guildID)
	return nil
}

// ComponentCallback registers a handler for component interactions whose
// custom ID satisfies matcher. The first registered matcher to claim an
// interaction wins. ttl == 0 means the router default; a negative ttl
// disables expiry. The returned function deregisters the callback.
func (r *Router) ComponentCallback(matcher ComponentMatcher, handler ComponentHandler, ttl time.Duration) func() {
	if ttl == 0 {
		ttl = r.componentTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	key := uuid.New().String()
	r.callbacks.Set(key, componentCallback{match: matcher, handle: handler}, ttl)
	return func() { r.callbacks.Delete(key) }
}

// Attach wires the router to the session's gateway events. ctx bounds every
// dispatch; cancel it to stop handler work during shutdown.
func (r *Router) Attach(ctx context.Context) {
	r.baseCtx = ctx
	r.detach = append(r.detach,
		r.session.AddHandler(func(_ *discordgo.Session, ready *discordgo.Ready) {
			r.onReady(ready)
		}),
		r.session.AddHandler(func(_ *discordgo.Session, event *discordgo.InteractionCreate) {
			go r.dispatch(event)
		}),
	)
}

// Detach removes the gateway handlers.
func (r *Router) Detach() {
	for _, remove := range r.detach {
		remove()
	}
	r.detach = nil
}

func (r *Router) declared() []TopLevel {
	out := make([]TopLevel, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.commands[key])
	}
	return out
}

// onReady runs the registration sync. A sync failure here means the
// declared commands and the remote state cannot be reconciled, so the
// session is closed rather than left serving stale commands.
func (r *Router) onReady(ready *discordgo.Ready) {
	r.idMu.Lock()
	r.me = ready.User
	r.idMu.Unlock()
	guilds := make([]string, 0, len(ready.Guilds))
	for _, g := range ready.Guilds {
		guilds = append(guilds, g.ID)
	}

	go func() {
		declared := r.declared()
		plans, err := r.syncer.Sync(r.baseCtx, declared, guilds)
		r.recordIDs(declared)
		for _, plan := range plans {
			r.publish(events.TopicCommandsSynced, events.CommandsSyncedPayload{
				Scope:   plan.Scope,
				Created: len(plan.Create),
				Updated: len(plan.Update),
				Adopted: len(plan.Adopt),
				Deleted: len(plan.Delete),
			})
		}
		if err != nil {
			r.logger.Error("Startup command sync failed, closing session", slog.Any("error", err))
			if cerr := r.session.Close(); cerr != nil {
				r.logger.Error("Failed to close session", slog.Any("error", cerr))
			}
			return
		}
		r.publish(events.TopicReady, events.ReadyPayload{
			ApplicationID: ready.User.ID,
			Commands:      len(declared),
			Scopes:        len(plans),
		})

		if err := r.syncer.SyncPermissions(r.baseCtx, declared, guilds); err != nil {
			r.logger.Error("Permission sync failed, closing session", slog.Any("error", err))
			if cerr := r.session.Close(); cerr != nil {
				r.logger.Error("Failed to close session", slog.Any("error", cerr))
			}
			return
		}
		guildCount := 0
		for _, node := range declared {
			guildCount += len(node.PermissionScopes())
		}
		r.publish(events.TopicPermissionsSynced, events.PermissionsSyncedPayload{Guilds: guildCount})
	}()
}

// botUser returns the bot user captured from the ready event, racing
// dispatch goroutines safely.
func (r *Router) botUser() *discordgo.User {
	r.idMu.RLock()
	defer r.idMu.RUnlock()
	return r.me
}

// recordIDs indexes commands by the remote IDs the sync wrote back.
func (r *Router) recordIDs(declared []TopLevel) {
	r.idMu.Lock()
	defer r.idMu.Unlock()
	for _, node := range declared {
		if node.ID() != "" {
			r.byID[node.ID()] = node
		}
	}
}

// Resync reconciles a single guild's commands, for use after the bot joins
// a guild or guild commands change at runtime.
func (r *Router) Resync(ctx context.Context, guildID string) error {
	var declared []TopLevel
	for _, node := range r.declared() {
		if r.syncer.EffectiveScope(node) == guildID {
			declared = append(declared, node)
		}
	}
	plans, err := r.syncer.Sync(ctx, declared, []string{guildID})
	r.recordIDs(declared)
	for _, plan := range plans {
		r.publish(events.TopicCommandsSynced, events.CommandsSyncedPayload{
			Scope:   plan.Scope,
			Created: len(plan.Create),
			Updated: len(plan.Update),
			Adopted: len(plan.Adopt),
			Deleted: len(plan.Delete),
		})
	}
	if err != nil {
		return err
	}
	return r.syncer.SyncPermissions(ctx, declared, []string{guildID})
}

func (r *Router) dispatch(event *discordgo.InteractionCreate) {
	i := event.Interaction
	if i.Version != 1 {
		r.logger.Error("Unsupported interaction version",
			slog.Int("version", i.Version),
			slog.String("interaction_id", i.ID),
		)
		r.publish(events.TopicCommandError, events.CommandErrorPayload{
			InteractionID: i.ID,
			ErrorKind:     events.ErrorKindProtocol,
			ErrorDetail:   fmt.Sprintf("unsupported interaction version %d", i.Version),
		})
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.dispatchCommand(i)
	case discordgo.InteractionMessageComponent:
		r.dispatchComponent(i)
	default:
		// Pings arrive over HTTP, autocomplete and modals are out of
		// scope; nothing to do.
		r.logger.Debug("Ignoring interaction type", slog.Int("type", int(i.Type)))
	}
}

// findCommand locates the dispatch root: by registered remote ID first,
// falling back to name + guild and then bare name for commands whose IDs
// went stale across a re-registration.
func (r *Router) findCommand(data discordgo.ApplicationCommandInteractionData, guildID string) (TopLevel, bool) {
	r.idMu.RLock()
	node, ok := r.byID[data.ID]
	r.idMu.RUnlock()
	if ok {
		return node, true
	}
	if node, ok := r.Lookup(data.Name, guildID); ok {
		return node, true
	}
	return r.Lookup(data.Name, "")
}

func (r *Router) dispatchCommand(i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	root, ok := r.findCommand(data, i.GuildID)
	if !ok {
		err := &CommandNotFoundError{Name: data.Name, ID: data.ID}
		r.logger.Warn("Command not found", slog.String("name", data.Name), slog.String("id", data.ID))
		r.publishCommandError(i, data.Name, events.ErrorKindNotFound, err)
		return
	}

	leaf, wire, err := descend(root, data.Options)
	if err != nil {
		r.logger.Warn("Subcommand descent failed",
			slog.String("command", root.Name()),
			slog.Any("error", err),
		)
		r.publishCommandError(i, root.Name(), events.ErrorKindNotFound, err)
		return
	}

	ctx := newContext(r.baseCtx, r.session, r.resolver, r.logger, r.botUser(), i)
	ctx.bindCommand(leaf, wire, data.Resolved)

	if !leaf.canRun(ctx, r.globalChecks) {
		err := &CheckFailureError{Command: leaf.QualName()}
		r.logger.Debug("Check denied invocation",
			slog.String("command", leaf.QualName()),
			slog.String("user_id", ctx.AuthorID()),
		)
		r.publishCommandError(i, leaf.QualName(), events.ErrorKindCheckFailure, err)
		return
	}

	r.publish(events.TopicCommandInvoked, events.CommandInvokedPayload{
		InteractionID: i.ID,
		CommandName:   leaf.QualName(),
		GuildID:       i.GuildID,
		UserID:        ctx.AuthorID(),
		Phase:         events.PhaseBefore,
	})
	start := time.Now()

	err = leaf.invokeParents(ctx)
	if err == nil {
		err = leaf.handler(ctx)
	}
	if err != nil {
		r.reportHandlerError(i, leaf.QualName(), err)
		return
	}

	r.publish(events.TopicCommandInvoked, events.CommandInvokedPayload{
		InteractionID: i.ID,
		CommandName:   leaf.QualName(),
		GuildID:       i.GuildID,
		UserID:        ctx.AuthorID(),
		Phase:         events.PhaseAfter,
		DurationMS:    time.Since(start).Milliseconds(),
	})
}

func (r *Router) dispatchComponent(i *discordgo.Interaction) {
	ctx := newComponentContext(r.baseCtx, r.session, r.resolver, r.logger, r.botUser(), i)
	var matched bool
	r.callbacks.Range(func(_ string, cb componentCallback) bool {
		if !cb.match(ctx) {
			return true
		}
		matched = true
		if err := cb.handle(ctx); err != nil {
			r.reportHandlerError(i, ctx.CustomID, err)
		}
		return false
	})
	if !matched {
		err := &CommandNotFoundError{Name: ctx.CustomID}
		r.logger.Warn("No callback for component", slog.String("custom_id", ctx.CustomID))
		r.publishCommandError(i, ctx.CustomID, events.ErrorKindNotFound, err)
	}
}

// reportHandlerError converts a handler failure into an event. Context
// cancellation during shutdown is not a failure.
func (r *Router) reportHandlerError(i *discordgo.Interaction, name string, err error) {
	if errors.Is(err, context.Canceled) {
		r.logger.Debug("Handler cancelled", slog.String("command", name))
		return
	}
	kind := events.ErrorKindInvoke
	var verr *ValidationError
	if errors.As(err, &verr) {
		kind = events.ErrorKindValidation
	}
	wrapped := &CommandInvokeError{Command: name, Err: err}
	r.logger.Error("Handler failed",
		slog.String("command", name),
		slog.Any("error", err),
	)
	r.publishCommandError(i, name, kind, wrapped)
}

func (r *Router) publishCommandError(i *discordgo.Interaction, name, kind string, err error) {
	userID := ""
	if i.Member != nil && i.Member.User != nil {
		userID = i.Member.User.ID
	} else if i.User != nil {
		userID = i.User.ID
	}
	r.publish(events.TopicCommandError, events.CommandErrorPayload{
		InteractionID: i.ID,
		CommandName:   name,
		GuildID:       i.GuildID,
		UserID:        userID,
		ErrorKind:     kind,
		ErrorDetail:   err.Error(),
	})
}

func (r *Router) publish(topic string, payload any) {
	if err := r.dispatcher.Publish(topic, payload); err != nil {
		r.logger.Warn("Event publish failed", slog.String("topic", topic), slog.Any("error", err))
	}
}
