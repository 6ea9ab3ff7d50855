package slash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Kenny2github/discord-ext-slash/discord"
)

// writeInterval keeps registration writes well under Discord's rate limit.
const writeInterval = 25 * time.Millisecond

const maxConcurrentWrites = 4

// RemoteCommand identifies a command record registered on the API.
type RemoteCommand struct {
	ID   string
	Name string
}

// PlannedWrite pairs a declared command with the remote ID it updates or
// adopts.
type PlannedWrite struct {
	Node     TopLevel
	RemoteID string
}

// Plan is the transient diff state for one scope: which commands to create,
// update, delete, and which remote IDs to adopt without a write. It is
// discarded once the corresponding HTTP operations complete.
type Plan struct {
	Scope  string // "" is the global scope
	Create []TopLevel
	Update []PlannedWrite
	Adopt  []PlannedWrite
	Delete []RemoteCommand
}

// Writes returns the number of HTTP operations the plan implies.
func (p *Plan) Writes() int {
	return len(p.Create) + len(p.Update) + len(p.Delete)
}

// BuildPlan diffs the declared commands for one scope against the remote
// records: declared-only names are created, remote-only names are deleted,
// and names present on both sides are updated only when their serialized
// forms differ, otherwise the remote ID is adopted as-is.
func BuildPlan(scope string, declared []TopLevel, remote []*discordgo.ApplicationCommand) *Plan {
	plan := &Plan{Scope: scope}
	remoteByName := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, rc := range remote {
		if rc == nil || rc.Name == "" {
			continue
		}
		remoteByName[rc.Name] = rc
	}
	declaredNames := make(map[string]bool, len(declared))

	for _, cmd := range declared {
		declaredNames[cmd.Name()] = true
		rc, exists := remoteByName[cmd.Name()]
		if !exists {
			plan.Create = append(plan.Create, cmd)
			continue
		}
		if definitionsEqual(cmd.Definition(), rc) {
			plan.Adopt = append(plan.Adopt, PlannedWrite{Node: cmd, RemoteID: rc.ID})
		} else {
			plan.Update = append(plan.Update, PlannedWrite{Node: cmd, RemoteID: rc.ID})
		}
	}
	for name, rc := range remoteByName {
		if !declaredNames[name] {
			plan.Delete = append(plan.Delete, RemoteCommand{ID: rc.ID, Name: name})
		}
	}
	sort.Slice(plan.Delete, func(i, j int) bool { return plan.Delete[i].Name < plan.Delete[j].Name })
	return plan
}

// definitionsEqual compares the fields that matter for registration:
// name, description, options and default_permission. Remote records carry
// extra bookkeeping fields that must not defeat the comparison.
func definitionsEqual(local, remote *discordgo.ApplicationCommand) bool {
	if local.Name != remote.Name || local.Description != remote.Description {
		return false
	}
	if boolOrTrue(local.DefaultPermission) != boolOrTrue(remote.DefaultPermission) {
		return false
	}
	return optionListsEqual(local.Options, remote.Options)
}

func boolOrTrue(b *bool) bool {
	return b == nil || *b
}

func optionListsEqual(a, b []*discordgo.ApplicationCommandOption) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !optionsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func optionsEqual(a, b *discordgo.ApplicationCommandOption) bool {
	if a.Type != b.Type || a.Name != b.Name || a.Description != b.Description || a.Required != b.Required {
		return false
	}
	if len(a.Choices) != len(b.Choices) {
		return false
	}
	for i := range a.Choices {
		if a.Choices[i].Name != b.Choices[i].Name {
			return false
		}
		// Remote choice values for numeric options unmarshal as float64;
		// compare on the printed form.
		if fmt.Sprint(a.Choices[i].Value) != fmt.Sprint(b.Choices[i].Value) {
			return false
		}
	}
	if !channelTypeSetsEqual(a.ChannelTypes, b.ChannelTypes) {
		return false
	}
	if !floatPtrsEqual(a.MinValue, b.MinValue) {
		return false
	}
	if a.MaxValue != b.MaxValue {
		return false
	}
	return optionListsEqual(a.Options, b.Options)
}

func channelTypeSetsEqual(a, b []discordgo.ChannelType) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[discordgo.ChannelType]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		if !set[t] {
			return false
		}
	}
	return true
}

func floatPtrsEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Syncer reconciles declared commands against the remote registration state,
// scope by scope, issuing the minimal set of writes.
type Syncer struct {
	session    discord.Session
	logger     *slog.Logger
	limiter    *rate.Limiter
	appID      string
	debugGuild string
}

// NewSyncer builds a Syncer. appID may be empty, in which case it is
// resolved from the bot user on first use. A non-empty debugGuild redirects
// every global command to that guild for instant updates while testing.
func NewSyncer(session discord.Session, logger *slog.Logger, appID, debugGuild string) *Syncer {
	return &Syncer{
		session:    session,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Every(writeInterval), 1),
		appID:      appID,
		debugGuild: debugGuild,
	}
}

// EffectiveScope returns the scope a command registers under: its own guild
// restriction, else the debug-guild override, else global.
func (s *Syncer) EffectiveScope(cmd TopLevel) string {
	if cmd.GuildID() != "" {
		return cmd.GuildID()
	}
	return s.debugGuild
}

func (s *Syncer) resolveAppID() (string, error) {
	if s.appID != "" {
		return s.appID, nil
	}
	user, err := s.session.GetBotUser()
	if err != nil {
		return "", fmt.Errorf("failed to resolve application ID: %w", err)
	}
	s.appID = user.ID
	return s.appID, nil
}

// Sync fetches the remote command list for every relevant scope, diffs it
// against the declarations, and issues all writes concurrently, joining them
// before returning. Individual write failures are logged and joined into the
// returned error; they do not abort sibling writes. Remote IDs are recorded
// back onto the declared commands.
//
// knownGuilds lists guilds the bot is connected to; they are included as
// scopes even with no declared commands so stale registrations get deleted.
func (s *Syncer) Sync(ctx context.Context, commands []TopLevel, knownGuilds []string) ([]*Plan, error) {
	appID, err := s.resolveAppID()
	if err != nil {
		return nil, err
	}

	scopes := make(map[string][]TopLevel)
	for _, gid := range knownGuilds {
		scopes[gid] = nil
	}
	for _, cmd := range commands {
		scope := s.EffectiveScope(cmd)
		scopes[scope] = append(scopes[scope], cmd)
	}

	var plans []*Plan
	for scope, declared := range scopes {
		remote, err := s.session.ApplicationCommands(appID, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to list commands in scope %q: %w", scope, err)
		}
		plan := BuildPlan(scope, declared, remote)
		plans = append(plans, plan)
		s.logger.Info("Planned command sync",
			slog.String("scope", scope),
			slog.Int("create", len(plan.Create)),
			slog.Int("update", len(plan.Update)),
			slog.Int("adopt", len(plan.Adopt)),
			slog.Int("delete", len(plan.Delete)),
		)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Scope < plans[j].Scope })

	var mu sync.Mutex
	var failures []error
	fail := func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}

	var group errgroup.Group
	group.SetLimit(maxConcurrentWrites)
	for _, plan := range plans {
		scope := plan.Scope
		for _, adoption := range plan.Adopt {
			adoption.Node.SetID(adoption.RemoteID)
			s.logger.Debug("Adopted remote command ID",
				slog.String("command", adoption.Node.QualName()),
				slog.String("id", adoption.RemoteID),
				slog.String("scope", scope),
			)
		}
		for _, cmd := range plan.Create {
			cmd := cmd
			group.Go(s.writeFunc(ctx, fail, "create", cmd.Name(), scope, func() error {
				created, err := s.session.ApplicationCommandCreate(appID, scope, cmd.Definition())
				if err != nil {
					return err
				}
				cmd.SetID(created.ID)
				return nil
			}))
		}
		for _, update := range plan.Update {
			update := update
			group.Go(s.writeFunc(ctx, fail, "update", update.Node.Name(), scope, func() error {
				// The remote ID addresses the command, so the unchanged
				// name rides along in the payload without effect.
				edited, err := s.session.ApplicationCommandEdit(appID, scope, update.RemoteID, update.Node.Definition())
				if err != nil {
					return err
				}
				update.Node.SetID(edited.ID)
				return nil
			}))
		}
		for _, stale := range plan.Delete {
			stale := stale
			group.Go(s.writeFunc(ctx, fail, "delete", stale.Name, scope, func() error {
				return s.session.ApplicationCommandDelete(appID, scope, stale.ID)
			}))
		}
	}
	_ = group.Wait()
	return plans, errors.Join(failures...)
}

func (s *Syncer) writeFunc(ctx context.Context, fail func(error), op, name, scope string, fn func() error) func() error {
	return func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			fail(err)
			return nil
		}
		operation := fmt.Sprintf("command %s %q", op, name)
		if err := discord.Retry(s.logger, operation, fn); err != nil {
			s.logger.Error("Command registration write failed",
				slog.String("op", op),
				slog.String("command", name),
				slog.String("scope", scope),
				slog.Any("error", err),
			)
			fail(fmt.Errorf("%s in scope %q: %w", operation, scope, err))
			return nil
		}
		s.logger.Debug("Command registration write",
			slog.String("op", op),
			slog.String("command", name),
			slog.String("scope", scope),
		)
		return nil
	}
}

// SyncPermissions propagates permission overrides: default-scope grants are
// replicated into every relevant guild that lacks a specific override for
// that command, and guild-specific grants are emitted directly. One bulk
// replace write is issued per guild.
func (s *Syncer) SyncPermissions(ctx context.Context, commands []TopLevel, knownGuilds []string) error {
	appID, err := s.resolveAppID()
	if err != nil {
		return err
	}

	allGuilds := make(map[string]bool, len(knownGuilds))
	for _, gid := range knownGuilds {
		allGuilds[gid] = true
	}
	for _, cmd := range commands {
		if cmd.GuildID() != "" {
			allGuilds[cmd.GuildID()] = true
		}
	}

	byGuild := make(map[string][]*discordgo.GuildApplicationCommandPermissions)
	for _, cmd := range commands {
		if cmd.HasDefaultPermissions() {
			targets := allGuilds
			if cmd.GuildID() != "" {
				// A guild-restricted command never sets defaults elsewhere.
				targets = map[string]bool{cmd.GuildID(): true}
			}
			defaults := cmd.PermissionsFor(DefaultScope)
			for gid := range targets {
				if cmd.base().hasScope(gid) {
					continue // specific overrides already include the defaults
				}
				byGuild[gid] = append(byGuild[gid], &discordgo.GuildApplicationCommandPermissions{
					ID:          cmd.ID(),
					Permissions: defaults,
				})
			}
		}
		for _, gid := range cmd.PermissionScopes() {
			byGuild[gid] = append(byGuild[gid], &discordgo.GuildApplicationCommandPermissions{
				ID:          cmd.ID(),
				Permissions: cmd.PermissionsFor(gid),
			})
		}
	}

	guilds := make([]string, 0, len(byGuild))
	for gid := range byGuild {
		guilds = append(guilds, gid)
	}
	sort.Strings(guilds)

	var failures []error
	for _, gid := range guilds {
		if err := s.limiter.Wait(ctx); err != nil {
			failures = append(failures, err)
			break
		}
		perms := byGuild[gid]
		err := discord.Retry(s.logger, "permissions replace", func() error {
			return s.session.ApplicationCommandPermissionsBatchEdit(appID, gid, perms)
		})
		if err != nil {
			s.logger.Error("Permission registration failed",
				slog.String("guild", gid),
				slog.Any("error", err),
			)
			failures = append(failures, fmt.Errorf("permissions for guild %s: %w", gid, err))
			continue
		}
		s.logger.Debug("Replaced command permissions",
			slog.String("guild", gid),
			slog.Int("commands", len(perms)),
		)
	}
	return errors.Join(failures...)
}
