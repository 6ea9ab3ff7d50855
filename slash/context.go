package slash

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Kenny2github/discord-ext-slash/discord"
)

// Context carries everything a handler needs about one command invocation:
// the invoking entities resolved per the resolution policy, the matched
// command, its decoded option values, and the response channel bound to the
// interaction token.
type Context struct {
	// Interaction is the raw gateway payload.
	Interaction *discordgo.Interaction
	// Command is the leaf command that matched, after subcommand descent.
	Command *Command
	// Guild is *discordgo.Guild, an Object placeholder, or nil in a DM.
	Guild any
	// Channel is *discordgo.Channel or an Object placeholder.
	Channel any
	// Author is *discordgo.Member in a guild, *discordgo.User in a DM.
	Author any
	// Me is the bot's own user.
	Me *discordgo.User

	session  discord.Session
	resolver *Resolver
	logger   *slog.Logger
	runCtx   context.Context

	options map[string]any

	mu        sync.Mutex
	responded bool
	deferred  bool
	// ackType is the callback type a bare Defer sends; component
	// interactions default to updating the origin message.
	ackType      discordgo.InteractionResponseType
	responseType discordgo.InteractionResponseType
}

// Context returns the context.Context governing this dispatch.
func (c *Context) Context() context.Context { return c.runCtx }

// ID returns the interaction's snowflake.
func (c *Context) ID() string { return c.Interaction.ID }

// Token returns the interaction token the response channel rides on.
func (c *Context) Token() string { return c.Interaction.Token }

// GuildID returns the invoking guild's snowflake, empty in a DM.
func (c *Context) GuildID() string { return c.Interaction.GuildID }

// ChannelID returns the invoking channel's snowflake.
func (c *Context) ChannelID() string { return c.Interaction.ChannelID }

// AuthorID returns the invoking user's snowflake regardless of whether the
// author resolved to a member or a bare user.
func (c *Context) AuthorID() string {
	switch a := c.Author.(type) {
	case *discordgo.Member:
		if a.User != nil {
			return a.User.ID
		}
	case *discordgo.User:
		return a.ID
	}
	return ""
}

func newContext(runCtx context.Context, session discord.Session, resolver *Resolver, logger *slog.Logger, me *discordgo.User, i *discordgo.Interaction) *Context {
	c := &Context{}
	initContext(c, runCtx, session, resolver, logger, me, i)
	return c
}

// initContext populates a pre-allocated Context in place so embedding types
// never copy it (it holds a mutex).
func initContext(c *Context, runCtx context.Context, session discord.Session, resolver *Resolver, logger *slog.Logger, me *discordgo.User, i *discordgo.Interaction) {
	c.Interaction = i
	c.Me = me
	c.session = session
	c.resolver = resolver
	c.logger = logger
	c.runCtx = runCtx
	c.options = make(map[string]any)
	c.ackType = discordgo.InteractionResponseDeferredChannelMessageWithSource
	c.responseType = discordgo.InteractionResponseChannelMessageWithSource
	if i.GuildID != "" {
		c.Guild = resolver.Guild(i.GuildID)
	}
	c.Channel = resolver.Channel(i.ChannelID, nil)
	if i.Member != nil {
		c.Author = i.Member
	} else {
		c.Author = i.User
	}
}

// descend follows SUB_COMMAND / SUB_COMMAND_GROUP wire options down the
// declared tree to the leaf command, returning the leaf and the options
// addressed to it.
func descend(root TopLevel, opts []*discordgo.ApplicationCommandInteractionDataOption) (*Command, []*discordgo.ApplicationCommandInteractionDataOption, error) {
	node := any(root)
	for {
		switch n := node.(type) {
		case *Command:
			return n, opts, nil
		case *Group:
			if len(opts) != 1 {
				return nil, nil, &CommandNotFoundError{Name: n.QualName()}
			}
			wire := opts[0]
			if wire.Type != discordgo.ApplicationCommandOptionSubCommand &&
				wire.Type != discordgo.ApplicationCommandOptionSubCommandGroup {
				return nil, nil, &CommandNotFoundError{Name: n.QualName()}
			}
			child, ok := n.Subcommand(wire.Name)
			if !ok {
				return nil, nil, &CommandNotFoundError{Name: n.QualName() + " " + wire.Name}
			}
			node = child
			opts = wire.Options
		default:
			return nil, nil, &CommandNotFoundError{Name: root.Name()}
		}
	}
}

// bindCommand records the matched leaf and decodes its option values:
// entity snowflakes go through the resolver, closed-set strings map back to
// their Choice member, scalars pass through.
func (c *Context) bindCommand(cmd *Command, wire []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) {
	c.Command = cmd
	for _, w := range wire {
		decl, ok := cmd.optionsByName[w.Name]
		if !ok {
			c.logger.Debug("Ignoring undeclared option",
				slog.String("command", cmd.QualName()),
				slog.String("option", w.Name),
			)
			continue
		}
		c.options[w.Name] = c.decodeOption(decl, w, resolved)
	}
}

func (c *Context) decodeOption(decl *Option, w *discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) any {
	switch decl.typ {
	case discordgo.ApplicationCommandOptionString:
		s, _ := w.Value.(string)
		if decl.choiceSet != nil {
			if member, ok := decl.choiceSet.Member(s); ok {
				return member
			}
			c.logger.Debug("Choice value not in set, passing through",
				slog.String("option", decl.name),
				slog.String("value", s),
			)
		}
		return s
	case discordgo.ApplicationCommandOptionInteger:
		f, _ := w.Value.(float64)
		return int64(f)
	case discordgo.ApplicationCommandOptionNumber:
		f, _ := w.Value.(float64)
		return f
	case discordgo.ApplicationCommandOptionBoolean:
		b, _ := w.Value.(bool)
		return b
	case discordgo.ApplicationCommandOptionUser:
		id, _ := w.Value.(string)
		return c.resolver.User(c.GuildID(), id, resolved)
	case discordgo.ApplicationCommandOptionChannel:
		id, _ := w.Value.(string)
		return c.resolver.Channel(id, resolved)
	case discordgo.ApplicationCommandOptionRole:
		id, _ := w.Value.(string)
		return c.resolver.Role(c.GuildID(), id, resolved)
	case discordgo.ApplicationCommandOptionMentionable:
		id, _ := w.Value.(string)
		return c.resolver.Mentionable(c.GuildID(), id, resolved)
	default:
		return w.Value
	}
}

// Option returns the decoded value of the named option. Absent optional
// options report ok == false.
func (c *Context) Option(name string) (any, bool) {
	v, ok := c.options[name]
	return v, ok
}

// String returns a STRING option's value, or "" when absent.
func (c *Context) String(name string) string {
	s, _ := c.options[name].(string)
	return s
}

// Int returns an INTEGER option's value, or 0 when absent.
func (c *Context) Int(name string) int64 {
	n, _ := c.options[name].(int64)
	return n
}

// Float returns a NUMBER option's value, or 0 when absent.
func (c *Context) Float(name string) float64 {
	f, _ := c.options[name].(float64)
	return f
}

// Bool returns a BOOLEAN option's value, or false when absent.
func (c *Context) Bool(name string) bool {
	b, _ := c.options[name].(bool)
	return b
}

// Choice returns the matched member of a closed-set option.
func (c *Context) Choice(name string) (Choice, bool) {
	m, ok := c.options[name].(Choice)
	return m, ok
}

// Member returns a USER option resolved to a guild member.
func (c *Context) Member(name string) (*discordgo.Member, bool) {
	m, ok := c.options[name].(*discordgo.Member)
	return m, ok
}

// User returns a USER option's user, unwrapping a member when the value
// resolved inside a guild.
func (c *Context) User(name string) (*discordgo.User, bool) {
	switch v := c.options[name].(type) {
	case *discordgo.User:
		return v, true
	case *discordgo.Member:
		if v.User != nil {
			return v.User, true
		}
	}
	return nil, false
}

// ChannelOption returns a CHANNEL option's resolved channel.
func (c *Context) ChannelOption(name string) (*discordgo.Channel, bool) {
	ch, ok := c.options[name].(*discordgo.Channel)
	return ch, ok
}

// Role returns a ROLE option's resolved role.
func (c *Context) Role(name string) (*discordgo.Role, bool) {
	r, ok := c.options[name].(*discordgo.Role)
	return r, ok
}

// Mentionable returns a MENTIONABLE option's value: *discordgo.Member,
// *discordgo.User, *discordgo.Role, or Object.
func (c *Context) Mentionable(name string) (any, bool) {
	v, ok := c.options[name]
	return v, ok
}

// Placeholder returns the Object stand-in for an option whose entity could
// not be resolved at all.
func (c *Context) Placeholder(name string) (Object, bool) {
	o, ok := c.options[name].(Object)
	return o, ok
}

// ComponentHandler is invoked when a message component interaction matches
// a registered callback.
type ComponentHandler func(ctx *ComponentContext) error

// ComponentMatcher decides whether a callback claims a component
// interaction. It sees the full constructed context, so matchers may key on
// anything from the custom ID to the origin message.
type ComponentMatcher func(ctx *ComponentContext) bool

// ExactMatch returns a matcher claiming exactly one custom ID.
func ExactMatch(customID string) ComponentMatcher {
	return func(ctx *ComponentContext) bool { return ctx.CustomID == customID }
}

// ComponentContext is the invocation context for message component
// interactions. Responses default to updating the message the component
// lives on.
type ComponentContext struct {
	Context
	// CustomID identifies the component that was used.
	CustomID string
	// ComponentType is button, select menu, etc.
	ComponentType discordgo.ComponentType
	// Values holds the selected values of a select menu.
	Values []string
	// Message is the message the component is attached to.
	Message *discordgo.Message
}

func newComponentContext(runCtx context.Context, session discord.Session, resolver *Resolver, logger *slog.Logger, me *discordgo.User, i *discordgo.Interaction) *ComponentContext {
	data := i.MessageComponentData()
	cc := &ComponentContext{
		CustomID:      data.CustomID,
		ComponentType: data.ComponentType,
		Values:        data.Values,
		Message:       i.Message,
	}
	initContext(&cc.Context, runCtx, session, resolver, logger, me, i)
	cc.ackType = discordgo.InteractionResponseDeferredMessageUpdate
	cc.responseType = discordgo.InteractionResponseUpdateMessage
	return cc
}
