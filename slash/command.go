package slash

import (
	"sort"

	"github.com/bwmarrin/discordgo"
)

// Handler is a leaf command callback. For groups it acts as a pre-invocation
// hook shared by every descendant, not a gate.
type Handler func(ctx *Context) error

// Verdict is the result of a Check.
type Verdict int

const (
	// NoOpinion lets the decision fall through to the remaining checks.
	NoOpinion Verdict = iota
	// Allow passes this check.
	Allow
	// Deny vetoes the invocation. Only an explicit Deny blocks; NoOpinion
	// and Allow both let the chain continue.
	Deny
)

// Check is a gating predicate evaluated before invocation.
type Check func(ctx *Context) Verdict

type permissionKey struct {
	id  string
	typ discordgo.ApplicationCommandPermissionType
}

// DefaultScope is the permission scope inherited by every guild that has no
// specific override for a command.
const DefaultScope = ""

// Command is a leaf node in the command tree: a name, a description, an
// option schema, a check, and the handler invoked on dispatch.
type Command struct {
	name              string
	description       string
	guildID           string
	parent            *Group
	options           []*Option
	optionsByName     map[string]*Option
	id                string
	defaultPermission bool
	permissions       map[string]map[permissionKey]bool
	check             Check
	handler           Handler
}

// CommandSetting customizes a Command or Group at construction time.
type CommandSetting func(*Command)

// WithGuild restricts the command to a single guild. Unset means global.
func WithGuild(guildID string) CommandSetting {
	return func(c *Command) { c.guildID = guildID }
}

// WithCheck sets the command's check.
func WithCheck(check Check) CommandSetting {
	return func(c *Command) { c.check = check }
}

// WithDefaultPermission controls whether the command is enabled by default
// when the bot joins a new guild. Only meaningful on top-level commands.
func WithDefaultPermission(enabled bool) CommandSetting {
	return func(c *Command) { c.defaultPermission = enabled }
}

// WithOptions attaches option schemas, cloned so that shared declarations
// cannot alias across commands. Order is declaration order on the wire.
func WithOptions(options ...*Option) CommandSetting {
	return func(c *Command) {
		for _, opt := range options {
			c.options = append(c.options, opt.Clone())
		}
	}
}

// NewCommand builds a command. The handler is required: a command with no
// way to receive its invocation context is invalid at construction time.
func NewCommand(name, description string, handler Handler, settings ...CommandSetting) (*Command, error) {
	if handler == nil {
		return nil, validationErrorf("command %q requires a handler taking the invocation context", name)
	}
	c, err := newBase(name, description, settings...)
	if err != nil {
		return nil, err
	}
	c.handler = handler
	return c, nil
}

func newBase(name, description string, settings ...CommandSetting) (*Command, error) {
	if name == "" {
		return nil, validationErrorf("command requires a name")
	}
	if description == "" {
		return nil, validationErrorf("please specify a description for %q", name)
	}
	c := &Command{
		name:              name,
		description:       description,
		defaultPermission: true,
		permissions:       make(map[string]map[permissionKey]bool),
		optionsByName:     make(map[string]*Option),
	}
	for _, s := range settings {
		s(c)
	}
	for _, opt := range c.options {
		if _, dup := c.optionsByName[opt.name]; dup {
			return nil, validationErrorf("command %q declares option %q twice", name, opt.name)
		}
		c.optionsByName[opt.name] = opt
	}
	return c, nil
}

// Name returns the command name.
func (c *Command) Name() string { return c.name }

// Description returns the command description.
func (c *Command) Description() string { return c.description }

// GuildID returns the guild the command is restricted to, or "" for global.
func (c *Command) GuildID() string { return c.guildID }

// ID returns the remote command ID, or "" until registered.
func (c *Command) ID() string { return c.id }

// SetID records the remote-assigned ID. Called by the registration sync.
func (c *Command) SetID(id string) { c.id = id }

// Parent returns the owning group, or nil for a top-level command.
func (c *Command) Parent() *Group { return c.parent }

// Options returns the option schemas in declaration order.
func (c *Command) Options() []*Option { return c.options }

// QualName is the fully qualified name of the command, including group
// names. Used for logging, not wire identity.
func (c *Command) QualName() string {
	if c.parent == nil {
		return c.name
	}
	return c.parent.QualName() + " " + c.name
}

// SetCheck sets the command's check after construction.
func (c *Command) SetCheck(check Check) { c.check = check }

// AddPermission records a permission override for a role or user. Passing
// DefaultScope applies the override to the defaults every guild inherits
// when it has no specific override of its own.
func (c *Command) AddPermission(targetID string, typ discordgo.ApplicationCommandPermissionType, allow bool, guildID string) {
	scope := c.permissions[guildID]
	if scope == nil {
		scope = make(map[permissionKey]bool)
		c.permissions[guildID] = scope
	}
	scope[permissionKey{id: targetID, typ: typ}] = allow
}

// PermissionsFor merges the default-scope grants with the guild-specific
// grants for guildID; guild-specific entries win on collision. The result is
// sorted for deterministic payloads.
func (c *Command) PermissionsFor(guildID string) []*discordgo.ApplicationCommandPermissions {
	merged := make(map[permissionKey]bool)
	for k, v := range c.permissions[DefaultScope] {
		merged[k] = v
	}
	if guildID != DefaultScope {
		for k, v := range c.permissions[guildID] {
			merged[k] = v
		}
	}
	out := make([]*discordgo.ApplicationCommandPermissions, 0, len(merged))
	for k, v := range merged {
		out = append(out, &discordgo.ApplicationCommandPermissions{
			ID:         k.id,
			Type:       k.typ,
			Permission: v,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PermissionScopes returns every guild with specific overrides, excluding
// the default scope.
func (c *Command) PermissionScopes() []string {
	var out []string
	for scope := range c.permissions {
		if scope != DefaultScope {
			out = append(out, scope)
		}
	}
	sort.Strings(out)
	return out
}

// HasDefaultPermissions reports whether any default-scope grants exist.
func (c *Command) HasDefaultPermissions() bool {
	return len(c.permissions[DefaultScope]) > 0
}

func (c *Command) hasScope(guildID string) bool {
	return len(c.permissions[guildID]) > 0
}

// Definition serializes the command to its wire schema. Only top-level
// commands carry default_permission.
func (c *Command) Definition() *discordgo.ApplicationCommand {
	def := &discordgo.ApplicationCommand{
		Name:        c.name,
		Description: c.description,
	}
	for _, opt := range c.options {
		def.Options = append(def.Options, opt.Definition())
	}
	if c.parent == nil {
		dp := c.defaultPermission
		def.DefaultPermission = &dp
	}
	return def
}

func (c *Command) subDefinition() *discordgo.ApplicationCommandOption {
	def := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        c.name,
		Description: c.description,
	}
	for _, opt := range c.options {
		def.Options = append(def.Options, opt.Definition())
	}
	return def
}

// canRun evaluates the check chain: global checks first, then every ancestor
// group's check from the outermost down, then the leaf's own check. Only an
// explicit Deny vetoes.
func (c *Command) canRun(ctx *Context, global []Check) bool {
	var chain []Check
	chain = append(chain, global...)
	var lineage []*Group
	for p := c.parent; p != nil; p = p.parent {
		lineage = append(lineage, p)
	}
	for i := len(lineage) - 1; i >= 0; i-- {
		if lineage[i].check != nil {
			chain = append(chain, lineage[i].check)
		}
	}
	if c.check != nil {
		chain = append(chain, c.check)
	}
	for _, check := range chain {
		if check(ctx) == Deny {
			return false
		}
	}
	return true
}

// invokeParents runs every ancestor group's handler in root-to-leaf order.
// These are shared setup hooks, not gates.
func (c *Command) invokeParents(ctx *Context) error {
	var lineage []*Group
	for p := c.parent; p != nil; p = p.parent {
		lineage = append(lineage, p)
	}
	for i := len(lineage) - 1; i >= 0; i-- {
		if lineage[i].handler == nil {
			continue
		}
		if err := lineage[i].handler(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Group is a branch node owning subcommands and nested groups. Its handler,
// when set, runs before every descendant leaf.
type Group struct {
	Command
	order []string
	subs  map[string]any // *Command or *Group
}

// NewGroup builds a command group. The handler may be nil when no shared
// pre-invocation hook is needed.
func NewGroup(name, description string, handler Handler, settings ...CommandSetting) (*Group, error) {
	base, err := newBase(name, description, settings...)
	if err != nil {
		return nil, err
	}
	if len(base.options) > 0 {
		return nil, validationErrorf("group %q cannot declare its own options", name)
	}
	base.handler = handler
	return &Group{Command: *base, subs: make(map[string]any)}, nil
}

// AddCommand attaches a subcommand to the group.
func (g *Group) AddCommand(cmd *Command) error {
	return g.add(cmd.name, cmd, &cmd.parent, &cmd.guildID)
}

// AddGroup attaches a nested subcommand group. Nesting is limited to one
// level of groups below a top-level group, matching the wire schema.
func (g *Group) AddGroup(sub *Group) error {
	if g.parent != nil {
		return validationErrorf("group %q is already nested; cannot nest further", g.name)
	}
	return g.add(sub.name, sub, &sub.Command.parent, &sub.Command.guildID)
}

func (g *Group) add(name string, node any, parent **Group, guildID *string) error {
	if _, dup := g.subs[name]; dup {
		return validationErrorf("group %q already has a subcommand %q", g.name, name)
	}
	*parent = g
	*guildID = "" // scope is owned by the top-level node
	g.subs[name] = node
	g.order = append(g.order, name)
	return nil
}

// Subcommand returns the named child, which is a *Command or a *Group.
func (g *Group) Subcommand(name string) (any, bool) {
	node, ok := g.subs[name]
	return node, ok
}

// Definition serializes the group and its subtree to the wire schema.
func (g *Group) Definition() *discordgo.ApplicationCommand {
	def := &discordgo.ApplicationCommand{
		Name:        g.name,
		Description: g.description,
	}
	for _, name := range g.order {
		def.Options = append(def.Options, subNodeDefinition(g.subs[name]))
	}
	if g.parent == nil {
		dp := g.defaultPermission
		def.DefaultPermission = &dp
	}
	return def
}

func (g *Group) subDefinition() *discordgo.ApplicationCommandOption {
	def := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        g.name,
		Description: g.description,
	}
	for _, name := range g.order {
		def.Options = append(def.Options, subNodeDefinition(g.subs[name]))
	}
	return def
}

func subNodeDefinition(node any) *discordgo.ApplicationCommandOption {
	switch n := node.(type) {
	case *Group:
		return n.subDefinition()
	case *Command:
		return n.subDefinition()
	}
	return nil
}

// TopLevel is either a *Command or a *Group registered at the root. Only
// those two types implement it.
type TopLevel interface {
	Name() string
	GuildID() string
	ID() string
	SetID(string)
	QualName() string
	Definition() *discordgo.ApplicationCommand
	PermissionsFor(guildID string) []*discordgo.ApplicationCommandPermissions
	PermissionScopes() []string
	HasDefaultPermissions() bool
	base() *Command
}

func (c *Command) base() *Command { return c }
