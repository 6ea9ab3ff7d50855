package slash

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(*Context) error { return nil }

func TestNewCommandValidation(t *testing.T) {
	opt, err := NewOption("target", "who to greet", 0)
	require.NoError(t, err)

	t.Run("nil handler rejected", func(t *testing.T) {
		_, err := NewCommand("greet", "say hello", nil)
		require.Error(t, err)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("empty description rejected", func(t *testing.T) {
		_, err := NewCommand("greet", "", nopHandler)
		require.Error(t, err)
	})

	t.Run("duplicate option names rejected", func(t *testing.T) {
		_, err := NewCommand("greet", "say hello", nopHandler, WithOptions(opt, opt))
		require.Error(t, err)
	})

	t.Run("valid command", func(t *testing.T) {
		cmd, err := NewCommand("greet", "say hello", nopHandler, WithOptions(opt), WithGuild("g1"))
		require.NoError(t, err)
		assert.Equal(t, "greet", cmd.Name())
		assert.Equal(t, "g1", cmd.GuildID())
		require.Len(t, cmd.Options(), 1)
	})
}

func TestWithOptionsClones(t *testing.T) {
	opt, err := NewOption("count", "how many", discordgo.ApplicationCommandOptionInteger)
	require.NoError(t, err)

	cmd, err := NewCommand("roll", "roll dice", nopHandler, WithOptions(opt))
	require.NoError(t, err)

	cmd.Options()[0].required = true
	assert.False(t, opt.IsRequired())
}

func TestQualName(t *testing.T) {
	root, err := NewGroup("settings", "configure the bot", nil)
	require.NoError(t, err)
	sub, err := NewGroup("alerts", "alert settings", nil)
	require.NoError(t, err)
	leaf, err := NewCommand("enable", "enable alerts", nopHandler)
	require.NoError(t, err)

	require.NoError(t, root.AddGroup(sub))
	require.NoError(t, sub.AddCommand(leaf))

	assert.Equal(t, "settings", root.QualName())
	assert.Equal(t, "settings alerts", sub.QualName())
	assert.Equal(t, "settings alerts enable", leaf.QualName())
}

func TestGroupNestingLimit(t *testing.T) {
	root, err := NewGroup("a", "level one", nil)
	require.NoError(t, err)
	mid, err := NewGroup("b", "level two", nil)
	require.NoError(t, err)
	deep, err := NewGroup("c", "level three", nil)
	require.NoError(t, err)

	require.NoError(t, root.AddGroup(mid))
	err = mid.AddGroup(deep)
	require.Error(t, err)
}

func TestGroupRejectsDuplicateSubcommand(t *testing.T) {
	g, err := NewGroup("tools", "tool commands", nil)
	require.NoError(t, err)
	first, err := NewCommand("ping", "check latency", nopHandler)
	require.NoError(t, err)
	second, err := NewCommand("ping", "check latency again", nopHandler)
	require.NoError(t, err)

	require.NoError(t, g.AddCommand(first))
	assert.Error(t, g.AddCommand(second))
}

func TestGroupCannotDeclareOptions(t *testing.T) {
	opt, err := NewOption("x", "an option", 0)
	require.NoError(t, err)
	_, err = NewGroup("g", "a group", nil, WithOptions(opt))
	require.Error(t, err)
}

func TestGroupDefinition(t *testing.T) {
	root, err := NewGroup("settings", "configure the bot", nil)
	require.NoError(t, err)
	sub, err := NewGroup("alerts", "alert settings", nil)
	require.NoError(t, err)
	toggle, err := NewCommand("toggle", "toggle alerts", nopHandler)
	require.NoError(t, err)
	show, err := NewCommand("show", "show settings", nopHandler)
	require.NoError(t, err)

	require.NoError(t, root.AddGroup(sub))
	require.NoError(t, sub.AddCommand(toggle))
	require.NoError(t, root.AddCommand(show))

	def := root.Definition()
	assert.Equal(t, "settings", def.Name)
	require.NotNil(t, def.DefaultPermission)
	assert.True(t, *def.DefaultPermission)
	require.Len(t, def.Options, 2)

	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommandGroup, def.Options[0].Type)
	assert.Equal(t, "alerts", def.Options[0].Name)
	require.Len(t, def.Options[0].Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, def.Options[0].Options[0].Type)
	assert.Equal(t, "toggle", def.Options[0].Options[0].Name)

	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, def.Options[1].Type)
	assert.Equal(t, "show", def.Options[1].Name)
	// nested nodes never carry default_permission
	assert.Nil(t, def.Options[1].Options)
}

func TestPermissionsForMergesScopes(t *testing.T) {
	cmd, err := NewCommand("admin", "admin things", nopHandler)
	require.NoError(t, err)

	cmd.AddPermission("role-everyone", discordgo.ApplicationCommandPermissionTypeRole, false, DefaultScope)
	cmd.AddPermission("role-mods", discordgo.ApplicationCommandPermissionTypeRole, true, DefaultScope)
	// guild override flips the default for role-everyone
	cmd.AddPermission("role-everyone", discordgo.ApplicationCommandPermissionTypeRole, true, "g1")

	perms := cmd.PermissionsFor("g1")
	require.Len(t, perms, 2)
	byID := map[string]bool{}
	for _, p := range perms {
		byID[p.ID] = p.Permission
	}
	assert.True(t, byID["role-everyone"])
	assert.True(t, byID["role-mods"])

	defaults := cmd.PermissionsFor(DefaultScope)
	require.Len(t, defaults, 2)
	byID = map[string]bool{}
	for _, p := range defaults {
		byID[p.ID] = p.Permission
	}
	assert.False(t, byID["role-everyone"])

	assert.Equal(t, []string{"g1"}, cmd.PermissionScopes())
	assert.True(t, cmd.HasDefaultPermissions())
}

func TestCanRunOnlyDenyBlocks(t *testing.T) {
	ctx := &Context{}

	tests := []struct {
		name    string
		global  []Check
		group   Check
		leaf    Check
		allowed bool
	}{
		{
			name:    "no checks pass",
			allowed: true,
		},
		{
			name:    "no opinion everywhere passes",
			global:  []Check{func(*Context) Verdict { return NoOpinion }},
			group:   func(*Context) Verdict { return NoOpinion },
			leaf:    func(*Context) Verdict { return NoOpinion },
			allowed: true,
		},
		{
			name:    "global deny blocks",
			global:  []Check{func(*Context) Verdict { return Deny }},
			allowed: false,
		},
		{
			name:    "group deny blocks leaf allow",
			group:   func(*Context) Verdict { return Deny },
			leaf:    func(*Context) Verdict { return Allow },
			allowed: false,
		},
		{
			name:    "allow then deny still blocks",
			global:  []Check{func(*Context) Verdict { return Allow }},
			leaf:    func(*Context) Verdict { return Deny },
			allowed: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group, err := NewGroup("parent", "parent group", nil, WithCheck(tt.group))
			require.NoError(t, err)
			leaf, err := NewCommand("child", "child command", nopHandler, WithCheck(tt.leaf))
			require.NoError(t, err)
			require.NoError(t, group.AddCommand(leaf))

			assert.Equal(t, tt.allowed, leaf.canRun(ctx, tt.global))
		})
	}
}

func TestCheckOrderOutermostFirst(t *testing.T) {
	var order []string
	record := func(name string, v Verdict) Check {
		return func(*Context) Verdict {
			order = append(order, name)
			return v
		}
	}

	root, err := NewGroup("root", "root group", nil, WithCheck(record("root", NoOpinion)))
	require.NoError(t, err)
	mid, err := NewGroup("mid", "mid group", nil, WithCheck(record("mid", NoOpinion)))
	require.NoError(t, err)
	leaf, err := NewCommand("leaf", "leaf command", nopHandler, WithCheck(record("leaf", NoOpinion)))
	require.NoError(t, err)
	require.NoError(t, root.AddGroup(mid))
	require.NoError(t, mid.AddCommand(leaf))

	global := record("global", NoOpinion)
	require.True(t, leaf.canRun(&Context{}, []Check{global}))
	assert.Equal(t, []string{"global", "root", "mid", "leaf"}, order)
}

func TestInvokeParentsRootToLeaf(t *testing.T) {
	var order []string
	hook := func(name string) Handler {
		return func(*Context) error {
			order = append(order, name)
			return nil
		}
	}

	root, err := NewGroup("root", "root group", hook("root"))
	require.NoError(t, err)
	mid, err := NewGroup("mid", "mid group", hook("mid"))
	require.NoError(t, err)
	leaf, err := NewCommand("leaf", "leaf command", hook("leaf"))
	require.NoError(t, err)
	require.NoError(t, root.AddGroup(mid))
	require.NoError(t, mid.AddCommand(leaf))

	require.NoError(t, leaf.invokeParents(&Context{}))
	assert.Equal(t, []string{"root", "mid"}, order)
}

func TestSubcommandScopeFollowsTopLevel(t *testing.T) {
	g, err := NewGroup("tools", "tool commands", nil, WithGuild("g1"))
	require.NoError(t, err)
	leaf, err := NewCommand("ping", "check latency", nopHandler, WithGuild("g2"))
	require.NoError(t, err)
	require.NoError(t, g.AddCommand(leaf))

	assert.Equal(t, "g1", g.GuildID())
	assert.Equal(t, "", leaf.GuildID())
}
