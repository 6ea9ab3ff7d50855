package slash

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kenny2github/discord-ext-slash/discord"
)

func wireOption(name string, typ discordgo.ApplicationCommandOptionType, value any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: typ, Value: value}
}

func TestDescend(t *testing.T) {
	root, err := NewGroup("settings", "configure", nil)
	require.NoError(t, err)
	sub, err := NewGroup("alerts", "alert settings", nil)
	require.NoError(t, err)
	leaf, err := NewCommand("toggle", "toggle alerts", nopHandler)
	require.NoError(t, err)
	require.NoError(t, root.AddGroup(sub))
	require.NoError(t, sub.AddCommand(leaf))

	t.Run("two levels down", func(t *testing.T) {
		wire := []*discordgo.ApplicationCommandInteractionDataOption{
			{
				Name: "alerts",
				Type: discordgo.ApplicationCommandOptionSubCommandGroup,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{
						Name:    "toggle",
						Type:    discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandInteractionDataOption{wireOption("on", discordgo.ApplicationCommandOptionBoolean, true)},
					},
				},
			},
		}
		got, opts, err := descend(root, wire)
		require.NoError(t, err)
		assert.Same(t, leaf, got)
		require.Len(t, opts, 1)
		assert.Equal(t, "on", opts[0].Name)
	})

	t.Run("plain command passes through", func(t *testing.T) {
		ping, err := NewCommand("ping", "check latency", nopHandler)
		require.NoError(t, err)
		wire := []*discordgo.ApplicationCommandInteractionDataOption{
			wireOption("who", discordgo.ApplicationCommandOptionString, "me"),
		}
		got, opts, err := descend(ping, wire)
		require.NoError(t, err)
		assert.Same(t, ping, got)
		assert.Len(t, opts, 1)
	})

	t.Run("unknown subcommand fails", func(t *testing.T) {
		wire := []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "missing", Type: discordgo.ApplicationCommandOptionSubCommand},
		}
		_, _, err := descend(root, wire)
		require.Error(t, err)
		var nfe *CommandNotFoundError
		assert.ErrorAs(t, err, &nfe)
	})
}

func TestBindCommandDecodesOptions(t *testing.T) {
	colors, err := NewChoiceSet("a color", []Choice{
		{Name: "Red", Value: "red"},
		{Name: "Blue", Value: "blue"},
	})
	require.NoError(t, err)
	colorOpt, err := colors.Option("color")
	require.NoError(t, err)

	strOpt, err := NewOption("name", "a name", 0)
	require.NoError(t, err)
	intOpt, err := NewOption("count", "how many", discordgo.ApplicationCommandOptionInteger)
	require.NoError(t, err)
	numOpt, err := NewOption("ratio", "a ratio", discordgo.ApplicationCommandOptionNumber)
	require.NoError(t, err)
	boolOpt, err := NewOption("loud", "be loud", discordgo.ApplicationCommandOptionBoolean)
	require.NoError(t, err)
	userOpt, err := NewOption("target", "who", discordgo.ApplicationCommandOptionUser)
	require.NoError(t, err)
	roleOpt, err := NewOption("rank", "which role", discordgo.ApplicationCommandOptionRole)
	require.NoError(t, err)
	chanOpt, err := NewOption("where", "which channel", discordgo.ApplicationCommandOptionChannel)
	require.NoError(t, err)

	cmd, err := NewCommand("do", "do a thing", nopHandler,
		WithOptions(strOpt, intOpt, numOpt, boolOpt, userOpt, roleOpt, chanOpt, colorOpt))
	require.NoError(t, err)

	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Members: map[string]*discordgo.Member{"u9": {Nick: "target-member"}},
		Users:   map[string]*discordgo.User{"u9": {ID: "u9"}},
		Roles:   map[string]*discordgo.Role{"r9": {ID: "r9", Name: "admins"}},
		Channels: map[string]*discordgo.Channel{
			"c9": {ID: "c9", Name: "general"},
		},
	}
	wire := []*discordgo.ApplicationCommandInteractionDataOption{
		wireOption("name", discordgo.ApplicationCommandOptionString, "hello"),
		wireOption("count", discordgo.ApplicationCommandOptionInteger, float64(4)),
		wireOption("ratio", discordgo.ApplicationCommandOptionNumber, 0.5),
		wireOption("loud", discordgo.ApplicationCommandOptionBoolean, true),
		wireOption("target", discordgo.ApplicationCommandOptionUser, "u9"),
		wireOption("rank", discordgo.ApplicationCommandOptionRole, "r9"),
		wireOption("where", discordgo.ApplicationCommandOptionChannel, "c9"),
		wireOption("color", discordgo.ApplicationCommandOptionString, "blue"),
	}

	session := discord.NewFakeSession()
	resolver := newTestResolver(&discord.FakeState{}, session)
	resolver.ResolveNotFetch = true
	i := &discordgo.Interaction{ID: "i1", GuildID: "g1", ChannelID: "c1",
		Member: &discordgo.Member{User: &discordgo.User{ID: "u1"}}}
	ctx := newContext(context.Background(), session, resolver, testLogger(), nil, i)
	ctx.bindCommand(cmd, wire, resolved)

	assert.Same(t, cmd, ctx.Command)
	assert.Equal(t, "hello", ctx.String("name"))
	assert.Equal(t, int64(4), ctx.Int("count"))
	assert.Equal(t, 0.5, ctx.Float("ratio"))
	assert.True(t, ctx.Bool("loud"))

	member, ok := ctx.Member("target")
	require.True(t, ok)
	assert.Equal(t, "target-member", member.Nick)
	user, ok := ctx.User("target")
	require.True(t, ok)
	assert.Equal(t, "u9", user.ID)

	role, ok := ctx.Role("rank")
	require.True(t, ok)
	assert.Equal(t, "admins", role.Name)

	ch, ok := ctx.ChannelOption("where")
	require.True(t, ok)
	assert.Equal(t, "general", ch.Name)

	choice, ok := ctx.Choice("color")
	require.True(t, ok)
	assert.Equal(t, "Blue", choice.Name)

	_, ok = ctx.Option("absent")
	assert.False(t, ok)
	assert.Empty(t, ctx.String("absent"))
}

func TestBindCommandIgnoresUndeclaredOption(t *testing.T) {
	cmd, err := NewCommand("bare", "no options", nopHandler)
	require.NoError(t, err)

	session := discord.NewFakeSession()
	resolver := newTestResolver(&discord.FakeState{}, session)
	i := &discordgo.Interaction{ID: "i1", ChannelID: "c1", User: &discordgo.User{ID: "u1"}}
	ctx := newContext(context.Background(), session, resolver, testLogger(), nil, i)
	ctx.bindCommand(cmd, []*discordgo.ApplicationCommandInteractionDataOption{
		wireOption("ghost", discordgo.ApplicationCommandOptionString, "boo"),
	}, nil)

	_, ok := ctx.Option("ghost")
	assert.False(t, ok)
}

func TestContextAuthor(t *testing.T) {
	session := discord.NewFakeSession()
	resolver := newTestResolver(&discord.FakeState{}, session)

	t.Run("guild invocation yields member", func(t *testing.T) {
		i := &discordgo.Interaction{ID: "i1", GuildID: "g1", ChannelID: "c1",
			Member: &discordgo.Member{User: &discordgo.User{ID: "u1"}}}
		ctx := newContext(context.Background(), session, resolver, testLogger(), nil, i)
		_, isMember := ctx.Author.(*discordgo.Member)
		assert.True(t, isMember)
		assert.Equal(t, "u1", ctx.AuthorID())
		assert.Equal(t, "g1", ctx.GuildID())
	})

	t.Run("DM invocation yields user and nil guild", func(t *testing.T) {
		i := &discordgo.Interaction{ID: "i2", ChannelID: "c2", User: &discordgo.User{ID: "u2"}}
		ctx := newContext(context.Background(), session, resolver, testLogger(), nil, i)
		_, isUser := ctx.Author.(*discordgo.User)
		assert.True(t, isUser)
		assert.Equal(t, "u2", ctx.AuthorID())
		assert.Nil(t, ctx.Guild)
	})

	t.Run("uncached guild is a placeholder", func(t *testing.T) {
		i := &discordgo.Interaction{ID: "i3", GuildID: "g9", ChannelID: "c3",
			Member: &discordgo.Member{User: &discordgo.User{ID: "u3"}}}
		ctx := newContext(context.Background(), session, resolver, testLogger(), nil, i)
		assert.Equal(t, Object{ID: "g9"}, ctx.Guild)
	})
}
