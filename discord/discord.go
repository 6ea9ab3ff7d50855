package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Session defines the interface the slash extension consumes for talking to
// Discord. Implementations are expected to handle transport concerns
// (rate limiting, retries on the wire) themselves; callers treat every method
// as a potentially failing network call.
type Session interface {
	GetBotUser() (*discordgo.User, error)

	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
	ApplicationCommandPermissionsBatchEdit(appID, guildID string, permissions []*discordgo.GuildApplicationCommandPermissions, options ...discordgo.RequestOption) error

	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageEdit(interaction *discordgo.Interaction, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)

	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)

	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GetChannel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)

	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// State defines the synchronous cache lookups the extension consumes.
// Lookups return an error on a cache miss; they never hit the network.
type State interface {
	Guild(guildID string) (*discordgo.Guild, error)
	Channel(channelID string) (*discordgo.Channel, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	Role(guildID, roleID string) (*discordgo.Role, error)
}

// DiscordSession is an implementation of the Session interface.
type DiscordSession struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// NewDiscordSession creates a new DiscordSession.
func NewDiscordSession(session *discordgo.Session, logger *slog.Logger) *DiscordSession {
	return &DiscordSession{session: session, logger: logger}
}

func (d *DiscordSession) GetUnderlyingSession() *discordgo.Session {
	return d.session
}

// GetBotUser retrieves the bot user.
func (d *DiscordSession) GetBotUser() (*discordgo.User, error) {
	if d.session.State != nil && d.session.State.User != nil && d.session.State.User.ID != "" {
		return d.session.State.User, nil
	}
	return d.session.User("@me")
}

func (d *DiscordSession) ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	return d.session.ApplicationCommands(appID, guildID, options...)
}

func (d *DiscordSession) ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	return d.session.ApplicationCommandCreate(appID, guildID, cmd, options...)
}

func (d *DiscordSession) ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	return d.session.ApplicationCommandEdit(appID, guildID, cmdID, cmd, options...)
}

func (d *DiscordSession) ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error {
	return d.session.ApplicationCommandDelete(appID, guildID, cmdID, options...)
}

func (d *DiscordSession) ApplicationCommandPermissionsBatchEdit(appID, guildID string, permissions []*discordgo.GuildApplicationCommandPermissions, options ...discordgo.RequestOption) error {
	return d.session.ApplicationCommandPermissionsBatchEdit(appID, guildID, permissions, options...)
}

// InteractionRespond responds to an interaction.
func (d *DiscordSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return d.session.InteractionRespond(interaction, resp, options...)
}

// InteractionResponseEdit edits an interaction response.
func (d *DiscordSession) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return d.session.InteractionResponseEdit(interaction, newresp, options...)
}

// InteractionResponseDelete deletes the original interaction response.
func (d *DiscordSession) InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error {
	return d.session.InteractionResponseDelete(interaction, options...)
}

func (d *DiscordSession) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return d.session.FollowupMessageCreate(interaction, wait, data, options...)
}

func (d *DiscordSession) FollowupMessageEdit(interaction *discordgo.Interaction, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return d.session.FollowupMessageEdit(interaction, messageID, data, options...)
}

// ChannelMessageSendComplex sends a message to a channel, outside the
// interaction token flow.
func (d *DiscordSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return d.session.ChannelMessageSendComplex(channelID, data, options...)
}

func (d *DiscordSession) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return d.session.Guild(guildID, options...)
}

// GetChannel retrieves a channel by its ID.
func (d *DiscordSession) GetChannel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return d.session.Channel(channelID, options...)
}

func (d *DiscordSession) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	return d.session.GuildMember(guildID, userID, options...)
}

func (d *DiscordSession) User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	return d.session.User(userID, options...)
}

// AddHandler wraps the discordgo AddHandler method.
func (d *DiscordSession) AddHandler(handler interface{}) func() {
	return d.session.AddHandler(handler)
}

// Open wraps the discordgo Open method.
func (d *DiscordSession) Open() error {
	d.logger.Info("Opening discord websocket connection")
	return d.session.Open()
}

// Close wraps the discordgo Close method.
func (d *DiscordSession) Close() error {
	d.logger.Info("Closing discord websocket connection")
	return d.session.Close()
}

// DiscordState is an implementation of the State interface.
type DiscordState struct {
	state *discordgo.State
}

// NewDiscordState creates a new DiscordState.
func NewDiscordState(state *discordgo.State) *DiscordState {
	return &DiscordState{state: state}
}

// Guild retrieves a guild from the cache.
func (d *DiscordState) Guild(guildID string) (*discordgo.Guild, error) {
	return d.state.Guild(guildID)
}

// Channel retrieves a channel from the cache.
func (d *DiscordState) Channel(channelID string) (*discordgo.Channel, error) {
	return d.state.Channel(channelID)
}

// Member retrieves a guild member from the cache.
func (d *DiscordState) Member(guildID, userID string) (*discordgo.Member, error) {
	return d.state.Member(guildID, userID)
}

// Role retrieves a guild role from the cache.
func (d *DiscordState) Role(guildID, roleID string) (*discordgo.Role, error) {
	return d.state.Role(guildID, roleID)
}
