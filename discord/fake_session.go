package discord

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// FakeSession provides a programmable stub for the Session interface.
// It follows the Fake/Stub pattern for testing, where each interface method
// has a corresponding Func field that can be set per-test.
type FakeSession struct {
	mu    sync.Mutex
	trace []string

	GetBotUserFunc func() (*discordgo.User, error)

	ApplicationCommandsFunc                    func(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreateFunc               func(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandEditFunc                 func(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDeleteFunc               func(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
	ApplicationCommandPermissionsBatchEditFunc func(appID, guildID string, permissions []*discordgo.GuildApplicationCommandPermissions, options ...discordgo.RequestOption) error

	InteractionRespondFunc        func(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEditFunc   func(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDeleteFunc func(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreateFunc     func(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageEditFunc       func(interaction *discordgo.Interaction, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)

	ChannelMessageSendComplexFunc func(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)

	GuildFunc       func(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GetChannelFunc  func(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberFunc func(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	UserFunc        func(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)

	AddHandlerFunc func(handler interface{}) func()
	OpenFunc       func() error
	CloseFunc      func() error
}

// NewFakeSession initializes a new FakeSession with an empty trace.
func NewFakeSession() *FakeSession {
	return &FakeSession{}
}

// Trace returns the ordered list of interface methods called so far.
func (f *FakeSession) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeSession) record(name string) {
	f.mu.Lock()
	f.trace = append(f.trace, name)
	f.mu.Unlock()
}

func (f *FakeSession) GetBotUser() (*discordgo.User, error) {
	f.record("GetBotUser")
	if f.GetBotUserFunc != nil {
		return f.GetBotUserFunc()
	}
	return &discordgo.User{ID: "bot"}, nil
}

func (f *FakeSession) ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.record("ApplicationCommands")
	if f.ApplicationCommandsFunc != nil {
		return f.ApplicationCommandsFunc(appID, guildID, options...)
	}
	return nil, nil
}

func (f *FakeSession) ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.record("ApplicationCommandCreate")
	if f.ApplicationCommandCreateFunc != nil {
		return f.ApplicationCommandCreateFunc(appID, guildID, cmd, options...)
	}
	return &discordgo.ApplicationCommand{ID: cmd.Name + "-id", Name: cmd.Name}, nil
}

func (f *FakeSession) ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.record("ApplicationCommandEdit")
	if f.ApplicationCommandEditFunc != nil {
		return f.ApplicationCommandEditFunc(appID, guildID, cmdID, cmd, options...)
	}
	return &discordgo.ApplicationCommand{ID: cmdID, Name: cmd.Name}, nil
}

func (f *FakeSession) ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error {
	f.record("ApplicationCommandDelete")
	if f.ApplicationCommandDeleteFunc != nil {
		return f.ApplicationCommandDeleteFunc(appID, guildID, cmdID, options...)
	}
	return nil
}

func (f *FakeSession) ApplicationCommandPermissionsBatchEdit(appID, guildID string, permissions []*discordgo.GuildApplicationCommandPermissions, options ...discordgo.RequestOption) error {
	f.record("ApplicationCommandPermissionsBatchEdit")
	if f.ApplicationCommandPermissionsBatchEditFunc != nil {
		return f.ApplicationCommandPermissionsBatchEditFunc(appID, guildID, permissions, options...)
	}
	return nil
}

func (f *FakeSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.record("InteractionRespond")
	if f.InteractionRespondFunc != nil {
		return f.InteractionRespondFunc(interaction, resp, options...)
	}
	return nil
}

func (f *FakeSession) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.record("InteractionResponseEdit")
	if f.InteractionResponseEditFunc != nil {
		return f.InteractionResponseEditFunc(interaction, newresp, options...)
	}
	return &discordgo.Message{}, nil
}

func (f *FakeSession) InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error {
	f.record("InteractionResponseDelete")
	if f.InteractionResponseDeleteFunc != nil {
		return f.InteractionResponseDeleteFunc(interaction, options...)
	}
	return nil
}

func (f *FakeSession) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.record("FollowupMessageCreate")
	if f.FollowupMessageCreateFunc != nil {
		return f.FollowupMessageCreateFunc(interaction, wait, data, options...)
	}
	return &discordgo.Message{}, nil
}

func (f *FakeSession) FollowupMessageEdit(interaction *discordgo.Interaction, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.record("FollowupMessageEdit")
	if f.FollowupMessageEditFunc != nil {
		return f.FollowupMessageEditFunc(interaction, messageID, data, options...)
	}
	return &discordgo.Message{}, nil
}

func (f *FakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.record("ChannelMessageSendComplex")
	if f.ChannelMessageSendComplexFunc != nil {
		return f.ChannelMessageSendComplexFunc(channelID, data, options...)
	}
	return &discordgo.Message{}, nil
}

func (f *FakeSession) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	f.record("Guild")
	if f.GuildFunc != nil {
		return f.GuildFunc(guildID, options...)
	}
	return &discordgo.Guild{ID: guildID}, nil
}

func (f *FakeSession) GetChannel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.record("GetChannel")
	if f.GetChannelFunc != nil {
		return f.GetChannelFunc(channelID, options...)
	}
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *FakeSession) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.record("GuildMember")
	if f.GuildMemberFunc != nil {
		return f.GuildMemberFunc(guildID, userID, options...)
	}
	return &discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID}}, nil
}

func (f *FakeSession) User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	f.record("User")
	if f.UserFunc != nil {
		return f.UserFunc(userID, options...)
	}
	return &discordgo.User{ID: userID}, nil
}

func (f *FakeSession) AddHandler(handler interface{}) func() {
	f.record("AddHandler")
	if f.AddHandlerFunc != nil {
		return f.AddHandlerFunc(handler)
	}
	return func() {}
}

func (f *FakeSession) Open() error {
	f.record("Open")
	if f.OpenFunc != nil {
		return f.OpenFunc()
	}
	return nil
}

func (f *FakeSession) Close() error {
	f.record("Close")
	if f.CloseFunc != nil {
		return f.CloseFunc()
	}
	return nil
}

// FakeState provides a programmable stub for the State interface.
type FakeState struct {
	GuildFunc   func(guildID string) (*discordgo.Guild, error)
	ChannelFunc func(channelID string) (*discordgo.Channel, error)
	MemberFunc  func(guildID, userID string) (*discordgo.Member, error)
	RoleFunc    func(guildID, roleID string) (*discordgo.Role, error)
}

func (f *FakeState) Guild(guildID string) (*discordgo.Guild, error) {
	if f.GuildFunc != nil {
		return f.GuildFunc(guildID)
	}
	return nil, discordgo.ErrStateNotFound
}

func (f *FakeState) Channel(channelID string) (*discordgo.Channel, error) {
	if f.ChannelFunc != nil {
		return f.ChannelFunc(channelID)
	}
	return nil, discordgo.ErrStateNotFound
}

func (f *FakeState) Member(guildID, userID string) (*discordgo.Member, error) {
	if f.MemberFunc != nil {
		return f.MemberFunc(guildID, userID)
	}
	return nil, discordgo.ErrStateNotFound
}

func (f *FakeState) Role(guildID, roleID string) (*discordgo.Role, error) {
	if f.RoleFunc != nil {
		return f.RoleFunc(guildID, roleID)
	}
	return nil, discordgo.ErrStateNotFound
}
