// Package events is the out-of-band notification channel: handler errors
// and lifecycle milestones are published as messages instead of being
// raised into the gateway loop, so embedding applications can observe or
// ignore them.
package events

const (
	// TopicCommandError carries errors from command dispatch: unknown
	// commands, failed checks, handler errors, malformed interactions.
	TopicCommandError = "slash.command.error"
	// TopicCommandInvoked fires before and after each handler run.
	TopicCommandInvoked = "slash.command.invoked"
	// TopicCommandsSynced reports one registration sync pass.
	TopicCommandsSynced = "slash.commands.synced"
	// TopicPermissionsSynced reports one permission sync pass.
	TopicPermissionsSynced = "slash.permissions.synced"
	// TopicReady fires once registration sync has finished after the
	// gateway reported ready.
	TopicReady = "slash.ready"
)

// Invocation phases for CommandInvokedPayload.
const (
	PhaseBefore = "before"
	PhaseAfter  = "after"
)

// Error kinds for CommandErrorPayload.
const (
	ErrorKindNotFound     = "not_found"
	ErrorKindCheckFailure = "check_failure"
	ErrorKindInvoke       = "invoke"
	ErrorKindValidation   = "validation"
	ErrorKindProtocol     = "protocol"
)

type CommandErrorPayload struct {
	InteractionID string `json:"interaction_id"`
	CommandName   string `json:"command_name,omitempty"`
	GuildID       string `json:"guild_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	ErrorKind     string `json:"error_kind"`
	ErrorDetail   string `json:"error_detail"`
}

type CommandInvokedPayload struct {
	InteractionID string `json:"interaction_id"`
	CommandName   string `json:"command_name"`
	GuildID       string `json:"guild_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Phase         string `json:"phase"`
	DurationMS    int64  `json:"duration_ms,omitempty"`
}

type CommandsSyncedPayload struct {
	Scope   string `json:"scope"` // empty for global
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Adopted int    `json:"adopted"`
	Deleted int    `json:"deleted"`
}

type PermissionsSyncedPayload struct {
	Guilds int `json:"guilds"`
}

type ReadyPayload struct {
	ApplicationID string `json:"application_id"`
	Commands      int    `json:"commands"`
	Scopes        int    `json:"scopes"`
}
