package slash

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/Kenny2github/discord-ext-slash/discord"
)

// Object is the last-resort stand-in for an entity that could not be
// resolved through the cache, the API, or the interaction payload. Only the
// snowflake ID is known.
type Object struct {
	ID string
}

// Resolver turns option-value snowflakes into entity objects. Resolution
// degrades through a fixed priority order and never fails: cache lookup,
// then an API fetch, then the interaction's resolved payload, then an
// Object placeholder.
//
// ResolveNotFetch flips the order to prefer the resolved payload before
// touching the cache or the network. FetchIfNotGet gates the API fetch
// fallback on cache misses; it is off by default because a fetch per option
// adds a round trip to every invocation.
type Resolver struct {
	State           discord.State
	Session         discord.Session
	ResolveNotFetch bool
	FetchIfNotGet   bool
	Logger          *slog.Logger
}

// Guild resolves a guild by ID. The interaction payload carries no guild
// object, so the priority order is cache, optional fetch, placeholder.
func (r *Resolver) Guild(guildID string) any {
	if g, err := r.State.Guild(guildID); err == nil && g != nil {
		return g
	}
	if r.FetchIfNotGet {
		if g, err := r.Session.Guild(guildID); err == nil && g != nil {
			return g
		}
		r.Logger.Debug("Guild fetch failed, using placeholder", slog.String("guild_id", guildID))
	}
	return Object{ID: guildID}
}

// Channel resolves a CHANNEL option value.
func (r *Resolver) Channel(id string, resolved *discordgo.ApplicationCommandInteractionDataResolved) any {
	fromPayload := func() any {
		if resolved != nil {
			if ch, ok := resolved.Channels[id]; ok && ch != nil {
				return ch
			}
		}
		return nil
	}
	if r.ResolveNotFetch {
		if ch := fromPayload(); ch != nil {
			return ch
		}
	}
	if ch, err := r.State.Channel(id); err == nil && ch != nil {
		return ch
	}
	if r.FetchIfNotGet {
		if ch, err := r.Session.GetChannel(id); err == nil && ch != nil {
			return ch
		}
		r.Logger.Debug("Channel fetch failed", slog.String("channel_id", id))
	}
	if ch := fromPayload(); ch != nil {
		return ch
	}
	r.Logger.Debug("Channel unresolvable, using placeholder", slog.String("channel_id", id))
	return Object{ID: id}
}

// User resolves a USER option value. Inside a guild the member object is
// preferred; the bare user is the DM-context result and the final network
// fallback.
func (r *Resolver) User(guildID, id string, resolved *discordgo.ApplicationCommandInteractionDataResolved) any {
	fromPayload := func() any {
		if resolved == nil {
			return nil
		}
		if m, ok := resolved.Members[id]; ok && m != nil {
			return r.completeMember(m, id, resolved)
		}
		if u, ok := resolved.Users[id]; ok && u != nil {
			return u
		}
		return nil
	}
	if r.ResolveNotFetch {
		if v := fromPayload(); v != nil {
			return v
		}
	}
	if guildID != "" {
		if m, err := r.State.Member(guildID, id); err == nil && m != nil {
			return m
		}
		if r.FetchIfNotGet {
			if m, err := r.Session.GuildMember(guildID, id); err == nil && m != nil {
				return m
			}
			r.Logger.Debug("Member fetch failed", slog.String("guild_id", guildID), slog.String("user_id", id))
		}
	}
	if v := fromPayload(); v != nil {
		return v
	}
	if r.FetchIfNotGet {
		if u, err := r.Session.User(id); err == nil && u != nil {
			return u
		}
		r.Logger.Debug("User fetch failed", slog.String("user_id", id))
	}
	r.Logger.Debug("User unresolvable, using placeholder", slog.String("user_id", id))
	return Object{ID: id}
}

// Role resolves a ROLE option value.
func (r *Resolver) Role(guildID, id string, resolved *discordgo.ApplicationCommandInteractionDataResolved) any {
	fromPayload := func() any {
		if resolved != nil {
			if role, ok := resolved.Roles[id]; ok && role != nil {
				return role
			}
		}
		return nil
	}
	if r.ResolveNotFetch {
		if role := fromPayload(); role != nil {
			return role
		}
	}
	if guildID != "" {
		if role, err := r.State.Role(guildID, id); err == nil && role != nil {
			return role
		}
	}
	if role := fromPayload(); role != nil {
		return role
	}
	r.Logger.Debug("Role unresolvable, using placeholder", slog.String("role_id", id))
	return Object{ID: id}
}

// Mentionable resolves a MENTIONABLE option value: member or user first,
// then role. The two sub-resolvers each run their full priority order, so a
// role in the payload still loses to a member found anywhere.
func (r *Resolver) Mentionable(guildID, id string, resolved *discordgo.ApplicationCommandInteractionDataResolved) any {
	inUsers := resolved != nil && (hasKey(resolved.Members, id) || hasKey(resolved.Users, id))
	inRoles := resolved != nil && hasKey(resolved.Roles, id)
	if inRoles && !inUsers {
		return r.Role(guildID, id, resolved)
	}
	if v := r.User(guildID, id, resolved); !isPlaceholder(v) {
		return v
	}
	return r.Role(guildID, id, resolved)
}

// completeMember fills in the user field the resolved payload strips from
// member objects, and the guild ID it omits.
func (r *Resolver) completeMember(m *discordgo.Member, id string, resolved *discordgo.ApplicationCommandInteractionDataResolved) *discordgo.Member {
	if m.User == nil {
		if u, ok := resolved.Users[id]; ok {
			m.User = u
		}
	}
	return m
}

func hasKey[V any](m map[string]V, key string) bool {
	_, ok := m[key]
	return ok
}

func isPlaceholder(v any) bool {
	_, ok := v.(Object)
	return ok
}
