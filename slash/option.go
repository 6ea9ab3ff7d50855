package slash

import (
	"math"

	"github.com/bwmarrin/discordgo"
)

// Choice pairs a display name with the value sent back verbatim when the
// user selects it.
type Choice struct {
	Name  string
	Value string
}

// ChoiceOf builds a Choice whose name and value are the same string.
func ChoiceOf(s string) Choice {
	return Choice{Name: s, Value: s}
}

// ChoiceSet is a named, closed set of alternatives that doubles as an option
// declaration: an option declared from a ChoiceSet is a STRING option whose
// choices are the set members, and whose resolved value is mapped back to
// the member on invocation.
type ChoiceSet struct {
	description string
	members     []Choice
	byValue     map[string]Choice
}

// NewChoiceSet builds a ChoiceSet. The description becomes the description
// of every option declared from it. Member order is preserved on the wire.
func NewChoiceSet(description string, members []Choice) (*ChoiceSet, error) {
	if description == "" {
		return nil, validationErrorf("choice set requires a description")
	}
	if len(members) == 0 {
		return nil, validationErrorf("choice set requires at least one member")
	}
	cs := &ChoiceSet{
		description: description,
		members:     make([]Choice, len(members)),
		byValue:     make(map[string]Choice, len(members)),
	}
	copy(cs.members, members)
	for _, m := range members {
		if m.Name == "" || m.Value == "" {
			return nil, validationErrorf("choice set member needs both name and value")
		}
		if _, dup := cs.byValue[m.Value]; dup {
			return nil, validationErrorf("duplicate choice set value %q", m.Value)
		}
		cs.byValue[m.Value] = m
	}
	return cs, nil
}

// Member returns the member with the given wire value.
func (cs *ChoiceSet) Member(value string) (Choice, bool) {
	m, ok := cs.byValue[value]
	return m, ok
}

// Option declares the description of every option declared from the set.
func (cs *ChoiceSet) Description() string { return cs.description }

// Option builds a STRING option backed by this choice set.
func (cs *ChoiceSet) Option(name string, settings ...OptionSetting) (*Option, error) {
	opt, err := NewOption(name, cs.description, discordgo.ApplicationCommandOptionString, settings...)
	if err != nil {
		return nil, err
	}
	opt.choices = make([]Choice, len(cs.members))
	copy(opt.choices, cs.members)
	opt.choiceSet = cs
	return opt, nil
}

// Option is the immutable schema for a single command argument. Options are
// cloned when attached to a command, so one declaration may safely be shared
// across commands.
type Option struct {
	name         string
	description  string
	typ          discordgo.ApplicationCommandOptionType
	required     bool
	choices      []Choice
	channelTypes []discordgo.ChannelType
	minValue     *float64
	maxValue     *float64
	choiceSet    *ChoiceSet
}

// OptionSetting customizes an Option at construction time.
type OptionSetting func(*Option)

// Required marks the option as mandatory for a valid invocation.
func Required() OptionSetting {
	return func(o *Option) { o.required = true }
}

// WithChoices restricts the option to the given choices.
func WithChoices(choices ...Choice) OptionSetting {
	return func(o *Option) {
		o.choices = append(o.choices[:0:0], choices...)
	}
}

// WithChannelTypes restricts a channel option to the given channel types.
// Forces the option type to CHANNEL.
func WithChannelTypes(types ...discordgo.ChannelType) OptionSetting {
	return func(o *Option) {
		o.channelTypes = append(o.channelTypes[:0:0], types...)
		o.typ = discordgo.ApplicationCommandOptionChannel
	}
}

// WithMinValue sets the minimum allowed value for a numeric option.
func WithMinValue(v float64) OptionSetting {
	return func(o *Option) { o.minValue = &v }
}

// WithMaxValue sets the maximum allowed value for a numeric option.
func WithMaxValue(v float64) OptionSetting {
	return func(o *Option) { o.maxValue = &v }
}

// NewOption builds an option schema. The type defaults to STRING; numeric
// bounds on a non-numeric declaration infer INTEGER when every bound is
// integral and NUMBER otherwise, while bounds on an already-numeric
// declaration are coerced to that type.
func NewOption(name, description string, typ discordgo.ApplicationCommandOptionType, settings ...OptionSetting) (*Option, error) {
	if name == "" {
		return nil, validationErrorf("option requires a name")
	}
	if description == "" {
		return nil, validationErrorf("option %q requires a description", name)
	}
	if typ == 0 {
		typ = discordgo.ApplicationCommandOptionString
	}
	o := &Option{name: name, description: description, typ: typ}
	for _, s := range settings {
		s(o)
	}

	if o.minValue != nil || o.maxValue != nil {
		switch o.typ {
		case discordgo.ApplicationCommandOptionInteger:
			if o.minValue != nil {
				v := math.Trunc(*o.minValue)
				o.minValue = &v
			}
			if o.maxValue != nil {
				v := math.Trunc(*o.maxValue)
				o.maxValue = &v
			}
		case discordgo.ApplicationCommandOptionNumber:
			// bounds already floats
		default:
			if integral(o.minValue) && integral(o.maxValue) {
				o.typ = discordgo.ApplicationCommandOptionInteger
			} else {
				o.typ = discordgo.ApplicationCommandOptionNumber
			}
		}
	}

	if len(o.choices) > 0 {
		switch o.typ {
		case discordgo.ApplicationCommandOptionString,
			discordgo.ApplicationCommandOptionInteger,
			discordgo.ApplicationCommandOptionNumber:
		default:
			return nil, validationErrorf("option %q: choices require a string or numeric type", name)
		}
	}
	return o, nil
}

func integral(v *float64) bool {
	return v == nil || *v == math.Trunc(*v)
}

// Name returns the option's wire name.
func (o *Option) Name() string { return o.name }

// Description returns the option's description.
func (o *Option) Description() string { return o.description }

// Type returns the option's wire type.
func (o *Option) Type() discordgo.ApplicationCommandOptionType { return o.typ }

// IsRequired reports whether the option is mandatory.
func (o *Option) IsRequired() bool { return o.required }

// Clone copies the option deeply enough that the copy can be mutated (by
// attachment to a command) without aliasing the original.
func (o *Option) Clone() *Option {
	dup := *o
	dup.choices = append([]Choice(nil), o.choices...)
	dup.channelTypes = append([]discordgo.ChannelType(nil), o.channelTypes...)
	if o.minValue != nil {
		v := *o.minValue
		dup.minValue = &v
	}
	if o.maxValue != nil {
		v := *o.maxValue
		dup.maxValue = &v
	}
	return &dup
}

// Definition serializes the option to its wire schema. Fields at their
// defaults are left zero so they are omitted from the payload.
func (o *Option) Definition() *discordgo.ApplicationCommandOption {
	def := &discordgo.ApplicationCommandOption{
		Type:        o.typ,
		Name:        o.name,
		Description: o.description,
		Required:    o.required,
	}
	for _, c := range o.choices {
		def.Choices = append(def.Choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  c.Name,
			Value: c.Value,
		})
	}
	if len(o.channelTypes) > 0 {
		def.ChannelTypes = append([]discordgo.ChannelType(nil), o.channelTypes...)
	}
	if o.minValue != nil {
		v := *o.minValue
		def.MinValue = &v
	}
	if o.maxValue != nil {
		def.MaxValue = *o.maxValue
	}
	return def
}
