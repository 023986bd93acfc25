package domain

// IntakeField is one question of a kind's intake form.
type IntakeField struct {
	Key       string `yaml:"key"`
	Label     string `yaml:"label"`
	Required  bool   `yaml:"required"`
	Long      bool   `yaml:"long"`
	MaxLength int    `yaml:"max_length"`
}

// KindDefinition describes a menu entry and the form it requires, if any.
type KindDefinition struct {
	Kind        TicketKind    `yaml:"kind"`
	Label       string        `yaml:"label"`
	Emoji       string        `yaml:"emoji"`
	Description string        `yaml:"description"`
	FormTitle   string        `yaml:"form_title"`
	Fields      []IntakeField `yaml:"fields"`
}

// RequiresForm reports whether tickets of this kind carry intake data.
func (k KindDefinition) RequiresForm() bool {
	return len(k.Fields) > 0
}

// KindCatalog is the ordered set of kinds offered in the creation menu.
type KindCatalog struct {
	Kinds []KindDefinition `yaml:"kinds"`
}

// Lookup finds the definition for kind.
func (c KindCatalog) Lookup(kind TicketKind) (KindDefinition, bool) {
	for _, def := range c.Kinds {
		if def.Kind == kind {
			return def, true
		}
	}
	return KindDefinition{}, false
}

// DefaultKindCatalog mirrors the menu the support server has always offered.
func DefaultKindCatalog() KindCatalog {
	return KindCatalog{Kinds: []KindDefinition{
		{
			Kind:  KindHelpDesk,
			Label: "Help Desk",
			Emoji: "🛠️",
		},
		{
			Kind:      KindStaffApplication,
			Label:     "Apply for Staff",
			Emoji:     "📝",
			FormTitle: "Staff Application",
			Fields: []IntakeField{
				{Key: "role", Label: "Applying for which role?", Required: true, MaxLength: 100},
				{Key: "studying", Label: "What are you currently studying for?", Required: true, MaxLength: 200},
				{Key: "timings", Label: "Active timings?", Required: true, MaxLength: 100},
				{Key: "cam_preference", Label: "Prefer cam/non-cam sessions?", Required: true, MaxLength: 100},
				{Key: "experience", Label: "Past experiences in moderation?", Required: true, Long: true, MaxLength: 1000},
			},
		},
		{
			Kind:  KindBanRequest,
			Label: "Request of Ban",
			Emoji: "🔒",
		},
	}}
}
