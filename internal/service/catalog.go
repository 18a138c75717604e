package service

// Fallbacks for catalog members that are not configured.
const (
	DefaultColor = "#d4af37"
	DefaultEmoji = "🍽️"
	DefaultBadge = "badge-ghost"
)

// Option is one configured iftar type or audience.
type Option struct {
	Key   string `json:"key" doc:"Stored value" example:"mosque"`
	Label string `json:"label" doc:"Display label" example:"মসজিদে ইফতার"`
	Emoji string `json:"emoji,omitempty" doc:"Icon emoji" example:"🕌"`
	Color string `json:"color,omitempty" doc:"Marker color (CSS)" example:"#22c55e"`
	Badge string `json:"badge,omitempty" doc:"Audience badge class" example:"badge-success"`
}

// Catalog holds the enumerated option sets. Lookups of unknown keys never
// fail; they resolve to the package defaults.
type Catalog struct {
	IftarTypes []Option `json:"iftarTypes"`
	Audiences  []Option `json:"audiences"`

	types     map[string]Option
	audiences map[string]Option
}

// NewCatalog indexes the given option sets.
func NewCatalog(types, audiences []Option) *Catalog {
	c := &Catalog{
		IftarTypes: types,
		Audiences:  audiences,
		types:      make(map[string]Option, len(types)),
		audiences:  make(map[string]Option, len(audiences)),
	}
	for _, o := range types {
		c.types[o.Key] = o
	}
	for _, o := range audiences {
		c.audiences[o.Key] = o
	}
	return c
}

// HasType reports whether key is a configured iftar type.
func (c *Catalog) HasType(key string) bool {
	_, ok := c.types[key]
	return ok
}

// HasAudience reports whether key is a configured audience.
func (c *Catalog) HasAudience(key string) bool {
	_, ok := c.audiences[key]
	return ok
}

// Color returns the marker color for an iftar type.
func (c *Catalog) Color(key string) string {
	if o, ok := c.types[key]; ok && o.Color != "" {
		return o.Color
	}
	return DefaultColor
}

// Emoji returns the icon emoji for an iftar type.
func (c *Catalog) Emoji(key string) string {
	if o, ok := c.types[key]; ok && o.Emoji != "" {
		return o.Emoji
	}
	return DefaultEmoji
}

// Badge returns the badge class for an audience.
func (c *Catalog) Badge(key string) string {
	if o, ok := c.audiences[key]; ok && o.Badge != "" {
		return o.Badge
	}
	return DefaultBadge
}

// TypeLabel returns the display label of an iftar type, or the key itself.
func (c *Catalog) TypeLabel(key string) string {
	if o, ok := c.types[key]; ok && o.Label != "" {
		return o.Label
	}
	return key
}

// AudienceLabel returns the display label of an audience, or the key itself.
func (c *Catalog) AudienceLabel(key string) string {
	if o, ok := c.audiences[key]; ok && o.Label != "" {
		return o.Label
	}
	return key
}

// FirstType is the default iftar type for a new form.
func (c *Catalog) FirstType() string {
	if len(c.IftarTypes) == 0 {
		return ""
	}
	return c.IftarTypes[0].Key
}

// FirstAudience is the default audience for a new form.
func (c *Catalog) FirstAudience() string {
	if len(c.Audiences) == 0 {
		return ""
	}
	return c.Audiences[0].Key
}
