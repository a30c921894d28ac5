package pipeline

import (
	"fmt"
	"strings"
)

// Field pairs a canonical long-format name with the raw column suffix that
// follows "<block>_" in the wide export.
type Field struct {
	Canonical string `mapstructure:"canonical" yaml:"canonical"`
	Suffix    string `mapstructure:"suffix" yaml:"suffix"`
}

// FieldMapping is an immutable, ordered canonical↔suffix bijection.
type FieldMapping struct {
	fields      []Field
	bySuffix    map[string]string
	byCanonical map[string]string
}

// NewFieldMapping validates fields: names and suffixes must be non-empty
// and unique on both sides.
func NewFieldMapping(fields []Field) (FieldMapping, error) {
	m := FieldMapping{
		fields:      make([]Field, 0, len(fields)),
		bySuffix:    make(map[string]string, len(fields)),
		byCanonical: make(map[string]string, len(fields)),
	}
	for i, f := range fields {
		f.Canonical = strings.TrimSpace(f.Canonical)
		f.Suffix = strings.TrimSpace(f.Suffix)
		if f.Canonical == "" || f.Suffix == "" {
			return FieldMapping{}, fmt.Errorf("field %d: canonical name and suffix are required", i+1)
		}
		if _, dup := m.byCanonical[f.Canonical]; dup {
			return FieldMapping{}, fmt.Errorf("field %q: canonical name listed twice", f.Canonical)
		}
		if prev, dup := m.bySuffix[f.Suffix]; dup {
			return FieldMapping{}, fmt.Errorf("field %q: suffix %q already mapped to %q", f.Canonical, f.Suffix, prev)
		}
		m.byCanonical[f.Canonical] = f.Suffix
		m.bySuffix[f.Suffix] = f.Canonical
		m.fields = append(m.fields, f)
	}
	return m, nil
}

// MustFieldMapping panics on invalid input; for package defaults and tests.
func MustFieldMapping(fields []Field) FieldMapping {
	m, err := NewFieldMapping(fields)
	if err != nil {
		panic(err)
	}
	return m
}

// Fields returns a copy of the mapping in declaration order.
func (m FieldMapping) Fields() []Field { return append([]Field(nil), m.fields...) }

// Len is the number of mapped fields.
func (m FieldMapping) Len() int { return len(m.fields) }

// Canonicals lists canonical names in declaration order.
func (m FieldMapping) Canonicals() []string {
	out := make([]string, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.Canonical
	}
	return out
}

// Suffix returns the raw suffix for a canonical name.
func (m FieldMapping) Suffix(canonical string) (string, bool) {
	s, ok := m.byCanonical[canonical]
	return s, ok
}

// Canonical returns the canonical name for a raw suffix.
func (m FieldMapping) Canonical(suffix string) (string, bool) {
	c, ok := m.bySuffix[suffix]
	return c, ok
}

// DefaultFields is the questionnaire layout of the narrative perception
// study: per-clip page timing, familiarity, comprehension, tension,
// resolution and follow-up intent items.
func DefaultFields() []Field {
	return []Field{
		{"timing_first_click", "Timing_First Click"},
		{"timing_last_click", "Timing_Last Click"},
		{"timing_page_submit", "Timing_Page Submit"},
		{"timing_click_count", "Timing_Click Count"},
		{"familiarity_seen", "Fam_seen"},
		{"familiarity_plot", "Fam_plot"},
		{"familiarity_characters", "Fam_char"},
		{"clear_starting_point", "Comp_start"},
		{"inferring_context", "Comp_context"},
		{"built_interest_tension", "Comp_interest"},
		{"clear_outcome", "Comp_outcome"},
		{"logical_flow", "Comp_flow"},
		{"tension_beginning", "Tns_level_1"},
		{"tension_middle", "Tns_level_2"},
		{"tension_end", "Tns_level_3"},
		{"introduced_tension", "Tns_intro"},
		{"resolved_tension", "Tns_resolved"},
		{"narrative_resolution", "Reso_clip"},
		{"satisfactory_resolution", "Reso_satisfy"},
		{"concluded_scene", "Reso_clip_end"},
		{"episode_position", "Pos_episode"},
		{"season_position", "Pos_season"},
		{"want_next_story", "Fut_next"},
		{"want_broader_context", "Fut_context"},
		{"watch_full_episode", "Fut_full"},
		{"read_comments", "Fut_comments"},
		{"comments_purpose", "Fut_comments_purpose"},
	}
}
