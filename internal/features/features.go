// Package features holds the discrete handwriting feature record and the two
// image-level heuristics (pen pressure and word spacing) that fill part of it.
package features

// Feature names, used as JSON keys and classifier identifiers.
const (
	NamePressure = "pressure"
	NameSpacing  = "spacing"
	NameGLoop    = "g_loop"
	NameYLoop    = "y_loop"
	NameDHeight  = "d_height"
	NameDLoop    = "d_loop"
	NameTHeight  = "t_height"
	NameTBar     = "t_bar"
	NameTLean    = "t_lean"
)

// Names lists every feature in report order.
var Names = []string{
	NamePressure, NameSpacing,
	NameGLoop, NameYLoop,
	NameDHeight, NameDLoop,
	NameTHeight, NameTBar, NameTLean,
}

// Set is one analysis' feature record. An empty field means the feature
// could not be computed.
type Set struct {
	Pressure string `json:"pressure"`
	Spacing  string `json:"spacing"`
	GLoop    string `json:"g_loop"`
	YLoop    string `json:"y_loop"`
	DHeight  string `json:"d_height"`
	DLoop    string `json:"d_loop"`
	THeight  string `json:"t_height"`
	TBar     string `json:"t_bar"`
	TLean    string `json:"t_lean"`
}

// Defaults are the neutral values substituted for missing features.
var Defaults = Set{
	Pressure: PressureMedium,
	Spacing:  SpacingEven,
	GLoop:    "balanced",
	YLoop:    "balanced",
	DHeight:  "normal",
	DLoop:    "normal_loop",
	THeight:  "normal",
	TBar:     "normal_bar",
	TLean:    "normal_lean",
}

func (s *Set) field(name string) *string {
	switch name {
	case NamePressure:
		return &s.Pressure
	case NameSpacing:
		return &s.Spacing
	case NameGLoop:
		return &s.GLoop
	case NameYLoop:
		return &s.YLoop
	case NameDHeight:
		return &s.DHeight
	case NameDLoop:
		return &s.DLoop
	case NameTHeight:
		return &s.THeight
	case NameTBar:
		return &s.TBar
	case NameTLean:
		return &s.TLean
	}
	return nil
}

// Get returns the value of the named feature and whether the name is known.
func (s Set) Get(name string) (string, bool) {
	f := s.field(name)
	if f == nil {
		return "", false
	}
	return *f, true
}

// Put sets the named feature. It reports false for unknown names.
func (s *Set) Put(name, value string) bool {
	f := s.field(name)
	if f == nil {
		return false
	}
	*f = value
	return true
}

// Merge copies every non-empty field of other into s.
func (s *Set) Merge(other Set) {
	for _, name := range Names {
		if v, _ := other.Get(name); v != "" {
			s.Put(name, v)
		}
	}
}

// Fill returns a copy of s with every empty field taken from Defaults.
func (s Set) Fill() Set {
	out := Defaults
	out.Merge(s)
	return out
}

// Missing lists the names of empty fields.
func (s Set) Missing() []string {
	var missing []string
	for _, name := range Names {
		if v, _ := s.Get(name); v == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
