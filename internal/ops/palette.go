package ops

import "github.com/hpungsan/formcraft/internal/fields"

// Palette lists the sidebar buttons, without the configured disabled types.
func (s *Service) Palette() []fields.PaletteItem {
	return s.registry.Palette(s.disabled...)
}
