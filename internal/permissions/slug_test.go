package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"View Students":     "view_students",
		"  Assign   Roles ": "assign_roles",
		"Créer Élèves":      "creer_eleves",
		"edit-users":        "edit_users",
		"Settings!!":        "settings",
		"view_settings":     "view_settings",
		"42 Things":         "42_things",
		"":                  "",
		"---":               "",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), "input %q", in)
	}
}
