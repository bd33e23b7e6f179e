package deskguard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMigrations tests migration ordering and content
func TestMigrations(t *testing.T) {
	migrations := Migrations()
	assert.Len(t, migrations, 5)

	seen := map[string]bool{}
	for i, m := range migrations {
		assert.False(t, seen[m.ID], "duplicate migration id %s", m.ID)
		seen[m.ID] = true
		if i > 0 {
			assert.Less(t, migrations[i-1].ID, m.ID)
		}
		assert.NotEmpty(t, m.Description)
	}

	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.SQL)
	}
	sql := all.String()
	for _, constraint := range []string{"articles_slug_key", "categories_slug_key", "tags_slug_key", "categories_name_key", "tags_name_key"} {
		assert.Contains(t, sql, constraint)
	}
}
