package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationCredentials(t *testing.T) {
	t.Run("prefers privileged service account", func(t *testing.T) {
		t.Setenv("DB_SERVICE_USER", "migrator")
		t.Setenv("DB_SERVICE_PASSWORD", "secret")
		t.Setenv("DB_USER", "app")
		t.Setenv("DB_PASSWORD", "apppw")

		user, password := migrationCredentials()
		assert.Equal(t, "migrator", user)
		assert.Equal(t, "secret", password)
	})

	t.Run("falls back to restricted runtime credentials", func(t *testing.T) {
		t.Setenv("DB_SERVICE_USER", "")
		t.Setenv("DB_SERVICE_PASSWORD", "")
		t.Setenv("DB_USER", "app")
		t.Setenv("DB_PASSWORD", "apppw")

		user, password := migrationCredentials()
		assert.Equal(t, "app", user)
		assert.Equal(t, "apppw", password)
	})
}
