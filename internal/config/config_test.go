package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROJECTS", "")
	t.Setenv("ANSWERING_TIMEOUT", "")
	t.Setenv("GO_ENV", "development")

	cfg := Load()

	assert.Equal(t, []string{"Projet Alpha", "Rapport Annuel Q3", "Données Techniques"}, cfg.Projects.Catalog)
	assert.Equal(t, 120*time.Second, cfg.Answering.Timeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROJECTS", " Alpha , ,Beta")
	t.Setenv("ANSWERING_TIMEOUT", "45")
	t.Setenv("CONVERSATION_LOCK_TTL", "90s")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, []string{"Alpha", "Beta"}, cfg.Projects.Catalog)
	assert.Equal(t, 45*time.Second, cfg.Answering.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Answering.LockTTL)
	assert.True(t, cfg.App.OtelEnabled)
	assert.True(t, cfg.IsProduction())
}
