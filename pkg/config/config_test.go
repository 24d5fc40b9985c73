package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.False(t, cfg.Planner.AIEnabled)
	assert.Equal(t, 30*time.Second, cfg.Planner.AITimeout)
	assert.Equal(t, "per_day", cfg.Planner.MergePolicy)
	assert.Equal(t, 366, cfg.Planner.MaxRangeDays)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("PLANNER_AI_TIMEOUT", "not-a-duration")
	v.Set("PLANNER_CACHE_TTL", "90s")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	v.Set("PLANNER_MERGE_POLICY", "whole_proposal")

	cfg := fromViper(v)
	assert.Equal(t, 30*time.Second, cfg.Planner.AITimeout)
	assert.Equal(t, 90*time.Second, cfg.Planner.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "whole_proposal", cfg.Planner.MergePolicy)
}
