package config

import (
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"os"
	"testing"
	"time"
)

const testConfigFile = "../../configs/config.yaml"

func resetViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func Test_Config_WhenFileLoaded_ShouldUseFileValues(t *testing.T) {
	resetViper(t)
	t.Setenv("TOKEN", "someToken")

	cfg, err := loadConfig(testConfigFile)
	assert.NoError(t, err)

	assert.Equal(t, "someToken", cfg.Bot.Token)
	assert.Equal(t, 30*time.Second, cfg.Bot.RequestTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Watch.PollInterval)
	assert.Equal(t, DedupPreserve, cfg.Watch.DedupPolicy)
	assert.Equal(t, time.Duration(0), cfg.Watch.DedupTTL)
	assert.Equal(t, "divar.ir", cfg.Site.Origin)
	assert.Equal(t, []string{"139", "138"}, cfg.Site.Districts)
	assert.Equal(t, 10, cfg.Site.BuildingAge)
	assert.True(t, cfg.Site.HasPhoto)
	assert.Equal(t, "div.post-list__items-container-e44b2", cfg.Site.Selectors.Container)
	assert.Equal(t, LevelInfo, cfg.Logger.LogLevel)
}

func Test_Config_EnvironmentOverrideWorksCorrect(t *testing.T) {
	resetViper(t)

	t.Setenv("TOKEN", "overrideToken")
	t.Setenv("POLL_INTERVAL", "3m")
	t.Setenv("DEDUP_POLICY", string(DedupReset))
	t.Setenv("DEDUP_TTL", "48h")
	t.Setenv("LOG_LEVEL", string(LevelDebug))
	t.Setenv("SITE_BASE_URL", "https://divar.ir/s/karaj/rent-apartment/")
	t.Setenv("CONFIG_PATH", testConfigFile)

	cfg := Get()

	assert.Equal(t, "overrideToken", cfg.Bot.Token)
	assert.Equal(t, 3*time.Minute, cfg.Watch.PollInterval)
	assert.Equal(t, DedupReset, cfg.Watch.DedupPolicy)
	assert.Equal(t, 48*time.Hour, cfg.Watch.DedupTTL)
	assert.Equal(t, LevelDebug, cfg.Logger.LogLevel)
	assert.Equal(t, "https://divar.ir/s/karaj/rent-apartment/", cfg.Site.BaseURL)
}

func Test_Config_WhenTokenMissing_ShouldFail(t *testing.T) {
	resetViper(t)
	_ = os.Unsetenv("TOKEN")

	_, err := loadConfig(testConfigFile)
	assert.ErrorContains(t, err, "token")
}

func Test_WatchConfig_WhenInvalid_ShouldFail(t *testing.T) {
	cfg := WatchConfig{
		PollInterval: 10 * time.Millisecond,
		TickTimeout:  time.Second,
		DedupPolicy:  "forget",
	}

	err := cfg.validate()
	assert.ErrorContains(t, err, "poll_interval")
	assert.ErrorContains(t, err, "dedup_policy")
}

func Test_BotConfig_WhenRequestTimeoutNotPositive_ShouldFail(t *testing.T) {
	cfg := BotConfig{Token: "someToken", MetricsAddress: ":8080"}
	assert.ErrorContains(t, cfg.validate(), "request_timeout")
}
