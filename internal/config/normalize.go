package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDispatch()
	c.normalizeWorkflow()
	c.normalizeEvents()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDispatch() {
	if c.Dispatch.RedisPassword == "" {
		if value, ok := os.LookupEnv("REEL_REDIS_PASSWORD"); ok {
			c.Dispatch.RedisPassword = value
		}
	}
	c.Dispatch.RedisAddr = strings.TrimSpace(c.Dispatch.RedisAddr)
	if strings.TrimSpace(c.Dispatch.JobStream) == "" {
		c.Dispatch.JobStream = defaultJobStream
	}
	if strings.TrimSpace(c.Dispatch.EventStream) == "" {
		c.Dispatch.EventStream = defaultEventStream
	}
	if strings.TrimSpace(c.Dispatch.Group) == "" {
		c.Dispatch.Group = defaultDispatchGroup
	}
	if strings.TrimSpace(c.Dispatch.Consumer) == "" {
		c.Dispatch.Consumer = defaultDispatchConsumer
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.MinStitchClips < defaultMinStitchClips {
		c.Workflow.MinStitchClips = defaultMinStitchClips
	}
}

func (c *Config) normalizeEvents() {
	if c.Events.BufferCapacity <= 0 {
		c.Events.BufferCapacity = defaultEventBufferCap
	}
	if c.Events.PublishRate <= 0 {
		c.Events.PublishRate = defaultEventPublishRate
	}
	if c.Events.PublishBurst <= 0 {
		c.Events.PublishBurst = defaultEventPublishBurst
	}
}

func (c *Config) normalizeAPI() {
	if c.API.RateLimitRPS <= 0 {
		c.API.RateLimitRPS = defaultRateLimitRPS
	}
	if c.API.RateLimitBurst <= 0 {
		c.API.RateLimitBurst = defaultRateLimitBurst
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
