package config

const (
	defaultMediaDir           = "~/.local/share/reel/media"
	defaultDataDir            = "~/.local/share/reel/data"
	defaultLogDir             = "~/.local/share/reel/logs"
	defaultAPIBind            = "127.0.0.1:7519"
	defaultJobStream          = "reel_jobs"
	defaultEventStream        = "reel_job_events"
	defaultDispatchGroup      = "reel_orchestrator"
	defaultDispatchConsumer   = "reeld-1"
	defaultErrorRetryInterval = 5
	defaultMinStitchClips     = 2
	defaultEventBufferCap     = 512
	defaultEventPublishRate   = 50.0
	defaultEventPublishBurst  = 100
	defaultRateLimitRPS       = 20.0
	defaultRateLimitBurst     = 40
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir: defaultMediaDir,
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Dispatch: Dispatch{
			JobStream:   defaultJobStream,
			EventStream: defaultEventStream,
			Group:       defaultDispatchGroup,
			Consumer:    defaultDispatchConsumer,
		},
		Workflow: Workflow{
			ErrorRetryInterval: defaultErrorRetryInterval,
			AutoStitch:         true,
			MinStitchClips:     defaultMinStitchClips,
		},
		Events: Events{
			BufferCapacity: defaultEventBufferCap,
			PublishRate:    defaultEventPublishRate,
			PublishBurst:   defaultEventPublishBurst,
		},
		API: API{
			RateLimitRPS:   defaultRateLimitRPS,
			RateLimitBurst: defaultRateLimitBurst,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
