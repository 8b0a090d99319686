package config

const (
	defaultDataDir                   = "~/.local/share/postline"
	defaultLogDir                    = "~/.local/share/postline/logs"
	defaultMediaDir                  = "~/.local/share/postline/media"
	defaultAPIBind                   = "127.0.0.1:7590"
	defaultTimezone                  = "Asia/Jakarta"
	defaultStatsInterval             = 300
	defaultMaxRetry                  = 1
	defaultCaption                   = "#fyp #viral #foryou"
	defaultCaptionMaxRunes           = 2200
	defaultSubmitTimeout             = 600
	defaultAbortGrace                = 30
	defaultCookiesPath               = "~/.config/postline/cookies.json"
	defaultPublisherCommand          = "postline-publish"
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultNotifyRequestTimeout      = 10
	defaultFFprobeBinary             = "ffprobe"
	defaultIntakeMaxDuration         = 600
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 60
)

var defaultScheduleTimes = []string{"06:00", "09:00", "12:00"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
			APIBind:  defaultAPIBind,
		},
		Schedule: Schedule{
			Times:         append([]string(nil), defaultScheduleTimes...),
			Timezone:      defaultTimezone,
			StatsInterval: defaultStatsInterval,
		},
		Upload: Upload{
			MaxRetry:        defaultMaxRetry,
			DefaultCaption:  defaultCaption,
			CaptionMaxRunes: defaultCaptionMaxRunes,
			SubmitTimeout:   defaultSubmitTimeout,
			AbortGrace:      defaultAbortGrace,
		},
		Session: Session{
			CookiesPath: defaultCookiesPath,
		},
		Publisher: Publisher{
			Command:            defaultPublisherCommand,
			Headless:           true,
			PermanentExitCodes: []int{2},
		},
		Workflow: Workflow{
			HeartbeatInterval: defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:  defaultWorkflowHeartbeatTimeout,
		},
		Intake: Intake{
			FFprobeBinary: defaultFFprobeBinary,
			MaxDuration:   defaultIntakeMaxDuration,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Queued:         false,
			Posted:         true,
			Retry:          true,
			Failed:         true,
			Session:        true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
