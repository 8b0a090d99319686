package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSchedule(); err != nil {
		return err
	}
	if err := c.normalizeUpload(); err != nil {
		return err
	}
	if err := c.normalizeSession(); err != nil {
		return err
	}
	c.normalizePublisher()
	c.normalizeIntake()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("POSTLINE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeSchedule() error {
	if value, ok := os.LookupEnv("POSTLINE_SCHEDULE"); ok && strings.TrimSpace(value) != "" {
		c.Schedule.Times = strings.Split(value, ",")
	}
	if value, ok := os.LookupEnv("POSTLINE_TIMEZONE"); ok && strings.TrimSpace(value) != "" {
		c.Schedule.Timezone = value
	}

	seen := make(map[string]struct{}, len(c.Schedule.Times))
	times := make([]string, 0, len(c.Schedule.Times))
	for _, raw := range c.Schedule.Times {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			return fmt.Errorf("schedule.times: %w", err)
		}
		key := tod.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		times = append(times, key)
	}
	sort.Strings(times)
	c.Schedule.Times = times

	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	loc, err := loadLocation(c.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("schedule.timezone: unknown zone %q: %w", c.Schedule.Timezone, err)
	}
	c.location = loc
	if c.Schedule.StatsInterval < 0 {
		c.Schedule.StatsInterval = 0
	}
	return nil
}

func (c *Config) normalizeUpload() error {
	if value, ok := os.LookupEnv("POSTLINE_MAX_RETRY"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("POSTLINE_MAX_RETRY: %w", err)
		}
		c.Upload.MaxRetry = parsed
	}
	if value, ok := os.LookupEnv("POSTLINE_DEFAULT_CAPTION"); ok && strings.TrimSpace(value) != "" {
		c.Upload.DefaultCaption = value
	}
	c.Upload.DefaultCaption = strings.TrimSpace(c.Upload.DefaultCaption)
	return nil
}

func (c *Config) normalizeSession() error {
	var err error
	if strings.TrimSpace(c.Session.CookiesPath) == "" {
		c.Session.CookiesPath = defaultCookiesPath
	}
	if c.Session.CookiesPath, err = expandPath(c.Session.CookiesPath); err != nil {
		return fmt.Errorf("session.cookies_path: %w", err)
	}
	return nil
}

func (c *Config) normalizePublisher() {
	c.Publisher.Command = strings.TrimSpace(c.Publisher.Command)
	args := c.Publisher.Args[:0]
	for _, arg := range c.Publisher.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Publisher.Args = args
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("POSTLINE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeIntake() {
	c.Intake.FFprobeBinary = strings.TrimSpace(c.Intake.FFprobeBinary)
	if c.Intake.FFprobeBinary == "" {
		c.Intake.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
