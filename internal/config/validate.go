package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validatePublisher(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateMaintenance(); err != nil {
		return err
	}
	if c.Intake.MaxDuration < 0 {
		return errors.New("intake.max_duration must be >= 0")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if len(c.Schedule.Times) == 0 {
		return errors.New("schedule.times must contain at least one HH:MM entry")
	}
	for _, raw := range c.Schedule.Times {
		if _, err := ParseTimeOfDay(raw); err != nil {
			return fmt.Errorf("schedule.times: %w", err)
		}
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxRetry < 0 {
		return errors.New("upload.max_retry must be >= 0")
	}
	if c.Upload.CaptionMaxRunes < 0 {
		return errors.New("upload.caption_max_runes must be >= 0")
	}
	if c.Upload.AbortGrace < 0 {
		return errors.New("upload.abort_grace must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"upload.submit_timeout":         c.Upload.SubmitTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validatePublisher() error {
	if strings.TrimSpace(c.Publisher.Command) == "" {
		return errors.New("publisher.command must be set")
	}
	for _, code := range c.Publisher.PermanentExitCodes {
		if code <= 0 || code > 255 {
			return fmt.Errorf("publisher.permanent_exit_codes: %d is not a valid failure exit code", code)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateMaintenance() error {
	if c.Maintenance.PostedRetentionDays < 0 {
		return errors.New("maintenance.posted_retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
