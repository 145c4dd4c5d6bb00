package config

import (
	"fmt"
	"time"
)

const (
	defaultDepositQueueName    = "deposit_queue"
	defaultWithdrawalQueueName = "withdrawal_queue"
)

type QueueConfig struct {
	QueueUser              string        `mapstructure:"queue_user"`
	QueuePassword          string        `mapstructure:"queue_password"`
	Url                    string        `mapstructure:"url"`
	QueueProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
	QueueType              string        `mapstructure:"queue_type"`
	DepositQueueName       string        `mapstructure:"deposit_queue_name"`
	WithdrawalQueueName    string        `mapstructure:"withdrawal_queue_name"`
	MaxRetryTimes          uint          `mapstructure:"max_retry_times"`
	RetryInterval          time.Duration `mapstructure:"retry_interval"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.QueueUser == "" {
		return fmt.Errorf("missing queue user")
	}

	if cfg.QueuePassword == "" {
		return fmt.Errorf("missing queue password")
	}

	if cfg.Url == "" {
		return fmt.Errorf("missing queue url")
	}

	if cfg.QueueProcessingTimeout <= 0 {
		return fmt.Errorf("invalid queue processing timeout")
	}

	if cfg.QueueType != "" && cfg.QueueType != "classic" && cfg.QueueType != "quorum" {
		return fmt.Errorf("unsupported queue type %q", cfg.QueueType)
	}

	if cfg.DepositQueueName == "" {
		cfg.DepositQueueName = defaultDepositQueueName
	}

	if cfg.WithdrawalQueueName == "" {
		cfg.WithdrawalQueueName = defaultWithdrawalQueueName
	}

	if cfg.MaxRetryTimes == 0 {
		return fmt.Errorf("max_retry_times must be positive")
	}

	if cfg.RetryInterval <= 0 {
		return fmt.Errorf("retry_interval must be positive")
	}

	return nil
}

// AmqpURL builds the broker url from the configured host and credentials.
func (cfg *QueueConfig) AmqpURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url)
}
