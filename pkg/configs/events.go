package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool              `mapstructure:"enabled"` // 总开关
	File    FileEventsConfig  `mapstructure:"file"`
	Share   ShareEventsConfig `mapstructure:"share"`
	Audit   AuditEventsConfig `mapstructure:"audit"`
}

// FileEventsConfig 针对文件领域的事件开关。
type FileEventsConfig struct {
	Stored      bool `mapstructure:"stored"`
	Deleted     bool `mapstructure:"deleted"`
	LockChanged bool `mapstructure:"lock_changed"`
}

// ShareEventsConfig 针对分享领域的事件开关。
type ShareEventsConfig struct {
	Issued   bool `mapstructure:"issued"`
	Revoked  bool `mapstructure:"revoked"`
	Redeemed bool `mapstructure:"redeemed"`
}

// AuditEventsConfig 针对审计领域的事件开关。
type AuditEventsConfig struct {
	Recorded bool `mapstructure:"recorded"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 文件领域事件：默认开启生命周期事件
	v.SetDefault("events.file.stored", true)
	v.SetDefault("events.file.deleted", true)
	v.SetDefault("events.file.lock_changed", true)

	// 分享领域事件
	v.SetDefault("events.share.issued", true)
	v.SetDefault("events.share.revoked", true)
	v.SetDefault("events.share.redeemed", false) // 兑换事件量可能很大，默认关闭

	// 审计领域事件：供下游消费审计流
	v.SetDefault("events.audit.recorded", true)
}
