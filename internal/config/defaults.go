package config

const (
	defaultSessionsDir       = "~/.local/share/scout/sessions"
	defaultLogDir            = "~/.local/share/scout/logs"
	defaultAPIBind           = "127.0.0.1:7337"
	defaultSocketPath        = "~/.local/share/scout/scoutd.sock"
	defaultWorkerBinary      = "scout-worker"
	defaultGracePeriod       = 5
	defaultPrimaryTimeout    = 300
	defaultFastMatchTimeout  = 90
	defaultSecondaryTimeout  = 600
	defaultMaxSessions       = 10
	defaultSessionTTLHours   = 24
	defaultSweepInterval     = 300
	defaultDebounceMillis    = 250
	defaultHeartbeatInterval = 15
	defaultSubscriberBuffer  = 64
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SessionsDir: defaultSessionsDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
			SocketPath:  defaultSocketPath,
		},
		Worker: Worker{
			Binary:           defaultWorkerBinary,
			GracePeriod:      defaultGracePeriod,
			PrimaryTimeout:   defaultPrimaryTimeout,
			FastMatchTimeout: defaultFastMatchTimeout,
			SecondaryTimeout: defaultSecondaryTimeout,
		},
		Workflow: Workflow{
			MaxSessions:     defaultMaxSessions,
			SessionTTLHours: defaultSessionTTLHours,
			SweepInterval:   defaultSweepInterval,
			DebounceMillis:  defaultDebounceMillis,
		},
		Stream: Stream{
			HeartbeatInterval: defaultHeartbeatInterval,
			SubscriberBuffer:  defaultSubscriberBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
