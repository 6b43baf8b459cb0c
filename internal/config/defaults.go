package config

const (
	defaultLogDir               = "~/.local/share/shipit/logs"
	defaultStateDir             = "~/.local/share/shipit"
	defaultGitBinary            = "git"
	defaultSyncTool             = SyncToolRobocopy
	defaultBuildBinary          = "Unity"
	defaultWatchIntervalMinutes = 5
	defaultTickSeconds          = 1
	defaultKillGraceSeconds     = 5
	defaultSettleSeconds        = 2
	defaultRequestTimeout       = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultColorMode            = "auto"
)

// Directory sync tool identifiers accepted by tools.sync_tool.
const (
	SyncToolRobocopy = "robocopy"
	SyncToolRsync    = "rsync"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Tools: Tools{
			Git:         defaultGitBinary,
			SyncTool:    defaultSyncTool,
			BuildBinary: defaultBuildBinary,
		},
		Workflow: Workflow{
			WatchIntervalMinutes: defaultWatchIntervalMinutes,
			TickSeconds:          defaultTickSeconds,
			KillGraceSeconds:     defaultKillGraceSeconds,
			SettleSeconds:        defaultSettleSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Output: Output{
			Color: defaultColorMode,
		},
	}
}
