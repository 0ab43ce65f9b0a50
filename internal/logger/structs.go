package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `mapstructure:"enabled" toml:"enabled"`
	UseConsoleWriter bool `mapstructure:"useconsolewriter" toml:"useconsolewriter"`
}

// LogFile implements a file based logger.
type LogFile struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path" toml:"path"`

	AccessLog        string `mapstructure:"access" toml:"access"`
	AccessMaxSize    int    `mapstructure:"accessmaxsize" toml:"accessmaxsize"`
	AccessMaxBackups int    `mapstructure:"accessmaxbackups" toml:"accessmaxbackups"`
	AccessMaxAge     int    `mapstructure:"accessmaxage" toml:"accessmaxage"`

	ErrorLog        string `mapstructure:"error" toml:"error"`
	ErrorMaxSize    int    `mapstructure:"errormaxsize" toml:"errormaxsize"`
	ErrorMaxBackups int    `mapstructure:"errormaxbackups" toml:"errormaxbackups"`
	ErrorMaxAge     int    `mapstructure:"errormaxage" toml:"errormaxage"`

	InfoLog        string `mapstructure:"info" toml:"info"`
	InfoMaxSize    int    `mapstructure:"infomaxsize" toml:"infomaxsize"`
	InfoMaxBackups int    `mapstructure:"infomaxbackups" toml:"infomaxbackups"`
	InfoMaxAge     int    `mapstructure:"infomaxage" toml:"infomaxage"`

	TraceLog        string `mapstructure:"trace" toml:"trace"`
	TraceMaxSize    int    `mapstructure:"tracemaxsize" toml:"tracemaxsize"`
	TraceMaxBackups int    `mapstructure:"tracemaxbackups" toml:"tracemaxbackups"`
	TraceMaxAge     int    `mapstructure:"tracemaxage" toml:"tracemaxage"`

	WarnLog        string `mapstructure:"warn" toml:"warn"`
	WarnMaxSize    int    `mapstructure:"warnmaxsize" toml:"warnmaxsize"`
	WarnMaxBackups int    `mapstructure:"warnmaxbackups" toml:"warnmaxbackups"`
	WarnMaxAge     int    `mapstructure:"warnmaxage" toml:"warnmaxage"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string `mapstructure:"loglevel" toml:"loglevel"` // trace, debug, info, warn, error.

	// EnableAccessLogToConsole writes the fiber access log to the console.
	// Does not overrule Console.Enabled.
	EnableAccessLogToConsole bool `mapstructure:"enableaccesslogtoconsole" toml:"enableaccesslogtoconsole"`
	ReportCaller             bool `mapstructure:"reportcaller" toml:"reportcaller"`
	DisableCheckAlive        bool `mapstructure:"disablecheckalive" toml:"disablecheckalive"` // do not log /checkalive calls

	AppName     string `mapstructure:"appname" toml:"appname"`
	ServiceName string `mapstructure:"servicename" toml:"servicename"`

	// Console used mainly for docker and dev.
	Console Console `mapstructure:"console" toml:"console"`

	// File enables rolling log files split by level.
	File LogFile `mapstructure:"file" toml:"file"`
}
