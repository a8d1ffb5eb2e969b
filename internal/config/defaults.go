package config

const (
	defaultDataDir          = "~/.local/share/dualout"
	defaultLogDir           = "~/.local/share/dualout/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultHorizontalWidth  = 1920
	defaultHorizontalHeight = 1080
	defaultVerticalWidth    = 720
	defaultVerticalHeight   = 1280
	defaultRepairParallel   = 4
	databaseFileName        = "collections.db"
	lockFileName            = "dualout.lock"
	logFileName             = "dualout.log"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Video: Video{
			Horizontal: Resolution{Width: defaultHorizontalWidth, Height: defaultHorizontalHeight},
			Vertical:   Resolution{Width: defaultVerticalWidth, Height: defaultVerticalHeight},
		},
		Platforms: map[string]string{
			"twitch":   "horizontal",
			"youtube":  "horizontal",
			"facebook": "horizontal",
			"trovo":    "horizontal",
			"tiktok":   "vertical",
		},
		Repair: Repair{
			MaxParallel: defaultRepairParallel,
		},
	}
}
