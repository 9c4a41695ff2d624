// internal/logger/config.go
package logger

type Config struct {
	LogFile     string
	MaxSize     int // megabytes
	MaxAge      int // days
	MaxBackups  int // files
	Compress    bool
	Development bool
}

// DefaultConfig returns the rotation/encoding defaults used when the caller
// passes nil.
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "dexclient.log",
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: false,
	}
}
