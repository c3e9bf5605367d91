package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; backend or
// dimension changes require a restart and are reported separately.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	KNeighborsChanged bool
	NewKNeighbors     int

	PendingCapacityChanged bool
	NewPendingCapacity     int

	// RestartRequired is set when the store backend, DSN, snapshot path, or
	// embedding dimensions changed. These cannot be applied to a running
	// service.
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Classifier.KNeighbors != new.Classifier.KNeighbors {
		d.KNeighborsChanged = true
		d.NewKNeighbors = new.Classifier.KNeighbors
	}

	if old.Pending.Capacity != new.Pending.Capacity {
		d.PendingCapacityChanged = true
		d.NewPendingCapacity = new.Pending.Capacity
	}

	if old.Store != new.Store || old.Server.ListenAddr != new.Server.ListenAddr || tlsChanged(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = true
	}

	return d
}

// tlsChanged reports whether the TLS configuration differs, treating nil as
// "TLS disabled".
func tlsChanged(old, new *TLSConfig) bool {
	if (old == nil) != (new == nil) {
		return true
	}
	return old != nil && *old != *new
}
