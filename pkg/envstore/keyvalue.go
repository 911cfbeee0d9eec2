package envstore

import "os"

// KeyValue is the capability interface over one external key/value domain.
// Production bindings mutate real process-wide state; test bindings keep the
// mutations in memory so round-trip properties can be asserted safely.
type KeyValue interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
	Unset(key string) error
}

// ProcessEnv binds KeyValue to the real process environment.
type ProcessEnv struct{}

func (ProcessEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (ProcessEnv) Set(key, value string) error {
	return os.Setenv(key, value)
}

func (ProcessEnv) Unset(key string) error {
	return os.Unsetenv(key)
}
