package bucketry

import "github.com/spf13/viper"

// LocalDiskEnv is the environment variable that enables local-disk emulation.
const LocalDiskEnv = "LOCAL_GCS"

// Env reports process-wide resolution settings.
// Implementations must evaluate on every call; resolvers never cache the answer.
type Env interface {
	LocalDisk() bool
}

// EnvFunc adapts a function to Env.
type EnvFunc func() bool

// LocalDisk calls f.
func (f EnvFunc) LocalDisk() bool {
	return f()
}

// ViperEnv reads LOCAL_GCS through viper.
// Explicit Set calls on the viper instance take precedence over the process
// environment, which lets tests toggle local mode without os.Setenv.
type ViperEnv struct {
	v *viper.Viper
}

// NewViperEnv wraps v. A nil v gets a fresh instance bound to the process environment.
func NewViperEnv(v *viper.Viper) *ViperEnv {
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()
	return &ViperEnv{v: v}
}

// LocalDisk reports whether LOCAL_GCS is exactly "1".
func (e *ViperEnv) LocalDisk() bool {
	return e.v.GetString(LocalDiskEnv) == "1"
}

// Ensure implementations satisfy Env.
var (
	_ Env = EnvFunc(nil)
	_ Env = (*ViperEnv)(nil)
)
