package config

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/randytsao24/walkwise/internal/navigation"
	"github.com/randytsao24/walkwise/internal/route"
)

var modes = []route.Mode{route.Walking, route.Cycling, route.Driving}

// Profile holds the navigation policy for each transport mode. It is read
// from a YAML file shaped like
//
//	default:
//	  deviation_threshold_m: 15
//	modes:
//	  cycling:
//	    deviation_threshold_m: 25
//	    arrival_radius_m: 20
//
// Keys missing from a mode fall back to "default", then to the built-in
// walking policy.
type Profile struct {
	v   *viper.Viper
	log *slog.Logger

	mu       sync.RWMutex
	policies map[route.Mode]navigation.Policy
}

// LoadProfile reads the profile at path. An empty path yields the built-in
// defaults for every mode.
func LoadProfile(path string, log *slog.Logger) (*Profile, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &Profile{log: log.With("component", "profile")}

	if path == "" {
		p.policies = defaultPolicies()
		return p, nil
	}

	p.v = viper.New()
	p.v.SetConfigFile(path)
	p.v.SetConfigType("yaml")
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Watch reloads the profile whenever the file changes. A reload that fails
// to parse or validate keeps the previous policies.
func (p *Profile) Watch() {
	if p.v == nil {
		return
	}
	p.v.OnConfigChange(func(e fsnotify.Event) {
		if err := p.reload(); err != nil {
			p.log.Error("profile reload failed, keeping previous policies", "file", e.Name, "error", err)
			return
		}
		p.log.Info("profile reloaded", "file", e.Name)
	})
	p.v.WatchConfig()
}

// Policy returns the policy for mode. Unknown modes get the walking policy.
func (p *Profile) Policy(mode route.Mode) navigation.Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if pol, ok := p.policies[mode]; ok {
		return pol
	}
	return p.policies[route.Walking]
}

func (p *Profile) reload() error {
	if err := p.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading profile: %w", err)
	}

	base := navigation.DefaultPolicy()
	if p.v.IsSet("default") {
		if err := p.v.UnmarshalKey("default", &base); err != nil {
			return fmt.Errorf("decoding default policy: %w", err)
		}
	}

	policies := make(map[route.Mode]navigation.Policy, len(modes))
	for _, m := range modes {
		pol := base
		key := "modes." + string(m)
		if p.v.IsSet(key) {
			if err := p.v.UnmarshalKey(key, &pol); err != nil {
				return fmt.Errorf("decoding %s policy: %w", m, err)
			}
		}
		if err := pol.Validate(); err != nil {
			return fmt.Errorf("%s policy: %w", m, err)
		}
		policies[m] = pol
	}

	p.mu.Lock()
	p.policies = policies
	p.mu.Unlock()
	return nil
}

func defaultPolicies() map[route.Mode]navigation.Policy {
	out := make(map[route.Mode]navigation.Policy, len(modes))
	for _, m := range modes {
		out[m] = navigation.DefaultPolicy()
	}
	return out
}
