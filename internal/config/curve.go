// Package config loads curve profiles and process configuration.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

const (
	curveEnvPrefix = "ROYALTY_CURVE"

	ProfileRefined = "refined"
	ProfileSimple  = "simple"
)

// CurveProfiles maps profile names to shaped-curve constants.
type CurveProfiles struct {
	DefaultProfile string                         `mapstructure:"default_profile"`
	Profiles       map[string]royalty.CurveConfig `mapstructure:"profiles"`
}

// DefaultCurveProfiles holds the two built-in presets with refined as default.
func DefaultCurveProfiles() CurveProfiles {
	return CurveProfiles{
		DefaultProfile: ProfileRefined,
		Profiles: map[string]royalty.CurveConfig{
			ProfileRefined: royalty.RefinedCurve(),
			ProfileSimple:  royalty.SimpleCurve(),
		},
	}
}

// Get returns the named profile; an empty name selects the default.
func (p CurveProfiles) Get(name string) (royalty.CurveConfig, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = p.DefaultProfile
	}
	c, ok := p.Profiles[name]
	if !ok {
		return royalty.CurveConfig{}, fmt.Errorf("unknown curve profile %q (have %s)", name, strings.Join(p.Names(), ", "))
	}
	return c, nil
}

func (p CurveProfiles) Names() []string {
	out := make([]string, 0, len(p.Profiles))
	for name := range p.Profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p CurveProfiles) Validate() error {
	if _, ok := p.Profiles[p.DefaultProfile]; !ok {
		return fmt.Errorf("default_profile %q is not defined", p.DefaultProfile)
	}
	for _, name := range p.Names() {
		if err := p.Profiles[name].Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	return nil
}

func newCurveViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(curveEnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := DefaultCurveProfiles()
	v.SetDefault("default_profile", defaults.DefaultProfile)
	for name, c := range defaults.Profiles {
		prefix := "profiles." + name + "."
		v.SetDefault(prefix+"small_step", c.SmallStep)
		v.SetDefault(prefix+"medium_step", c.MediumStep)
		v.SetDefault(prefix+"decline_step", c.DeclineStep)
		v.SetDefault(prefix+"bump", c.Bump)
		v.SetDefault(prefix+"cap", c.Cap)
		v.SetDefault(prefix+"stabilization_factor", c.StabilizationFactor)
	}
	return v
}

// LoadCurveProfiles merges the built-in presets, the optional YAML file at
// path and ROYALTY_CURVE_* overrides such as ROYALTY_CURVE_DEFAULT_PROFILE or
// ROYALTY_CURVE_PROFILES_REFINED_CAP.
func LoadCurveProfiles(path string) (CurveProfiles, error) {
	v := newCurveViper()
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return CurveProfiles{}, fmt.Errorf("config: read curve profiles %q: %w", path, err)
		}
	}

	var out CurveProfiles
	if err := v.Unmarshal(&out); err != nil {
		return CurveProfiles{}, fmt.Errorf("config: unmarshal curve profiles: %w", err)
	}
	out.DefaultProfile = strings.ToLower(strings.TrimSpace(out.DefaultProfile))
	if err := out.Validate(); err != nil {
		return CurveProfiles{}, fmt.Errorf("config: %w", err)
	}
	return out, nil
}
