// Package config is the configuration surface the query-processor core
// consumes: zones, TSIG keys, the EDNS OPT template, per-operation ACLs,
// and rate-limit parameters, plus the ambient service/logging/apiserver
// sections a running server needs. Unmarshalling follows the teacher's
// tdns/config.go shape: github.com/spf13/viper populates the struct tree,
// github.com/go-playground/validator/v10 checks each section separately
// so a missing apiserver attribute doesn't hide a missing zone attribute.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// decodeSettings decodes a loosely-typed settings map (as produced by
// viper.AllSettings) into cfg using mapstructure directly, so weakly-typed
// YAML scalars (a TTL given as an int where a string is expected, and
// vice versa) coerce instead of failing decode outright.
func decodeSettings(settings map[string]interface{}, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(settings)
}

// Config is the top-level configuration tree.
type Config struct {
	App       AppDetails
	Service   ServiceConf
	DnsEngine DnsEngineConf
	Apiserver ApiserverConf
	RateLimit RateLimitConf
	OptTemplate OptTemplateConf `mapstructure:"opt_template"`
	Zones     map[string]ZoneConf
	TsigKeys  map[string]TsigKeyConf `mapstructure:"tsig_keys"`
	Log       LogConf
	Internal  InternalConf
}

// AppDetails mirrors tdns.AppDetails: identity and boot-time bookkeeping,
// not user-supplied but filled in by the caller after unmarshalling.
type AppDetails struct {
	Name             string
	Version          string
	Mode             string
	ServerBootTime   time.Time
	ServerConfigTime time.Time
}

// ServiceConf is the ambient process-identity section.
type ServiceConf struct {
	Name    string `validate:"required"`
	Debug   bool
	Verbose bool
}

// DnsEngineConf configures the Do53 (UDP+TCP) listener set, spec.md §6's
// "server OPT template" siblings that live at the engine level rather than
// per-zone: the advertised max payload and the TSIG fudge window.
type DnsEngineConf struct {
	Addresses     []string `validate:"required"`
	MaxUDPPayload uint16
	TSIGFudge     uint16 `mapstructure:"tsig_fudge"`
	MaxCNAMEChain int    `mapstructure:"max_cname_chain"`
}

// ApiserverConf configures the control/management HTTP surface — an outer
// collaborator spec.md §1 deliberately leaves undescribed beyond its
// interface, given a concrete shape here.
type ApiserverConf struct {
	Addresses []string `validate:"required"`
	ApiKey    string   `validate:"required"`
	CertFile  string
	KeyFile   string
	UseTLS    bool `mapstructure:"use_tls"`
}

// LogConf configures log rotation via gopkg.in/natefinch/lumberjack.v2,
// the teacher's tdns/logging.go SetupLogging shape.
type LogConf struct {
	File       string `validate:"required"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// InternalConf holds the process's internal wiring channels, mirroring
// tdns.InternalConf's channel-based fan-out. Never populated from a
// config file; filled in by cmd/authd at startup.
type InternalConf struct {
	CfgFile       string
	StopCh        chan struct{}
	RefreshZoneCh chan string
	BumpZoneCh    chan string
}

// ValidateConfig decodes v's settings (or the global viper instance's, if v
// is nil) into a throwaway Config and validates each ambient section
// independently, per tdns/config.go's ValidateConfig/ValidateBySection.
// Decoding goes through our own mapstructure.Decoder rather than viper's
// built-in Unmarshal, mirroring tdns/parseconfig.go's "merge the raw config
// map, then decode the whole thing in one mapstructure pass" structure.
func ValidateConfig(v *viper.Viper, cfgfile string) (*Config, error) {
	var cfg Config

	settings := viper.AllSettings()
	if v != nil {
		settings = v.AllSettings()
	}
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", cfgfile, err)
	}

	sections := map[string]interface{}{
		"log":       cfg.Log,
		"service":   cfg.Service,
		"apiserver": cfg.Apiserver,
		"dnsengine": cfg.DnsEngine,
	}
	if err := ValidateBySection(&cfg, sections, cfgfile); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateZones validates every configured zone's required attributes
// individually — a map[string]ZoneConf can't be validated as a whole by
// the validator package, so each entry is checked on its own, exactly as
// tdns/config.go's ValidateZones does.
func ValidateZones(cfg *Config, cfgfile string) error {
	sections := make(map[string]interface{}, len(cfg.Zones))
	for name, z := range cfg.Zones {
		sections["zone:"+name] = z
	}
	return ValidateBySection(cfg, sections, cfgfile)
}

// ValidateBySection runs one validator.New() pass per named section so a
// failure in one section's tags is reported against that section's name,
// not a useless top-level path.
func ValidateBySection(cfg *Config, sections map[string]interface{}, cfgfile string) error {
	validate := validator.New()
	for name, data := range sections {
		if err := validate.Struct(data); err != nil {
			return fmt.Errorf("%s: config %s, section %s: %w", strings.ToUpper(cfg.Service.Name), cfgfile, name, err)
		}
	}
	return nil
}

// Load reads cfgfile via viper, validates the ambient sections and every
// configured zone, and returns the populated Config. Unlike the teacher's
// ParseConfig (which calls log.Fatalf on any error), Load returns errors
// to the caller — cmd/authd decides whether a reload failure is fatal.
func Load(cfgfile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgfile)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", cfgfile, err)
	}

	cfg, err := ValidateConfig(v, cfgfile)
	if err != nil {
		return nil, err
	}
	if err := ValidateZones(cfg, cfgfile); err != nil {
		return nil, err
	}
	cfg.Internal.CfgFile = cfgfile
	cfg.App.ServerConfigTime = time.Now()
	return cfg, nil
}

// Reload re-parses cfgfile in place, logging (not fataling) on error — the
// teacher's (*Config).ReloadConfig, made non-fatal to fit a management
// channel that should survive a bad reload attempt.
func (cfg *Config) Reload() error {
	fresh, err := Load(cfg.Internal.CfgFile)
	if err != nil {
		log.Printf("config: reload of %s failed: %v", cfg.Internal.CfgFile, err)
		return err
	}
	fresh.Internal = cfg.Internal
	fresh.App.ServerBootTime = cfg.App.ServerBootTime
	*cfg = *fresh
	return nil
}
