package util

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ServerConfig holds server-wide settings. Per-room settings (blinds, betting
// mode) are chosen at room creation time.
type ServerConfig struct {
	ListenAddress    string `yaml:"listen_address"`
	ActionTimeoutSec uint32 `yaml:"action_timeout_sec"`
	DefaultBuyIn     int64  `yaml:"default_buyin"`
	MaxChatHistory   int    `yaml:"max_chat_history"`
	MaxActionHistory int    `yaml:"max_action_history"`
}

func defaultConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddress:    ":8080",
		ActionTimeoutSec: 30,
		DefaultBuyIn:     1000,
		MaxChatHistory:   100,
		MaxActionHistory: 50,
	}
}

// LoadConfig reads the YAML server config and applies environment overrides.
// An empty path skips the file and starts from the defaults.
func LoadConfig(configFile string) (*ServerConfig, error) {
	config := defaultConfig()
	if configFile != "" {
		data, err := ioutil.ReadFile(configFile)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to read config file %s", configFile)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "Unable to parse config file %s", configFile)
		}
	}

	if addr := HoldemEnvironment.GetListenAddress(); addr != "" {
		config.ListenAddress = addr
	}
	if timeoutSec := HoldemEnvironment.GetActionTimeout(); timeoutSec > 0 {
		config.ActionTimeoutSec = uint32(timeoutSec)
	}
	if buyIn := HoldemEnvironment.GetDefaultBuyIn(); buyIn > 0 {
		config.DefaultBuyIn = buyIn
	}
	return config, nil
}
