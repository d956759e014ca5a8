package util

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

var environmentLogger = log.With().Str("logger_name", "util::environment").Logger()

type holdemEnvironment struct {
	ListenAddress string
	ConfigFile    string
	ActionTimeout string
	DefaultBuyIn  string
}

// HoldemEnvironment is a helper object for accessing environment variables.
var HoldemEnvironment = &holdemEnvironment{
	ListenAddress: "LISTEN_ADDRESS",
	ConfigFile:    "CONFIG_FILE",
	ActionTimeout: "ACTION_TIMEOUT",
	DefaultBuyIn:  "DEFAULT_BUYIN",
}

func (h *holdemEnvironment) GetListenAddress() string {
	return os.Getenv(h.ListenAddress)
}

func (h *holdemEnvironment) GetConfigFile() string {
	return os.Getenv(h.ConfigFile)
}

func (h *holdemEnvironment) GetActionTimeout() int {
	s := os.Getenv(h.ActionTimeout)
	if s == "" {
		return 0
	}
	timeoutSec, err := strconv.Atoi(s)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid ACTION_TIMEOUT value: %s", s)
		return 0
	}
	return timeoutSec
}

func (h *holdemEnvironment) GetDefaultBuyIn() int64 {
	s := os.Getenv(h.DefaultBuyIn)
	if s == "" {
		return 0
	}
	buyIn, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid DEFAULT_BUYIN value: %s", s)
		return 0
	}
	return buyIn
}
