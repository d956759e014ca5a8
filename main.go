package main

import (
	"flag"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"voyager.com/holdem/game"
	"voyager.com/holdem/internal/util"
	"voyager.com/holdem/logging"
	"voyager.com/holdem/rest"
	"voyager.com/holdem/ws"
)

var mainLogger = logging.GetZeroLogger("main::main", nil)

func main() {
	configFile := flag.String("config", "", "server config file (YAML)")
	listenAddr := flag.String("addr", "", "listen address, overrides config")
	flag.Parse()

	log.Logger = *logging.GetZeroLogger("holdem", nil)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if *configFile == "" {
		*configFile = util.HoldemEnvironment.GetConfigFile()
	}
	config, err := util.LoadConfig(*configFile)
	if err != nil {
		mainLogger.Fatal().Msgf("Unable to load config: %v", err)
	}
	if *listenAddr != "" {
		config.ListenAddress = *listenAddr
	}

	sessions := ws.NewSessionManager()
	manager := game.NewManager(sessions, game.RoomDefaults{
		BuyIn:            config.DefaultBuyIn,
		ActionTimeoutSec: config.ActionTimeoutSec,
		MaxChatHistory:   config.MaxChatHistory,
		MaxActionHistory: config.MaxActionHistory,
	})

	gin.SetMode(gin.ReleaseMode)
	server := rest.NewServer(manager, sessions)
	router := server.Router()

	mainLogger.Info().Msgf("Listening on %s", config.ListenAddress)
	if err := router.Run(config.ListenAddress); err != nil {
		mainLogger.Fatal().Msgf("Server exited: %v", err)
	}
}
