package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcnap-project/mcnap/internal/api"
	"github.com/mcnap-project/mcnap/internal/config"
	"github.com/mcnap-project/mcnap/internal/db"
	"github.com/mcnap-project/mcnap/internal/events"
	"github.com/mcnap-project/mcnap/internal/protocol"
	"github.com/mcnap-project/mcnap/internal/server"
	"github.com/mcnap-project/mcnap/internal/telemetry"
)

var (
	listenRconPort     int
	listenRconPass     string
	listenPollInterval int
	listenIdleTimeout  int
)

var listenCmd = &cobra.Command{
	Use:   "listen <host> <port> <command> [args...]",
	Short: "Listen for a login and activate the server",
	Long: `Bind the game port, answer server-list pings, and start the given
server command on the first genuine login. The command line is executed
as-is; put -- before it when it contains flags of its own:

  mcnap listen 0.0.0.0 25565 --rcon-port 25575 --rcon-pass secret -- java -Xmx2G -jar server.jar nogui`,
	Args: cobra.MinimumNArgs(3),
	RunE: runListen,
}

func init() {
	listenCmd.Flags().IntVar(&listenRconPort, "rcon-port", 0, "RCON port of the server (required)")
	listenCmd.Flags().StringVar(&listenRconPass, "rcon-pass", "", "RCON password of the server (required)")
	listenCmd.Flags().IntVar(&listenPollInterval, "poll-interval", 0, "seconds between occupancy polls (overrides config)")
	listenCmd.Flags().IntVar(&listenIdleTimeout, "idle-timeout", 0, "seconds of emptiness before the server is stopped (overrides config)")
	listenCmd.MarkFlagRequired("rcon-port")
	listenCmd.MarkFlagRequired("rcon-pass")

	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	host := args[0]
	port, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid game port %q", args[1])
	}
	executable := args[2]
	serverArgs := args[3:]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pollInterval := time.Duration(cfg.Rcon.PollIntervalSec) * time.Second
	if listenPollInterval > 0 {
		pollInterval = time.Duration(listenPollInterval) * time.Second
	}
	idleTimeout := time.Duration(cfg.Rcon.IdleTimeoutSec) * time.Second
	if listenIdleTimeout > 0 {
		idleTimeout = time.Duration(listenIdleTimeout) * time.Second
	}

	presets, err := buildPresets(cfg)
	if err != nil {
		return err
	}

	gameAddr := net.JoinHostPort(host, strconv.FormatUint(port, 10))
	rconAddr := net.JoinHostPort(cfg.Rcon.Host, strconv.Itoa(listenRconPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	bus := events.NewBus()
	defer bus.Stop()

	var journal *db.Database
	if cfg.Journal.Enabled {
		journal, err = db.NewDatabase(cfg.Journal.Path)
		if err != nil {
			log.Warn().Err(err).Msg("session journal unavailable, continuing without it")
		} else {
			defer journal.Close()
			db.NewJournal(journal, bus)
		}
	}

	controller := server.NewController(
		gameAddr, rconAddr, listenRconPass,
		pollInterval, idleTimeout,
		executable, serverArgs,
		presets, bus,
	)

	var wg sync.WaitGroup

	if cfg.API.Enabled {
		apiServer := api.NewServer(controller, journal, cfg.Logging.Level == "debug")
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := apiServer.Start(ctx, cfg.API.Port); err != nil {
				log.Error().Err(err).Msg("status API failed")
			}
		}()
	}

	if cfg.Telemetry.Enabled {
		publisher, err := telemetry.NewPublisher(cfg.Telemetry, bus)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry unavailable, continuing without it")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := publisher.Start(ctx); err != nil {
					log.Warn().Err(err).Msg("telemetry failed")
				}
			}()
		}
	}

	runErr := controller.Run(ctx)

	cancel()
	wg.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// buildPresets turns the configured MOTD, connection message, and icon
// into the pre-serialized status and login-disconnect packets.
func buildPresets(cfg *config.Config) (*protocol.PresetPackets, error) {
	iconBase64, err := config.LoadIcon(cfg.IconPath())
	if err != nil {
		return nil, fmt.Errorf("loading server icon: %w", err)
	}

	motd := protocol.ChatComponent{
		Text:  cfg.Motd.Text,
		Color: cfg.Motd.Color,
		Bold:  cfg.Motd.Bold,
	}
	connectionMsg := protocol.ChatComponent{
		Text:  cfg.ConnectionMsg.Text,
		Color: cfg.ConnectionMsg.Color,
		Bold:  cfg.ConnectionMsg.Bold,
	}

	return protocol.BuildPresetPackets(motd, connectionMsg, iconBase64)
}
