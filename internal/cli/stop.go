package cli

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcnap-project/mcnap/internal/rcon"
	"github.com/mcnap-project/mcnap/internal/server"
)

var (
	stopRconHost string
	stopRconPort int
	stopRconPass string
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running server over RCON",
	Long: `Connect to the server's RCON port, authenticate, and issue the stop
command. This talks to the server directly and does not touch a running
mcnap listen process.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopRconHost, "rcon-host", "", "RCON host of the server (default from config)")
	stopCmd.Flags().IntVar(&stopRconPort, "rcon-port", 0, "RCON port of the server (required)")
	stopCmd.Flags().StringVar(&stopRconPass, "rcon-pass", "", "RCON password of the server (required)")
	stopCmd.MarkFlagRequired("rcon-port")
	stopCmd.MarkFlagRequired("rcon-pass")

	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	host := stopRconHost
	if host == "" {
		host = cfg.Rcon.Host
	}
	addr := net.JoinHostPort(host, strconv.Itoa(stopRconPort))

	client, err := rcon.Dial(addr, server.DialTimeout)
	if err != nil {
		if errors.Is(err, rcon.ErrUnreachable) {
			return fmt.Errorf("server unreachable at %s (is it running?)", addr)
		}
		return err
	}
	defer client.Close()

	if err := client.Authenticate(stopRconPass); err != nil {
		if errors.Is(err, rcon.ErrAuthFailed) {
			return fmt.Errorf("RCON password rejected by %s", addr)
		}
		return err
	}

	resp, err := client.Command("stop")
	if err != nil {
		return fmt.Errorf("sending stop command: %w", err)
	}

	log.Info().Str("addr", addr).Str("response", resp).Msg("stop command sent")
	return nil
}
