// MCNap - on-demand Minecraft server activator.
//
// MCNap fronts a Minecraft server's game port while the server is
// down: it answers server-list pings locally, starts the real server
// command on the first genuine login, and stops it over RCON once it
// has been empty past the idle timeout.
package main

import (
	"fmt"
	"os"

	"github.com/mcnap-project/mcnap/internal/cli"
)

const (
	AppVersion = "1.0.0"
	Banner     = `
  __  __  ____ _   _
 |  \/  |/ ___| \ | | __ _ _ __
 | |\/| | |   |  \| |/ _' | '_ \
 | |  | | |___| |\  | (_| | |_) |
 |_|  |_|\____|_| \_|\__,_| .__/
                          |_|  v%s
 On-demand Minecraft server activator
`
)

func main() {
	fmt.Printf(Banner, AppVersion)
	fmt.Println()

	os.Exit(cli.Execute())
}
