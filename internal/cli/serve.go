package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/EmanAguilera/fiambond/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "Path to config file (default ~/.fiambond/config.toml)")
	serveCmd.Flags().String("addr", "", "Listen address, overrides the config file (host:port)")
	serveCmd.Flags().String("data-dir", "", "Data directory, overrides the config file")
	serveCmd.Flags().String("redis", "", "Redis address for the balance cache, overrides the config file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FiamBond API server",
	Long: `Start the HTTP API daemon. Configuration is read from the config file
(~/.fiambond/config.toml by default) and may be overridden per-flag.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid --addr port %q: %w", portStr, err)
		}
		cfg.API.Host = host
		cfg.API.Port = port
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		cfg.Redis.Addr = addr
	}

	return daemon.Run(cfg)
}
