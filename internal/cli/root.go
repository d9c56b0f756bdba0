package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ksyq12/pleskcert/internal/logger"
	"github.com/ksyq12/pleskcert/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	version    = "dev"
)

// Connection and credential flags shared by all commands. Zero values
// leave the configured setting in place.
var (
	configPath     string
	secretKey      string
	secretKeyStdin bool
	securePanel    bool
	panelHost      string
	panelPort      int
	panelScheme    string
	pleskRoot      string
	targetName     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pleskcert",
	Short: "Let's Encrypt certificates for Plesk",
	Long: `pleskcert validates domains and installs TLS certificates on a Plesk panel.

It places HTTP-01 validation files below each site's document root, installs
issued certificates into the panel's certificate pool and assigns them to the
sites, optionally securing the panel itself. It talks to the panel through its
XML API-RPC and the privileged utilities shipped with Plesk.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	cobra.OnInitialize(func() {
		logger.Init(verbose)
	})

	if err := rootCmd.Execute(); err != nil {
		output.Failure(err)
		os.Exit(1)
	}
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging for debugging")
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.config/pleskcert/config.yaml)")
	flags.StringVar(&secretKey, "secret-key", "", "Plesk API-RPC secret key (env LE_PLESK_SECRET_KEY)")
	flags.BoolVar(&secretKeyStdin, "secret-key-stdin", false, "Read the API-RPC secret key from stdin")
	flags.BoolVar(&securePanel, "secure-panel", false, "Also use the certificate to secure connections to Plesk")
	flags.StringVar(&panelHost, "host", "", "Panel host (default 127.0.0.1)")
	flags.IntVar(&panelPort, "port", 0, "Panel port (default from the sw-cp-server configuration)")
	flags.StringVar(&panelScheme, "scheme", "", "Panel scheme, http or https")
	flags.StringVar(&pleskRoot, "plesk-root", "", "Plesk installation root")
	flags.StringVar(&targetName, "target", "", "Panel platform, posix or windows (default detected)")
}
