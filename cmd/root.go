package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/pano/internal/bridge"
	"github.com/kiesman99/pano/internal/config"
	"github.com/kiesman99/pano/internal/logging"
)

// envPrefix is the prefix of environment variables that override flags and
// configuration keys, e.g. PANO_CROP=0.
const envPrefix = "PANO"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pano [flags] <image>...",
	Short: "Stitch overlapping photos into a panorama",
	Long: `pano stitches two or more overlapping photos into one panorama.

The stitching mode and engine tuning come from a configuration file of
KEY VALUE lines (config.cfg in the working directory by default). Any key
can be overridden with a PANO_<KEY> environment variable.

Examples:
  # Stitch three photos and write a JPEG
  pano -o pano.jpg left.jpg middle.jpg right.jpg

  # Use a cylindrical configuration
  pano --config cylinder.cfg -o pano.png *.jpg

  # Disable cropping for one run
  PANO_CROP=0 pano -o pano.png a.png b.png

  # Start HTTP server
  pano serve --port 8080`,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runStitch(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "stitching configuration file (default is ./"+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress logging")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log engine details")

	// Output options
	rootCmd.Flags().StringP("output", "o", "", "output file, format chosen by extension (png|jpg|bmp|tif)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
}

// initConfig reads ENV variables and sets up logging.
func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if viper.GetBool("quiet") {
		logging.SetLogger(nil)
		return
	}
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// newBridge creates a bridge whose configuration honours PANO_* overrides
// and commits the configuration named by --config.
func newBridge() (*bridge.Bridge, error) {
	b := bridge.New(bridge.WithConfigOptions(config.WithEnv(envPrefix)))
	if _, err := b.LoadConfig(viper.GetString("config")); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return b, nil
}

func runStitch(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("at least two images are required, got %d", len(args))
	}

	b, err := newBridge()
	if err != nil {
		return err
	}

	output := viper.GetString("output")
	res := b.StitchContext(cmd.Context(), args, output)
	defer res.Release()

	if !res.Success {
		return fmt.Errorf("%s: %s", res.Kind, res.Error)
	}
	if res.Error != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), res.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stitched %d images into a %dx%d panorama\n", len(args), res.Width, res.Height)
	if output != "" && res.Error == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
	}
	return nil
}
