package cmd

import (
	"fmt"
	u "net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirofic/fetchr/internal/utils"
)

var (
	outputPath    string
	noResume      bool
	workers       int
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	debug         bool
)

var globalHTTPConfig utils.HTTPClientConfig

var FetchrVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "fetchr",
	Short:   "Fetchr is a controllable, resumable download manager",
	Version: FetchrVersion,
	Args:    cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
		if userAgent == "randomize" {
			userAgent = utils.GetRandomUserAgent()
		}
		// Check if proxy URL contains auth
		parsedProxy, err := u.Parse(proxyURL)
		if err == nil && parsedProxy.User != nil && proxyUsername == "" {
			proxyUsername = parsedProxy.User.Username()
			if password, set := parsedProxy.User.Password(); set {
				proxyPassword = password
			}
			parsedProxy.User = nil
			proxyURL = parsedProxy.String()
		}
		globalHTTPConfig = utils.HTTPClientConfig{
			Timeout:       timeout,
			KATimeout:     kaTimeout,
			ProxyURL:      proxyURL,
			ProxyUsername: proxyUsername,
			ProxyPassword: proxyPassword,
			UserAgent:     userAgent,
			Headers:       utils.ParseHeaderArgs(headers),
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			return
		}
		os.Exit(runPlainDownload(args[0]))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Output file path (fetchr infers file name if not provided)")
	rootCmd.PersistentFlags().BoolVar(&noResume, "no-resume", false, "Ignore partial files and download from scratch")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 2, "Number of downloads to run in parallel (batch mode)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 3*time.Minute, "Connection timeout (eg. 5s, 10m)")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent ('randomize' picks a browser one)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newHTTPCmd())
	rootCmd.AddCommand(newMediaCmd())
	rootCmd.AddCommand(newBatchCmd())
}
