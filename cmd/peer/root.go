package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "peer",
	Short: "Headless participant for Mesh rooms",
	Long: `peer joins a Mesh room from the command line. It negotiates a WebRTC
connection with every other member through the signaling server and can
send a synthetic audio track.`,
}

// Execute runs the root command. Called once by main.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("server", "ws://localhost:8080/api/ws/signal", "Signaling websocket URL")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
