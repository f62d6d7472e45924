// Package main provides the avatar-chat terminal client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version as provided at build time.
	Version = ""

	configFile string

	rootCmd = &cobra.Command{
		Use:   "avatar-chat",
		Short: "Chat with an expressive, speaking avatar",
		Long: paragraph(
			fmt.Sprintf("\nChat with an avatar that %s.", keyword("shows how it feels while it talks")),
		),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadConfig()
		},
		RunE: execute,
	}
)

func execute(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := configFromViper()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to flush traces", "error", err)
		}
	}()

	events := make(chan tea.Msg, eventBufferSize)
	a, err := newApp(ctx, cfg, events)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := tea.NewProgram(newModel(ctx, a, events), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("avatar-chat failed", "error", err)
		}
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is avatar-chat.yml in the user config dir)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().String("model", "", "OpenRouter chat model")
	rootCmd.Flags().String("voice", "", "ElevenLabs voice ID")
	rootCmd.Flags().String("player", "", "local audio player (miniaudio, portaudio, oto, none)")
	rootCmd.Flags().String("avatar-url", "", "websocket URL of a remote avatar, replaces local playback")
	rootCmd.Flags().String("session", "", "continue the conversation with this history session ID")
	rootCmd.Flags().Bool("trace", false, "write OpenTelemetry traces to trace.json in the data dir")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("llm.model", rootCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("voice.voice_id", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("player", rootCmd.Flags().Lookup("player"))
	_ = viper.BindPFlag("avatar.url", rootCmd.Flags().Lookup("avatar-url"))
	_ = viper.BindPFlag("history.session", rootCmd.Flags().Lookup("session"))
	_ = viper.BindPFlag("trace", rootCmd.Flags().Lookup("trace"))

	setConfigDefaults()

	rootCmd.AddCommand(voicesCmd, modelsCmd, schemaCmd)
}
