package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/koscakluka/ema-avatar/core/avatar/remote"
	"github.com/koscakluka/ema-avatar/core/llms/openrouter"
	"github.com/koscakluka/ema-avatar/core/texttospeech/elevenlabs"
	"github.com/spf13/cobra"
)

var (
	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List the ElevenLabs voices available to your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromViper()
			if err != nil {
				return err
			}
			client := elevenlabs.NewClient(cfg.ElevenLabsAPIKey)
			if !client.HasCredentials() {
				return elevenlabs.ErrNoCredentials
			}

			voices, err := client.Voices(cmd.Context())
			if err != nil {
				return fmt.Errorf("unable to list voices: %w", err)
			}
			printVoices(cmd.OutOrStdout(), voices, cfg.Voice.VoiceID)
			return nil
		},
	}

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "List the chat models on OpenRouter, or speech models with --speech",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromViper()
			if err != nil {
				return err
			}

			if speech, _ := cmd.Flags().GetBool("speech"); speech {
				client := elevenlabs.NewClient(cfg.ElevenLabsAPIKey)
				if !client.HasCredentials() {
					return elevenlabs.ErrNoCredentials
				}
				models, err := client.Models(cmd.Context())
				if err != nil {
					return fmt.Errorf("unable to list speech models: %w", err)
				}
				printSpeechModels(cmd.OutOrStdout(), models, cfg.Voice.ModelID)
				return nil
			}

			models, err := openrouter.NewClient(cfg.OpenRouterAPIKey).Models(cmd.Context())
			if err != nil {
				return fmt.Errorf("unable to list chat models: %w", err)
			}
			filter, _ := cmd.Flags().GetString("filter")
			printChatModels(cmd.OutOrStdout(), models, filter, cfg.Model)
			return nil
		},
	}

	schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the remote avatar protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := json.MarshalIndent(remote.Schema(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
)

func init() {
	modelsCmd.Flags().Bool("speech", false, "list ElevenLabs speech models instead")
	modelsCmd.Flags().String("filter", "", "only show chat models whose ID contains this text")
}

func marker(selected bool) string {
	if selected {
		return keyword("*")
	}
	return " "
}

func printVoices(w io.Writer, voices []elevenlabs.Voice, selected string) {
	slices.SortFunc(voices, func(a, b elevenlabs.Voice) int { return strings.Compare(a.Name, b.Name) })
	for _, voice := range voices {
		fmt.Fprintf(w, "%s %-24s %s %s\n",
			marker(voice.VoiceID == selected),
			voice.VoiceID,
			voice.Name,
			statusStyle(voice.Category))
	}
}

func printSpeechModels(w io.Writer, models []elevenlabs.Model, selected string) {
	for _, model := range models {
		if !model.CanDoTextToSpeech {
			continue
		}
		fmt.Fprintf(w, "%s %-28s %s %s\n",
			marker(model.ModelID == selected),
			model.ModelID,
			model.Name,
			statusStyle(fmt.Sprintf("%d languages", len(model.Languages))))
	}
}

func printChatModels(w io.Writer, models []openrouter.Model, filter, selected string) {
	for _, model := range models {
		if filter != "" && !strings.Contains(model.ID, filter) {
			continue
		}
		fmt.Fprintf(w, "%s %-48s %s\n",
			marker(model.ID == selected),
			model.ID,
			statusStyle(humanize.Comma(int64(model.ContextLength))+" tokens context"))
	}
}
