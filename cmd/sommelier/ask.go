package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
)

func newAskCmd() *cobra.Command {
	var (
		configPath     string
		category       string
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask the sommelier a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics.Register()

			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.orchestrator.Process(
				context.Background(), strings.Join(args, " "), conversationID, category)
			if err != nil {
				return err
			}

			fmt.Println(result.AnswerText)
			if result.WasCacheHit {
				fmt.Printf("\n[cached, %.0fms, conversation %s]\n",
					float64(result.Latency.Microseconds())/1000, result.ConversationID)
			} else {
				fmt.Printf("\n[generated, %.0fms, conversation %s]\n",
					float64(result.Latency.Microseconds())/1000, result.ConversationID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sommelier.yaml", "path to config file")
	cmd.Flags().StringVar(&category, "category", "", "force a prompt category (sommelier, recommendations, food_pairing, education, vineyard_info, tasting)")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation")
	return cmd
}
