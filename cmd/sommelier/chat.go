package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
)

func newChatCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive sommelier session",
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics.Register()

			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Println("Sommelier assistant ready. Ask about wines, pairings, or regions.")
			fmt.Println("Commands: /reset (new conversation), /metrics, /quit")

			var conversationID string
			scanner := bufio.NewScanner(os.Stdin)

			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				switch line {
				case "/quit", "/exit":
					return flushMetrics(a)
				case "/reset":
					if conversationID != "" {
						a.orchestrator.ResetConversation(conversationID)
					}
					conversationID = ""
					fmt.Println("Conversation cleared.")
					continue
				case "/metrics":
					printSnapshot(a.orchestrator.MetricsSnapshot())
					continue
				}

				result, err := a.orchestrator.Process(context.Background(), line, conversationID, "")
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				conversationID = result.ConversationID

				fmt.Println(result.AnswerText)
				if result.WasCacheHit {
					fmt.Printf("[cached, %.0fms]\n", float64(result.Latency.Microseconds())/1000)
				}
			}

			return flushMetrics(a)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sommelier.yaml", "path to config file")
	return cmd
}

// flushMetrics persists the session's counters to history on exit.
func flushMetrics(a *app) error {
	if a.orchestrator.MetricsSnapshot().TotalQueries == 0 {
		return nil
	}
	return a.orchestrator.ResetMetrics(context.Background())
}
