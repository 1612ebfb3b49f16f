package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meridianhealth/intake/internal/tui"
	"github.com/meridianhealth/intake/pkg/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive intake conversation in the terminal",
	Long: `Starts a session on the configured graph and walks the conversation
turn by turn. Type 'exit' or 'quit' to abandon the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		subjectID, _ := cmd.Flags().GetString("subject")
		plain, _ := cmd.Flags().GetBool("plain")

		engine, err := buildEngine(cmd, nil)
		if err != nil {
			return err
		}

		render := func(s string) (string, error) { return s + "\n", nil }
		if !plain && tui.Interactive() {
			tui.PrintBanner()
			render = tui.NewRenderer()
		}

		ctx := cmd.Context()
		start, err := engine.StartSession(ctx, subjectID)
		if err != nil {
			return err
		}
		printRendered(render, start.Prompt)

		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print(tui.Prompt())
			line, err := reader.ReadString('\n')
			if err != nil {
				// EOF: walk away without completing.
				fmt.Println()
				return engine.Abandon(ctx, start.SessionID)
			}
			input := strings.TrimSpace(line)
			if input == "exit" || input == "quit" {
				fmt.Println("Bye!")
				return engine.Abandon(ctx, start.SessionID)
			}

			result, err := engine.ProcessTurn(ctx, start.SessionID, input)
			if err != nil {
				return err
			}

			if result.Source == domain.SourceController {
				fmt.Println(tui.Urgent(result.Response))
			} else {
				printRendered(render, result.Response)
			}

			if result.IsTerminal {
				return nil
			}
			if node, err := engine.Graph().Node(result.NextState); err == nil && result.Source != domain.SourceController {
				printRendered(render, node.Prompt)
			}
		}
	},
}

func printRendered(render func(string) (string, error), text string) {
	out, err := render(text)
	if err != nil {
		out = text + "\n"
	}
	fmt.Print(out)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("subject", "local", "Subject identifier for the session")
	chatCmd.Flags().Bool("plain", false, "Disable markdown rendering and the banner")
}
