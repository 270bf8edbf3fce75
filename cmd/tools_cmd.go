package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goreact/internal/tools"
)

func toolsCmd() *cobra.Command {
	var (
		asPrompt bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the configured tool server",
		Long: `Start the tool server, list its tools and exit.

Examples:
  goreact tools              # Table with confirmation flags
  goreact tools --prompt     # The tool list exactly as the model sees it
  goreact tools --json       # Provider function definitions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			ch, err := openToolServer(ctx, cfg)
			if err != nil {
				return err
			}
			defer ch.Close()

			registry, err := loadRegistry(ctx, cfg, ch)
			if err != nil {
				return err
			}
			return printTools(registry, asPrompt, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asPrompt, "prompt", false, "print the tool list as rendered into the system prompt")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print function definitions as JSON")
	return cmd
}

func printTools(registry *tools.Registry, asPrompt, asJSON bool) error {
	switch {
	case asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(registry.ProviderDefs())
	case asPrompt:
		fmt.Println(registry.Render())
		return nil
	}

	if registry.Count() == 0 {
		fmt.Println("No tools available.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCONFIRM\tDESCRIPTION")
	for _, d := range registry.List() {
		confirm := "no"
		if tools.RequiresConfirmation(d) {
			confirm = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, confirm, firstLine(d.Description))
	}
	return tw.Flush()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
