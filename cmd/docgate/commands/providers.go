package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/docgate/docgate/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and their configuration status",
	RunE:  runProviders,
}

func runProviders(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.gateway.Config()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tNAME\tSTATUS\tMODEL\tMULTI-FILE\t")

	for _, p := range a.gateway.Registry().Providers() {
		status := "not configured"
		model := "-"
		if pc, ok := cfg.Provider[p.ID()]; ok {
			switch {
			case pc.Disable:
				status = "disabled"
			case pc.APIKey == "":
				status = "no API key"
			default:
				status = "ready"
			}
			if pc.Model != "" {
				model = pc.Model
			}
		}
		if p.ID() == cfg.DefaultProvider {
			status += " (default)"
		}
		_, multi := p.(provider.MultiFileSummarizer)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t\n", p.ID(), p.Name(), status, model, multi)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	if len(cfg.Provider) == 0 {
		fmt.Fprintln(os.Stderr, "\nNo providers configured. Set OPENAI_API_KEY, GEMINI_API_KEY, ANTHROPIC_API_KEY or ARK_API_KEY, or add a docgate.json.")
	}
	return nil
}
