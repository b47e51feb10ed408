package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/recera/graphchart/cmd/graphchart/internal/ui"
	"github.com/recera/graphchart/pkg/backend"
	"github.com/recera/graphchart/pkg/render"
	"github.com/recera/graphchart/pkg/webapp"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	var descriptorPath string
	var showPayload bool

	cmd := &cobra.Command{
		Use:   "check <config.json>",
		Short: "Validate a chart configuration",
		Long: `Validates a chart configuration the way the server does and prints the
effective configuration sent to the backend. The file holds either the
webAppConfig object itself or a full host message with webAppConfig and
filters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			desc := webapp.DefaultDescriptor()
			if descriptorPath != "" {
				loaded, err := webapp.LoadDescriptor(descriptorPath)
				if err != nil {
					return err
				}
				desc = loaded
			}

			raw, filters, err := readHostConfig(args[0])
			if err != nil {
				return err
			}

			eff, err := checkConfig(raw, desc)
			if err != nil {
				fmt.Fprintln(out, ui.RenderError(err))
				return fmt.Errorf("%s is not a valid chart configuration", args[0])
			}
			fmt.Fprintln(out, ui.RenderConfig(eff))

			if showPayload {
				body, err := backend.Request{
					Config:     eff,
					Filters:    filters,
					ScaleRatio: render.ScaleRatio(0, 0),
				}.Encode()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(body))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&descriptorPath, "descriptor", "", "Parameter descriptor file (YAML, JSON or TOML)")
	cmd.Flags().BoolVar(&showPayload, "payload", false, "Print the backend request body")

	return cmd
}

// readHostConfig reads either a bare webAppConfig or a host message
func readHostConfig(path string) (webapp.RawConfig, webapp.FilterSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var msg struct {
		WebAppConfig webapp.RawConfig `json:"webAppConfig"`
		Filters      webapp.FilterSet `json:"filters"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if msg.WebAppConfig != nil {
		return msg.WebAppConfig, msg.Filters, nil
	}

	var raw webapp.RawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, webapp.FilterSet{}, nil
}

func checkConfig(raw webapp.RawConfig, desc *webapp.Descriptor) (webapp.EffectiveConfig, error) {
	if err := webapp.Validate(raw, desc.Groups()); err != nil {
		return webapp.EffectiveConfig{}, err
	}
	return webapp.Normalize(raw, desc.AdvancedParams), nil
}
