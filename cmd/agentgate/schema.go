package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentgate/protocol"
)

var schemaCmd = &cobra.Command{
	Use:       "schema [request|event]",
	Short:     "Print the JSON Schema of the wire protocol",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"request", "event"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		switch {
		case len(args) == 0:
			data, err = protocol.MarshalSchemas()
		case args[0] == "request":
			data, err = json.MarshalIndent(protocol.RequestSchema(), "", "  ")
		case args[0] == "event":
			data, err = json.MarshalIndent(protocol.EventSchema(), "", "  ")
		default:
			return fmt.Errorf("unknown schema %q (want request or event)", args[0])
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
