package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/codegraph/internal/harness"
	"github.com/rohankatakam/codegraph/internal/ipc"
)

var queryLine uint32

var symbolAtCmd = &cobra.Command{
	Use:   "symbol-at <file> --line N",
	Short: "Find the symbol enclosing a file:line location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := json.Marshal(ipc.SymbolAtParams{File: args[0], Line: queryLine})
		if err != nil {
			return err
		}
		return runQuery("symbol_at", params)
	},
}

var maxResults int

var callersCmd = &cobra.Command{
	Use:   "callers <symbol-id>",
	Short: "List symbols that call the given symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  symbolIDQuery("find_callers"),
}

var calleesCmd = &cobra.Command{
	Use:   "callees <symbol-id>",
	Short: "List symbols the given symbol calls",
	Args:  cobra.ExactArgs(1),
	RunE:  symbolIDQuery("find_callees"),
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <symbol-id>",
	Short: "Rank symbols most affected by a change to the given symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  symbolIDQuery("find_dependents"),
}

func init() {
	symbolAtCmd.Flags().Uint32Var(&queryLine, "line", 1, "1-based line number")

	for _, c := range []*cobra.Command{callersCmd, calleesCmd, dependentsCmd} {
		c.Flags().IntVar(&maxResults, "max-results", 0, "cap the number of results (0 = method default)")
	}
}

func symbolIDQuery(method string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var symbolID uint64
		if _, err := fmt.Sscanf(args[0], "%d", &symbolID); err != nil {
			return fmt.Errorf("invalid symbol id %q: %w", args[0], err)
		}
		params, err := json.Marshal(ipc.SymbolIDParams{SymbolID: symbolID, MaxResults: maxResults})
		if err != nil {
			return err
		}
		return runQuery(method, params)
	}
}

// runQuery sends method/params through a Harness — which transparently
// prefers a resident daemon and falls back to a direct local load — and
// pretty-prints the raw JSON response.
func runQuery(method string, params json.RawMessage) error {
	req := ipc.NewRequest(method, params)
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	h := harness.New(cfg.Paths.GraphFile, cfg.Paths.SocketFile)
	resp, err := h.Call(payload)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var pretty map[string]any
	if err := json.Unmarshal(resp, &pretty); err != nil {
		fmt.Println(string(resp))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
