package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkbridge/inkbridge/internal/config"
	"github.com/inkbridge/inkbridge/pkg/bridge"
	"github.com/inkbridge/inkbridge/pkg/busutil"
	"github.com/inkbridge/inkbridge/pkg/dispatcher"
)

// sendCmd fires one operation request at the host and prints the response.
var sendCmd = &cobra.Command{
	Use:   "send <operation> [params-json]",
	Short: "Send a single operation request to the host",
	Long: `Sends one operation to the running inkbridge-host and prints the JSON response.

Examples:
  inkbridge send get-document-info
  inkbridge send create-element '{"spec":{"tag":"circle","attributes":{"cx":"10","cy":"10","r":"5"}}}'
  inkbridge send execute-code '{"code":"createElement(\"rect\", {x: 0, y: 0, width: 50, height: 50})"}'`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		if err := cfg.ValidateForSend(); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}

		timeout := cfg.BridgeTimeout
		if flagTimeout, _ := cmd.Flags().GetDuration("timeout"); flagTimeout > 0 {
			timeout = flagTimeout
		}

		req := &dispatcher.OperationRequest{Op: args[0]}
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				log.Fatalf("params is not valid JSON")
			}
			req.Params = json.RawMessage(args[1])
		}

		nc, err := busutil.Connect(cfg.BusURL, cfg.ServiceName+"-send")
		if err != nil {
			log.Fatalf("Error connecting to bus: %v", err)
		}
		defer nc.Close()

		subject := cfg.RequestSubject
		if subject == "" {
			subject = busutil.RequestSubject(cfg.SessionID)
		}
		resp := bridge.Send(nc, subject, req, timeout)

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			log.Fatalf("Error encoding response: %v", err)
		}
		fmt.Println(string(out))
		if !resp.Ok {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().Duration("timeout", 0, "Reply timeout (default: BRIDGE_TIMEOUT, e.g. 10s)")
}
