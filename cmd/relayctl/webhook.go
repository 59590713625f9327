package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"passrelay/internal/engine/webhooks"
)

const requestTimeout = 30 * time.Second

func signCmd() *cobra.Command {
	var secret, file string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the X-Passslot-Signature value for a payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), webhooks.Sign(secret, payload))
			return nil
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Webhook signing secret")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Payload file, - for stdin")
	cmd.MarkFlagRequired("secret")
	return cmd
}

func sendCmd() *cobra.Command {
	var url, secret, file string
	var unsigned bool
	cmd := &cobra.Command{
		Use:   "send",
		Short: "POST a signed payload to a relay webhook URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			headers := map[string]string{"Content-Type": "application/json"}
			if !unsigned {
				headers[webhooks.SignatureHeader] = webhooks.Sign(secret, payload)
			}

			status, body, err := post(url, payload, headers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, strings.TrimSpace(string(body)))
			if status >= 300 {
				return fmt.Errorf("relay answered HTTP %d", status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Webhook URL, e.g. http://localhost:8080/api/v1/webhook/<id>")
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Webhook signing secret")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Payload file, - for stdin")
	cmd.Flags().BoolVar(&unsigned, "unsigned", false, "Omit the signature header")
	cmd.MarkFlagRequired("url")
	return cmd
}

func handshakeCmd() *cobra.Command {
	var url, token string
	cmd := &cobra.Command{
		Use:   "handshake",
		Short: "Send a webhook.verify event and check the token is echoed",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]any{
				"type": "webhook.verify",
				"data": map[string]string{"token": token},
			})
			if err != nil {
				return err
			}

			status, body, err := post(url, payload, map[string]string{"Content-Type": "application/json"})
			if err != nil {
				return err
			}
			if status != http.StatusOK || string(body) != token {
				return fmt.Errorf("handshake failed: HTTP %d %q", status, body)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "handshake ok")
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Webhook URL")
	cmd.Flags().StringVarP(&token, "token", "t", "relayctl-check", "Verification token to send")
	cmd.MarkFlagRequired("url")
	return cmd
}

func readPayload(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}

func post(url string, payload []byte, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
