// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/spf13/cobra"
)

func encryptConfigCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "encrypt-config <config.yaml>",
		Short: "Encrypt a config file with SOPS",
		Long: "Encrypt a config file with SOPS using KMS keys from GAVEL_GCP_KMS_RESOURCE_ID,\n" +
			"GAVEL_AWS_KMS_KEY_ARNS and GAVEL_AWS_KMS_PROFILE. The result can be passed to --config",
		Args: cobra.ExactArgs(1),
		// Skip config loading
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			encrypted, err := config.Encrypt(data)
			if err != nil {
				return fmt.Errorf("failed to encrypt %s: %w", args[0], err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(encrypted)
				return err
			}
			return os.WriteFile(output, encrypted, 0o600)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
