package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSSO/password"
	"github.com/spf13/cobra"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the Argon2id hash of a password",
	Long: `Hashes a password with the server's Argon2id parameters, for seeding the
principal table. Reads the password from stdin when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var plain string
		if len(args) == 1 {
			plain = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			plain = strings.TrimRight(line, "\r\n")
		}
		if plain == "" {
			return errors.New("password must not be empty")
		}

		h, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return err
		}
		hash, err := h.Hash(plain)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
