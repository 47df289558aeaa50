// Command hash-password prints a bcrypt hash for each password given as an
// argument, or read line by line from stdin. Operators use it to seed users
// directly in the database.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	flag.Parse()

	if err := run(os.Stdout, os.Stdin, flag.Args(), *cost); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(out io.Writer, in io.Reader, passwords []string, cost int) error {
	hasher := auth.NewBcryptVerifier(cost)

	if len(passwords) == 0 {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			passwords = append(passwords, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read passwords: %w", err)
		}
	}

	for _, password := range passwords {
		if len(password) < domain.MinPasswordLength || len(password) > domain.MaxPasswordLength {
			return fmt.Errorf("password must be %d to %d bytes", domain.MinPasswordLength, domain.MaxPasswordLength)
		}
		hash, err := hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if _, err := fmt.Fprintln(out, hash); err != nil {
			return err
		}
	}
	return nil
}
