// Command admin bootstraps backoffice operator accounts. It connects to
// the same database as the server, so it must run with the same config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/cryptox"
	"github.com/transdovic/backoffice/internal/flagx"
	"github.com/transdovic/backoffice/internal/server/config"
	"github.com/transdovic/backoffice/internal/server/models"
	"github.com/transdovic/backoffice/internal/server/store"
)

func main() {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	username := fs.String("username", "", "operator username")
	generate := fs.Bool("generate", false, "generate a random password instead of prompting")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-username", "-generate"}))

	if *username == "" {
		log.Fatal("usage: admin -username NAME [-generate] [-config FILE]")
	}

	cfg, err := config.Load(flagx.ConfigPathFlag())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var password []byte
	if *generate {
		generated, err := common.MakeRandHexString(12)
		if err != nil {
			log.Fatalf("generate password: %v", err)
		}
		fmt.Printf("generated password: %s\n", generated)
		password = []byte(generated)
	} else {
		password, err = readPassword()
		if err != nil {
			log.Fatalf("password: %v", err)
		}
	}
	defer common.WipeByteArray(password)

	ctx := context.Background()

	pg, err := store.NewPostgres(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer pg.Close()

	salt := cryptox.NewSalt()
	admin, err := pg.Admins().Create(ctx, &models.Admin{
		Username:     *username,
		PasswordHash: cryptox.HashPassword(password, salt),
		Salt:         salt,
	})
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}

	fmt.Printf("created admin %s (id %s)\n", admin.Username, admin.ID)
}

// readPassword prompts twice without echo and checks both entries match.
func readPassword() ([]byte, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}

	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(second)

	if len(first) == 0 {
		return nil, fmt.Errorf("empty password")
	}
	if string(first) != string(second) {
		return nil, fmt.Errorf("passwords do not match")
	}
	return first, nil
}
