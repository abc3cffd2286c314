// Command create-admin bootstraps an administrator account. Admins cannot sign up
// through the public API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	name := flag.String("name", "Administrator", "display name")
	email := flag.String("email", "", "login email (required)")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password, defaults to $ADMIN_PASSWORD")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "error: -email and -password are required")
		flag.Usage()
		return 2
	}

	cfg, err := config.Load("admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	client, database, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer db.DisconnectDB(client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.EnsureIndexes(ctx, database); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	users := services.NewUserService(database, cfg, nil)
	user, err := users.CreateAdmin(ctx, *name, *email, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("Created admin %s (%s)\n", user.Email, user.ID)
	return 0
}
