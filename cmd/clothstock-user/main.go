// Command clothstock-user creates a login or resets its password and role.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"clothstock/config"
	"clothstock/store"
)

func main() {
	configPath := flag.String("config", "clothstock.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file")
	username := flag.String("username", "", "login name (required)")
	password := flag.String("password", "", "password (required)")
	role := flag.String("role", "staff", "admin or staff")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: clothstock-user -username NAME -password PASS [-role admin|staff]")
		os.Exit(2)
	}
	if *role != string(store.RoleAdmin) && *role != string(store.RoleStaff) {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	if err := config.LoadDotEnv(*envPath); err != nil {
		fatal("load env", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config", err)
	}
	db, err := store.Open(&cfg.Database)
	if err != nil {
		fatal("open database", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fatal("hash password", err)
	}
	created, err := db.UpsertUser(context.Background(), *username, string(hash), store.ParseRole(*role))
	if err != nil {
		fatal("save user", err)
	}
	if created {
		fmt.Printf("created user %s (%s)\n", *username, *role)
	} else {
		fmt.Printf("updated user %s (%s)\n", *username, *role)
	}
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
