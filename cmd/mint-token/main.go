// Command mint-token issues a signed bearer token for local testing.
//
//	AUTH_JWT_SECRET=... mint-token -sub alice -role staff
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"leaf-kart/internal/auth"
)

func main() {
	subject := flag.String("sub", "member-1", "customer or staff id")
	role := flag.String("role", string(auth.RoleMember), "member or staff")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "Error: AUTH_JWT_SECRET is required")
		os.Exit(1)
	}

	token, err := auth.NewTokenManager(secret, *ttl).Issue(*subject, auth.Role(*role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
