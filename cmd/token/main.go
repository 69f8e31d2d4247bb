// Command token mints an operator bearer token for GET /logs.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"address-validator/internal/auth"
	"address-validator/internal/config"
	"address-validator/internal/rbac"
	"address-validator/pkg/logger"
)

func main() {
	subject := flag.String("subject", "", "operator identity written to the sub claim")
	role := flag.String("role", rbac.RoleLogViewer, "operator role (admin or log_viewer)")
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr, "", "info")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if !rbac.Known(*role) {
		log.Error("unknown role", "role", *role)
		os.Exit(2)
	}

	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	tok, err := m.Issue(time.Now(), *subject, *role)
	if err != nil {
		log.Error("issue failed", "err", err)
		os.Exit(2)
	}

	log.Info("operator token issued", "subject", *subject, "role", *role, "ttl", cfg.Auth.TokenTTL.String())
	fmt.Println(tok)
}
