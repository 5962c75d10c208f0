package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/lesson-orchestrator/internal/config"
	"github.com/stemsi/lesson-orchestrator/internal/logger"
	"github.com/stemsi/lesson-orchestrator/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Issue Lesson Credential ===")

	secret := cfg.JWTSecret
	if secret == "" {
		fmt.Print("Enter JWT Secret: ")
		byteSecret, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Println("\nError reading secret")
			return
		}
		fmt.Println() // Newline after secret input
		secret = string(byteSecret)
	}

	// Learner
	fmt.Print("Enter Learner ID: ")
	learnerID, _ := reader.ReadString('\n')
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		fmt.Println("Error: Learner ID is required")
		return
	}

	// Token type
	fmt.Print("Observer token? [y/N]: ")
	answer, _ := reader.ReadString('\n')
	tokenType := service.TokenTypeLearner
	if strings.EqualFold(strings.TrimSpace(answer), "y") {
		tokenType = service.TokenTypeObserver
	}

	// Session
	fmt.Print("Enter Session ID (blank for a new session): ")
	sessionID, _ := reader.ReadString('\n')
	sessionID = strings.TrimSpace(sessionID)
	if tokenType == service.TokenTypeObserver && sessionID == "" {
		fmt.Println("Error: Observer tokens need a Session ID")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	authService, err := service.NewAuthService(secret, cfg.JWTExpiry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth")
	}

	issued, err := authService.GenerateToken(tokenType, learnerID, sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	fmt.Printf("\nLESSON_SESSION_ID=%s\nLESSON_TOKEN=%s\n# expires %s\n",
		issued.SessionID, issued.Token, issued.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
}
