package service

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc, err := NewAuthService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	issued, err := svc.GenerateToken(TokenTypeLearner, "learner-7", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if issued.SessionID == "" {
		t.Fatal("expected a generated session id")
	}

	claims, err := svc.ValidateToken(issued.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.LearnerID != "learner-7" || claims.SessionID != issued.SessionID || claims.TokenType != TokenTypeLearner {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	a, _ := NewAuthService("secret-a", time.Hour)
	b, _ := NewAuthService("secret-b", time.Hour)

	issued, err := a.GenerateToken(TokenTypeObserver, "learner-7", "sess-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := b.ValidateToken(issued.Token); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, _ := NewAuthService("test-secret", time.Nanosecond)
	issued, err := svc.GenerateToken(TokenTypeLearner, "learner-7", "sess-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := svc.ValidateToken(issued.Token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestAuthServiceRequiresSecretAndLearner(t *testing.T) {
	if _, err := NewAuthService("", time.Hour); !errors.Is(err, ErrSecretRequired) {
		t.Errorf("expected ErrSecretRequired, got %v", err)
	}
	svc, _ := NewAuthService("s", time.Hour)
	if _, err := svc.GenerateToken(TokenTypeLearner, "", ""); !errors.Is(err, ErrLearnerRequired) {
		t.Errorf("expected ErrLearnerRequired, got %v", err)
	}
}
