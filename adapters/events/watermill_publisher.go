package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/driftmail/walletauth/core"
	"github.com/driftmail/walletauth/ports"
)

// LoginEvent represents a successful wallet sign-in
type LoginEvent struct {
	IdentityID string `json:"identity_id"`
	Address    string `json:"address"`
	IsNewUser  bool   `json:"is_new_user"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// LogoutEvent represents a logout event
type LogoutEvent struct {
	IdentityID string `json:"identity_id"`
	TokenID    string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher   message.Publisher
	loginTopic  string
	logoutTopic string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher:   publisher,
		loginTopic:  "walletauth.login",
		logoutTopic: "walletauth.logout",
	}
}

// PublishLogin publishes a wallet sign-in event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, session *core.WalletSession, isNewUser bool) error {
	event := LoginEvent{
		IdentityID: session.IdentityID,
		Address:    session.Address,
		IsNewUser:  isNewUser,
		UserAgent:  session.Device.UserAgent,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(session.ID, payload)

	if err := p.publisher.Publish(p.loginTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identityID string, tokenID string) error {
	event := LogoutEvent{
		IdentityID: identityID,
		TokenID:    tokenID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(tokenID, payload)

	if err := p.publisher.Publish(p.logoutTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
