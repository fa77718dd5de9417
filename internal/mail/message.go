// Package mail delivers transactional email through a Redis stream so that
// request handlers never wait on a mail provider.
package mail

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRecipient is returned for a message without a To address.
	ErrNoRecipient = errors.New("mail message has no recipient")
	// ErrPermanent marks a provider rejection that retrying cannot fix.
	ErrPermanent = errors.New("permanent mail delivery failure")
)

// Message is a plain-text email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate checks the message can be handed to a sender.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return fmt.Errorf("%w: header contains line break", ErrPermanent)
	}
	return nil
}

// ConfirmationEmail builds the account confirmation message sent after registration.
func ConfirmationEmail(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Confirme seu e-mail",
		Body: fmt.Sprintf(
			"Olá,\n\nSeu cadastro no painel foi criado. Confirme seu e-mail acessando o link abaixo:\n\n%s\n\nSe você não fez este cadastro, ignore esta mensagem.\n",
			link,
		),
	}
}

// PasswordResetEmail builds the password reset message.
func PasswordResetEmail(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Redefinição de senha",
		Body: fmt.Sprintf(
			"Olá,\n\nRecebemos um pedido para redefinir sua senha. Use o link abaixo para escolher uma nova senha:\n\n%s\n\nO link expira em breve. Se você não pediu a redefinição, ignore esta mensagem.\n",
			link,
		),
	}
}
