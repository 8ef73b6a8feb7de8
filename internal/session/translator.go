package session

import "context"

// Translator translates inbound message text into the session language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}
