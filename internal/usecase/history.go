package usecase

import (
	"context"

	"campusvoice/internal/domain"
	"campusvoice/internal/ports"
)

// historyLoader hydrates a transcript from the answering service's stored
// message log, preserving server order exactly.
type historyLoader struct {
	service ports.AnswerService
}

const historyRecordHuman = "human"

func (h historyLoader) Fetch(ctx context.Context, sessionID string) ([]domain.Message, error) {
	records, err := h.service.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	transcript := make([]domain.Message, 0, len(records))
	for _, record := range records {
		sender := domain.SenderBot
		if record.Kind == historyRecordHuman {
			sender = domain.SenderUser
		}
		transcript = append(transcript, domain.Message{Sender: sender, Text: record.Content})
	}
	return transcript, nil
}
