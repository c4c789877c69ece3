package domain

import "time"

// Answer is an append-only record of a response to a question slot.
type Answer struct {
	ID         int64     `json:"answer_id"`
	UserID     string    `json:"user_id"`
	QuestionID int       `json:"question_id"`
	Text       string    `json:"answer_text"`
	AnsweredAt time.Time `json:"answered_at"`
}

// AnswerDraft is an answer the engine decided to record but not yet stored.
type AnswerDraft struct {
	QuestionID int    `json:"question_id"`
	Text       string `json:"text"`
}

// LatestBySlot keeps the last answer per scripted slot (QuestionID > 0) and
// every ancillary answer (QuestionID == 0), both in insertion order.
func LatestBySlot(answers []Answer) (slots []Answer, ancillary []Answer) {
	index := make(map[int]int)
	for _, a := range answers {
		if a.QuestionID == 0 {
			ancillary = append(ancillary, a)
			continue
		}
		if i, ok := index[a.QuestionID]; ok {
			slots[i] = a
			continue
		}
		index[a.QuestionID] = len(slots)
		slots = append(slots, a)
	}
	return slots, ancillary
}
