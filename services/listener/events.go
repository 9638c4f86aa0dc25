package listener

import uuid "github.com/satori/go.uuid"

type EpisodeFinishChanged struct {
	EpisodeID uuid.UUID `json:"episode_id"`
	SubjectID uuid.UUID `json:"subject_id"`
	UserID    uuid.UUID `json:"user_id"`
	Finished  bool      `json:"finish"`
}

type SubjectCollected struct {
	SubjectID uuid.UUID `json:"subject_id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Private   bool      `json:"private"`
}

type SubjectUncollected struct {
	SubjectID uuid.UUID `json:"subject_id"`
	UserID    uuid.UUID `json:"user_id"`
}

type ConfigChanged struct{}
