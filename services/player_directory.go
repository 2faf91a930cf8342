package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/repositories"
	"github.com/Dosada05/ranked-portal/storage"
)

// ParticipantProfile is the display data of one participant.
type ParticipantProfile struct {
	ParticipantID int     `json:"participant_id"`
	UserID        int     `json:"user_id"`
	Nickname      string  `json:"nickname"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
}

// PlayerDirectory resolves participants to display names and avatars.
type PlayerDirectory interface {
	Describe(ctx context.Context, participants []*models.Participant) (map[int]ParticipantProfile, error)
}

type userDirectory struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
}

func NewPlayerDirectory(userRepo repositories.UserRepository, uploader storage.FileUploader) PlayerDirectory {
	return &userDirectory{userRepo: userRepo, uploader: uploader}
}

func (d *userDirectory) Describe(ctx context.Context, participants []*models.Participant) (map[int]ParticipantProfile, error) {
	out := make(map[int]ParticipantProfile, len(participants))
	if len(participants) == 0 {
		return out, nil
	}

	ids := make([]int, 0, len(participants))
	seen := make(map[int]bool, len(participants))
	for _, p := range participants {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
	}

	users, err := d.userRepo.ListByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve participant users: %w", err)
	}
	byID := make(map[int]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for _, p := range participants {
		profile := ParticipantProfile{ParticipantID: p.ID, UserID: p.UserID}
		if u, ok := byID[p.UserID]; ok {
			profile.Nickname = u.Nickname
			if u.LogoKey != nil && d.uploader != nil {
				if url := d.uploader.GetPublicURL(*u.LogoKey); url != "" {
					profile.AvatarURL = &url
				}
			}
		} else {
			profile.Nickname = fmt.Sprintf("Participant (ID: %d)", p.ID)
		}
		out[p.ID] = profile
	}
	return out, nil
}
