package brackets

import (
	"context"

	"github.com/Dosada05/ranked-portal/models"
)

// GenerateBracketParams: участники в порядке регистрации, он же порядок посева.
type GenerateBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant
}

// BracketGenerator builds an unsaved bracket tree. Only single elimination
// is implemented.
type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)
	Name() string
}
