package petition

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/yellowbridge/lamentwall/internal/apiclient"
	"github.com/yellowbridge/lamentwall/internal/contracts"
	"go.uber.org/zap"
)

var (
	ErrTitleRequired  = errors.New("Petition title is required.")
	ErrLinkIDRequired = errors.New("Unique link ID is required.")
	ErrLinkIDInvalid  = errors.New("Only letters, numbers, and underscores allowed.")
)

var linkIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// AdminForm is the dashboard's create-petition form.
type AdminForm struct {
	Title       string
	Description string
	LinkID      string
	// Token is the shared admin token typed in by the operator. It is only
	// forwarded, never checked here.
	Token string
}

func (f AdminForm) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	linkID := strings.TrimSpace(f.LinkID)
	if linkID == "" {
		return ErrLinkIDRequired
	}
	if !linkIDPattern.MatchString(linkID) {
		return ErrLinkIDInvalid
	}
	return nil
}

// AdminState is the dashboard form after a create attempt.
type AdminState struct {
	Form    AdminForm
	Message string
	Kind    MessageKind
}

// Create posts a new petition with the operator's admin token.
func (s *Service) Create(ctx context.Context, form AdminForm) AdminState {
	if err := form.Validate(); err != nil {
		return AdminState{Form: form, Message: err.Error(), Kind: KindError}
	}

	created, err := s.API.CreatePetition(ctx, form.Token, contracts.NewPetition{
		Title:       form.Title,
		Description: form.Description,
		LinkID:      strings.TrimSpace(form.LinkID),
	})
	if err == nil {
		return AdminState{
			Message: "Petition created successfully! ID: " + string(created.ID),
			Kind:    KindSuccess,
		}
	}

	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.Body
		if msg == "" {
			msg = "Error creating petition"
		}
		return AdminState{Form: form, Message: msg, Kind: KindError}
	}
	s.Log.Warn("create petition failed", zap.Error(err))
	return AdminState{Form: form, Message: "Network error", Kind: KindError}
}
