package petition

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/yellowbridge/lamentwall/internal/apiclient"
	"github.com/yellowbridge/lamentwall/internal/contracts"
	"go.uber.org/zap"
)

const (
	MaxNameLen    = 200
	MaxCountryLen = 100
	MaxMessageLen = 800
)

const (
	MsgNameRequired = "Please enter your name."
	MsgRecorded     = "✓ Thank you — your signature has been recorded."
	MsgNetworkError = "Network error — please try again later."
)

var ErrNameRequired = errors.New("name is required")

// MessageKind selects how an inline status line is styled.
type MessageKind string

const (
	KindNone    MessageKind = ""
	KindInfo    MessageKind = "info"
	KindSuccess MessageKind = "success"
	KindError   MessageKind = "error"
)

// Form is the signature form as submitted by the browser.
type Form struct {
	Name    string
	Email   string
	Country string
	Message string
	HP      string
}

// Validate checks the only client-side rule: a non-blank name.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNameRequired
	}
	return nil
}

// Clamp truncates fields to their input maxlength.
func (f Form) Clamp() Form {
	f.Name = truncate(f.Name, MaxNameLen)
	f.Country = truncate(f.Country, MaxCountryLen)
	f.Message = truncate(f.Message, MaxMessageLen)
	return f
}

func (f Form) signature() contracts.Signature {
	return contracts.Signature{
		Name:    f.Name,
		Email:   f.Email,
		Country: f.Country,
		Message: f.Message,
		HP:      f.HP,
	}
}

// FormState is everything needed to re-render the form after a submit.
type FormState struct {
	Form      Form
	Message   string
	Kind      MessageKind
	Submitted bool
}

type API interface {
	PetitionInfo(ctx context.Context, petitionID string) (contracts.PetitionInfo, error)
	SignatureCount(ctx context.Context, petitionID string) (int64, error)
	Sign(ctx context.Context, petitionID string, sig contracts.Signature) error
	CreatePetition(ctx context.Context, adminToken string, p contracts.NewPetition) (contracts.CreatedPetition, error)
}

type Service struct {
	API API
	Log *zap.Logger
}

func NewService(api API, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{API: api, Log: log}
}

// Submit validates and sends one signature. It never retries.
func (s *Service) Submit(ctx context.Context, petitionID string, form Form) FormState {
	form = form.Clamp()
	if err := form.Validate(); err != nil {
		return FormState{Form: form, Message: MsgNameRequired, Kind: KindInfo}
	}

	err := s.API.Sign(ctx, petitionID, form.signature())
	if err == nil {
		return FormState{Message: MsgRecorded, Kind: KindSuccess, Submitted: true}
	}

	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		return FormState{Form: form, Message: "Error: " + statusErr.Error(), Kind: KindError}
	}
	s.Log.Warn("signature submission failed", zap.String("petition_id", petitionID), zap.Error(err))
	return FormState{Form: form, Message: MsgNetworkError, Kind: KindError}
}

// Page is the data behind the petition page shell.
type Page struct {
	PetitionID string
	Info       *contracts.PetitionInfo
	Count      int64
	// CountLoaded is false when the count fetch failed; the counter then
	// stays in its loading state and keeps polling.
	CountLoaded bool
}

// Found reports whether petition metadata arrived.
func (p Page) Found() bool {
	return p.Info != nil
}

// LoadPage fetches metadata and count concurrently. Each fetch owns its own
// result field and may fail without affecting the other.
func (s *Service) LoadPage(ctx context.Context, petitionID string) Page {
	page := Page{PetitionID: petitionID}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		info, err := s.API.PetitionInfo(ctx, petitionID)
		if err != nil {
			s.Log.Warn("fetch petition info failed", zap.String("petition_id", petitionID), zap.Error(err))
			return
		}
		page.Info = &info
	}()
	go func() {
		defer wg.Done()
		count, err := s.Count(ctx, petitionID)
		if err != nil {
			return
		}
		page.Count = count
		page.CountLoaded = true
	}()
	wg.Wait()
	return page
}

// Count fetches the current signature count.
func (s *Service) Count(ctx context.Context, petitionID string) (int64, error) {
	count, err := s.API.SignatureCount(ctx, petitionID)
	if err != nil {
		s.Log.Warn("fetch signature count failed", zap.String("petition_id", petitionID), zap.Error(err))
		return 0, err
	}
	return count, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
