package wall

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/yellowbridge/lamentwall/internal/apiclient"
	"github.com/yellowbridge/lamentwall/internal/contracts"
	"go.uber.org/zap"
)

const (
	MaxTextLen    = 2000
	MaxAuthorLen  = 100
	MaxCountryLen = 100
)

const (
	MsgTextRequired = "Please write your prayer before placing it on the wall."
	MsgLaid         = "Your prayer has been laid upon the wall. 🕊️"
	MsgSubmitFailed = "Failed to submit prayer. Please try again."
)

var ErrTextRequired = errors.New("prayer text is required")

type MessageKind string

const (
	KindNone    MessageKind = ""
	KindInfo    MessageKind = "info"
	KindSuccess MessageKind = "success"
	KindError   MessageKind = "error"
)

// Service performs wall actions against the external API.
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

// Feed loads a fresh feed for filter.
func (s *Service) Feed(ctx context.Context, filter string) *Feed {
	feed := NewFeed()
	feed.Load(ctx, s.API, s.Log, filter)
	return feed
}

// Stats fetches the aggregate alone, for the stats fragment.
func (s *Service) Stats(ctx context.Context) (*contracts.PrayerStats, error) {
	stats, err := s.API.PrayerStats(ctx)
	if err != nil {
		s.Log.Warn("load prayer stats failed", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}

// AmenOutcome is the count to render after an amen click.
type AmenOutcome struct {
	Count int
	// Recorded is true when the server accepted the amen and stats should
	// be refreshed.
	Recorded bool
}

// Amen records an endorsement. A duplicate or a failure leaves current as is;
// neither is surfaced to the visitor.
func (s *Service) Amen(ctx context.Context, prayerID int64, current int) AmenOutcome {
	res, err := s.API.Amen(ctx, prayerID)
	switch {
	case err == nil:
		return AmenOutcome{Count: res.AmenCount, Recorded: true}
	case errors.Is(err, apiclient.ErrAlreadyRecorded):
		s.Log.Debug("amen already recorded", zap.Int64("prayer_id", prayerID))
	default:
		s.Log.Warn("amen failed", zap.Int64("prayer_id", prayerID), zap.Error(err))
	}
	return AmenOutcome{Count: current}
}

// BurdenForm is the "lay your burden down" submission form.
type BurdenForm struct {
	Type    string
	Text    string
	Author  string
	Country string
	HP      string
}

// Clamp truncates to input maxlengths and defaults an unknown type to petition.
func (f BurdenForm) Clamp() BurdenForm {
	if !contracts.IsPrayerType(f.Type) {
		f.Type = contracts.PrayerPetition
	}
	f.Text = truncate(f.Text, MaxTextLen)
	f.Author = truncate(f.Author, MaxAuthorLen)
	f.Country = truncate(f.Country, MaxCountryLen)
	return f
}

func (f BurdenForm) Validate() error {
	if strings.TrimSpace(f.Text) == "" {
		return ErrTextRequired
	}
	return nil
}

// TextLen is the rune count shown as "n / 2000".
func (f BurdenForm) TextLen() int {
	return utf8.RuneCountInString(f.Text)
}

// BurdenState is the form after a submit attempt. Open is false once the
// form collapses.
type BurdenState struct {
	Form      BurdenForm
	Message   string
	Kind      MessageKind
	Open      bool
	Submitted bool
}

// Submit places a prayer on the wall. Author and country are omitted when
// blank.
func (s *Service) Submit(ctx context.Context, form BurdenForm) BurdenState {
	form = form.Clamp()
	if err := form.Validate(); err != nil {
		return BurdenState{Form: form, Message: MsgTextRequired, Kind: KindInfo, Open: true}
	}

	_, err := s.API.SubmitPrayer(ctx, contracts.PrayerSubmission{
		Type:    form.Type,
		Text:    form.Text,
		Author:  strings.TrimSpace(form.Author),
		Country: strings.TrimSpace(form.Country),
		HP:      form.HP,
	})
	if err == nil {
		return BurdenState{
			Form:      BurdenForm{Type: form.Type},
			Message:   MsgLaid,
			Kind:      KindSuccess,
			Submitted: true,
		}
	}

	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		return BurdenState{Form: form, Message: "Error: " + statusErr.Error(), Kind: KindError, Open: true}
	}
	s.Log.Warn("submit prayer failed", zap.Error(err))
	return BurdenState{Form: form, Message: MsgSubmitFailed, Kind: KindError, Open: true}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
