package petition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yellowbridge/lamentwall/internal/apiclient"
	"github.com/yellowbridge/lamentwall/internal/contracts"
)

type fakeAPI struct {
	info     contracts.PetitionInfo
	infoErr  error
	count    int64
	countErr error
	signErr  error

	createErr error
	created   contracts.CreatedPetition

	signCalls atomic.Int32
	lastSig   contracts.Signature
	lastToken string
	lastNew   contracts.NewPetition
}

func (f *fakeAPI) PetitionInfo(context.Context, string) (contracts.PetitionInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeAPI) SignatureCount(context.Context, string) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeAPI) Sign(_ context.Context, _ string, sig contracts.Signature) error {
	f.signCalls.Add(1)
	f.lastSig = sig
	return f.signErr
}

func (f *fakeAPI) CreatePetition(_ context.Context, token string, p contracts.NewPetition) (contracts.CreatedPetition, error) {
	f.lastToken = token
	f.lastNew = p
	return f.created, f.createErr
}

func TestSubmit_BlankNameNeverCallsAPI(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil)

	state := svc.Submit(context.Background(), "p", Form{Name: "   ", Email: "a@b.c"})
	if state.Message != MsgNameRequired || state.Kind != KindInfo {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.Form.Email != "a@b.c" {
		t.Fatalf("form fields must be preserved, got %+v", state.Form)
	}
	if api.signCalls.Load() != 0 {
		t.Fatalf("sign must not be called for blank name")
	}
}

func TestSubmit_SuccessClearsForm(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil)

	state := svc.Submit(context.Background(), "p", Form{Name: "Ada", Country: "UK", HP: "bot"})
	want := FormState{Message: MsgRecorded, Kind: KindSuccess, Submitted: true}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	if api.lastSig.HP != "bot" {
		t.Fatalf("honeypot must be forwarded, got %+v", api.lastSig)
	}
}

func TestSubmit_Errors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"status body", &apiclient.StatusError{Code: 429, Body: "slow down"}, "Error: slow down"},
		{"status code only", &apiclient.StatusError{Code: 500}, "Error: 500"},
		{"transport", fmt.Errorf("%w: boom", apiclient.ErrTransport), MsgNetworkError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&fakeAPI{signErr: tc.err}, nil)
			state := svc.Submit(context.Background(), "p", Form{Name: "Ada", Message: "hi"})
			if state.Message != tc.message || state.Kind != KindError {
				t.Fatalf("unexpected state %+v", state)
			}
			if state.Form.Message != "hi" || state.Submitted {
				t.Fatalf("form must be kept on failure, got %+v", state)
			}
		})
	}
}

func TestFormClamp(t *testing.T) {
	form := Form{Name: strings.Repeat("é", MaxNameLen+5), Message: strings.Repeat("x", MaxMessageLen+1)}.Clamp()
	if n := len([]rune(form.Name)); n != MaxNameLen {
		t.Fatalf("name rune length = %d", n)
	}
	if n := len(form.Message); n != MaxMessageLen {
		t.Fatalf("message length = %d", n)
	}
}

func TestLoadPage_IndependentFailures(t *testing.T) {
	svc := NewService(&fakeAPI{infoErr: errors.New("down"), count: 1234}, nil)
	page := svc.LoadPage(context.Background(), "p")
	if page.Found() {
		t.Fatal("info should be missing")
	}
	if !page.CountLoaded || page.Count != 1234 {
		t.Fatalf("count should load independently, got %+v", page)
	}

	svc = NewService(&fakeAPI{info: contracts.PetitionInfo{Title: "Save the park"}, countErr: errors.New("down")}, nil)
	page = svc.LoadPage(context.Background(), "p")
	if !page.Found() || page.Info.Title != "Save the park" {
		t.Fatalf("info should load, got %+v", page)
	}
	if page.CountLoaded {
		t.Fatal("count must stay unloaded on failure")
	}
}

func TestAdminForm_Validate(t *testing.T) {
	cases := []struct {
		form AdminForm
		want error
	}{
		{AdminForm{LinkID: "x"}, ErrTitleRequired},
		{AdminForm{Title: "T"}, ErrLinkIDRequired},
		{AdminForm{Title: "T", LinkID: "has space"}, ErrLinkIDInvalid},
		{AdminForm{Title: "T", LinkID: "dash-no"}, ErrLinkIDInvalid},
		{AdminForm{Title: "T", LinkID: "save_the_park2"}, nil},
	}
	for _, tc := range cases {
		if got := tc.form.Validate(); !errors.Is(got, tc.want) {
			t.Errorf("Validate(%+v) = %v, want %v", tc.form, got, tc.want)
		}
	}
}

func TestCreate(t *testing.T) {
	api := &fakeAPI{created: contracts.CreatedPetition{ID: "17"}}
	svc := NewService(api, nil)

	state := svc.Create(context.Background(), AdminForm{Title: "T", LinkID: " park ", Token: "tok"})
	if state.Kind != KindSuccess || state.Message != "Petition created successfully! ID: 17" {
		t.Fatalf("unexpected state %+v", state)
	}
	if api.lastToken != "tok" || api.lastNew.LinkID != "park" {
		t.Fatalf("unexpected request token=%q petition=%+v", api.lastToken, api.lastNew)
	}

	api.createErr = &apiclient.StatusError{Code: 401}
	state = svc.Create(context.Background(), AdminForm{Title: "T", LinkID: "park"})
	if state.Message != "Error creating petition" {
		t.Fatalf("unexpected message %q", state.Message)
	}

	api.createErr = &apiclient.StatusError{Code: 400, Body: "link id taken"}
	state = svc.Create(context.Background(), AdminForm{Title: "T", LinkID: "park"})
	if state.Message != "link id taken" || state.Form.Title != "T" {
		t.Fatalf("unexpected state %+v", state)
	}

	api.createErr = apiclient.ErrTransport
	state = svc.Create(context.Background(), AdminForm{Title: "T", LinkID: "park"})
	if state.Message != "Network error" {
		t.Fatalf("unexpected message %q", state.Message)
	}
}
