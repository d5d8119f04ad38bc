package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableOutput()
	os.Exit(m.Run())
}

type fakePrompter struct {
	confirm   bool
	confirmed []string
	inputs    map[string]string
	password  string
}

func (f *fakePrompter) Confirm(message string, _ bool) (bool, error) {
	f.confirmed = append(f.confirmed, message)
	return f.confirm, nil
}

func (f *fakePrompter) Input(title, placeholder string, _ func(string) error) (string, error) {
	if v, ok := f.inputs[title]; ok {
		return v, nil
	}
	return placeholder, nil
}

func (f *fakePrompter) Password(string) (string, error) { return f.password, nil }

func (f *fakePrompter) Select(_ string, _ []string, def string) (string, error) { return def, nil }

type apiCall struct {
	Method         string
	Path           string
	Authorization  string
	IdempotencyKey string
	Body           map[string]any
}

// fakeAPI answers the routes the CLI uses. Expenses without confirm are
// rejected with CONFIRMATION_REQUIRED when requireConfirm is set.
type fakeAPI struct {
	mu             sync.Mutex
	calls          []apiCall
	requireConfirm bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := apiCall{
		Method:         r.Method,
		Path:           r.URL.Path,
		Authorization:  r.Header.Get("Authorization"),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &call.Body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	requireConfirm := f.requireConfirm
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/v1/auth/login":
		io.WriteString(w, `{"success":true,"data":{"token":"tok-123","expires_at":"2026-03-05T12:00:00Z",
			"user":{"id":"6f1c2a5e-1111-4a3b-9c1d-000000000001","username":"maria"},
			"ledger":{"budget":"1000","remaining":"1000","status":"ok","transactions":[]}}}`)
	case r.URL.Path == "/api/v1/ledger/transactions" && requireConfirm && call.Body["confirm"] != true:
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"success":false,"data":null,"error":{"code":"CONFIRMATION_REQUIRED","message":"confirm",
			"details":{"threshold":"500","projected_spent":"600","value_in_base":"200"}}}`)
	case r.URL.Path == "/api/v1/users/me" && r.Method == http.MethodGet:
		io.WriteString(w, `{"success":true,"data":{"id":"6f1c2a5e-1111-4a3b-9c1d-000000000001","username":"maria",
			"email":"maria@example.com","name":"Maria","lastname":"Perez","full_name":"Maria Perez"}}`)
	case r.URL.Path == "/api/v1/users/me" && r.Method == http.MethodPatch:
		io.WriteString(w, `{"success":true,"data":{"id":"6f1c2a5e-1111-4a3b-9c1d-000000000001","username":"maria",
			"email":"maria@example.com","name":"Ana","lastname":"Perez","full_name":"Ana Perez"}}`)
	case r.URL.Path == "/api/v1/ledger/transactions":
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"success":true,"data":{"id":1,"date":"2026-03-04T12:00:00Z","description":"tv",
			"original_amount":"200","original_currency":"VES","value_in_base":"200","balance_after":"400"}}`)
	default:
		io.WriteString(w, `{"success":true,"data":{"budget":"0","transactions":[]}}`)
	}
}

func (f *fakeAPI) recorded() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

func run(t *testing.T, api *fakeAPI, prompts *fakePrompter, cfgPath string, args ...string) error {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	app := NewApp(prompts)
	app.stderr = io.Discard
	root := NewRootCmd(app)
	root.SetArgs(append([]string{"--config", cfgPath, "--server", srv.URL}, args...))
	return root.Execute()
}

func writeToken(t *testing.T, token string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: "+token+"\n"), 0o600))
	return path
}

func TestLogin_SavesToken(t *testing.T) {
	api := &fakeAPI{}
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	err := run(t, api, &fakePrompter{password: "secreto"}, path, "login", "maria")
	require.NoError(t, err)

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "maria", calls[0].Body["identifier"])
	assert.Equal(t, "secreto", calls[0].Body["password"])

	saved := viper.New()
	saved.SetConfigFile(path)
	require.NoError(t, saved.ReadInConfig())
	assert.Equal(t, "tok-123", saved.GetString("token"))
	assert.Equal(t, "maria", saved.GetString("username"))
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name           string
		requireConfirm bool
		accept         bool
		args           []string
		wantCalls      int
		wantLastBody   map[string]any
		wantPrompted   bool
	}{
		{
			name:         "below threshold",
			args:         []string{"add", "pan", "--amount", "45"},
			wantCalls:    1,
			wantLastBody: map[string]any{"description": "pan", "amount": "45"},
		},
		{
			name:           "confirmed after warning",
			requireConfirm: true,
			accept:         true,
			args:           []string{"add", "tv", "--amount", "200", "--currency", "usd"},
			wantCalls:      2,
			wantLastBody:   map[string]any{"description": "tv", "amount": "200", "currency": "USD", "confirm": true},
			wantPrompted:   true,
		},
		{
			name:           "declined after warning",
			requireConfirm: true,
			accept:         false,
			args:           []string{"add", "tv", "--amount", "200"},
			wantCalls:      1,
			wantLastBody:   map[string]any{"description": "tv", "amount": "200"},
			wantPrompted:   true,
		},
		{
			name:           "pre-confirmed with flag",
			requireConfirm: true,
			args:           []string{"add", "tv", "--amount", "200", "--yes"},
			wantCalls:      1,
			wantLastBody:   map[string]any{"description": "tv", "amount": "200", "confirm": true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{requireConfirm: tc.requireConfirm}
			prompts := &fakePrompter{confirm: tc.accept}

			err := run(t, api, prompts, writeToken(t, "tok"), tc.args...)
			require.NoError(t, err)

			calls := api.recorded()
			require.Len(t, calls, tc.wantCalls)
			last := calls[len(calls)-1]
			assert.Equal(t, tc.wantLastBody, last.Body)
			assert.Equal(t, "Bearer tok", last.Authorization)
			assert.NotEmpty(t, last.IdempotencyKey)
			assert.Equal(t, calls[0].IdempotencyKey, last.IdempotencyKey)
			assert.Equal(t, tc.wantPrompted, len(prompts.confirmed) > 0)
		})
	}
}

func TestAdd_PromptsForMissingValues(t *testing.T) {
	api := &fakeAPI{}
	prompts := &fakePrompter{inputs: map[string]string{"Description": "cafe", "Amount": "12.5"}}

	require.NoError(t, run(t, api, prompts, writeToken(t, "tok"), "add"))

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "cafe", calls[0].Body["description"])
	assert.Equal(t, "12.5", calls[0].Body["amount"])
	assert.Equal(t, "VES", calls[0].Body["currency"])
}

func TestAdd_RejectsBadAmountLocally(t *testing.T) {
	api := &fakeAPI{}

	err := run(t, api, &fakePrompter{}, writeToken(t, "tok"), "add", "x", "--amount", "-3")
	require.Error(t, err)
	assert.Empty(t, api.recorded())
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		accept    bool
		wantCalls int
	}{
		{name: "with flag", args: []string{"delete", "42", "--yes"}, wantCalls: 1},
		{name: "confirmed", args: []string{"delete", "42"}, accept: true, wantCalls: 1},
		{name: "cancelled", args: []string{"delete", "42"}, wantCalls: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{}
			require.NoError(t, run(t, api, &fakePrompter{confirm: tc.accept}, writeToken(t, "tok"), tc.args...))

			calls := api.recorded()
			require.Len(t, calls, tc.wantCalls)
			if tc.wantCalls > 0 {
				assert.Equal(t, http.MethodDelete, calls[0].Method)
				assert.Equal(t, "/api/v1/ledger/transactions/42", calls[0].Path)
			}
		})
	}
}

func TestBudget(t *testing.T) {
	api := &fakeAPI{}

	require.NoError(t, run(t, api, &fakePrompter{}, writeToken(t, "tok"), "budget", "1500", "--alert", "1200"))

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].Method)
	assert.Equal(t, "1500", calls[0].Body["budget"])
	assert.Equal(t, "1200", calls[0].Body["alert_threshold"])
}

func TestCommandsRequireLogin(t *testing.T) {
	api := &fakeAPI{}
	path := filepath.Join(t.TempDir(), "config.yaml")

	err := run(t, api, &fakePrompter{}, path, "balance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
	assert.Empty(t, api.recorded())
}

func TestLogout_ClearsToken(t *testing.T) {
	api := &fakeAPI{}
	path := writeToken(t, "tok")

	require.NoError(t, run(t, api, &fakePrompter{}, path, "logout"))

	saved := viper.New()
	saved.SetConfigFile(path)
	require.NoError(t, saved.ReadInConfig())
	assert.Empty(t, saved.GetString("token"))
	require.Len(t, api.recorded(), 1)
	assert.Equal(t, "/api/v1/auth/logout", api.recorded()[0].Path)
}

func TestProfile(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		inputs    map[string]string
		wantCalls []string
		wantBody  map[string]any
	}{
		{
			name:      "flags skip prompts",
			args:      []string{"profile", "--name", "Ana"},
			wantCalls: []string{"PATCH /api/v1/users/me"},
			wantBody:  map[string]any{"name": "Ana"},
		},
		{
			name:      "prompts with current values",
			args:      []string{"profile"},
			inputs:    map[string]string{"Name": "Ana"},
			wantCalls: []string{"GET /api/v1/users/me", "PATCH /api/v1/users/me"},
			wantBody:  map[string]any{"name": "Ana"},
		},
		{
			name:      "unchanged answers send nothing",
			args:      []string{"profile"},
			wantCalls: []string{"GET /api/v1/users/me"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{}
			require.NoError(t, run(t, api, &fakePrompter{inputs: tc.inputs}, writeToken(t, "tok"), tc.args...))

			calls := api.recorded()
			var got []string
			for _, c := range calls {
				got = append(got, c.Method+" "+c.Path)
			}
			assert.Equal(t, tc.wantCalls, got)
			if tc.wantBody != nil {
				assert.Equal(t, tc.wantBody, calls[len(calls)-1].Body)
			}
		})
	}
}
