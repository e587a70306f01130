package authz_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/authz"
	"github.com/scholaris/scholaris/internal/shared"
)

type recordedDecision struct {
	allowed bool
	reason  string
}

type fakeRecorder struct {
	decisions []recordedDecision
}

func (f *fakeRecorder) RecordAuthzDecision(allowed bool, reason string) {
	f.decisions = append(f.decisions, recordedDecision{allowed, reason})
}

func newGuardedServer(t *testing.T, store *fakeStore, recorder *fakeRecorder, userID string) *httptest.Server {
	t.Helper()
	cache, _ := newTestCache(t)
	resolver := authz.NewResolver(store, cache)
	gate := authz.NewGate(resolver, slog.Default())
	mw := authz.Middleware{Gate: gate, Logger: slog.Default()}
	if recorder != nil {
		mw.Metrics = recorder
	}

	r := chi.NewRouter()
	// Inject the session the way the app middleware would.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{}
			if userID != "" {
				sess.SetUser(userID)
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAny("view_students"))
		r.Get("/students", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestMiddlewareAnonymousGets401(t *testing.T) {
	srv := newGuardedServer(t, newFakeStore(), nil, "")

	resp, err := http.Get(srv.URL + "/students")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var problem struct {
		Title  string `json:"title"`
		Status int    `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	require.Equal(t, "Unauthenticated", problem.Title)
	require.Equal(t, http.StatusUnauthorized, problem.Status)
}

func TestMiddlewareMissingPermissionGets403WithRequiredList(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, "Teacher")
	store.grantRole(1, 1)
	recorder := &fakeRecorder{}
	srv := newGuardedServer(t, store, recorder, "1")

	resp, err := http.Get(srv.URL + "/students")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body struct {
		Message             string   `json:"message"`
		RequiredPermissions []string `json:"required_permissions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Message)
	require.Equal(t, []string{"view_students"}, body.RequiredPermissions)

	require.Len(t, recorder.decisions, 1)
	require.False(t, recorder.decisions[0].allowed)
	require.Equal(t, authz.ReasonMissingPermission, recorder.decisions[0].reason)
}

func TestMiddlewareGrantedPermissionPasses(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, "Teacher")
	store.grantRole(1, 1)
	store.grantPermission(1, "view_students")
	recorder := &fakeRecorder{}
	srv := newGuardedServer(t, store, recorder, "1")

	resp, err := http.Get(srv.URL + "/students")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, recorder.decisions, 1)
	require.True(t, recorder.decisions[0].allowed)
}

func TestMiddlewareResolutionFailureLooksLikeOrdinaryDeny(t *testing.T) {
	store := newFakeStore()
	store.failWith(errors.New("store down"))
	srv := newGuardedServer(t, store, nil, "1")

	resp, err := http.Get(srv.URL + "/students")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	// No internal error detail leaks into the response.
	require.NotContains(t, body.Message, "store down")
}

func TestMiddlewareSuperAdminPassesEverything(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, authz.SuperAdminRole)
	store.grantRole(1, 1)
	srv := newGuardedServer(t, store, nil, "1")

	resp, err := http.Get(srv.URL + "/students")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
